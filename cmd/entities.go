package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/service"
	"github.com/loog-project/roster/internal/store"
)

// history is the kind independent part of the entity services.
type history interface {
	Kind() model.Kind
	History(ctx context.Context, id int64) ([]service.Revision, error)
	Revision(ctx context.Context, id int64, rev store.RevisionID) (*store.Snapshot, error)
}

var (
	_ history = (*service.CoachService)(nil)
	_ history = (*service.PlayerService)(nil)
	_ history = (*service.TeamService)(nil)
)

func (a *app) history(kind model.Kind) history {
	switch kind {
	case model.KindCoach:
		return a.roster.Coaches
	case model.KindPlayer:
		return a.roster.Players
	default:
		return a.roster.Teams
	}
}

// describe returns a one-line description of the entity.
func (a *app) describe(ctx context.Context, kind model.Kind, id int64) (string, error) {
	var (
		desc string
		ok   bool
		err  error
	)
	switch kind {
	case model.KindCoach:
		var c *model.Coach
		if c, ok, err = a.roster.Coaches.FindByID(ctx, id); ok {
			desc = c.FullName()
			if c.TeamID != 0 {
				desc += fmt.Sprintf(", coach of team %d", c.TeamID)
			}
		}
	case model.KindPlayer:
		var p *model.Player
		if p, ok, err = a.roster.Players.FindByID(ctx, id); ok {
			desc = fmt.Sprintf("%s, %s, market value %s", p.Name, positionName(p.Position),
				humanize.Commaf(float64(p.MarketValue)))
		}
	case model.KindTeam:
		var t *model.Team
		if t, ok, err = a.roster.Teams.FindByID(ctx, id); ok {
			desc = fmt.Sprintf("%s, %d players", t.Name, len(t.PlayerIDs))
			if t.CoachID != 0 {
				desc += fmt.Sprintf(", coached by %d", t.CoachID)
			}
		}
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &service.UnknownEntityError{Kind: kind, ID: id}
	}
	return desc, nil
}

func positionName(p model.Position) string {
	if p == model.PositionUnknown {
		return "unknown position"
	}
	return p.String()
}

// parseRef parses the KIND ID arguments of a command.
func parseRef(args []string) (model.Kind, int64, error) {
	kind, err := model.ParseKind(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid id %q: %w", args[1], err)
	}
	return kind, id, nil
}

// kindCompletion completes the first argument with the entity kinds.
func kindCompletion(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return kindNames(), cobra.ShellCompDirectiveNoFileComp
}

func kindNames() []string {
	kinds := make([]string, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		kinds = append(kinds, k.Plural())
	}
	return kinds
}
