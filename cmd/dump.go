package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/service"
)

var dumpRevisions bool

var dumpCmd = &cobra.Command{
	Use:   "dump [KIND...]",
	Short: "Dumps the raw content of the database for debugging",
	Long: `Dump prints every stored entity of the given kinds (all kinds if none are
given) including its Go types. With --revisions the history of each entity is
printed as well.`,
	ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return kindNames(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := model.Kinds
		if len(args) > 0 {
			kinds = nil
			for _, arg := range args {
				kind, err := model.ParseKind(arg)
				if err != nil {
					return err
				}
				kinds = append(kinds, kind)
			}
		}

		a, err := openDefaultApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
		for _, kind := range kinds {
			if err := a.dump(cmd.Context(), cmd.OutOrStdout(), &cfg, kind); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().BoolVarP(&dumpRevisions, "revisions", "r", false,
		"Also dump the revisions of every entity")
	rootCmd.AddCommand(dumpCmd)
}

func (a *app) dump(ctx context.Context, w io.Writer, cfg *spew.ConfigState, kind model.Kind) error {
	all := service.ListOptions{Limit: service.MaxListLimit}

	var entities []model.Entity
	for {
		var (
			page []model.Entity
			err  error
		)
		switch kind {
		case model.KindCoach:
			page, err = listPage(ctx, a.roster.Coaches, all)
		case model.KindPlayer:
			page, err = listPage(ctx, a.roster.Players, all)
		case model.KindTeam:
			page, err = listPage(ctx, a.roster.Teams, all)
		}
		if err != nil {
			return err
		}
		entities = append(entities, page...)
		if len(page) < all.Limit {
			break
		}
		all.Offset += len(page)
	}

	fmt.Fprintf(w, "# %s (%d)\n", kind.Plural(), len(entities))
	for _, e := range entities {
		cfg.Fdump(w, e)
		if !dumpRevisions {
			continue
		}
		revisions, err := a.history(kind).History(ctx, e.GetID())
		if err != nil {
			return err
		}
		cfg.Fdump(w, revisions)
	}
	return nil
}

func listPage[E any, P interface {
	*E
	model.Entity
}](ctx context.Context, svc *service.EntityService[E, P], opts service.ListOptions) ([]model.Entity, error) {
	page, err := svc.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	entities := make([]model.Entity, len(page))
	for i, e := range page {
		entities[i] = e
	}
	return entities, nil
}
