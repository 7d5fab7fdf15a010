package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/loog-project/roster/internal/eventmux"
	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/store"
)

type (
	CoachService  = EntityService[model.Coach, *model.Coach]
	PlayerService = EntityService[model.Player, *model.Player]
	TeamService   = EntityService[model.Team, *model.Team]
)

// Repositories bundles the persistence of all entity kinds.
type Repositories struct {
	Coaches store.Repository[*model.Coach]
	Players store.Repository[*model.Player]
	Teams   store.Repository[*model.Team]
}

// Roster wires the services of all entity kinds together and enforces the
// relationships between them:
//   - a team may only reference existing coaches and players,
//   - a coach coaches at most one team,
//   - coaches and players cannot be deleted while a team references them.
type Roster struct {
	Coaches *CoachService
	Players *PlayerService
	Teams   *TeamService

	// Events receives the changes of all kinds, nil if they are not published.
	Events *eventmux.Mux

	repos Repositories
}

// RosterOption configures a [Roster].
type RosterOption func(*Roster)

// WithEventMux publishes the changes of all entity kinds to m.
func WithEventMux(m *eventmux.Mux) RosterOption {
	return func(r *Roster) { r.Events = m }
}

// NewRoster creates the services on top of the given repositories.
func NewRoster(repos Repositories, tracker *TrackerService, opts ...RosterOption) *Roster {
	r := &Roster{repos: repos}
	for _, opt := range opts {
		opt(r)
	}
	mu := &sync.Mutex{}

	r.Coaches = NewEntityService[model.Coach](repos.Coaches, tracker,
		WithWriteLock[*model.Coach](mu),
		WithEvents[*model.Coach](r.Events),
		WithPrepare(func(_ context.Context, c *model.Coach) error {
			// the team assignment is owned by the team
			c.TeamID = 0
			return nil
		}),
		WithResolver(r.resolveCoachTeam),
		WithBeforeDelete(func(ctx context.Context, c *model.Coach) error {
			team, err := r.teamOfCoach(ctx, c.ID)
			if err != nil {
				return err
			}
			if team != nil {
				return &ConflictError{Reason: fmt.Sprintf("coach %d still coaches team %d", c.ID, team.ID)}
			}
			return nil
		}),
	)
	r.Players = NewEntityService[model.Player](repos.Players, tracker,
		WithWriteLock[*model.Player](mu),
		WithEvents[*model.Player](r.Events),
		WithBeforeDelete(func(ctx context.Context, p *model.Player) error {
			teams, err := r.repos.Teams.FindAll(ctx)
			if err != nil {
				return err
			}
			for _, team := range teams {
				if team.HasPlayer(p.ID) {
					return &ConflictError{Reason: fmt.Sprintf("player %d still plays for team %d", p.ID, team.ID)}
				}
			}
			return nil
		}),
	)
	r.Teams = NewEntityService[model.Team](repos.Teams, tracker,
		WithWriteLock[*model.Team](mu),
		WithEvents[*model.Team](r.Events),
		WithPrepare(func(_ context.Context, t *model.Team) error {
			slices.Sort(t.PlayerIDs)
			t.PlayerIDs = slices.Compact(t.PlayerIDs)
			return nil
		}),
		WithValidator(r.validateTeam),
	)
	return r
}

func (r *Roster) validateTeam(ctx context.Context, t *model.Team) error {
	if t.CoachID != 0 {
		exists, err := r.repos.Coaches.Exists(ctx, t.CoachID)
		if err != nil {
			return err
		}
		if !exists {
			return &InvalidReferenceError{Field: "coachId", Kind: model.KindCoach, ID: t.CoachID}
		}
		other, err := r.teamOfCoach(ctx, t.CoachID)
		if err != nil {
			return err
		}
		// a new team has ID 0 until it is stored
		if other != nil && (t.ID == 0 || other.ID != t.ID) {
			return &ConflictError{Reason: fmt.Sprintf("coach %d already coaches team %d", t.CoachID, other.ID)}
		}
	}
	for _, playerID := range t.PlayerIDs {
		exists, err := r.repos.Players.Exists(ctx, playerID)
		if err != nil {
			return err
		}
		if !exists {
			return &InvalidReferenceError{Field: "playerIds", Kind: model.KindPlayer, ID: playerID}
		}
	}
	return nil
}

func (r *Roster) resolveCoachTeam(ctx context.Context, c *model.Coach) error {
	team, err := r.teamOfCoach(ctx, c.ID)
	if err != nil {
		return err
	}
	c.TeamID = 0
	if team != nil {
		c.TeamID = team.ID
	}
	return nil
}

// teamOfCoach returns the team coached by the given coach, nil if there is none.
func (r *Roster) teamOfCoach(ctx context.Context, coachID int64) (*model.Team, error) {
	teams, err := r.repos.Teams.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, team := range teams {
		if team.CoachID == coachID {
			return team, nil
		}
	}
	return nil, nil
}
