// Package seed loads coaches, players and teams from YAML fixture files.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/service"
)

// Fixtures is the content of a fixture file.
//
//	coaches:
//	  - id: 1
//	    firstName: Jupp
//	    lastName: Heynckes
//	players:
//	  - id: 10
//	    name: Arjen
//	    marketValue: 5e6
//	    position: STRIKER
//	teams:
//	  - name: Munich
//	    coachId: 1
//	    playerIds: [10]
type Fixtures struct {
	Coaches []*model.Coach  `yaml:"coaches"`
	Players []*model.Player `yaml:"players"`
	Teams   []*model.Team   `yaml:"teams"`
}

// Result counts what Apply did.
type Result struct {
	Created int
	Updated int
}

// Load reads a fixture file.
func Load(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes fixtures from YAML.
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cannot parse fixtures: %w", err)
	}
	return &f, nil
}

// Apply stores all fixtures through the roster services, coaches and players
// first so teams can reference them. Entities with an ID that already exists
// are updated, so applying the same file twice only records the differences.
func (f *Fixtures) Apply(ctx context.Context, r *service.Roster) (Result, error) {
	var res Result
	for _, c := range f.Coaches {
		if err := upsert(ctx, r.Coaches, c, &res); err != nil {
			return res, err
		}
	}
	for _, p := range f.Players {
		if err := upsert(ctx, r.Players, p, &res); err != nil {
			return res, err
		}
	}
	for _, t := range f.Teams {
		if err := upsert(ctx, r.Teams, t, &res); err != nil {
			return res, err
		}
	}
	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Msg("Applied fixtures")
	return res, nil
}

func upsert[E any, P interface {
	*E
	model.Entity
}](ctx context.Context, svc *service.EntityService[E, P], entity P, res *Result) error {
	if entity.GetID() != 0 {
		_, exists, err := svc.FindByID(ctx, entity.GetID())
		if err != nil {
			return err
		}
		if exists {
			if _, err := svc.Update(ctx, entity); err != nil {
				return fmt.Errorf("cannot update %s %d: %w", svc.Kind(), entity.GetID(), err)
			}
			res.Updated++
			return nil
		}
	}
	if _, err := svc.Create(ctx, entity); err != nil {
		return fmt.Errorf("cannot create %s: %w", svc.Kind(), err)
	}
	res.Created++
	return nil
}
