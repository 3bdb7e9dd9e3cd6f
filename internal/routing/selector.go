// Package routing maps a user's region onto the storage engine that owns the
// user's data. Resolution is a pure function of the region so a user can
// never be split across engines mid-request.
package routing

import (
	"fmt"

	"github.com/crewline/crewline-backend/internal/config"
	"github.com/crewline/crewline-backend/internal/models"
	"github.com/crewline/crewline-backend/pkg/logger"
)

type Engine string

const (
	EnginePostgres Engine = "postgres"
	EngineMongo    Engine = "mongo"
)

// Selection is the routing outcome for one user. Fallback marks records the
// map could not place, which is a data-quality signal, not an error.
type Selection struct {
	Engine   Engine
	Region   string
	Fallback bool
}

type Selector struct {
	regions  map[string]Engine
	fallback Engine
}

func NewSelector(cfg *config.Config) (*Selector, error) {
	fallback := Engine(cfg.FallbackEngine)
	if fallback != EnginePostgres && fallback != EngineMongo {
		return nil, fmt.Errorf("unknown fallback engine %q", cfg.FallbackEngine)
	}

	regions := map[string]Engine{}
	for region, engine := range cfg.RegionEngines() {
		e := Engine(engine)
		if e != EnginePostgres && e != EngineMongo {
			return nil, fmt.Errorf("region %q maps to unknown engine %q", region, engine)
		}
		regions[region] = e
	}

	return &Selector{regions: regions, fallback: fallback}, nil
}

// Resolve picks the engine owning the user. Missing or unmapped regions fall
// back to the configured default engine and are logged so data quality issues
// surface instead of being swallowed.
func (s *Selector) Resolve(user *models.User) Selection {
	if user.Region == "" {
		logger.Warn().
			Str("userId", user.ID).
			Str("fallbackEngine", string(s.fallback)).
			Msg("User record has no region, routing to fallback engine")
		return Selection{Engine: s.fallback, Fallback: true}
	}

	engine, ok := s.regions[user.Region]
	if !ok {
		logger.Warn().
			Str("userId", user.ID).
			Str("region", user.Region).
			Str("fallbackEngine", string(s.fallback)).
			Msg("Region not mapped to an engine, routing to fallback engine")
		return Selection{Engine: s.fallback, Region: user.Region, Fallback: true}
	}

	return Selection{Engine: engine, Region: user.Region}
}
