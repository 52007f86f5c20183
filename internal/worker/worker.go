// Package worker turns parsed simulation commands into state changes and
// damage resolutions.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/frontierstation/damagecast/internal/cache"
	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/internal/damage"
	"github.com/frontierstation/damagecast/internal/parser"
	"github.com/frontierstation/damagecast/internal/perception"
	"github.com/frontierstation/damagecast/internal/round"
	"github.com/frontierstation/damagecast/pkg/core"
)

// ErrUnknownTarget is returned when an attack names an entity with no
// registered profile.
var ErrUnknownTarget = errors.New("unknown target")

// UnknownName stands in for attackers that never registered a profile.
const UnknownName = "something"

// RoundStarter is told when a new round begins. Storage backends satisfy it.
type RoundStarter interface {
	StartRound(name string, at time.Time) error
}

// MetricWriter accepts custom time series points from :METRIC: commands.
type MetricWriter interface {
	WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the worker manager.
type Dependencies struct {
	Parser    *parser.Parser
	Profiles  *cache.ProfileCache
	Sensers   *cache.SenserCache
	Map       *perception.Map
	Round     *round.Context
	Resolver  *damage.Resolver
	Narration config.NarrationConfig
	Rounds    RoundStarter
	Metrics   MetricWriter
	Logger    *slog.Logger

	// DefaultRadius is used for :SENSER: commands with a zero radius.
	DefaultRadius int
}

// Manager owns the command handlers.
type Manager struct {
	deps Dependencies
	now  func() time.Time
}

// NewManager creates a new worker manager.
func NewManager(deps Dependencies) (*Manager, error) {
	switch {
	case deps.Parser == nil:
		return nil, fmt.Errorf("worker: parser is required")
	case deps.Profiles == nil || deps.Sensers == nil:
		return nil, fmt.Errorf("worker: caches are required")
	case deps.Map == nil:
		return nil, fmt.Errorf("worker: perception map is required")
	case deps.Round == nil:
		return nil, fmt.Errorf("worker: round context is required")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("worker: resolver is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{deps: deps, now: time.Now}, nil
}

// words returns the flavour lists for weapon, or nil when the weapon has no
// override and the resolver defaults apply.
func (m *Manager) words(weapon string) *damage.Words {
	cfg := m.deps.Narration
	if len(cfg.Weapons) == 0 {
		return nil
	}
	offense, trigger := cfg.For(weapon)
	return &damage.Words{Offense: offense, Trigger: trigger, Possessive: cfg.Possessive}
}

func (m *Manager) attackerName(id core.EntityID) string {
	if n, ok := m.deps.Profiles.Entity(id); ok && n.Name != "" {
		return n.Name
	}
	return UnknownName
}
