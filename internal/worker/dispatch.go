package worker

import (
	"context"
	"fmt"

	"github.com/frontierstation/damagecast/internal/damage"
	"github.com/frontierstation/damagecast/internal/dispatcher"
	"github.com/frontierstation/damagecast/internal/health"
	"github.com/frontierstation/damagecast/internal/influx"
	"github.com/frontierstation/damagecast/internal/parser"
	"github.com/frontierstation/damagecast/internal/perception"
)

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Attacks - sync, the caller wants the HitResult
	d.Register(":DAMAGE:ENTITY:", m.handleEntityDamage, dispatcher.Logged())
	d.Register(":DAMAGE:CELL:", m.handleCellDamage, dispatcher.Logged())

	// Profiles - sync (must exist before the first hit lands)
	d.Register(":PROFILE:", m.handleProfile, dispatcher.Logged())
	d.Register(":PROFILE:REMOVE:", m.handleProfileRemove, dispatcher.Logged())

	// World updates - sync, attacks and sensers see every update sent before them
	d.Register(":OPAQUE:", m.handleOpaque)
	d.Register(":SENSER:", m.handleSenser)
	d.Register(":SENSER:REMOVE:", m.handleSenserRemove, dispatcher.Logged())

	// Clock
	d.Register(":TICK:", m.handleTick)
	d.Register(":ROUND:", m.handleRound, dispatcher.Logged())

	if m.deps.Metrics != nil {
		d.Register(":METRIC:", m.handleMetric, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())
	}
}

func (m *Manager) resolve(ctx context.Context, cmd parser.DamageCommand, a damage.Attack) (any, error) {
	a.Attacker = cmd.Attacker
	a.AttackerName = m.attackerName(cmd.Attacker)
	a.AttackerCell = cmd.AttackerCell
	a.VictimCell = cmd.VictimCell
	a.Model = cmd.Model
	a.Region = cmd.Region
	a.Weapon = cmd.Weapon
	a.WeaponA = cmd.WeaponA
	a.Words = m.words(cmd.Weapon)

	result, err := m.deps.Resolver.Resolve(ctx, a)
	if err != nil {
		return result, fmt.Errorf("failed to resolve attack: %w", err)
	}
	return result, nil
}

func (m *Manager) handleEntityDamage(ctx context.Context, e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseEntityDamage(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entity damage: %w", err)
	}

	victim, ok := m.deps.Profiles.Entity(*cmd.Victim)
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", *cmd.Victim, ErrUnknownTarget)
	}
	return m.resolve(ctx, cmd, damage.Attack{
		Victim:     cmd.Victim,
		VictimName: victim.Name,
		Profile:    victim.Profile,
	})
}

func (m *Manager) handleCellDamage(ctx context.Context, e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseCellDamage(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cell damage: %w", err)
	}
	return m.resolve(ctx, cmd, damage.Attack{
		VictimName: cmd.VictimName,
		Profile:    m.deps.Profiles.Structure(cmd.VictimCell),
	})
}

func (m *Manager) handleProfile(_ context.Context, e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseProfile(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	var p *health.Profile
	switch cmd.Kind {
	case parser.KindHumanoid:
		p = health.NewHumanoid(cmd.Flags)
	default:
		p = health.NewEntity(cmd.Flags)
	}
	m.deps.Profiles.SetEntity(cmd.Entity, cmd.Name, p)
	return nil, nil
}

func (m *Manager) handleProfileRemove(_ context.Context, e dispatcher.Event) (any, error) {
	id, err := m.deps.Parser.ParseProfileRemove(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile removal: %w", err)
	}
	m.deps.Profiles.RemoveEntity(id)
	return nil, nil
}

func (m *Manager) handleOpaque(_ context.Context, e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseOpaque(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse opaque: %w", err)
	}
	p, ok := m.deps.Map.Grid().Project(cmd.Cell)
	if !ok {
		return nil, fmt.Errorf("cell %s is off the perception grid", cmd.Cell)
	}
	m.deps.Map.SetOpaque(p, cmd.Opaque)
	return nil, nil
}

func (m *Manager) handleSenser(_ context.Context, e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseSenser(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse senser: %w", err)
	}
	radius := cmd.Radius
	if radius == 0 {
		radius = m.deps.DefaultRadius
	}

	// an observer standing off the grid sees nothing
	origin, ok := m.deps.Map.Grid().Project(cmd.Cell)
	fov := perception.NewFOV(m.deps.Map.Grid())
	if ok {
		fov = m.deps.Map.Compute(origin, radius)
	}
	m.deps.Sensers.Set(cmd.Entity, &perception.Senser{FOV: fov})
	return nil, nil
}

func (m *Manager) handleSenserRemove(_ context.Context, e dispatcher.Event) (any, error) {
	id, err := m.deps.Parser.ParseSenserRemove(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse senser removal: %w", err)
	}
	m.deps.Sensers.Remove(id)
	return nil, nil
}

func (m *Manager) handleTick(_ context.Context, e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseTick(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tick: %w", err)
	}
	if !m.deps.Round.SetTick(cmd.Tick) {
		m.deps.Logger.Debug("Ignoring stale tick", "tick", cmd.Tick, "current", m.deps.Round.Tick())
	}
	return nil, nil
}

// handleRound starts a new round: every profile, observer and opaque cell
// of the old round is forgotten.
func (m *Manager) handleRound(_ context.Context, e dispatcher.Event) (any, error) {
	cmd, err := m.deps.Parser.ParseRound(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse round: %w", err)
	}

	at := m.now()
	m.deps.Profiles.Reset()
	m.deps.Sensers.Reset()
	m.deps.Map.Reset()
	m.deps.Round.Start(cmd.Name, at)

	if m.deps.Rounds != nil {
		if err := m.deps.Rounds.StartRound(cmd.Name, at); err != nil {
			return nil, fmt.Errorf("failed to start round %q in storage: %w", cmd.Name, err)
		}
	}
	m.deps.Logger.Info("Round started", "round", cmd.Name)
	return nil, nil
}

func (m *Manager) handleMetric(ctx context.Context, e dispatcher.Event) (any, error) {
	bucket, point, err := influx.ParseMetric(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	if err := m.deps.Metrics.WritePoint(ctx, bucket, point); err != nil {
		return nil, fmt.Errorf("failed to write metric: %w", err)
	}
	return nil, nil
}
