// Package damage resolves one attack end to end: mitigation, health
// mutation, perception, narration and notification.
package damage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/frontierstation/damagecast/internal/combat"
	"github.com/frontierstation/damagecast/internal/health"
	"github.com/frontierstation/damagecast/internal/narration"
	"github.com/frontierstation/damagecast/internal/perception"
	"github.com/frontierstation/damagecast/pkg/core"
)

const instrumentationName = "github.com/frontierstation/damagecast/internal/damage"

// ErrNoProfile is returned when an attack has no health profile to hit.
var ErrNoProfile = errors.New("attack has no target profile")

// Attack is one hit as reported by the simulation.
type Attack struct {
	Attacker     core.EntityID
	AttackerName string
	AttackerCell core.CellID

	// Victim is nil when the target is a structure cell.
	Victim     *core.EntityID
	VictimName string
	VictimCell core.CellID
	Profile    *health.Profile

	Model   core.DamageModel
	Region  string
	Weapon  string
	WeaponA string

	// Words overrides the resolver's flavour lists for this attack.
	Words *Words
}

// Words are the flavour lists handed to the composer.
type Words struct {
	Offense    []string
	Trigger    []string
	Possessive string
}

// Observers yields everyone who might perceive an attack.
type Observers interface {
	Observers() []perception.Observer
}

// Notifier delivers a message to one observer, reporting the handle used.
type Notifier interface {
	Notify(ctx context.Context, observer core.EntityID, text string) (core.Handle, bool)
}

// Recorder persists the combat log. Errors are logged and never change the
// outcome of an attack.
type Recorder interface {
	RecordHit(h *core.HitRecord) error
	RecordNarration(n *core.NarrationRecord) error
}

// MultiRecorder fans records out to several recorders, joining their errors.
type MultiRecorder []Recorder

// RecordHit records h on every recorder.
func (m MultiRecorder) RecordHit(h *core.HitRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordHit(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordNarration records n on every recorder.
func (m MultiRecorder) RecordNarration(n *core.NarrationRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordNarration(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clock reports the current round and tick for log records.
type Clock interface {
	Round() string
	Tick() uint64
}

// Dependencies holds everything the resolver talks to. Recorder and Clock
// are optional.
type Dependencies struct {
	Gate      *perception.Gate
	Composer  *narration.Composer
	Observers Observers
	Notifier  Notifier
	Recorder  Recorder
	Clock     Clock
	Logger    *slog.Logger
	Words     Words
}

// Resolver runs the damage pipeline.
type Resolver struct {
	deps Dependencies
	now  func() time.Time

	resolved metric.Int64Counter
}

// NewResolver builds a resolver. Uses the global OTel meter (no-op if not
// configured).
func NewResolver(deps Dependencies) (*Resolver, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := &Resolver{deps: deps, now: time.Now}

	var err error
	r.resolved, err = otel.Meter(instrumentationName).Int64Counter(
		"damage.hits.resolved",
		metric.WithDescription("Attacks resolved, by hit result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolved counter: %w", err)
	}
	return r, nil
}

// Resolve mitigates the attack, applies it to the target once, and narrates
// it to every observer that sees either party. The HitResult is returned
// whatever happens to notifications.
func (r *Resolver) Resolve(ctx context.Context, a Attack) (core.HitResult, error) {
	if a.Profile == nil {
		return core.HitSoft, ErrNoProfile
	}

	raw := a.Model.Damage()
	applied, result := combat.ResolveModel(a.Profile.Flags(), a.Model)

	region := ""
	dropped := false
	if err := a.Profile.Apply(a.Region, applied); err != nil {
		if !errors.Is(err, health.ErrUnknownRegion) {
			return result, fmt.Errorf("apply damage: %w", err)
		}
		dropped = true
		r.deps.Logger.Warn("damage dropped", "region", a.Region, "attacker", a.Attacker, "error", err)
	} else if a.Profile.Shape() == health.Segmented {
		reg, _ := core.ParseRegion(a.Region)
		region = reg.Phrase()
	}

	r.resolved.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result.String())))
	r.deps.Logger.Debug("Hit resolved",
		"result", result.String(),
		"rule", combat.Matched(a.Profile.Flags(), a.Model.Flags),
		"applied", applied.Total())
	r.recordHit(a, raw, applied, result, dropped)

	if err := r.narrate(ctx, a, region); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Resolver) narrate(ctx context.Context, a Attack, region string) error {
	if r.deps.Observers == nil || r.deps.Gate == nil || r.deps.Composer == nil || r.deps.Notifier == nil {
		return nil
	}
	observers := r.deps.Observers.Observers()
	if len(observers) == 0 {
		return nil
	}

	vis, err := r.deps.Gate.EvaluateAll(ctx, observers, a.AttackerCell, a.VictimCell)
	if err != nil {
		return fmt.Errorf("evaluate observers: %w", err)
	}

	words := r.deps.Words
	if a.Words != nil {
		words = *a.Words
	}
	req := narration.Request{
		AttackerName: a.AttackerName,
		VictimName:   a.VictimName,
		Weapon:       a.Weapon,
		WeaponA:      a.WeaponA,
		Region:       region,
		Possessive:   words.Possessive,
		OffenseWords: words.Offense,
		TriggerWords: words.Trigger,
	}
	for i, o := range observers {
		if !vis[i].Any() {
			continue
		}
		text, ok := r.deps.Composer.Compose(vis[i], req)
		if !ok {
			continue
		}
		h, sent := r.deps.Notifier.Notify(ctx, o.Entity, text)
		if !sent {
			continue
		}
		r.recordNarration(o.Entity, h, text)
	}
	return nil
}

func (r *Resolver) recordHit(a Attack, raw, applied core.Damage, result core.HitResult, dropped bool) {
	if r.deps.Recorder == nil {
		return
	}
	target := core.TargetEntity
	if a.Victim == nil {
		target = core.TargetStructure
	}
	rec := &core.HitRecord{
		Time:         r.now(),
		AttackerID:   a.Attacker,
		VictimID:     a.Victim,
		VictimCell:   a.VictimCell,
		AttackerCell: a.AttackerCell,
		Target:       target,
		Region:       a.Region,
		Weapon:       a.Weapon,
		Raw:          raw,
		Applied:      applied,
		Result:       result,
		Dropped:      dropped,
	}
	for _, f := range a.Model.Flags.Sorted() {
		rec.Flags = append(rec.Flags, string(f))
	}
	if r.deps.Clock != nil {
		rec.Round = r.deps.Clock.Round()
		rec.Tick = r.deps.Clock.Tick()
	}
	if err := r.deps.Recorder.RecordHit(rec); err != nil {
		r.deps.Logger.Error("failed to record hit", "error", err)
	}
}

func (r *Resolver) recordNarration(observer core.EntityID, h core.Handle, text string) {
	if r.deps.Recorder == nil {
		return
	}
	rec := &core.NarrationRecord{
		Time:     r.now(),
		Observer: observer,
		Handle:   h,
		Text:     text,
	}
	if r.deps.Clock != nil {
		rec.Round = r.deps.Clock.Round()
		rec.Tick = r.deps.Clock.Tick()
	}
	if err := r.deps.Recorder.RecordNarration(rec); err != nil {
		r.deps.Logger.Error("failed to record narration", "error", err)
	}
}
