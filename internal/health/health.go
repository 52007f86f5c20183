// Package health holds the mutable damage state of entities and structures.
package health

import (
	"errors"
	"math"
	"sync"

	"github.com/frontierstation/damagecast/pkg/core"
)

// ErrUnknownRegion is returned when a segmented profile is addressed with a
// selector that names none of its regions. Nothing is mutated.
var ErrUnknownRegion = errors.New("unknown body region")

// Shape distinguishes the two container layouts.
type Shape uint8

const (
	Aggregate Shape = iota
	Segmented
)

func (s Shape) String() string {
	if s == Segmented {
		return "segmented"
	}
	return "aggregate"
}

// Container is the accumulated damage of one profile. Segmented containers
// track each region separately; aggregate ones keep a single triple in Total.
type Container struct {
	Shape Shape
	Parts [len(core.Regions)]core.Damage
	Total core.Damage
}

// NewSegmented returns an empty humanoid container.
func NewSegmented() Container { return Container{Shape: Segmented} }

// NewAggregate returns an empty single-triple container.
func NewAggregate() Container { return Container{Shape: Aggregate} }

// Part returns the triple of region r. Aggregate containers return Total.
func (c Container) Part(r core.Region) core.Damage {
	if c.Shape == Aggregate {
		return c.Total
	}
	return c.Parts[r]
}

// Sum adds every tracked triple together.
func (c Container) Sum() core.Damage {
	if c.Shape == Aggregate {
		return c.Total
	}
	var sum core.Damage
	for _, p := range c.Parts {
		sum = sum.Add(p)
	}
	return sum
}

// Obstacles records which kinds of interaction a profile blocks.
type Obstacles struct {
	Combat bool
	Laser  bool
	Reach  bool
}

// Profile is the health state of one entity or structure cell.
// All mutation goes through Apply, which serialises writers.
type Profile struct {
	mu        sync.Mutex
	container Container
	flags     core.HealthFlags
	surface   core.HitSoundSurface
	obstacles Obstacles
}

// New builds a profile from its parts. flags is copied.
func New(c Container, flags core.HealthFlags, surface core.HitSoundSurface, obstacles Obstacles) *Profile {
	if flags == nil {
		flags = core.HealthFlags{}
	}
	return &Profile{
		container: c,
		flags:     flags.Clone(),
		surface:   surface,
		obstacles: obstacles,
	}
}

// NewHumanoid is the spawn default for humanoid pawns.
func NewHumanoid(flags core.HealthFlags) *Profile {
	return New(NewSegmented(), flags, core.Soft, Obstacles{Combat: true, Laser: true})
}

// NewEntity is the spawn default for items and generic entities.
func NewEntity(flags core.HealthFlags) *Profile {
	return New(NewAggregate(), flags, core.Soft, Obstacles{Laser: true})
}

// NewStructure is the default for map structure cells: armour plated and metallic.
func NewStructure() *Profile {
	return New(NewAggregate(), core.NewHealthFlags(core.Armour()), core.Metaloid, Obstacles{Combat: true, Laser: true, Reach: true})
}

// Flags returns the defensive traits. The set is read-only for the
// lifetime of the profile, so callers share it.
func (p *Profile) Flags() core.HealthFlags { return p.flags }

// Surface returns the hit sound surface.
func (p *Profile) Surface() core.HitSoundSurface { return p.surface }

// Obstacles returns the obstacle flags.
func (p *Profile) Obstacles() Obstacles { return p.obstacles }

// Shape returns the container layout.
func (p *Profile) Shape() Shape {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.container.Shape
}

// Snapshot returns a copy of the container.
func (p *Profile) Snapshot() Container {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.container
}

// Apply adds d to the triple addressed by region. Aggregate profiles ignore
// region. Negative channels are clamped to zero so accumulated damage
// never decreases.
func (p *Profile) Apply(region string, d core.Damage) error {
	d = clamp(d)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.container.Shape == Aggregate {
		p.container.Total = p.container.Total.Add(d)
		return nil
	}

	r, ok := core.ParseRegion(region)
	if !ok {
		return ErrUnknownRegion
	}
	p.container.Parts[r] = p.container.Parts[r].Add(d)
	return nil
}

func clamp(d core.Damage) core.Damage {
	d.Brute = clampChannel(d.Brute)
	d.Burn = clampChannel(d.Burn)
	d.Toxin = clampChannel(d.Toxin)
	return d
}

// NaN and infinities count as no damage.
func clampChannel(v float32) float32 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) || v < 0 {
		return 0
	}
	return v
}
