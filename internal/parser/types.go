package parser

import "github.com/frontierstation/damagecast/pkg/core"

// ProfileKind selects the spawn defaults for a registered entity.
type ProfileKind string

const (
	KindHumanoid ProfileKind = "humanoid"
	KindEntity   ProfileKind = "entity"
)

// DamageCommand is one attack. Victim is nil for structure hits, in which
// case VictimName names the structure.
type DamageCommand struct {
	Attacker     core.EntityID
	AttackerCell core.CellID
	Victim       *core.EntityID
	VictimCell   core.CellID
	VictimName   string
	Region       string
	Model        core.DamageModel
	Weapon       string
	WeaponA      string
}

// ProfileCommand registers or replaces an entity's health profile.
type ProfileCommand struct {
	Entity core.EntityID
	Name   string
	Kind   ProfileKind
	Flags  core.HealthFlags
}

// OpaqueCommand toggles whether a cell blocks sight.
type OpaqueCommand struct {
	Cell   core.CellID
	Opaque bool
}

// SenserCommand refreshes an observer's field of view.
type SenserCommand struct {
	Entity core.EntityID
	Cell   core.CellID
	Radius int
}

// TickCommand advances the simulation clock.
type TickCommand struct {
	Tick uint64
}

// RoundCommand starts a new round.
type RoundCommand struct {
	Name string
}
