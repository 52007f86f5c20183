// Package combat implements damage mitigation against defensive traits.
package combat

import "github.com/frontierstation/damagecast/pkg/core"

// LaserArmourFactor is the share of burn a WeakLethalLaser keeps against armour.
const LaserArmourFactor float32 = 0.05

// Rule is one mitigation step. Matches decides whether it fires; Apply
// adjusts brute and burn. Toxin is never passed to a rule.
type Rule struct {
	Name    string
	Matches func(defender core.HealthFlags, attack core.DamageFlags) bool
	Apply   func(brute, burn float32) (float32, float32)
}

// Rules are evaluated in order and the first match wins. An attack that
// carries several recognised flags is still mitigated by one rule only.
var Rules = []Rule{
	{
		Name: "armour-vs-soft",
		Matches: func(d core.HealthFlags, a core.DamageFlags) bool {
			return d.Has(core.ArmourPlated) && a.Has(core.SoftDamage)
		},
		Apply: func(_, burn float32) (float32, float32) {
			return 0, burn
		},
	},
	{
		Name: "armour-vs-weak-laser",
		Matches: func(d core.HealthFlags, a core.DamageFlags) bool {
			return d.Has(core.ArmourPlated) && a.Has(core.WeakLethalLaser)
		},
		Apply: func(brute, burn float32) (float32, float32) {
			return brute, burn * LaserArmourFactor
		},
	},
}

// Resolve maps raw damage and the defender's traits to the damage that
// lands and its classification.
func Resolve(defender core.HealthFlags, attack core.DamageFlags, brute, burn, toxin float32) (float32, float32, float32, core.HitResult) {
	for _, r := range Rules {
		if r.Matches(defender, attack) {
			b, u := r.Apply(brute, burn)
			return b, u, toxin, core.Blocked
		}
	}
	return brute, burn, toxin, core.HitSoft
}

// ResolveModel is Resolve over a DamageModel.
func ResolveModel(defender core.HealthFlags, m core.DamageModel) (core.Damage, core.HitResult) {
	b, u, t, res := Resolve(defender, m.Flags, m.Brute, m.Burn, m.Toxin)
	return core.Damage{Brute: b, Burn: u, Toxin: t}, res
}

// Matched returns the name of the rule that would fire, or "" if none.
func Matched(defender core.HealthFlags, attack core.DamageFlags) string {
	for _, r := range Rules {
		if r.Matches(defender, attack) {
			return r.Name
		}
	}
	return ""
}
