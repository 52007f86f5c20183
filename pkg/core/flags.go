// pkg/core/flags.go
package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DamageFlag describes the nature of an attack.
type DamageFlag string

const (
	SoftDamage      DamageFlag = "SoftDamage"
	WeakLethalLaser DamageFlag = "WeakLethalLaser"
)

// DamageFlags is a set of attack flags, deduplicated by value.
type DamageFlags map[DamageFlag]struct{}

// NewDamageFlags builds a set from the given flags.
func NewDamageFlags(flags ...DamageFlag) DamageFlags {
	set := make(DamageFlags, len(flags))
	for _, f := range flags {
		set[f] = struct{}{}
	}
	return set
}

// Has reports whether f is in the set. A nil set has no flags.
func (s DamageFlags) Has(f DamageFlag) bool {
	_, ok := s[f]
	return ok
}

// Add inserts f. Adding a flag twice is a no-op.
func (s DamageFlags) Add(f DamageFlag) {
	s[f] = struct{}{}
}

// Sorted returns the flags in lexical order.
func (s DamageFlags) Sorted() []DamageFlag {
	out := make([]DamageFlag, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String joins the flags with "|".
func (s DamageFlags) String() string {
	sorted := s.Sorted()
	parts := make([]string, len(sorted))
	for i, f := range sorted {
		parts[i] = string(f)
	}
	return strings.Join(parts, "|")
}

// ParseDamageFlags parses a "|" separated list. Empty input yields an empty set.
func ParseDamageFlags(s string) DamageFlags {
	set := DamageFlags{}
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		set.Add(DamageFlag(part))
	}
	return set
}

// HealthFlagKind identifies a defensive trait.
type HealthFlagKind uint8

const (
	ArmourPlated HealthFlagKind = iota + 1
	HeadBruteDefence
	TorsoBruteDefence
)

func (k HealthFlagKind) String() string {
	switch k {
	case ArmourPlated:
		return "ArmourPlated"
	case HeadBruteDefence:
		return "HeadBruteDefence"
	case TorsoBruteDefence:
		return "TorsoBruteDefence"
	default:
		return "Unknown"
	}
}

// Wired reports whether mitigation reads this kind. The brute defence
// kinds are carried on profiles but no rule consumes them yet.
func (k HealthFlagKind) Wired() bool {
	return k == ArmourPlated
}

// HealthFlag is a defensive trait, optionally parametrised.
type HealthFlag struct {
	Kind  HealthFlagKind
	Value float32
}

// Armour returns the ArmourPlated flag.
func Armour() HealthFlag { return HealthFlag{Kind: ArmourPlated} }

// HeadDefence returns a HeadBruteDefence flag carrying v.
func HeadDefence(v float32) HealthFlag { return HealthFlag{Kind: HeadBruteDefence, Value: v} }

// TorsoDefence returns a TorsoBruteDefence flag carrying v.
func TorsoDefence(v float32) HealthFlag { return HealthFlag{Kind: TorsoBruteDefence, Value: v} }

func (f HealthFlag) String() string {
	if f.Kind == ArmourPlated {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", f.Kind, strconv.FormatFloat(float64(f.Value), 'f', -1, 32))
}

// HealthFlags is a set of defensive traits keyed by kind, so two
// different kinds can never overwrite each other.
type HealthFlags map[HealthFlagKind]HealthFlag

// NewHealthFlags builds a set from the given flags. A repeated kind keeps
// the last value.
func NewHealthFlags(flags ...HealthFlag) HealthFlags {
	set := make(HealthFlags, len(flags))
	for _, f := range flags {
		set[f.Kind] = f
	}
	return set
}

// Has reports whether a flag of kind k is present.
func (s HealthFlags) Has(k HealthFlagKind) bool {
	_, ok := s[k]
	return ok
}

// Get returns the flag of kind k.
func (s HealthFlags) Get(k HealthFlagKind) (HealthFlag, bool) {
	f, ok := s[k]
	return f, ok
}

// Clone returns an independent copy.
func (s HealthFlags) Clone() HealthFlags {
	out := make(HealthFlags, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ParseHealthFlag parses "ArmourPlated", "HeadBruteDefence(0.5)" or
// "TorsoBruteDefence(0.5)".
func ParseHealthFlag(s string) (HealthFlag, error) {
	s = strings.TrimSpace(s)
	name, arg, hasArg := strings.Cut(s, "(")
	var kind HealthFlagKind
	switch name {
	case "ArmourPlated":
		kind = ArmourPlated
	case "HeadBruteDefence":
		kind = HeadBruteDefence
	case "TorsoBruteDefence":
		kind = TorsoBruteDefence
	default:
		return HealthFlag{}, fmt.Errorf("unknown health flag %q", s)
	}
	if kind == ArmourPlated {
		if hasArg {
			return HealthFlag{}, fmt.Errorf("health flag %q takes no value", name)
		}
		return Armour(), nil
	}
	if !hasArg || !strings.HasSuffix(arg, ")") {
		return HealthFlag{}, fmt.Errorf("health flag %q requires a value", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(arg, ")"), 32)
	if err != nil {
		return HealthFlag{}, fmt.Errorf("health flag %q: %w", name, err)
	}
	return HealthFlag{Kind: kind, Value: float32(v)}, nil
}

// ParseHealthFlags parses a "|" separated list of health flags.
func ParseHealthFlags(s string) (HealthFlags, error) {
	set := HealthFlags{}
	for _, part := range strings.Split(s, "|") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseHealthFlag(part)
		if err != nil {
			return nil, err
		}
		set[f.Kind] = f
	}
	return set, nil
}
