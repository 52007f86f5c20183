// pkg/core/damage.go
package core

import "fmt"

// Damage is one brute/burn/toxin triple.
type Damage struct {
	Brute float32 `json:"brute"`
	Burn  float32 `json:"burn"`
	Toxin float32 `json:"toxin"`
}

// Add returns the channel-wise sum of d and o.
func (d Damage) Add(o Damage) Damage {
	return Damage{
		Brute: d.Brute + o.Brute,
		Burn:  d.Burn + o.Burn,
		Toxin: d.Toxin + o.Toxin,
	}
}

// Total sums all three channels.
func (d Damage) Total() float32 {
	return d.Brute + d.Burn + d.Toxin
}

// DamageModel is the raw damage carried by a single attack.
type DamageModel struct {
	Brute float32
	Burn  float32
	Toxin float32
	Flags DamageFlags
}

// Damage returns the raw channels as a triple.
func (m DamageModel) Damage() Damage {
	return Damage{Brute: m.Brute, Burn: m.Burn, Toxin: m.Toxin}
}

// HitResult classifies the outcome of one damage resolution.
type HitResult uint8

const (
	// HitSoft means no mitigation applied.
	HitSoft HitResult = iota
	// Blocked means a mitigation rule fired.
	Blocked
)

func (r HitResult) String() string {
	switch r {
	case HitSoft:
		return "HitSoft"
	case Blocked:
		return "Blocked"
	default:
		return fmt.Sprintf("HitResult(%d)", uint8(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r HitResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *HitResult) UnmarshalText(b []byte) error {
	switch string(b) {
	case "HitSoft":
		*r = HitSoft
	case "Blocked":
		*r = Blocked
	default:
		return fmt.Errorf("unknown hit result %q", string(b))
	}
	return nil
}

// HitSoundSurface selects the impact sound a profile makes.
type HitSoundSurface uint8

const (
	Soft HitSoundSurface = iota
	Metaloid
)

func (s HitSoundSurface) String() string {
	if s == Metaloid {
		return "Metaloid"
	}
	return "Soft"
}
