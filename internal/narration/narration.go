// Package narration turns a perceived attack into per-observer chat text.
package narration

import (
	"strings"

	"github.com/frontierstation/damagecast/internal/perception"
)

const (
	colorOpen  = "[color=#ff003c]"
	colorClose = "![/color]"

	// DefaultPossessive is used when a request does not name one.
	DefaultPossessive = "his"
)

// Request holds everything a message can mention. Region is the narration
// phrase ("left arm"); leave it empty for targets without body regions.
type Request struct {
	AttackerName string
	VictimName   string
	Weapon       string // base name, e.g. "pistol"
	WeaponA      string // with article, e.g. "a pistol"
	Region       string
	Possessive   string
	OffenseWords []string
	TriggerWords []string
}

// Composer builds messages, drawing flavour words through a Chooser.
type Composer struct {
	chooser Chooser
}

// NewComposer returns a composer using c. A nil chooser falls back to an
// unseeded random one.
func NewComposer(c Chooser) *Composer {
	if c == nil {
		c = NewRandomChooser()
	}
	return &Composer{chooser: c}
}

// Compose returns the message for an observer with visibility v, or false
// when the observer should get nothing.
func (c *Composer) Compose(v perception.Visibility, req Request) (string, bool) {
	switch {
	case v.Attacker && v.Victim:
		strike, ok := c.chooser.Choose(req.OffenseWords)
		if !ok {
			return "", false
		}
		return wrap(req.AttackerName, " has ", strike, " ", req.VictimName, regionClause(req.Region), " with ", req.WeaponA), true

	case v.Attacker:
		trigger, ok := c.chooser.Choose(req.TriggerWords)
		if !ok {
			return "", false
		}
		possessive := req.Possessive
		if possessive == "" {
			possessive = DefaultPossessive
		}
		return wrap(req.AttackerName, " has ", trigger, " ", possessive, " ", req.Weapon), true

	case v.Victim:
		strike, ok := c.chooser.Choose(req.OffenseWords)
		if !ok {
			return "", false
		}
		return wrap(req.VictimName, " has been ", strike, regionClause(req.Region), " with ", req.WeaponA), true
	}
	return "", false
}

func regionClause(region string) string {
	if region == "" {
		return ""
	}
	return " in the " + region
}

func wrap(parts ...string) string {
	var b strings.Builder
	b.WriteString(colorOpen)
	for _, p := range parts {
		b.WriteString(p)
	}
	b.WriteString(colorClose)
	return b.String()
}
