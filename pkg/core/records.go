// pkg/core/records.go
package core

import "time"

// TargetKind says what kind of profile absorbed a hit.
type TargetKind string

const (
	TargetEntity    TargetKind = "entity"
	TargetStructure TargetKind = "structure"
)

// HitRecord is the combat-log entry for one resolved attack.
type HitRecord struct {
	ID           uint
	Round        string
	Tick         uint64
	Time         time.Time
	AttackerID   EntityID
	VictimID     *EntityID // nil for structure cells
	VictimCell   CellID
	AttackerCell CellID
	Target       TargetKind
	Region       string
	Weapon       string
	Flags        []string
	Raw          Damage
	Applied      Damage
	Result       HitResult
	Dropped      bool // damage was not applied because the region was unknown
}

// NarrationRecord logs one message queued for an observer.
type NarrationRecord struct {
	ID       uint
	Round    string
	Tick     uint64
	Time     time.Time
	Observer EntityID
	Handle   Handle
	Text     string
}
