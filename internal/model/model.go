// Package model holds the GORM tables of the combat log.
package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels lists every table migrated by the SQL backends.
var DatabaseModels = []any{
	&Round{},
	&Hit{},
	&Narration{},
}

// Round is one loaded round. Hits and narrations point at it.
type Round struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Name      string    `json:"name" gorm:"size:128;index:idx_round_name"`
	StartedAt time.Time `json:"startedAt" gorm:"NOT NULL"`
	CreatedAt time.Time `json:"createdAt"`
}

func (*Round) TableName() string {
	return "rounds"
}

// Hit is one resolved attack.
type Hit struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time      `json:"time" gorm:"NOT NULL"`
	RoundID      uint           `json:"roundId" gorm:"index:idx_hit_round_id"`
	Tick         uint64         `json:"tick" gorm:"index:idx_hit_tick"`
	AttackerID   uint64         `json:"attackerId" gorm:"index:idx_hit_attacker_id"`
	VictimID     sql.NullInt64  `json:"victimId" gorm:"index:idx_hit_victim_id"`
	AttackerCell string         `json:"attackerCell" gorm:"size:32"`
	VictimCell   string         `json:"victimCell" gorm:"size:32"`
	Target       string         `json:"target" gorm:"size:16"`
	Region       string         `json:"region" gorm:"size:32"`
	Weapon       string         `json:"weapon" gorm:"size:64"`
	Flags        datatypes.JSON `json:"flags"`
	RawBrute     float32        `json:"rawBrute"`
	RawBurn      float32        `json:"rawBurn"`
	RawToxin     float32        `json:"rawToxin"`
	Brute        float32        `json:"brute"`
	Burn         float32        `json:"burn"`
	Toxin        float32        `json:"toxin"`
	Result       string         `json:"result" gorm:"size:16"`
	Dropped      bool           `json:"dropped"`
}

func (*Hit) TableName() string {
	return "hits"
}

// Narration is one message queued for an observer.
type Narration struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time `json:"time" gorm:"NOT NULL"`
	RoundID    uint      `json:"roundId" gorm:"index:idx_narration_round_id"`
	Tick       uint64    `json:"tick"`
	ObserverID uint64    `json:"observerId" gorm:"index:idx_narration_observer_id"`
	Handle     uint64    `json:"handle"`
	Text       string    `json:"text" gorm:"size:512"`
}

func (*Narration) TableName() string {
	return "narrations"
}
