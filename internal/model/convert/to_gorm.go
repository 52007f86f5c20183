// Package convert maps combat-log records between pkg/core and the GORM models.
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/frontierstation/damagecast/internal/model"
	"github.com/frontierstation/damagecast/pkg/core"
)

// flagsToJSON converts a []string to datatypes.JSON for DB storage.
func flagsToJSON(flags []string) datatypes.JSON {
	if len(flags) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(flags)
	return datatypes.JSON(data)
}

// CoreToHit converts a core.HitRecord to a GORM Hit. RoundID is stamped by
// the writer.
func CoreToHit(h core.HitRecord) model.Hit {
	out := model.Hit{
		ID:           h.ID,
		Time:         h.Time,
		Tick:         h.Tick,
		AttackerID:   uint64(h.AttackerID),
		AttackerCell: h.AttackerCell.String(),
		VictimCell:   h.VictimCell.String(),
		Target:       string(h.Target),
		Region:       h.Region,
		Weapon:       h.Weapon,
		Flags:        flagsToJSON(h.Flags),
		RawBrute:     h.Raw.Brute,
		RawBurn:      h.Raw.Burn,
		RawToxin:     h.Raw.Toxin,
		Brute:        h.Applied.Brute,
		Burn:         h.Applied.Burn,
		Toxin:        h.Applied.Toxin,
		Result:       h.Result.String(),
		Dropped:      h.Dropped,
	}
	if h.VictimID != nil {
		out.VictimID = sql.NullInt64{Int64: int64(*h.VictimID), Valid: true}
	}
	return out
}

// CoreToNarration converts a core.NarrationRecord to a GORM Narration.
func CoreToNarration(n core.NarrationRecord) model.Narration {
	return model.Narration{
		ID:         n.ID,
		Time:       n.Time,
		Tick:       n.Tick,
		ObserverID: uint64(n.Observer),
		Handle:     uint64(n.Handle),
		Text:       n.Text,
	}
}

// HitToCore converts a stored Hit back to a core.HitRecord. The round name
// is not stored on the row and is left empty.
func HitToCore(h model.Hit) (core.HitRecord, error) {
	out := core.HitRecord{
		ID:         h.ID,
		Time:       h.Time,
		Tick:       h.Tick,
		AttackerID: core.EntityID(h.AttackerID),
		Target:     core.TargetKind(h.Target),
		Region:     h.Region,
		Weapon:     h.Weapon,
		Raw:        core.Damage{Brute: h.RawBrute, Burn: h.RawBurn, Toxin: h.RawToxin},
		Applied:    core.Damage{Brute: h.Brute, Burn: h.Burn, Toxin: h.Toxin},
		Dropped:    h.Dropped,
	}
	var err error
	if out.AttackerCell, err = core.ParseCellID(h.AttackerCell); err != nil {
		return out, fmt.Errorf("attacker cell: %w", err)
	}
	if out.VictimCell, err = core.ParseCellID(h.VictimCell); err != nil {
		return out, fmt.Errorf("victim cell: %w", err)
	}
	if h.VictimID.Valid {
		v := core.EntityID(h.VictimID.Int64)
		out.VictimID = &v
	}
	if err := out.Result.UnmarshalText([]byte(h.Result)); err != nil {
		return out, fmt.Errorf("result: %w", err)
	}
	if len(h.Flags) > 0 {
		if err := json.Unmarshal(h.Flags, &out.Flags); err != nil {
			return out, fmt.Errorf("flags: %w", err)
		}
		if len(out.Flags) == 0 {
			out.Flags = nil
		}
	}
	return out, nil
}

// NarrationToCore converts a stored Narration back to a core.NarrationRecord.
func NarrationToCore(n model.Narration) core.NarrationRecord {
	return core.NarrationRecord{
		ID:       n.ID,
		Time:     n.Time,
		Tick:     n.Tick,
		Observer: core.EntityID(n.ObserverID),
		Handle:   core.Handle(n.Handle),
		Text:     n.Text,
	}
}
