package gormstorage

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/frontierstation/damagecast/internal/model"
	"github.com/frontierstation/damagecast/internal/model/convert"
	"github.com/frontierstation/damagecast/pkg/core"
)

// RoundSummary is one row of ListRounds.
type RoundSummary struct {
	model.Round
	Hits       int64
	Narrations int64
}

// ListRounds returns every stored round with its record counts, oldest first.
func ListRounds(db *gorm.DB) ([]RoundSummary, error) {
	var rounds []model.Round
	if err := db.Order("id").Find(&rounds).Error; err != nil {
		return nil, fmt.Errorf("error getting rounds: %w", err)
	}

	out := make([]RoundSummary, 0, len(rounds))
	for _, r := range rounds {
		s := RoundSummary{Round: r}
		if err := db.Model(&model.Hit{}).Where("round_id = ?", r.ID).Count(&s.Hits).Error; err != nil {
			return nil, fmt.Errorf("error counting hits: %w", err)
		}
		if err := db.Model(&model.Narration{}).Where("round_id = ?", r.ID).Count(&s.Narrations).Error; err != nil {
			return nil, fmt.Errorf("error counting narrations: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadRound reads one round and its records back into core types, in the
// order they were written.
func LoadRound(db *gorm.DB, id uint) (model.Round, []core.HitRecord, []core.NarrationRecord, error) {
	var round model.Round
	if err := db.Where("id = ?", id).First(&round).Error; err != nil {
		return round, nil, nil, fmt.Errorf("error getting round %d: %w", id, err)
	}

	var hits []model.Hit
	if err := db.Where("round_id = ?", id).Order("id").Find(&hits).Error; err != nil {
		return round, nil, nil, fmt.Errorf("error getting hits: %w", err)
	}
	outHits := make([]core.HitRecord, 0, len(hits))
	for _, h := range hits {
		rec, err := convert.HitToCore(h)
		if err != nil {
			return round, nil, nil, fmt.Errorf("hit %d: %w", h.ID, err)
		}
		rec.Round = round.Name
		outHits = append(outHits, rec)
	}

	var narrations []model.Narration
	if err := db.Where("round_id = ?", id).Order("id").Find(&narrations).Error; err != nil {
		return round, nil, nil, fmt.Errorf("error getting narrations: %w", err)
	}
	outNarrations := make([]core.NarrationRecord, 0, len(narrations))
	for _, n := range narrations {
		rec := convert.NarrationToCore(n)
		rec.Round = round.Name
		outNarrations = append(outNarrations, rec)
	}
	return round, outHits, outNarrations, nil
}
