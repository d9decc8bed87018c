package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotInfo describes one stored dataset without loading it
type SnapshotInfo struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	StoredAt    time.Time `json:"storedAt"`
	Players     int       `json:"players"`
	Changed     int       `json:"changed"`
}

// NewSnapshotInfo summarizes ds for storage under id
func NewSnapshotInfo(id string, ds *Dataset, storedAt time.Time) SnapshotInfo {
	return SnapshotInfo{
		ID:          id,
		GeneratedAt: ds.GeneratedAt,
		StoredAt:    storedAt,
		Players:     ds.Len(),
		Changed:     ds.ChangedCount(),
	}
}

// PricePoint is one archived observation of a player's prices
type PricePoint struct {
	Slug        string                           `json:"slug"`
	Tier        *int                             `json:"tier"`
	Changed     bool                             `json:"changed"`
	Prices      map[CardType]decimal.NullDecimal `json:"prices"`
	GeneratedAt time.Time                        `json:"generatedAt"`
	RecordedAt  time.Time                        `json:"recordedAt"`
}

// NewPricePoint captures rec as observed at recordedAt
func NewPricePoint(rec PlayerRecord, generatedAt, recordedAt time.Time) PricePoint {
	prices := make(map[CardType]decimal.NullDecimal, len(CardTypes))
	for _, ct := range CardTypes {
		prices[ct] = rec.Prices[ct]
	}
	return PricePoint{
		Slug:        rec.Slug,
		Tier:        rec.Tier,
		Changed:     rec.Changed,
		Prices:      prices,
		GeneratedAt: generatedAt,
		RecordedAt:  recordedAt,
	}
}
