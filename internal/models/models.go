package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CardType represents the card edition whose price or ratio is being viewed
type CardType string

const (
	CardLimited   CardType = "limited"
	CardRare      CardType = "rare"
	CardSuperRare CardType = "super_rare"
)

// CardTypes lists every card edition in display order
var CardTypes = []CardType{CardLimited, CardRare, CardSuperRare}

// Valid reports whether c is one of the known card editions
func (c CardType) Valid() bool {
	switch c {
	case CardLimited, CardRare, CardSuperRare:
		return true
	}
	return false
}

// Label returns the human readable edition name
func (c CardType) Label() string {
	switch c {
	case CardLimited:
		return "Limited"
	case CardRare:
		return "Rare"
	case CardSuperRare:
		return "Super Rare"
	}
	return string(c)
}

// PlayerURLPrefix is the canonical external player page
const PlayerURLPrefix = "https://sorare.com/football/players/"

// PlayerRecord represents one normalized player row
type PlayerRecord struct {
	Slug         string                           `json:"slug"`
	Name         string                           `json:"name"`
	Tier         *int                             `json:"tier"`
	PreviousTier *int                             `json:"previousTier"`
	Changed      bool                             `json:"changed"`
	Prices       map[CardType]decimal.NullDecimal `json:"prices"`
	Ratios       map[CardType]decimal.NullDecimal `json:"ratios,omitempty"`
}

// URL returns the external player page; the slug is used verbatim
func (p PlayerRecord) URL() string {
	return PlayerURLPrefix + p.Slug
}

// Price returns the market price for a card type, invalid when unknown
func (p PlayerRecord) Price(ct CardType) decimal.NullDecimal {
	return p.Prices[ct]
}

// Dataset represents one immutable snapshot of the seal data feed
type Dataset struct {
	GeneratedAt time.Time              `json:"generatedAt"`
	TierGroups  map[int][]PlayerRecord `json:"tierGroups"`

	// SummaryCounts is taken from the source as-is and may drift from TierGroups
	SummaryCounts     map[int]int `json:"summaryCounts"`
	DataQualityIssues int         `json:"dataQualityIssues"`
}

// Tiers returns the tier keys in ascending order
func (d *Dataset) Tiers() []int {
	tiers := make([]int, 0, len(d.TierGroups))
	for tier := range d.TierGroups {
		tiers = append(tiers, tier)
	}
	sort.Ints(tiers)
	return tiers
}

// Len returns the number of records across all tier groups
func (d *Dataset) Len() int {
	n := 0
	for _, group := range d.TierGroups {
		n += len(group)
	}
	return n
}

// FindBySlug looks a record up across all tier groups
func (d *Dataset) FindBySlug(slug string) (PlayerRecord, bool) {
	for _, tier := range d.Tiers() {
		for _, p := range d.TierGroups[tier] {
			if p.Slug == slug {
				return p, true
			}
		}
	}
	return PlayerRecord{}, false
}

// ChangedCount returns how many records changed tier in this snapshot
func (d *Dataset) ChangedCount() int {
	n := 0
	for _, group := range d.TierGroups {
		for _, p := range group {
			if p.Changed {
				n++
			}
		}
	}
	return n
}

// ChangedPlayers returns the changed records in ascending tier order
func (d *Dataset) ChangedPlayers() []PlayerRecord {
	var out []PlayerRecord
	for _, tier := range d.Tiers() {
		for _, p := range d.TierGroups[tier] {
			if p.Changed {
				out = append(out, p)
			}
		}
	}
	return out
}
