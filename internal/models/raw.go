package models

import "encoding/json"

// RawDataset is the seal data feed as published by the mirror. Player rows
// stay raw so that one bad row cannot fail the whole decode.
type RawDataset struct {
	GeneratedAt string                       `json:"generated_at,omitempty"`
	Summary     map[string]json.RawMessage   `json:"summary,omitempty"`
	Players     map[string][]json.RawMessage `json:"players"`
}

// RawPlayer is one feed row. The mirror publishes verbose keys; the shrunk
// feed uses the short ones. Numeric fields may arrive as numbers or strings.
type RawPlayer struct {
	Name           string          `json:"name,omitempty"`
	Slug           string          `json:"slug,omitempty"`
	Seal           json.RawMessage `json:"seal,omitempty"`
	PreviousSeal   json.RawMessage `json:"previous_seal,omitempty"`
	SealChanged    *bool           `json:"seal_changed,omitempty"`
	PriceLimited   json.RawMessage `json:"price_limited_eur,omitempty"`
	PriceRare      json.RawMessage `json:"price_rare_eur,omitempty"`
	PriceSuperRare json.RawMessage `json:"price_super_rare_eur,omitempty"`

	ShortName           string          `json:"n,omitempty"`
	ShortSlug           string          `json:"sl,omitempty"`
	ShortSeal           json.RawMessage `json:"s,omitempty"`
	ShortPreviousSeal   json.RawMessage `json:"ps,omitempty"`
	ShortChanged        *bool           `json:"c,omitempty"`
	ShortPriceLimited   json.RawMessage `json:"pl,omitempty"`
	ShortPriceRare      json.RawMessage `json:"pr,omitempty"`
	ShortPriceSuperRare json.RawMessage `json:"psr,omitempty"`
	ShortRatioLimited   json.RawMessage `json:"rl,omitempty"`
	ShortRatioRare      json.RawMessage `json:"rr,omitempty"`
	ShortRatioSuperRare json.RawMessage `json:"rsr,omitempty"`
}
