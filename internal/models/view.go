package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TierSelection is either every tier or exactly one tier key
type TierSelection struct {
	All  bool
	Tier int
}

// AllTiers selects every tier group
func AllTiers() TierSelection {
	return TierSelection{All: true}
}

// SingleTier selects one tier group
func SingleTier(tier int) TierSelection {
	return TierSelection{Tier: tier}
}

// ParseTierSelection accepts "all", "200" or "200_seal"
func ParseTierSelection(s string) (TierSelection, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return AllTiers(), nil
	}
	s = strings.TrimSuffix(s, "_seal")
	tier, err := strconv.Atoi(s)
	if err != nil || tier < 0 {
		return TierSelection{}, fmt.Errorf("invalid tier selection %q", s)
	}
	return SingleTier(tier), nil
}

func (t TierSelection) String() string {
	if t.All {
		return "all"
	}
	return strconv.Itoa(t.Tier)
}

func (t TierSelection) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TierSelection) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("tier selection must be a string or integer: %w", err)
		}
		s = strconv.Itoa(n)
	}
	parsed, err := ParseTierSelection(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SortMode selects whether rows are ordered by raw price or by ratio
type SortMode string

const (
	SortByPrice SortMode = "price"
	SortByRatio SortMode = "ratio"
)

// Direction is the raw-price sort direction
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// DefaultPageSize is used when a view does not ask for one
const DefaultPageSize = 50

// ViewState holds the current filter, sort and pagination selections
type ViewState struct {
	Tier        TierSelection `json:"tier"`
	ChangedOnly bool          `json:"changedOnly"`
	Search      string        `json:"search"`
	CardType    CardType      `json:"cardType"`
	SortMode    SortMode      `json:"sortMode"`
	Direction   Direction     `json:"direction"`
	Page        int           `json:"page"`
	PageSize    int           `json:"pageSize"`
}

// DefaultViewState mirrors the landing view: 200 seal, all players,
// Limited prices low to high.
func DefaultViewState() ViewState {
	return ViewState{
		Tier:      SingleTier(200),
		CardType:  CardLimited,
		SortMode:  SortByPrice,
		Direction: Ascending,
		Page:      1,
		PageSize:  DefaultPageSize,
	}
}

// Validate checks the enumerated fields and the page bounds
func (v ViewState) Validate() error {
	if !v.CardType.Valid() {
		return fmt.Errorf("unknown card type %q", v.CardType)
	}
	if v.SortMode != SortByPrice && v.SortMode != SortByRatio {
		return fmt.Errorf("unknown sort mode %q", v.SortMode)
	}
	if v.Direction != Ascending && v.Direction != Descending {
		return fmt.Errorf("unknown sort direction %q", v.Direction)
	}
	if v.Page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", v.Page)
	}
	if v.PageSize < 1 {
		return fmt.Errorf("page size must be > 0, got %d", v.PageSize)
	}
	return nil
}

// PageMarker is one entry of the compressed page-number list
type PageMarker struct {
	Number   int
	Ellipsis bool
}

// Ellipsis is the gap marker between page numbers
var Ellipsis = PageMarker{Ellipsis: true}

// PageNumber marks a concrete page
func PageNumber(n int) PageMarker {
	return PageMarker{Number: n}
}

func (m PageMarker) String() string {
	if m.Ellipsis {
		return "..."
	}
	return strconv.Itoa(m.Number)
}

func (m PageMarker) MarshalJSON() ([]byte, error) {
	if m.Ellipsis {
		return []byte(`"..."`), nil
	}
	return []byte(strconv.Itoa(m.Number)), nil
}

func (m *PageMarker) UnmarshalJSON(data []byte) error {
	if string(data) == `"..."` {
		*m = Ellipsis
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*m = PageNumber(n)
	return nil
}

// ViewResult is the output of one filter/sort/paginate recomputation
type ViewResult struct {
	Items       []PlayerRecord `json:"items"`
	Page        int            `json:"page"`
	PageSize    int            `json:"pageSize"`
	TotalPages  int            `json:"totalPages"`
	TotalCount  int            `json:"totalCount"`
	PageNumbers []PageMarker   `json:"pageNumbers"`
	GeneratedAt time.Time      `json:"generatedAt"`
	View        ViewState      `json:"view"`
}
