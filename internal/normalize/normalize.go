// Package normalize turns the raw seal feed into the canonical dataset model.
// It is the only place that knows about the verbose and compact key names.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/table"
)

// ErrMalformedRecord tags every data-quality warning
var ErrMalformedRecord = errors.New("malformed record")

// Warning describes one data-quality problem found while normalizing
type Warning struct {
	Group string
	Slug  string
	Field string
	Err   error
}

func (w Warning) Error() string {
	if w.Slug == "" {
		return fmt.Sprintf("%s: group %s field %s: %v", ErrMalformedRecord, w.Group, w.Field, w.Err)
	}
	return fmt.Sprintf("%s: %s (group %s) field %s: %v", ErrMalformedRecord, w.Slug, w.Group, w.Field, w.Err)
}

func (w Warning) Unwrap() []error {
	return []error{ErrMalformedRecord, w.Err}
}

// Options controls optional work done at normalization time
type Options struct {
	// Precompute fills PlayerRecord.Ratios eagerly. Without it ratios are
	// computed at query time through the same calculator.
	Precompute bool
}

var maxTier = decimal.NewFromInt(math.MaxInt32)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Dataset normalizes a whole feed. Bad rows are skipped or nulled and
// reported as warnings; it never fails because of one row.
func Dataset(raw *models.RawDataset, opts Options) (*models.Dataset, []Warning) {
	var warnings []Warning

	ds := &models.Dataset{
		TierGroups:    make(map[int][]models.PlayerRecord),
		SummaryCounts: make(map[int]int),
	}

	if raw.GeneratedAt != "" {
		ts, err := parseTime(raw.GeneratedAt)
		if err != nil {
			warnings = append(warnings, Warning{Field: "generated_at", Err: err})
		} else {
			ds.GeneratedAt = ts
		}
	}

	// Summary is an open object; only <tier>_seal_count keys are read
	for _, key := range sortedKeys(raw.Summary) {
		if !strings.HasSuffix(key, "_count") {
			continue
		}
		tier, err := tierFromKey(strings.TrimSuffix(key, "_count"))
		if err != nil {
			continue
		}
		count, err := parseCount(raw.Summary[key])
		if err != nil {
			warnings = append(warnings, Warning{Group: key, Field: "summary", Err: err})
			continue
		}
		ds.SummaryCounts[tier] = count
	}

	groups, groupWarnings := tierOrderedGroups(raw.Players)
	warnings = append(warnings, groupWarnings...)

	seen := make(map[string]bool)
	for _, g := range groups {
		key, tier := g.key, g.tier

		group := make([]models.PlayerRecord, 0, len(raw.Players[key]))
		for i, msg := range raw.Players[key] {
			var rp models.RawPlayer
			if err := json.Unmarshal(msg, &rp); err != nil {
				warnings = append(warnings, Warning{Group: key, Field: fmt.Sprintf("[%d]", i), Err: err})
				continue
			}

			rec, recWarnings := Player(rp, opts)
			for _, w := range recWarnings {
				w.Group = key
				warnings = append(warnings, w)
			}

			if rec.Slug == "" {
				warnings = append(warnings, Warning{Group: key, Field: "slug", Err: fmt.Errorf("row %d has no slug", i)})
				continue
			}
			if seen[rec.Slug] {
				warnings = append(warnings, Warning{Group: key, Slug: rec.Slug, Field: "slug", Err: errors.New("duplicate slug")})
				continue
			}
			seen[rec.Slug] = true
			group = append(group, rec)
		}
		ds.TierGroups[tier] = append(ds.TierGroups[tier], group...)
	}

	ds.DataQualityIssues = len(warnings)
	return ds, warnings
}

// Player maps one raw row onto the canonical record
func Player(rp models.RawPlayer, opts Options) (models.PlayerRecord, []Warning) {
	var warnings []Warning
	warn := func(field string, err error) {
		warnings = append(warnings, Warning{Slug: pick(rp.Slug, rp.ShortSlug), Field: field, Err: err})
	}

	rec := models.PlayerRecord{
		Slug:   strings.TrimSpace(pick(rp.Slug, rp.ShortSlug)),
		Name:   pick(rp.Name, rp.ShortName),
		Prices: make(map[models.CardType]decimal.NullDecimal, len(models.CardTypes)),
	}

	tier, err := parseTier(pickRaw(rp.Seal, rp.ShortSeal))
	if err != nil {
		warn("seal", err)
	}
	rec.Tier = tier

	prev, err := parseTier(pickRaw(rp.PreviousSeal, rp.ShortPreviousSeal))
	if err != nil {
		warn("previous_seal", err)
	}
	rec.PreviousTier = prev

	switch {
	case rp.SealChanged != nil:
		rec.Changed = *rp.SealChanged
	case rp.ShortChanged != nil:
		rec.Changed = *rp.ShortChanged
	case rec.Tier != nil && rec.PreviousTier != nil:
		rec.Changed = *rec.Tier != *rec.PreviousTier
	}

	rawPrices := map[models.CardType]json.RawMessage{
		models.CardLimited:   pickRaw(rp.PriceLimited, rp.ShortPriceLimited),
		models.CardRare:      pickRaw(rp.PriceRare, rp.ShortPriceRare),
		models.CardSuperRare: pickRaw(rp.PriceSuperRare, rp.ShortPriceSuperRare),
	}
	for _, ct := range models.CardTypes {
		price, err := parsePrice(rawPrices[ct])
		if err != nil {
			warn("price_"+string(ct), err)
		}
		rec.Prices[ct] = price
	}

	if opts.Precompute {
		rec.Ratios = make(map[models.CardType]decimal.NullDecimal, len(models.CardTypes))
		for _, ct := range models.CardTypes {
			rec.Ratios[ct] = table.Ratio(rec.Prices[ct], rec.Tier)
		}
	}

	return rec, warnings
}

func pick(long, short string) string {
	if long != "" {
		return long
	}
	return short
}

func pickRaw(long, short json.RawMessage) json.RawMessage {
	if len(long) > 0 {
		return long
	}
	return short
}

// unquote strips JSON string quotes; null and absent values come back empty
func unquote(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	return string(raw), nil
}

func parseTier(raw json.RawMessage) (*int, error) {
	s, err := unquote(raw)
	if err != nil || s == "" {
		return nil, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("tier %q is not a number", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return nil, fmt.Errorf("tier %q is not an integer", s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("tier %q is negative", s)
	}
	if d.GreaterThan(maxTier) {
		return nil, fmt.Errorf("tier %q is out of range", s)
	}
	n := int(d.IntPart())
	return &n, nil
}

func parsePrice(raw json.RawMessage) (decimal.NullDecimal, error) {
	s, err := unquote(raw)
	if err != nil || s == "" {
		return decimal.NullDecimal{}, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("price %q is not a number", s)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("price %q is negative", s)
	}
	return decimal.NewNullDecimal(d), nil
}

func tierFromKey(key string) (int, error) {
	s := strings.TrimSuffix(key, "_seal")
	tier, err := strconv.Atoi(s)
	if err != nil || tier < 0 {
		return 0, fmt.Errorf("group key %q is not a tier", key)
	}
	return tier, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseCount(raw json.RawMessage) (int, error) {
	s, err := unquote(raw)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("count %q is not a non-negative integer", s)
	}
	return n, nil
}

type playerGroup struct {
	key  string
	tier int
}

// tierOrderedGroups orders player groups by ascending tier, the order the
// filter concatenates them in, so the first copy of a duplicate slug is the
// one a reader of all tiers would meet first.
func tierOrderedGroups(players map[string][]json.RawMessage) ([]playerGroup, []Warning) {
	var warnings []Warning
	groups := make([]playerGroup, 0, len(players))
	for key := range players {
		tier, err := tierFromKey(key)
		if err != nil {
			warnings = append(warnings, Warning{Group: key, Field: "players", Err: err})
			continue
		}
		groups = append(groups, playerGroup{key: key, tier: tier})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].tier != groups[j].tier {
			return groups[i].tier < groups[j].tier
		}
		return groups[i].key < groups[j].key
	})
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Group < warnings[j].Group })
	return groups, warnings
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
