package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names shared by the HTTP API, the HTML page and gRPC
const (
	ParamTier      = "tier"
	ParamChanged   = "changed"
	ParamSearch    = "search"
	ParamCardType  = "cardType"
	ParamSort      = "sort"
	ParamDirection = "direction"
	ParamPage      = "page"
	ParamPageSize  = "pageSize"
)

// ParseViewQuery overlays query parameters on base. Absent parameters keep
// the base value; present but invalid ones are an error.
func ParseViewQuery(values url.Values, base ViewState) (ViewState, error) {
	vs := base

	if values.Has(ParamTier) {
		tier, err := ParseTierSelection(values.Get(ParamTier))
		if err != nil {
			return base, err
		}
		vs.Tier = tier
	}

	if values.Has(ParamChanged) {
		changed, err := parseChanged(values.Get(ParamChanged))
		if err != nil {
			return base, err
		}
		vs.ChangedOnly = changed
	}

	if values.Has(ParamSearch) {
		vs.Search = strings.ToLower(strings.TrimSpace(values.Get(ParamSearch)))
	}

	if values.Has(ParamCardType) {
		ct := CardType(strings.ToLower(values.Get(ParamCardType)))
		if !ct.Valid() {
			return base, fmt.Errorf("unknown card type %q", values.Get(ParamCardType))
		}
		vs.CardType = ct
	}

	if values.Has(ParamSort) {
		switch mode := SortMode(strings.ToLower(values.Get(ParamSort))); mode {
		case SortByPrice, SortByRatio:
			vs.SortMode = mode
		default:
			return base, fmt.Errorf("unknown sort mode %q", values.Get(ParamSort))
		}
	}

	if values.Has(ParamDirection) {
		switch dir := Direction(strings.ToLower(values.Get(ParamDirection))); dir {
		case Ascending, Descending:
			vs.Direction = dir
		default:
			return base, fmt.Errorf("unknown sort direction %q", values.Get(ParamDirection))
		}
	}

	var err error
	if vs.Page, err = positiveParam(values, ParamPage, vs.Page); err != nil {
		return base, err
	}
	if vs.PageSize, err = positiveParam(values, ParamPageSize, vs.PageSize); err != nil {
		return base, err
	}

	return vs, nil
}

// Query encodes the view so ParseViewQuery restores it
func (v ViewState) Query() url.Values {
	values := url.Values{}
	values.Set(ParamTier, v.Tier.String())
	if v.ChangedOnly {
		values.Set(ParamChanged, "changed")
	} else {
		values.Set(ParamChanged, "all")
	}
	if v.Search != "" {
		values.Set(ParamSearch, v.Search)
	}
	values.Set(ParamCardType, string(v.CardType))
	values.Set(ParamSort, string(v.SortMode))
	values.Set(ParamDirection, string(v.Direction))
	values.Set(ParamPage, strconv.Itoa(v.Page))
	values.Set(ParamPageSize, strconv.Itoa(v.PageSize))
	return values
}

func parseChanged(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return false, nil
	case "changed", "only":
		return true, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid changed filter %q", s)
	}
	return b, nil
}

func positiveParam(values url.Values, name string, fallback int) (int, error) {
	if !values.Has(name) {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(values.Get(name)))
	if err != nil || n < 1 {
		return fallback, fmt.Errorf("%s must be a positive integer, got %q", name, values.Get(name))
	}
	return n, nil
}
