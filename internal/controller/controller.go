// Package controller holds one user's view of the seal table: the current
// selections plus the dataset they are applied to.
package controller

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/table"
)

// Controller owns a ViewState and recomputes the table whenever it changes.
// It is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	dataset atomic.Pointer[models.Dataset]
	view    models.ViewState
	result  models.ViewResult
}

// New creates a controller over ds. A zero PageSize or Page in vs falls back
// to the defaults.
func New(ds *models.Dataset, vs models.ViewState) *Controller {
	if vs.PageSize < 1 {
		vs.PageSize = models.DefaultPageSize
	}
	if vs.Page < 1 {
		vs.Page = 1
	}
	vs.Search = normalizeSearch(vs.Search)

	c := &Controller{view: vs}
	c.dataset.Store(ds)
	c.result = table.Recompute(ds, vs)
	c.view = c.result.View
	return c
}

// View returns the current selections
func (c *Controller) View() models.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Result returns the last computed page
func (c *Controller) Result() models.ViewResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Dataset returns the snapshot the controller is reading from
func (c *Controller) Dataset() *models.Dataset {
	return c.dataset.Load()
}

// SetTier selects a tier group or all tiers
func (c *Controller) SetTier(sel models.TierSelection) models.ViewResult {
	return c.update(func(vs *models.ViewState) { vs.Tier = sel })
}

// SetChangedOnly toggles the changed-players filter
func (c *Controller) SetChangedOnly(changed bool) models.ViewResult {
	return c.update(func(vs *models.ViewState) { vs.ChangedOnly = changed })
}

// SetSearch stores the search text lower-cased
func (c *Controller) SetSearch(text string) models.ViewResult {
	text = normalizeSearch(text)
	return c.update(func(vs *models.ViewState) { vs.Search = text })
}

// SetCardType switches the price and ratio column
func (c *Controller) SetCardType(ct models.CardType) (models.ViewResult, error) {
	if !ct.Valid() {
		return c.Result(), fmt.Errorf("unknown card type %q", ct)
	}
	return c.update(func(vs *models.ViewState) { vs.CardType = ct }), nil
}

// SetSortMode switches between raw price and ratio ordering
func (c *Controller) SetSortMode(mode models.SortMode) (models.ViewResult, error) {
	if mode != models.SortByPrice && mode != models.SortByRatio {
		return c.Result(), fmt.Errorf("unknown sort mode %q", mode)
	}
	return c.update(func(vs *models.ViewState) { vs.SortMode = mode }), nil
}

// SetDirection sets the raw-price direction; ratio mode ignores it
func (c *Controller) SetDirection(dir models.Direction) (models.ViewResult, error) {
	if dir != models.Ascending && dir != models.Descending {
		return c.Result(), fmt.Errorf("unknown sort direction %q", dir)
	}
	return c.update(func(vs *models.ViewState) { vs.Direction = dir }), nil
}

// SetPageSize changes the page size
func (c *Controller) SetPageSize(size int) (models.ViewResult, error) {
	if size < 1 {
		return c.Result(), fmt.Errorf("page size must be > 0, got %d", size)
	}
	return c.update(func(vs *models.ViewState) { vs.PageSize = size }), nil
}

// SetPage moves to page n, clamped to the available pages
func (c *Controller) SetPage(n int) models.ViewResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	vs := c.view
	vs.Page = n
	c.recompute(vs)
	return c.result
}

// NextPage advances one page, staying on the last one
func (c *Controller) NextPage() models.ViewResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	vs := c.view
	vs.Page++
	c.recompute(vs)
	return c.result
}

// PrevPage goes back one page, staying on the first one
func (c *Controller) PrevPage() models.ViewResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	vs := c.view
	vs.Page--
	c.recompute(vs)
	return c.result
}

// ReplaceDataset swaps in a new snapshot and keeps the current page when it
// still exists.
func (c *Controller) ReplaceDataset(ds *models.Dataset) models.ViewResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dataset.Store(ds)
	c.recompute(c.view)
	return c.result
}

// update applies a selection change and resets to the first page
func (c *Controller) update(change func(vs *models.ViewState)) models.ViewResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	vs := c.view
	change(&vs)
	vs.Page = 1
	c.recompute(vs)
	return c.result
}

func (c *Controller) recompute(vs models.ViewState) {
	c.result = table.Recompute(c.dataset.Load(), vs)
	c.view = c.result.View
}

func normalizeSearch(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
