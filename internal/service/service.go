// Package service owns the current seal snapshot: it refreshes it from the
// source, persists and archives it, and answers table queries against it.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Billy-Davies-2/seal-tracker/internal/dal"
	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/normalize"
	"github.com/Billy-Davies-2/seal-tracker/internal/pubsub"
	"github.com/Billy-Davies-2/seal-tracker/internal/source"
	"github.com/Billy-Davies-2/seal-tracker/internal/table"
)

var (
	// ErrNotLoaded means no snapshot has been loaded yet
	ErrNotLoaded = errors.New("seal data not loaded")
	// ErrPlayerNotFound means the slug is not in the current snapshot
	ErrPlayerNotFound = errors.New("player not found")
	// ErrArchiveDisabled means no price-history archive is configured
	ErrArchiveDisabled = errors.New("price history archive disabled")
	// ErrInvalidView wraps view validation failures
	ErrInvalidView = errors.New("invalid view")
)

// Archive stores every refreshed snapshot for price history
type Archive interface {
	ArchiveSnapshot(ctx context.Context, ds *models.Dataset) error
	PriceHistory(ctx context.Context, slug string, limit int) ([]models.PricePoint, error)
}

// Options tunes the service
type Options struct {
	// Precompute fills ratios at normalization time
	Precompute bool
	// MaxPageSize caps the page size a query may ask for
	MaxPageSize int
	// StaleAfter marks the snapshot stale when no refresh succeeded for this long
	StaleAfter time.Duration
	// InstanceID tags published events
	InstanceID string
}

// RefreshResult reports one successful refresh
type RefreshResult struct {
	Snapshot *models.SnapshotInfo `json:"snapshot,omitempty"`
	Players  int                  `json:"players"`
	Changed  int                  `json:"changed"`
	Warnings int                  `json:"warnings"`
	Duration time.Duration        `json:"duration"`
}

type refreshFailure struct {
	at  time.Time
	err error
}

// SealService is safe for concurrent use. Readers always see a complete
// snapshot; refreshes are serialized.
type SealService struct {
	source  source.DataSource
	store   dal.SnapshotDAL
	archive Archive
	bus     pubsub.Bus
	opts    Options

	current     atomic.Pointer[models.Dataset]
	snapshotID  atomic.Pointer[string] // store ID of current, nil when unknown
	lastSuccess atomic.Int64 // unix nanos
	lastFailure atomic.Pointer[refreshFailure]
	refreshMu   sync.Mutex
}

// New creates the service. archive and bus may be nil.
func New(src source.DataSource, store dal.SnapshotDAL, archive Archive, bus pubsub.Bus, opts Options) *SealService {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 500
	}
	if opts.InstanceID == "" {
		opts.InstanceID = "local"
	}
	return &SealService{
		source:  src,
		store:   store,
		archive: archive,
		bus:     bus,
		opts:    opts,
	}
}

// Start loads the first snapshot. When the source is down it falls back to
// the newest stored snapshot; it only fails when neither is available.
func (s *SealService) Start(ctx context.Context) error {
	_, err := s.Refresh(ctx)
	if err == nil {
		return nil
	}

	ds, info, storeErr := s.store.LatestSnapshot()
	if storeErr != nil {
		return fmt.Errorf("initial refresh failed and no stored snapshot: %w", errors.Join(err, storeErr))
	}

	s.current.Store(ds)
	s.snapshotID.Store(&info.ID)
	logger.Warn("Serving stored snapshot until the source recovers",
		"snapshot", info.ID, "storedAt", info.StoredAt, "players", info.Players, "error", err)
	return nil
}

// Refresh fetches, normalizes and swaps in a new snapshot. On failure the
// previous snapshot stays in place.
func (s *SealService) Refresh(ctx context.Context) (*RefreshResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	log := logger.With("source", s.source.Name())
	start := time.Now()
	ds, warnings, err := source.Load(ctx, s.source, normalize.Options{Precompute: s.opts.Precompute})
	if err != nil {
		s.lastFailure.Store(&refreshFailure{at: time.Now(), err: err})
		log.Error("Seal refresh failed", "error", err)
		s.publish(pubsub.EventRefreshFailed, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	for _, w := range warnings {
		log.Warn("Malformed seal record", "group", w.Group, "slug", w.Slug, "field", w.Field, "error", w.Err)
	}

	result := &RefreshResult{
		Players:  ds.Len(),
		Changed:  ds.ChangedCount(),
		Warnings: len(warnings),
	}

	info, err := s.store.SaveSnapshot(ds)
	if err != nil {
		log.Error("Failed to store snapshot", "error", err)
	} else {
		result.Snapshot = info
		s.snapshotID.Store(&info.ID)
	}

	if s.archive != nil {
		if err := s.archive.ArchiveSnapshot(ctx, ds); err != nil {
			log.Error("Failed to archive snapshot", "error", err)
		}
	}

	s.current.Store(ds)
	s.markLoaded()
	result.Duration = time.Since(start)

	log.Info("Seal data refreshed",
		"players", result.Players, "changed", result.Changed, "warnings", result.Warnings,
		"generatedAt", ds.GeneratedAt, "duration", result.Duration)

	payload := map[string]interface{}{
		"players":     result.Players,
		"changed":     result.Changed,
		"warnings":    result.Warnings,
		"generatedAt": ds.GeneratedAt.Format(time.RFC3339),
	}
	s.publish(pubsub.EventDatasetRefreshed, payload)
	if result.Changed > 0 {
		s.publish(pubsub.EventPlayersChanged, map[string]interface{}{"changed": result.Changed})
	}

	return result, nil
}

// Watch reloads the stored snapshot whenever another instance refreshes.
// It returns when ctx is done.
func (s *SealService) Watch(ctx context.Context) {
	if s.bus == nil {
		return
	}

	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Type != pubsub.EventDatasetRefreshed || event.Origin == s.opts.InstanceID {
				continue
			}
			s.reloadStored(event.Origin)
		}
	}
}

func (s *SealService) reloadStored(origin string) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	ds, info, err := s.store.LatestSnapshot()
	if err != nil {
		logger.Warn("Peer refreshed but no stored snapshot is readable", "origin", origin, "error", err)
		return
	}
	// A store local to this instance still holds our own latest snapshot
	if id := s.snapshotID.Load(); id != nil && *id == info.ID {
		logger.Debug("Peer refreshed but the stored snapshot is already served", "origin", origin, "snapshot", info.ID)
		return
	}
	s.current.Store(ds)
	s.snapshotID.Store(&info.ID)
	s.markLoaded()
	logger.Info("Loaded snapshot refreshed by peer", "origin", origin, "snapshot", info.ID)
}

func (s *SealService) markLoaded() {
	s.lastSuccess.Store(time.Now().UnixNano())
	s.lastFailure.Store(nil)
}

func (s *SealService) publish(eventType string, payload map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(pubsub.NewEvent(eventType, s.opts.InstanceID, payload))
}

// Current returns the snapshot being served, nil before the first load
func (s *SealService) Current() *models.Dataset {
	return s.current.Load()
}

// Bus returns the event bus, nil when events are disabled
func (s *SealService) Bus() pubsub.Bus {
	return s.bus
}

// Ready reports whether a snapshot is loaded
func (s *SealService) Ready() bool {
	return s.current.Load() != nil
}

// Query runs one table view against the current snapshot
func (s *SealService) Query(vs models.ViewState) (models.ViewResult, error) {
	ds := s.current.Load()
	if ds == nil {
		return models.ViewResult{}, ErrNotLoaded
	}
	if err := vs.Validate(); err != nil {
		return models.ViewResult{}, fmt.Errorf("%w: %w", ErrInvalidView, err)
	}
	if vs.PageSize > s.opts.MaxPageSize {
		vs.PageSize = s.opts.MaxPageSize
	}
	return table.Recompute(ds, vs), nil
}

// Player looks a player up by slug, with every ratio filled in
func (s *SealService) Player(slug string) (models.PlayerRecord, error) {
	ds := s.current.Load()
	if ds == nil {
		return models.PlayerRecord{}, ErrNotLoaded
	}
	rec, ok := ds.FindBySlug(slug)
	if !ok {
		return models.PlayerRecord{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, slug)
	}
	return table.WithRatios(rec), nil
}

// Summary describes the current snapshot and the last refresh attempt
func (s *SealService) Summary() (models.Summary, error) {
	ds := s.current.Load()
	if ds == nil {
		return models.Summary{}, ErrNotLoaded
	}

	sum := models.NewSummary(ds)
	if f := s.lastFailure.Load(); f != nil {
		sum.LastError = f.err.Error()
	}

	// A snapshot restored from the store at startup is stale until the
	// first successful refresh
	if n := s.lastSuccess.Load(); n != 0 {
		sum.LastRefresh = time.Unix(0, n).UTC()
		sum.Stale = s.opts.StaleAfter > 0 && time.Since(sum.LastRefresh) > s.opts.StaleAfter
	} else {
		sum.Stale = true
	}
	return sum, nil
}

// PriceHistory returns archived prices for slug, newest first
func (s *SealService) PriceHistory(ctx context.Context, slug string, limit int) ([]models.PricePoint, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.archive.PriceHistory(ctx, slug, limit)
}
