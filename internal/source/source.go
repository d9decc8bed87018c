// Package source fetches the raw seal feed from a local file or the public
// mirror, and writes it back out in either feed format.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/Billy-Davies-2/seal-tracker/internal/config"
	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/normalize"
)

// ErrSourceUnavailable wraps every fetch, status or decode failure
var ErrSourceUnavailable = errors.New("seal source unavailable")

// DataSource yields one raw feed per call
type DataSource interface {
	Fetch(ctx context.Context) (*models.RawDataset, error)
	// Name identifies the source in logs
	Name() string
}

// Load fetches and normalizes one snapshot. A failed fetch never produces a
// partial dataset.
func Load(ctx context.Context, src DataSource, opts normalize.Options) (*models.Dataset, []normalize.Warning, error) {
	raw, err := src.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	ds, warnings := normalize.Dataset(raw, opts)
	return ds, warnings, nil
}

// New picks the source configured by SOURCE_KIND
func New(cfg config.Source) (DataSource, error) {
	switch cfg.Kind {
	case "file":
		return NewFileSource(cfg.File), nil
	case "remote", "":
		return NewRemoteSource(cfg.URL, cfg.FetchTimeout, cfg.MinInterval), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
}
