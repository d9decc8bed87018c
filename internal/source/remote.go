package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// DefaultURL is the public mirror of the seal feed
const DefaultURL = "https://raw.githubusercontent.com/random989/seal-sorare/main/seal_data.json"

const userAgent = "seal-tracker/1.0"

// RemoteSource fetches the feed over HTTP, bypassing intermediate caches
type RemoteSource struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewRemoteSource creates a source for url. Fetches closer together than
// minInterval wait for the limiter; zero disables throttling.
func NewRemoteSource(url string, timeout, minInterval time.Duration) *RemoteSource {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	return &RemoteSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func (r *RemoteSource) Name() string {
	return r.url
}

func (r *RemoteSource) Fetch(ctx context.Context) (*models.RawDataset, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, unavailable(fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, unavailable(fmt.Errorf("error creating request: %w", err))
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(fmt.Errorf("error making request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unavailable(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var raw models.RawDataset
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, unavailable(fmt.Errorf("error decoding response: %w", err))
	}
	if raw.Players == nil {
		return nil, unavailable(errors.New("response has no players"))
	}
	return &raw, nil
}
