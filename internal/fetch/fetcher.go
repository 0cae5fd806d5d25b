package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"imagery-timelapse/internal/cache"
	"imagery-timelapse/internal/common"
	"imagery-timelapse/internal/ratelimit"
)

// Source is the fetch contract consumed by the prober and assembler.
type Source interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// Config holds the fetcher's dependencies. Endpoint and limits have
// usable zero-value defaults; Cache and RateLimits are optional.
type Config struct {
	Endpoint      Endpoint
	UserAgent     string
	Client        *http.Client
	MaxConcurrent int
	MaxRetries    int           // retries after the first attempt
	BaseBackoff   time.Duration // doubled per retry
	Cache         cache.Store
	RateLimits    *ratelimit.Handler
	Logger        *slog.Logger
}

// Fetcher retrieves single tiles over HTTP. Every call is independently
// safe to run in parallel; the weighted semaphore is the only cross-call
// state and bounds in-flight requests process-wide.
type Fetcher struct {
	endpoint    Endpoint
	userAgent   string
	client      *http.Client
	sem         *semaphore.Weighted
	maxRetries  int
	baseBackoff time.Duration
	cache       cache.Store
	rateLimits  *ratelimit.Handler
	logger      *slog.Logger
}

// New creates a Fetcher from cfg, applying defaults for unset fields.
func New(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout:   30 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		}
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = common.DefaultWorkers
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseBackoff := cfg.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 500 * time.Millisecond
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		endpoint:    cfg.Endpoint,
		userAgent:   userAgent,
		client:      client,
		sem:         semaphore.NewWeighted(int64(maxConcurrent)),
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
		cache:       cfg.Cache,
		rateLimits:  cfg.RateLimits,
		logger:      logger,
	}
}

// Fetch retrieves one tile. Definitive absence (404) surfaces as
// *TileUnavailableError without retrying; timeouts, connection errors and
// 5xx responses are retried with exponential backoff until the budget is
// spent, then surface as *TransientError.
func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if f.cache != nil {
		if data, ok := f.cache.Get(req.Key()); ok {
			return data, nil
		}
	}

	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := f.baseBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if f.rateLimits != nil {
			if limited, remaining := f.rateLimits.Limited(); limited {
				lastErr = fmt.Errorf("rate limit cooldown active for %s", remaining.Round(time.Second))
				attempts++
				continue
			}
		}

		data, err := f.fetchOnce(ctx, req)
		attempts++
		if err == nil {
			if f.cache != nil {
				if cerr := f.cache.Set(req.Key(), data); cerr != nil {
					f.logger.Warn("failed to cache tile", "tile", req.String(), "error", cerr)
				}
			}
			return data, nil
		}

		var unavailable *TileUnavailableError
		if errors.As(err, &unavailable) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		f.logger.Debug("tile fetch attempt failed", "tile", req.String(), "attempt", attempt+1, "error", err)
	}

	return nil, &TransientError{Request: req, Attempts: attempts, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint.URL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile: %w", err)
	}
	defer resp.Body.Close()

	if f.rateLimits != nil && f.rateLimits.CheckResponse(resp) {
		return nil, fmt.Errorf("rate limited (status %d)", resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read tile body: %w", err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("empty tile body")
		}
		return data, nil

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		// Version evicted or tile outside coverage.
		return nil, &TileUnavailableError{Request: req, Status: resp.StatusCode}

	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("tile request failed with status %d", resp.StatusCode)

	default:
		return nil, &TileUnavailableError{Request: req, Status: resp.StatusCode}
	}
}
