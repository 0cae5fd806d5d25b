package probe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"imagery-timelapse/internal/common"
	"imagery-timelapse/internal/fetch"
)

// Sentinel supplies the provider's current newest version marker for a
// direction namespace. It is resolved once per run and passed into the
// prober explicitly, never read from ambient state.
type Sentinel interface {
	Latest(ctx context.Context, dir common.Direction) (common.Version, error)
}

// fallbackVersion is used when the live marker cannot be extracted.
// Version ids advance slowly, so a stale pin keeps working for a while.
const fallbackVersion common.Version = 904

// khVersionPattern finds the kh version in the Google Maps page source,
// where the tile URL appears as a JS string with escaped slashes and
// = for '='.
var khVersionPattern = regexp.MustCompile(`khms0\.google\.com\\/kh\\/v\\u003d([0-9]+)`)

// MapsSentinel scrapes the Google Maps page for the current kh version.
// Scrape failures fall back to the pinned version with a warning rather
// than failing the run; the prober will notice a truly dead version.
type MapsSentinel struct {
	URL       string
	UserAgent string
	Client    *http.Client
	Logger    *slog.Logger
}

func NewMapsSentinel(logger *slog.Logger) *MapsSentinel {
	if logger == nil {
		logger = slog.Default()
	}
	return &MapsSentinel{
		URL:       "https://www.google.com/maps/",
		UserAgent: fetch.DefaultUserAgent,
		Client:    &http.Client{Timeout: 15 * time.Second},
		Logger:    logger,
	}
}

func (s *MapsSentinel) Latest(ctx context.Context, dir common.Direction) (common.Version, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return fallbackVersion, nil
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		s.Logger.Warn("unable to load maps page, using pinned version", "fallback", fallbackVersion, "error", err)
		return fallbackVersion, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.Logger.Warn("unable to read maps page, using pinned version", "fallback", fallbackVersion, "error", err)
		return fallbackVersion, nil
	}

	match := khVersionPattern.FindSubmatch(body)
	if match == nil {
		s.Logger.Warn("version marker not found in maps page, using pinned version", "fallback", fallbackVersion)
		return fallbackVersion, nil
	}

	v, err := strconv.Atoi(string(match[1]))
	if err != nil {
		return fallbackVersion, nil
	}
	return common.Version(v), nil
}

// StaticSentinel returns a fixed version marker, for tests and for
// callers that already know the newest id.
type StaticSentinel common.Version

func (s StaticSentinel) Latest(ctx context.Context, dir common.Direction) (common.Version, error) {
	return common.Version(s), nil
}
