// Command imagery-timelapse assembles a historical satellite timelapse
// for a point of interest by walking a tile provider's version history
// backwards, stitching every surviving version into a frame and
// collapsing unchanged runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"imagery-timelapse/internal/cache"
	"imagery-timelapse/internal/common"
	"imagery-timelapse/internal/config"
	"imagery-timelapse/internal/export"
	"imagery-timelapse/internal/fetch"
	"imagery-timelapse/internal/geo"
	"imagery-timelapse/internal/pipeline"
	"imagery-timelapse/internal/probe"
	"imagery-timelapse/internal/ratelimit"
	"imagery-timelapse/internal/utils/naming"
)

const sourceName = "google-kh"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	godotenv.Load()

	var (
		centerFlag  = flag.String("center", "", "point of interest as lat,lon (required)")
		widthM      = flag.Float64("width-m", 1000, "extent width in meters")
		heightM     = flag.Float64("height-m", 1000, "extent height in meters")
		maxTiles    = flag.Int("tiles", 0, "max tiles per axis (zoom policy; mutually exclusive with -image-width/-image-height)")
		imageWidth  = flag.Int("image-width", 0, "target output width in pixels (zoom policy)")
		imageHeight = flag.Int("image-height", 0, "target output height in pixels (zoom policy)")
		dirFlag     = flag.String("direction", "down", "view direction: down, north, east, south, west")
		lookback    = flag.Int("lookback", 0, "max versions to scan backwards (0 = settings default)")
		parallel    = flag.Int("parallel", 0, "versions assembled concurrently (0 = settings default)")
		workers     = flag.Int("workers", 0, "concurrent tile fetches (0 = settings default)")
		format      = flag.String("format", "", "output format: gif, avi, png, webp, tiff (default from settings)")
		output      = flag.String("output", "", "output path (file for gif/avi, directory for stills)")
		delay       = flag.Float64("delay", 0, "seconds per frame (0 = settings default)")
		labelFlag   = flag.Bool("label", false, "stamp the version id on each frame (needs a font in settings)")
		newestFirst = flag.Bool("newest-first", false, "order frames newest to oldest")
		settingsArg = flag.String("settings", "", "settings file path (default ~/.imagery-timelapse/settings.json)")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	settingsPath := *settingsArg
	if settingsPath == "" {
		settingsPath = config.SettingsPath()
	}
	settings, err := config.Load(settingsPath)
	if err != nil {
		return err
	}

	center, err := parseCenter(*centerFlag)
	if err != nil {
		return err
	}
	rect, err := geo.RectAround(center, *widthM, *heightM)
	if err != nil {
		return err
	}

	policy, err := resolvePolicy(*maxTiles, *imageWidth, *imageHeight)
	if err != nil {
		return err
	}

	direction, err := common.ParseDirection(*dirFlag)
	if err != nil {
		return err
	}

	if *lookback <= 0 {
		*lookback = settings.MaxLookback
	}
	if *parallel <= 0 {
		*parallel = settings.VersionParallelism
	}
	if *workers <= 0 {
		*workers = settings.MaxConcurrent
	}
	if *format == "" {
		*format = settings.OutputFormat
	}
	if *delay <= 0 {
		*delay = settings.FrameDelay
	}

	// Memory LRU in front of the persistent disk cache; probe tiles get
	// re-requested during assembly and should never hit the network twice.
	disk, err := cache.NewDiskCache(settings.CachePath, settings.CacheMaxSizeMB)
	if err != nil {
		return fmt.Errorf("opening tile cache: %w", err)
	}
	store, err := cache.NewMemoryCache(512, disk)
	if err != nil {
		return err
	}

	fetcher := fetch.New(fetch.Config{
		Endpoint:      fetch.Endpoint{Template: settings.EndpointTemplate},
		UserAgent:     settings.UserAgent,
		MaxConcurrent: *workers,
		MaxRetries:    settings.MaxRetries,
		Cache:         store,
		RateLimits:    ratelimit.NewHandler(nil, logger),
		Logger:        logger,
	})

	pipe, err := pipeline.New(pipeline.Config{
		Source:             fetcher,
		Sentinel:           probe.NewMapsSentinel(logger),
		MaxLookback:        *lookback,
		VersionParallelism: *parallel,
		OldestFirst:        !*newestFirst,
		Progress:           progressPrinter(logger),
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seq, err := pipe.Run(ctx, pipeline.Request{
		Rect:      rect,
		Policy:    policy,
		Direction: direction,
	})
	if err != nil {
		return err
	}
	for _, skip := range seq.Skipped {
		logger.Warn("version skipped", "version", skip.Version, "reason", skip.Reason)
	}
	if len(seq.Frames) == 0 {
		return fmt.Errorf("no versions could be assembled")
	}

	labelOpts := export.DefaultLabelOptions()
	labelOpts.Show = *labelFlag
	labelOpts.FontPath = settings.LabelFont

	exporter, err := export.New(export.Options{
		FrameDelay: *delay,
		Quality:    settings.Quality,
		Label:      labelOpts,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer exporter.Close()

	return writeOutput(exporter, seq, *format, *output, settings, center)
}

func writeOutput(exporter *export.Exporter, seq *pipeline.FrameSequence, format, output string, settings *config.Settings, center geo.Point) error {
	switch format {
	case "gif", "avi":
		if output == "" {
			name := naming.SequenceFilename(sourceName, time.Now(), seq.Window.Oldest, seq.Window.Newest, seq.Grid, center, format)
			output = filepath.Join(settings.OutputPath, name)
		}
		if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if format == "gif" {
			return exporter.WriteGIF(output, seq.Frames)
		}
		return exporter.WriteAVI(output, seq.Frames)
	case "png", "webp", "tiff":
		if output == "" {
			output = filepath.Join(settings.OutputPath, seq.RunID)
		}
		return exporter.SaveFrames(output, sourceName, format, seq.Frames, center)
	default:
		return fmt.Errorf("unsupported format: %s (supported: gif, avi, png, webp, tiff)", format)
	}
}

func parseCenter(s string) (geo.Point, error) {
	if s == "" {
		return geo.Point{}, fmt.Errorf("-center is required (lat,lon)")
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Point{}, fmt.Errorf("invalid -center %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid latitude %q", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid longitude %q", parts[1])
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}

func resolvePolicy(maxTiles, imageWidth, imageHeight int) (geo.Policy, error) {
	set := 0
	var policy geo.Policy
	if maxTiles > 0 {
		policy = geo.PolicyMaxTiles(maxTiles)
		set++
	}
	if imageWidth > 0 {
		policy = geo.PolicyWidthPx(imageWidth)
		set++
	}
	if imageHeight > 0 {
		policy = geo.PolicyHeightPx(imageHeight)
		set++
	}
	if set == 0 {
		return geo.PolicyMaxTiles(4), nil
	}
	if set > 1 {
		return geo.Policy{}, fmt.Errorf("exactly one of -tiles, -image-width, -image-height may be set")
	}
	return policy, nil
}

// progressPrinter logs tile progress at 10% steps to keep output terse.
func progressPrinter(logger *slog.Logger) common.ProgressFunc {
	lastDecile := -1
	return func(p common.Progress) {
		if p.Total == 0 {
			logger.Info(p.Status, "version", p.CurrentVersion, "of", p.TotalVersions)
			return
		}
		decile := p.Percent / 10
		if decile == lastDecile {
			return
		}
		lastDecile = decile
		logger.Info("downloading tiles", "done", p.Downloaded, "total", p.Total, "percent", p.Percent)
	}
}
