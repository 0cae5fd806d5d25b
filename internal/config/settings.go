// Package config persists user settings as JSON under the home
// directory. Unknown or zero fields fall back to defaults so settings
// files survive upgrades.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Settings represents persistent user preferences.
type Settings struct {
	// Fetch settings
	EndpointTemplate string `json:"endpointTemplate"`
	UserAgent        string `json:"userAgent"`
	MaxConcurrent    int    `json:"maxConcurrent"`
	MaxRetries       int    `json:"maxRetries"`

	// Version scan
	MaxLookback        int `json:"maxLookback"`
	VersionParallelism int `json:"versionParallelism"`

	// Cache settings
	CacheMaxSizeMB int    `json:"cacheMaxSizeMB"`
	CachePath      string `json:"cachePath"`

	// Export settings
	OutputPath   string  `json:"outputPath"`
	OutputFormat string  `json:"outputFormat"` // "gif", "avi", "png", "webp", "tiff"
	FrameDelay   float64 `json:"frameDelay"`   // seconds per frame
	Quality      int     `json:"quality"`
	LabelFont    string  `json:"labelFont"`
}

// DefaultSettings returns default settings.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()

	return &Settings{
		MaxConcurrent:      10,
		MaxRetries:         3,
		MaxLookback:        200,
		VersionParallelism: 1,
		CacheMaxSizeMB:     250,
		CachePath:          filepath.Join(homeDir, ".imagery-timelapse", "cache"),
		OutputPath:         filepath.Join(homeDir, "Downloads", "timelapse"),
		OutputFormat:       "gif",
		FrameDelay:         0.5,
		Quality:            90,
	}
}

// SettingsPath returns the settings file path under the home directory.
func SettingsPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".imagery-timelapse", "settings.json")
}

// Load reads settings from path, returning defaults when the file does
// not exist. Zero-valued fields are merged with defaults.
func Load(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	defaults := DefaultSettings()
	if settings.MaxConcurrent == 0 {
		settings.MaxConcurrent = defaults.MaxConcurrent
	}
	if settings.MaxRetries == 0 {
		settings.MaxRetries = defaults.MaxRetries
	}
	if settings.MaxLookback == 0 {
		settings.MaxLookback = defaults.MaxLookback
	}
	if settings.VersionParallelism == 0 {
		settings.VersionParallelism = defaults.VersionParallelism
	}
	if settings.CacheMaxSizeMB == 0 {
		settings.CacheMaxSizeMB = defaults.CacheMaxSizeMB
	}
	if settings.CachePath == "" {
		settings.CachePath = defaults.CachePath
	}
	if settings.OutputPath == "" {
		settings.OutputPath = defaults.OutputPath
	}
	if settings.OutputFormat == "" {
		settings.OutputFormat = defaults.OutputFormat
	}
	if settings.FrameDelay == 0 {
		settings.FrameDelay = defaults.FrameDelay
	}
	if settings.Quality == 0 {
		settings.Quality = defaults.Quality
	}

	return &settings, nil
}

// Save writes settings to path, creating parent directories as needed.
func Save(path string, settings *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
