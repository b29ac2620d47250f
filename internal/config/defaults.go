package config

import (
	"os"
	"path/filepath"

	"video-compressor/internal/domain"
)

// DefaultSettings returns baseline local configuration for first launch.
// Thermal monitoring starts disabled; it is opt-in for stability.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		OutputDir:       filepath.Join(homeDir, "Videos", "Compressed"),
		DefaultPresetID: "web-standard",
		ThermalEnabled:  false,
		MaxConcurrent:   0,
	}
}
