package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"video-compressor/internal/domain"
)

// Store defines persistence operations for app settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// JSONStore persists settings in a single JSON file on disk.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed settings store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads settings from disk or returns defaults when missing.
func (s *JSONStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}

		return domain.Settings{}, err
	}

	var cfg domain.Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, err
	}

	return cfg, nil
}

// Save writes settings as indented JSON and creates parent directories.
func (s *JSONStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}

// PresetStore persists user-defined presets as a flat JSON object keyed by
// custom-prefixed preset id. The registry consumes it once at startup.
type PresetStore struct {
	path string
}

// NewPresetStore creates a JSON-backed custom preset store.
func NewPresetStore(path string) *PresetStore {
	return &PresetStore{path: path}
}

// Load reads persisted custom presets, or an empty map when missing.
func (s *PresetStore) Load() (map[string]domain.Preset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]domain.Preset{}, nil
		}

		return nil, err
	}

	var out map[string]domain.Preset
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]domain.Preset{}
	}

	return out, nil
}

// Save writes the full custom preset mapping, replacing the previous file.
func (s *PresetStore) Save(presets map[string]domain.Preset) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(presets, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}
