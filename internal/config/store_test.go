package config

import (
	"os"
	"path/filepath"
	"testing"

	"video-compressor/internal/domain"
)

// TestDefaultSettings verifies baseline defaults are present.
func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.DefaultPresetID != "web-standard" {
		t.Fatalf("default preset = %q, want web-standard", cfg.DefaultPresetID)
	}
	if cfg.OutputDir == "" {
		t.Fatal("expected non-empty output dir")
	}
	if cfg.ThermalEnabled {
		t.Fatal("thermal monitoring should default to disabled")
	}
}

// TestJSONStoreLoadMissingReturnsDefaults checks first-run behavior.
func TestJSONStoreLoadMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.json")
	store := NewJSONStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.DefaultPresetID != "web-standard" {
		t.Fatalf("default preset = %q, want web-standard", got.DefaultPresetID)
	}
}

// TestJSONStoreSaveAndLoadRoundTrip checks persisted settings fidelity.
func TestJSONStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	store := NewJSONStore(path)
	want := domain.Settings{
		OutputDir:       "/out",
		DefaultPresetID: "archive-quality",
		ThermalEnabled:  true,
		MaxConcurrent:   3,
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestJSONStoreLoadInvalidJSON checks parse error handling.
func TestJSONStoreLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not-json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewJSONStore(path)
	if _, err := store.Load(); err == nil {
		t.Fatal("expected json parse error")
	}
}

// TestPresetStoreRoundTrip checks the flat custom preset mapping persists.
func TestPresetStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "custom-presets.json")
	store := NewPresetStore(path)

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(loaded))
	}

	want := map[string]domain.Preset{
		"custom-mine": {
			Name:     "Mine",
			Category: "custom",
			Settings: domain.PresetSettings{VideoCodec: "libx264", CRF: 28},
		},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got["custom-mine"].Settings.CRF != 28 {
		t.Fatalf("loaded presets = %+v", got)
	}
}
