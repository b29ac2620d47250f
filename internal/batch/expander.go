package batch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"video-compressor/internal/domain"
	"video-compressor/internal/ffmpeg"
	"video-compressor/internal/presets"
)

// Request is one batch submission from the UI collaborator. Files are
// expected to be pre-validated as existing, readable video files.
type Request struct {
	Files         []string
	PresetConfigs []domain.PresetConfig
	OutputDir     string
	Advanced      *domain.AdvancedSettings
	// OutputNames optionally maps an input path to a caller-chosen output
	// file name (extension optional; the container decides it).
	OutputNames map[string]string
}

// Task is one expanded (file, preset-config) compression unit.
type Task struct {
	Key        domain.TaskKey
	InputPath  string
	Preset     domain.Preset
	KeepAudio  bool
	OutputPath string
}

// Expander cross-products input files with preset configs into a flat task
// list with collision-safe output paths.
type Expander struct {
	registry *presets.Registry
	logger   hclog.Logger
}

// NewExpander constructs an expander over the given preset registry.
func NewExpander(registry *presets.Registry, logger hclog.Logger) *Expander {
	return &Expander{registry: registry, logger: logger.Named("expander")}
}

// Expand builds the task table. Unknown preset ids are skipped with a
// logged warning; they are not fatal for the batch. Repeated input paths
// collapse to their first occurrence so task keys stay unique.
func (e *Expander) Expand(req Request) []Task {
	seen := make(map[string]bool, len(req.Files))
	files := make([]string, 0, len(req.Files))
	for _, file := range req.Files {
		if seen[file] {
			e.logger.Warn("skipping duplicate input", "file", file)
			continue
		}
		seen[file] = true
		files = append(files, file)
	}

	// Stable per-file occurrence numbers disambiguate repeated basenames
	// across different directories.
	occurrence := make(map[string]int)
	fileOccurrence := make(map[string]int, len(files))
	for _, file := range files {
		base := strings.ToLower(filepath.Base(file))
		occurrence[base]++
		fileOccurrence[file] = occurrence[base]
	}

	var tasks []Task
	for ordinal, cfg := range req.PresetConfigs {
		preset, ok := e.registry.Get(cfg.PresetID)
		if !ok {
			e.logger.Warn("skipping unknown preset", "preset", cfg.PresetID)
			continue
		}

		for _, file := range files {
			tasks = append(tasks, Task{
				Key: domain.TaskKey{
					File:     file,
					PresetID: cfg.PresetID,
					Ordinal:  ordinal,
				},
				InputPath:  file,
				Preset:     preset,
				KeepAudio:  cfg.KeepAudio,
				OutputPath: outputPath(req, file, cfg.PresetID, preset, fileOccurrence[file]),
			})
		}
	}
	return tasks
}

// outputPath computes the collision-safe output location for one task.
// Codecs that cannot live in mp4 get a .webm container.
func outputPath(req Request, file, presetID string, preset domain.Preset, occurrence int) string {
	ext := ".mp4"
	if ffmpeg.NeedsWebM(preset.Settings.VideoCodec) {
		ext = ".webm"
	}

	if custom, ok := req.OutputNames[file]; ok && strings.TrimSpace(custom) != "" {
		stem := strings.TrimSuffix(custom, filepath.Ext(custom))
		return filepath.Join(req.OutputDir, stem+ext)
	}

	base := filepath.Base(file)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := fmt.Sprintf("%s_%s", stem, presetID)
	if occurrence > 1 {
		name = fmt.Sprintf("%s_%d", name, occurrence)
	}
	return filepath.Join(req.OutputDir, name+ext)
}
