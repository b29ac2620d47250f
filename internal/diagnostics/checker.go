package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"video-compressor/internal/domain"
)

// Checker validates external tools and required configuration at startup and
// on demand from the settings screen.
type Checker struct {
	lookPath   func(string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all checks and returns a combined report. presetIDs is the
// set of currently registered preset ids.
func (c *Checker) Run(settings domain.Settings, presetIDs []string) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg"),
		c.checkTool("ffprobe"),
		c.checkDefaultPreset(settings.DefaultPresetID, presetIDs),
		c.checkOutputDir(settings.OutputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required CLI executable is on PATH. Tool failures are
// fixable through the guided installer.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install it and ensure the binary is available on PATH before starting a compression batch.",
			Fixable: true,
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkDefaultPreset verifies the configured default preset still exists.
func (c *Checker) checkDefaultPreset(presetID string, presetIDs []string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "default_preset",
		Name: "Default preset",
	}

	if strings.TrimSpace(presetID) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "No default preset is configured."
		item.Hint = "Pick a default preset in settings."
		return item
	}

	for _, id := range presetIDs {
		if id == presetID {
			item.Status = domain.DiagnosticStatusPass
			item.Message = fmt.Sprintf("Default preset is registered: %s", presetID)
			return item
		}
	}

	item.Status = domain.DiagnosticStatusFail
	item.Message = fmt.Sprintf("Default preset is not registered: %s", presetID)
	item.Hint = "The preset may have been removed. Pick another default in settings."
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory where compressed videos can be written."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for compressed output."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
