package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"video-compressor/internal/domain"
)

// TestCheckerRunAllPass validates the happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{
		OutputDir:       filepath.Join(root, "output"),
		DefaultPresetID: "web-standard",
	}, []string{"web-standard", "web-small"})

	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
}

// TestCheckerRunMissingToolsAndPaths validates failure reporting.
func TestCheckerRunMissingToolsAndPaths(t *testing.T) {
	checker := NewCheckerForTests(
		func(string) (string, error) { return "", errors.New("not found") },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{
		OutputDir:       "",
		DefaultPresetID: "",
	}, nil)

	if !report.HasFailures {
		t.Fatal("expected failures")
	}

	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_ffprobe", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "default_preset", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusFail)
}

// TestCheckerToolFailuresAreFixable validates the installer flag.
func TestCheckerToolFailuresAreFixable(t *testing.T) {
	checker := NewCheckerForTests(
		func(string) (string, error) { return "", errors.New("not found") },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{}, nil)
	for _, item := range report.Items {
		switch item.ID {
		case "tool_ffmpeg", "tool_ffprobe":
			if !item.Fixable {
				t.Fatalf("item %s should be fixable", item.ID)
			}
		default:
			if item.Fixable {
				t.Fatalf("item %s should not be fixable", item.ID)
			}
		}
	}
}

// TestCheckerUnregisteredDefaultPresetFails validates the preset check.
func TestCheckerUnregisteredDefaultPresetFails(t *testing.T) {
	root := t.TempDir()
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{
		OutputDir:       filepath.Join(root, "output"),
		DefaultPresetID: "removed-preset",
	}, []string{"web-standard"})

	assertStatusByID(t, report, "default_preset", domain.DiagnosticStatusFail)
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			if item.Status != want {
				t.Fatalf("item %s: got %s, want %s", id, item.Status, want)
			}
			return
		}
	}
	t.Fatalf("diagnostic item not found: %s", id)
}
