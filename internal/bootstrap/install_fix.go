package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"video-compressor/internal/config"
	"video-compressor/internal/domain"
)

const installCommandTimeout = 45 * time.Minute

type installOption struct {
	manager  string
	commands [][]string
}

// InstallOrFixDiagnostic applies an OS-specific remediation for one failed
// diagnostic item.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	settingsChanged := false
	var fixErr error

	switch id {
	case "tool_ffmpeg", "tool_ffprobe":
		fixErr = installFFmpegForCurrentOS()
	case "output_dir":
		settings, settingsChanged, fixErr = installOrFixOutputDir(settings)
	case "default_preset":
		settings, settingsChanged, fixErr = a.fixDefaultPreset(settings)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings, a.Presets.IDs())
	}
	return a.Diagnostics
}

// fixDefaultPreset falls back to the shipped default when the configured
// preset no longer exists.
func (a *App) fixDefaultPreset(settings domain.Settings) (domain.Settings, bool, error) {
	if _, ok := a.Presets.Get(settings.DefaultPresetID); ok {
		return settings, false, nil
	}

	fallback := config.DefaultSettings().DefaultPresetID
	if _, ok := a.Presets.Get(fallback); !ok {
		return settings, false, fmt.Errorf("fallback preset %s is not registered", fallback)
	}

	settings.DefaultPresetID = fallback
	return settings, true, nil
}

func ensureLocalBinOnPATH(homeDir string) error {
	binDir := filepath.Join(homeDir, ".video-compressor", "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}

	current := os.Getenv("PATH")
	for _, entry := range filepath.SplitList(current) {
		if filepath.Clean(entry) == filepath.Clean(binDir) {
			return nil
		}
	}

	if current == "" {
		return os.Setenv("PATH", binDir)
	}
	return os.Setenv("PATH", binDir+string(os.PathListSeparator)+current)
}

func installFFmpegForCurrentOS() error {
	var options []installOption

	switch goruntime.GOOS {
	case "windows":
		options = []installOption{
			{
				manager: "winget",
				commands: [][]string{
					{"winget", "install", "--id", "Gyan.FFmpeg", "--exact", "--accept-source-agreements", "--accept-package-agreements"},
				},
			},
			{
				manager: "choco",
				commands: [][]string{
					{"choco", "install", "ffmpeg", "-y"},
				},
			},
			{
				manager: "scoop",
				commands: [][]string{
					{"scoop", "install", "ffmpeg"},
				},
			},
		}
	case "darwin":
		options = []installOption{
			{
				manager: "brew",
				commands: [][]string{
					{"brew", "install", "ffmpeg"},
				},
			},
		}
	default:
		options = []installOption{
			{
				manager: "apt-get",
				commands: [][]string{
					{"apt-get", "update"},
					{"apt-get", "install", "-y", "ffmpeg"},
				},
			},
			{
				manager: "dnf",
				commands: [][]string{
					{"dnf", "install", "-y", "ffmpeg"},
				},
			},
			{
				manager: "pacman",
				commands: [][]string{
					{"pacman", "-Sy", "--noconfirm", "ffmpeg"},
				},
			},
			{
				manager: "zypper",
				commands: [][]string{
					{"zypper", "install", "-y", "ffmpeg"},
				},
			},
			{
				manager: "brew",
				commands: [][]string{
					{"brew", "install", "ffmpeg"},
				},
			},
		}
	}

	if err := runFirstSuccessfulInstall(options); err != nil {
		return fmt.Errorf("install ffmpeg/ffprobe: %w", err)
	}
	if err := requireToolsOnPath("ffmpeg", "ffprobe"); err != nil {
		return fmt.Errorf("verify ffmpeg/ffprobe on PATH: %w", err)
	}
	return nil
}

func runFirstSuccessfulInstall(options []installOption) error {
	if len(options) == 0 {
		return fmt.Errorf("no install commands configured for OS %s", goruntime.GOOS)
	}

	errorsByManager := make([]string, 0, len(options))
	atLeastOneManager := false

	for _, option := range options {
		if !commandAvailable(option.manager) {
			continue
		}
		atLeastOneManager = true
		if err := runInstallCommands(option.commands); err == nil {
			return nil
		} else {
			errorsByManager = append(errorsByManager, fmt.Sprintf("%s: %v", option.manager, err))
		}
	}

	if !atLeastOneManager {
		return fmt.Errorf("no supported package manager found for %s", goruntime.GOOS)
	}
	return errors.New(strings.Join(errorsByManager, " | "))
}

func runInstallCommands(commands [][]string) error {
	for _, command := range commands {
		if err := runCommandWithPossibleElevation(command); err != nil {
			return err
		}
	}
	return nil
}

func runCommandWithPossibleElevation(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}

	candidates := [][]string{command}
	if goruntime.GOOS == "linux" && requiresElevation(command[0]) {
		if commandAvailable("pkexec") {
			candidates = append(candidates, append([]string{"pkexec"}, command...))
		}
		if commandAvailable("sudo") {
			candidates = append(candidates, append([]string{"sudo", "-n"}, command...))
		}
	}

	attemptErrors := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if err := runCommand(candidate[0], candidate[1:]...); err == nil {
			return nil
		} else {
			attemptErrors = append(attemptErrors, err.Error())
		}
	}

	return errors.New(strings.Join(attemptErrors, " | "))
}

func runCommand(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), installCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", formatCommand(name, args), installCommandTimeout)
	}

	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) > 500 {
		trimmed = trimmed[:500] + "..."
	}
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", formatCommand(name, args), err)
	}
	return fmt.Errorf("%s failed: %w (%s)", formatCommand(name, args), err, trimmed)
}

func formatCommand(name string, args []string) string {
	parts := append([]string{name}, args...)
	return strings.Join(parts, " ")
}

func requiresElevation(manager string) bool {
	switch manager {
	case "apt-get", "dnf", "pacman", "zypper":
		return true
	default:
		return false
	}
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func requireToolsOnPath(names ...string) error {
	missing := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tools on PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}

func installOrFixOutputDir(settings domain.Settings) (domain.Settings, bool, error) {
	outputDir := strings.TrimSpace(settings.OutputDir)
	changed := false
	if outputDir == "" {
		outputDir = config.DefaultSettings().OutputDir
		settings.OutputDir = outputDir
		changed = true
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return settings, changed, fmt.Errorf("create output directory %s: %w", outputDir, err)
	}

	return settings, changed, nil
}
