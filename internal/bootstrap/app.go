package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"video-compressor/internal/batch"
	"video-compressor/internal/config"
	"video-compressor/internal/diagnostics"
	"video-compressor/internal/domain"
	"video-compressor/internal/ffmpeg"
	"video-compressor/internal/presets"
	"video-compressor/internal/procs"
	"video-compressor/internal/strategy"
	"video-compressor/internal/thermal"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// ErrBatchRunning is returned when a second batch is submitted while one is
// still active.
var ErrBatchRunning = errors.New("a compression batch is already running")

// ErrNoActiveBatch is returned by cancel when nothing is running.
var ErrNoActiveBatch = errors.New("no compression batch is running")

var videoDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Video files",
		Pattern:     "*.mp4;*.mov;*.mkv;*.avi;*.webm;*.m4v;*.wmv;*.flv;*.mpg;*.mpeg;*.ts;*.mts;*.3gp",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// videoExtensions is the input allowlist. Anything else is dropped from a
// batch submission before expansion.
var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true, ".webm": true,
	".m4v": true, ".wmv": true, ".flv": true, ".mpg": true, ".mpeg": true,
	".ts": true, ".mts": true, ".3gp": true,
}

// IsVideoFile reports whether a path carries a supported video extension.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// App wires configuration, presets, the batch driver, thermal monitoring,
// and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Presets     *presets.Registry
	PresetStore *config.PresetStore
	Diagnostics domain.DiagnosticReport

	assets  fs.FS
	checker *diagnostics.Checker
	logger  hclog.Logger
	thermal *thermal.Monitor
	procs   *procs.Registry
	deps    strategy.Deps
	events  *EventBus

	mu            sync.Mutex
	runtimeCtx    context.Context
	activeBatchID string
	cancel        context.CancelFunc
	batchTasks    map[domain.TaskKey]domain.CompressionTask
	batchOrder    []domain.TaskKey
	batchState    domain.BatchState
	lastResults   []domain.CompressionResult
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	if err := ensureLocalBinOnPATH(homeDir); err != nil {
		return nil, fmt.Errorf("prepare local tool path: %w", err)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "video-compressor",
		Level: hclog.Info,
	})

	configDir := filepath.Join(homeDir, ".video-compressor")
	store := config.NewJSONStore(filepath.Join(configDir, "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	presetStore := config.NewPresetStore(filepath.Join(configDir, "custom-presets.json"))
	registry := presets.NewRegistry()
	custom, err := presetStore.Load()
	if err != nil {
		logger.Warn("custom presets unreadable, continuing with built-ins", "error", err)
	} else {
		registry.Load(custom)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings, registry.IDs())

	monitor := thermal.NewMonitor(logger)
	if settings.ThermalEnabled {
		monitor.Start(context.Background())
	}

	processRegistry := procs.NewRegistry()

	return &App{
		Settings:    settings,
		Store:       store,
		Presets:     registry,
		PresetStore: presetStore,
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		logger:      logger,
		thermal:     monitor,
		procs:       processRegistry,
		deps: strategy.Deps{
			Runner: ffmpeg.NewRunner(),
			Prober: ffmpeg.NewProber(),
			Procs:  processRegistry,
			Logger: logger,
		},
		events:     NewEventBus(1000),
		batchTasks: make(map[domain.TaskKey]domain.CompressionTask),
	}, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Video Compressor",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.thermal.Stop()
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events and dialogs.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	go a.watchThermal(ctx)
}

// watchThermal forwards thermal recommendation changes to the UI.
func (a *App) watchThermal(ctx context.Context) {
	id, ch := a.thermal.Subscribe()
	defer a.thermal.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-ch:
			if !ok {
				return
			}
			a.publishEvent(Event{Type: EventTypeThermal, Thermal: &status})
		}
	}
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, applies the thermal toggle,
// and refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	if normalized.ThermalEnabled {
		a.thermal.Start(context.Background())
	} else {
		a.thermal.Stop()
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized, a.Presets.IDs())
	}
	a.mu.Unlock()

	return normalized, nil
}

// GetPresets returns the full id → preset mapping, built-ins and custom.
func (a *App) GetPresets() map[string]domain.Preset {
	return a.Presets.GetAll()
}

// AddCustomPreset registers and persists a user-defined preset, returning
// the updated mapping.
func (a *App) AddCustomPreset(id string, preset domain.Preset) (map[string]domain.Preset, error) {
	if err := a.Presets.Add(id, preset); err != nil {
		return nil, err
	}
	if err := a.PresetStore.Save(a.Presets.Custom()); err != nil {
		return nil, fmt.Errorf("persist custom presets: %w", err)
	}
	return a.Presets.GetAll(), nil
}

// RemoveCustomPreset deletes a custom preset and persists the change.
// Built-in ids are silently left alone.
func (a *App) RemoveCustomPreset(id string) (map[string]domain.Preset, error) {
	a.Presets.Remove(id)
	if err := a.PresetStore.Save(a.Presets.Custom()); err != nil {
		return nil, fmt.Errorf("persist custom presets: %w", err)
	}
	return a.Presets.GetAll(), nil
}

// PickInputFiles opens a native multi-select dialog for video sources.
// Non-video selections are filtered out.
func (a *App) PickInputFiles() ([]string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select videos to compress",
		Filters: videoDialogFilter,
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !IsVideoFile(p) {
			a.logger.Warn("ignoring non-video selection", "file", p)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// PickOutputDirectory opens a native directory picker for compressed output.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output dir) in the
// platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings, a.Presets.IDs())
	report := a.Diagnostics
	a.mu.Unlock()
	return report, nil
}

// GetThermalStatus returns the latest thermal sample.
func (a *App) GetThermalStatus() domain.ThermalStatus {
	return a.thermal.Current()
}

// StartCompression expands and runs one batch asynchronously, returning its
// id. Only one batch may run at a time.
func (a *App) StartCompression(req batch.Request) (string, error) {
	req.Files = a.filterVideoInputs(req.Files)
	if len(req.Files) == 0 {
		return "", fmt.Errorf("no valid video files in request")
	}
	if len(req.PresetConfigs) == 0 {
		return "", fmt.Errorf("no presets selected")
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		a.mu.Lock()
		req.OutputDir = a.Settings.OutputDir
		a.mu.Unlock()
	}

	batchID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	if a.activeBatchID != "" {
		a.mu.Unlock()
		cancel()
		return "", ErrBatchRunning
	}
	a.activeBatchID = batchID
	a.cancel = cancel
	a.batchTasks = make(map[domain.TaskKey]domain.CompressionTask)
	a.batchOrder = nil
	a.batchState = domain.BatchState{}
	a.mu.Unlock()

	var thermalSource batch.ThermalSource
	a.mu.Lock()
	thermalEnabled := a.Settings.ThermalEnabled
	a.mu.Unlock()
	if thermalEnabled {
		thermalSource = a.thermal
	}

	driver := batch.NewDriver(
		a.Presets,
		a.deps,
		&busEmitter{app: a, batchID: batchID},
		thermalSource,
		batch.DefaultSmoothingPolicy(),
		a.logger,
	)

	a.logger.Info("starting compression batch",
		"batch", batchID, "files", len(req.Files), "presets", len(req.PresetConfigs))

	go func() {
		results, err := driver.Run(ctx, req)
		if err != nil {
			a.publishBatchFailure(batchID, err)
		}

		a.mu.Lock()
		a.lastResults = results
		if a.activeBatchID == batchID {
			a.activeBatchID = ""
			a.cancel = nil
		}
		a.mu.Unlock()
		cancel()
	}()

	return batchID, nil
}

// CancelCompression cancels the running batch and kills every live
// transcoder process.
func (a *App) CancelCompression() error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel == nil {
		return ErrNoActiveBatch
	}

	cancel()
	if errs := a.procs.CancelAll(); len(errs) > 0 {
		return fmt.Errorf("kill transcoder processes: %v", errs)
	}
	return nil
}

// BatchTasks returns the current batch's task table in seed order.
func (a *App) BatchTasks() []domain.CompressionTask {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.CompressionTask, 0, len(a.batchOrder))
	for _, key := range a.batchOrder {
		out = append(out, a.batchTasks[key])
	}
	return out
}

// BatchState returns the latest aggregated snapshot.
func (a *App) BatchState() domain.BatchState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batchState
}

// LastResults returns the per-task outcomes of the most recently finished
// batch.
func (a *App) LastResults() []domain.CompressionResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastResults
}

// Events returns all events with sequence greater than sinceSeq.
func (a *App) Events(sinceSeq int64) []Event {
	return a.events.Since(sinceSeq)
}

// filterVideoInputs drops paths outside the extension allowlist.
func (a *App) filterVideoInputs(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !IsVideoFile(f) {
			a.logger.Warn("skipping unsupported input", "file", f)
			continue
		}
		out = append(out, f)
	}
	return out
}

// publishBatchFailure reports a whole-batch abort, such as an unusable
// output directory.
func (a *App) publishBatchFailure(batchID string, err error) {
	var cerr *domain.CompressionError
	if !errors.As(err, &cerr) {
		cerr = &domain.CompressionError{
			Kind:    domain.ErrorKindUnknown,
			Message: err.Error(),
			Err:     err,
		}
	}
	a.publishEvent(Event{
		BatchID: batchID,
		Type:    EventTypeTaskError,
		Failure: cerr,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "compression:event", published)
	}
}

// recordTask updates the App-side task cache feeding BatchTasks.
func (a *App) recordTask(task domain.CompressionTask) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.batchTasks[task.Key]; !ok {
		a.batchOrder = append(a.batchOrder, task.Key)
	}
	a.batchTasks[task.Key] = task
}

// busEmitter adapts the batch emitter interface onto the event bus and the
// App's task cache.
type busEmitter struct {
	app     *App
	batchID string
}

func (e *busEmitter) EmitStarted(task domain.CompressionTask) {
	e.app.recordTask(task)
	e.app.publishEvent(Event{BatchID: e.batchID, Type: EventTypeTaskStarted, Task: &task})
}

func (e *busEmitter) EmitProgress(task domain.CompressionTask, timemark string) {
	e.app.recordTask(task)
	e.app.publishEvent(Event{BatchID: e.batchID, Type: EventTypeTaskProgress, Task: &task, Timemark: timemark})
}

func (e *busEmitter) EmitComplete(task domain.CompressionTask) {
	e.app.recordTask(task)
	e.app.publishEvent(Event{BatchID: e.batchID, Type: EventTypeTaskComplete, Task: &task})
}

func (e *busEmitter) EmitCancelled(task domain.CompressionTask) {
	e.app.recordTask(task)
	e.app.publishEvent(Event{BatchID: e.batchID, Type: EventTypeTaskCancelled, Task: &task})
}

func (e *busEmitter) EmitError(task domain.CompressionTask, cerr *domain.CompressionError) {
	e.app.recordTask(task)
	e.app.publishEvent(Event{BatchID: e.batchID, Type: EventTypeTaskError, Task: &task, Failure: cerr})
}

func (e *busEmitter) EmitBatchProgress(state domain.BatchState) {
	e.app.mu.Lock()
	e.app.batchState = state
	e.app.mu.Unlock()
	e.app.publishEvent(Event{BatchID: e.batchID, Type: EventTypeBatch, Batch: &state})
}

// runtimeContext returns the Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and clamps the concurrency override.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.DefaultPresetID = strings.TrimSpace(settings.DefaultPresetID)
	if settings.DefaultPresetID == "" {
		settings.DefaultPresetID = config.DefaultSettings().DefaultPresetID
	}
	if settings.MaxConcurrent < strategy.MinConcurrent || settings.MaxConcurrent > strategy.MaxConcurrent {
		settings.MaxConcurrent = 0
	}
	return settings
}

// openInFileManager launches the platform file explorer for the given path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
