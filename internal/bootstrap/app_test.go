package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	"video-compressor/internal/batch"
	"video-compressor/internal/config"
	"video-compressor/internal/diagnostics"
	"video-compressor/internal/domain"
	"video-compressor/internal/ffmpeg"
	"video-compressor/internal/presets"
	"video-compressor/internal/procs"
	"video-compressor/internal/strategy"
	"video-compressor/internal/thermal"
)

// fakeStore returns deterministic settings for App tests.
type fakeStore struct {
	settings domain.Settings
}

func (s *fakeStore) Load() (domain.Settings, error) {
	return s.settings, nil
}

func (s *fakeStore) Save(settings domain.Settings) error {
	s.settings = settings
	return nil
}

// fakeRunner allows injecting custom transcoder behavior per test.
type fakeRunner struct {
	run func(ctx context.Context, args []string, opts ffmpeg.RunOptions) (ffmpeg.RunResult, error)
}

func (r *fakeRunner) Run(ctx context.Context, name string, args []string, opts ffmpeg.RunOptions) (ffmpeg.RunResult, error) {
	if r.run == nil {
		return ffmpeg.RunResult{}, nil
	}
	return r.run(ctx, args, opts)
}

type stubProber struct{}

func (stubProber) Duration(ctx context.Context, path string) (float64, error) {
	return 20, nil
}

func newTestApp(t *testing.T, runner ffmpeg.Runner) *App {
	t.Helper()
	processRegistry := procs.NewRegistry()
	logger := hclog.NewNullLogger()

	return &App{
		Store:       &fakeStore{settings: domain.Settings{OutputDir: t.TempDir(), DefaultPresetID: "web-standard"}},
		Presets:     presets.NewRegistry(),
		PresetStore: config.NewPresetStore(filepath.Join(t.TempDir(), "presets.json")),
		checker:     diagnostics.NewChecker(),
		logger:      logger,
		thermal:     thermal.NewMonitor(logger),
		procs:       processRegistry,
		deps: strategy.Deps{
			Runner: runner,
			Prober: stubProber{},
			Procs:  processRegistry,
			Logger: logger,
		},
		events:     NewEventBus(100),
		batchTasks: make(map[domain.TaskKey]domain.CompressionTask),
	}
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func waitForIdle(t *testing.T, app *App) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		app.mu.Lock()
		idle := app.activeBatchID == ""
		app.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("batch did not finish in time")
}

// TestStartCompressionEnforcesSingleBatch checks the single-batch guard and
// cancellation flow.
func TestStartCompressionEnforcesSingleBatch(t *testing.T) {
	root := t.TempDir()
	input := writeVideo(t, root, "clip.mp4")

	app := newTestApp(t, &fakeRunner{
		run: func(ctx context.Context, args []string, opts ffmpeg.RunOptions) (ffmpeg.RunResult, error) {
			<-ctx.Done()
			return ffmpeg.RunResult{ExitCode: -1}, ctx.Err()
		},
	})

	req := batchRequest(input, filepath.Join(root, "out"))
	if _, err := app.StartCompression(req); err != nil {
		t.Fatalf("start first batch: %v", err)
	}
	if _, err := app.StartCompression(req); !errors.Is(err, ErrBatchRunning) {
		t.Fatalf("second start error = %v, want %v", err, ErrBatchRunning)
	}

	if err := app.CancelCompression(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitForIdle(t, app)

	if err := app.CancelCompression(); !errors.Is(err, ErrNoActiveBatch) {
		t.Fatalf("cancel when idle = %v, want %v", err, ErrNoActiveBatch)
	}
	if app.procs.Len() != 0 {
		t.Fatal("expected empty process registry after cancel")
	}
	for _, task := range app.BatchTasks() {
		if !task.Status.IsTerminal() {
			t.Fatalf("task %v left non-terminal: %s", task.Key, task.Status)
		}
	}
	assertEventTypeExists(t, app.Events(0), EventTypeTaskCancelled)
}

// TestStartCompressionPublishesEvents checks the event flow of a successful
// batch end to end.
func TestStartCompressionPublishesEvents(t *testing.T) {
	root := t.TempDir()
	input := writeVideo(t, root, "clip.mp4")

	app := newTestApp(t, &fakeRunner{
		run: func(ctx context.Context, args []string, opts ffmpeg.RunOptions) (ffmpeg.RunResult, error) {
			if opts.OnLine != nil {
				opts.OnLine("frame=  100 fps= 30 size=  512kB time=00:00:10.00 bitrate=1000.0kbits/s speed=1.0x")
			}
			output := args[len(args)-1]
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return ffmpeg.RunResult{}, err
			}
			if err := os.WriteFile(output, []byte("data"), 0o644); err != nil {
				return ffmpeg.RunResult{}, err
			}
			return ffmpeg.RunResult{ExitCode: 0}, nil
		},
	})

	batchID, err := app.StartCompression(batchRequest(input, filepath.Join(root, "out")))
	if err != nil {
		t.Fatalf("start batch: %v", err)
	}
	if batchID == "" {
		t.Fatal("expected a batch id")
	}
	waitForIdle(t, app)

	results := app.LastResults()
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("results = %+v, want one success", results)
	}

	events := app.Events(0)
	if len(events) == 0 {
		t.Fatal("expected events")
	}
	assertEventTypeExists(t, events, EventTypeTaskStarted)
	assertEventTypeExists(t, events, EventTypeTaskProgress)
	assertEventTypeExists(t, events, EventTypeTaskComplete)
	assertEventTypeExists(t, events, EventTypeBatch)

	tasks := app.BatchTasks()
	if len(tasks) != 1 || tasks[0].Status != domain.TaskStatusCompleted {
		t.Fatalf("tasks = %+v, want one completed", tasks)
	}
	if state := app.BatchState(); state.CompletedTasks != 1 {
		t.Fatalf("batch state = %+v, want one completed", state)
	}
}

// TestStartCompressionRejectsNonVideoInputs checks the extension allowlist.
func TestStartCompressionRejectsNonVideoInputs(t *testing.T) {
	root := t.TempDir()
	input := writeVideo(t, root, "notes.txt")

	app := newTestApp(t, &fakeRunner{})
	if _, err := app.StartCompression(batchRequest(input, filepath.Join(root, "out"))); err == nil {
		t.Fatal("expected rejection for non-video input")
	}
}

// TestCustomPresetLifecycle checks add, persist, and remove through the App.
func TestCustomPresetLifecycle(t *testing.T) {
	app := newTestApp(t, &fakeRunner{})

	preset := domain.Preset{
		Name: "Tiny",
		Settings: domain.PresetSettings{
			VideoCodec: "libx264",
			CRF:        35,
		},
	}

	all, err := app.AddCustomPreset("tiny", preset)
	if err != nil {
		t.Fatalf("add preset: %v", err)
	}
	if _, ok := all["custom-tiny"]; !ok {
		t.Fatalf("custom-tiny missing from %v", presetIDs(all))
	}

	persisted, err := app.PresetStore.Load()
	if err != nil {
		t.Fatalf("load persisted presets: %v", err)
	}
	if _, ok := persisted["custom-tiny"]; !ok {
		t.Fatal("custom preset not persisted")
	}

	all, err = app.RemoveCustomPreset("custom-tiny")
	if err != nil {
		t.Fatalf("remove preset: %v", err)
	}
	if _, ok := all["custom-tiny"]; ok {
		t.Fatal("custom-tiny should be removed")
	}
}

func TestNormalizeSettingsClampsConcurrency(t *testing.T) {
	got := normalizeSettings(domain.Settings{
		OutputDir:     "  /videos/out  ",
		MaxConcurrent: 12,
	})
	if got.OutputDir != "/videos/out" {
		t.Fatalf("output dir = %q", got.OutputDir)
	}
	if got.MaxConcurrent != 0 {
		t.Fatalf("max concurrent = %d, want 0", got.MaxConcurrent)
	}
	if got.DefaultPresetID == "" {
		t.Fatal("default preset should fall back to the shipped default")
	}
}

func TestIsVideoFile(t *testing.T) {
	for path, want := range map[string]bool{
		"/a/clip.mp4":  true,
		"/a/CLIP.MOV":  true,
		"/a/movie.mkv": true,
		"/a/notes.txt": false,
		"/a/noext":     false,
	} {
		if got := IsVideoFile(path); got != want {
			t.Fatalf("IsVideoFile(%q) = %v, want %v", path, got, want)
		}
	}
}

// TestEventBusSequencesAndTrims checks monotonic sequencing and bounded
// history.
func TestEventBusSequencesAndTrims(t *testing.T) {
	bus := NewEventBus(3)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: EventTypeBatch})
	}

	all := bus.Since(0)
	if len(all) != 3 {
		t.Fatalf("retained = %d, want 3", len(all))
	}
	if all[0].Seq != 3 || all[2].Seq != 5 {
		t.Fatalf("sequences = %d..%d, want 3..5", all[0].Seq, all[2].Seq)
	}
	if got := bus.Since(4); len(got) != 1 || got[0].Seq != 5 {
		t.Fatalf("Since(4) = %+v", got)
	}
}

func batchRequest(input, outputDir string) batch.Request {
	return batch.Request{
		Files:         []string{input},
		PresetConfigs: []domain.PresetConfig{{PresetID: "web-standard", KeepAudio: true}},
		OutputDir:     outputDir,
	}
}

func assertEventTypeExists(t *testing.T, events []Event, want EventType) {
	t.Helper()
	for _, event := range events {
		if event.Type == want {
			return
		}
	}
	t.Fatalf("no event of type %s", want)
}

func presetIDs(all map[string]domain.Preset) []string {
	out := make([]string, 0, len(all))
	for id := range all {
		out = append(out, id)
	}
	return out
}
