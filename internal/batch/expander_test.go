package batch

import (
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-compressor/internal/domain"
	"video-compressor/internal/presets"
)

func newExpanderForTest() *Expander {
	return NewExpander(presets.NewRegistry(), hclog.NewNullLogger())
}

// TestExpandCrossProduct checks N files × M configs yields N×M tasks with
// unique keys.
func TestExpandCrossProduct(t *testing.T) {
	e := newExpanderForTest()
	tasks := e.Expand(Request{
		Files: []string{"/media/a.mp4", "/media/b.mov"},
		PresetConfigs: []domain.PresetConfig{
			{PresetID: "web-standard", KeepAudio: true},
			{PresetID: "web-small", KeepAudio: false},
		},
		OutputDir: "/out",
	})

	require.Len(t, tasks, 4)

	keys := make(map[domain.TaskKey]bool)
	for _, task := range tasks {
		keys[task.Key] = true
	}
	assert.Len(t, keys, 4, "task keys must be unique")
}

// TestExpandSkipsUnknownPreset checks unknown presets are non-fatal.
func TestExpandSkipsUnknownPreset(t *testing.T) {
	e := newExpanderForTest()
	tasks := e.Expand(Request{
		Files: []string{"/media/a.mp4"},
		PresetConfigs: []domain.PresetConfig{
			{PresetID: "does-not-exist"},
			{PresetID: "web-standard"},
		},
		OutputDir: "/out",
	})

	require.Len(t, tasks, 1)
	assert.Equal(t, "web-standard", tasks[0].Key.PresetID)
}

// TestExpandCollapsesRepeatedPaths checks listing the same input twice
// yields one task, keeping keys unique and the output path unshared.
func TestExpandCollapsesRepeatedPaths(t *testing.T) {
	e := newExpanderForTest()
	tasks := e.Expand(Request{
		Files: []string{"/media/clip.mp4", "/media/clip.mp4"},
		PresetConfigs: []domain.PresetConfig{
			{PresetID: "web-standard", KeepAudio: true},
		},
		OutputDir: "/out",
	})

	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskKey{File: "/media/clip.mp4", PresetID: "web-standard", Ordinal: 0}, tasks[0].Key)
	assert.Equal(t, filepath.Join("/out", "clip_web-standard.mp4"), tasks[0].OutputPath)
}

// TestExpandDuplicateBasenames checks distinct output paths for repeated
// basenames via the occurrence counter.
func TestExpandDuplicateBasenames(t *testing.T) {
	e := newExpanderForTest()
	tasks := e.Expand(Request{
		Files: []string{"/camera-a/clip.mp4", "/camera-b/clip.mp4"},
		PresetConfigs: []domain.PresetConfig{
			{PresetID: "web-standard", KeepAudio: true},
		},
		OutputDir: "/out",
	})

	require.Len(t, tasks, 2)
	assert.NotEqual(t, tasks[0].OutputPath, tasks[1].OutputPath)
	assert.Equal(t, filepath.Join("/out", "clip_web-standard.mp4"), tasks[0].OutputPath)
	assert.Equal(t, filepath.Join("/out", "clip_web-standard_2.mp4"), tasks[1].OutputPath)
}

// TestExpandWebMContainer checks mp4-incompatible codecs map to .webm.
func TestExpandWebMContainer(t *testing.T) {
	e := newExpanderForTest()
	tasks := e.Expand(Request{
		Files:         []string{"/media/a.mp4"},
		PresetConfigs: []domain.PresetConfig{{PresetID: "webm-vp9"}},
		OutputDir:     "/out",
	})

	require.Len(t, tasks, 1)
	assert.Equal(t, ".webm", filepath.Ext(tasks[0].OutputPath))
}

// TestExpandCustomOutputName checks caller-supplied names are honored with
// the container-appropriate extension.
func TestExpandCustomOutputName(t *testing.T) {
	e := newExpanderForTest()
	tasks := e.Expand(Request{
		Files:         []string{"/media/a.mp4"},
		PresetConfigs: []domain.PresetConfig{{PresetID: "web-standard"}},
		OutputDir:     "/out",
		OutputNames:   map[string]string{"/media/a.mp4": "final-cut.avi"},
	})

	require.Len(t, tasks, 1)
	assert.Equal(t, filepath.Join("/out", "final-cut.mp4"), tasks[0].OutputPath)
}
