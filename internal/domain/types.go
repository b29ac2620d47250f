package domain

import "time"

// TaskStatus tracks the lifecycle of a single compression task.
type TaskStatus string

const (
	TaskStatusPending     TaskStatus = "pending"
	TaskStatusCompressing TaskStatus = "compressing"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusFailed      TaskStatus = "failed"
	TaskStatusCancelled   TaskStatus = "cancelled"
)

// IsTerminal reports whether a status permits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskKey identifies one (file, preset-config) compression unit in a batch.
// It is a value type used directly as a map key; no string form exists.
// Ordinal is the preset-config index, so repeating a preset id across
// configs still yields distinct keys.
type TaskKey struct {
	File     string `json:"file"`
	PresetID string `json:"presetId"`
	Ordinal  int    `json:"ordinal"`
}

// PresetSettings holds the encoder knobs one preset encodes.
type PresetSettings struct {
	VideoCodec   string `json:"videoCodec"`
	VideoBitrate string `json:"videoBitrate"`
	AudioCodec   string `json:"audioCodec"`
	AudioBitrate string `json:"audioBitrate"`
	Resolution   string `json:"resolution"`
	FPS          int    `json:"fps"`
	CRF          int    `json:"crf"`
	SpeedPreset  string `json:"speedPreset"`
}

// Preset is a named compression configuration.
type Preset struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Settings    PresetSettings `json:"settings"`
}

// PresetConfig pairs a preset id with the keep-audio choice for a batch.
type PresetConfig struct {
	PresetID  string `json:"presetId"`
	KeepAudio bool   `json:"keepAudio"`
}

// AdvancedSettings overrides preset values for one batch when present.
// Zero values mean "use the preset".
type AdvancedSettings struct {
	CRF                 int    `json:"crf"`
	VideoBitrate        string `json:"videoBitrate"`
	AudioBitrate        string `json:"audioBitrate"`
	FPS                 int    `json:"fps"`
	Resolution          string `json:"resolution"`
	PreserveAspectRatio bool   `json:"preserveAspectRatio"`
	TwoPass             bool   `json:"twoPass"`
	FastStart           bool   `json:"fastStart"`
	OptimizeForWeb      bool   `json:"optimizeForWeb"`
	MaxConcurrent       int    `json:"maxConcurrentCompressions"`
}

// CompressionTask is one row of the batch task table.
type CompressionTask struct {
	Key        TaskKey    `json:"key"`
	FileName   string     `json:"fileName"`
	PresetID   string     `json:"presetId"`
	Status     TaskStatus `json:"status"`
	Progress   float64    `json:"progress"`
	StartedAt  time.Time  `json:"startedAt"`
	OutputPath string     `json:"outputPath,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// BatchState is the aggregator's snapshot of one running batch.
type BatchState struct {
	TotalTasks             int           `json:"totalTasks"`
	CompletedTasks         int           `json:"completedTasks"`
	FailedTasks            int           `json:"failedTasks"`
	CancelledTasks         int           `json:"cancelledTasks"`
	OverallProgress        float64       `json:"overallProgress"`
	EstimatedTimeRemaining time.Duration `json:"estimatedTimeRemaining"`
}

// CompressionResult is the per-task outcome returned by a batch run.
type CompressionResult struct {
	File       string `json:"file"`
	PresetID   string `json:"preset"`
	OutputPath string `json:"outputPath,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// ThermalAction is the monitor's admission-control recommendation.
type ThermalAction string

const (
	ThermalActionNormal ThermalAction = "normal"
	ThermalActionReduce ThermalAction = "reduce_concurrency"
	ThermalActionPause  ThermalAction = "pause"
	ThermalActionResume ThermalAction = "resume"
)

// ThermalStatus is one sample of synthesized thermal pressure.
type ThermalStatus struct {
	CPUTemperature float64       `json:"cpuTemperature"`
	CPUUsage       float64       `json:"cpuUsage"`
	Pressure       float64       `json:"pressure"`
	Throttling     bool          `json:"throttling"`
	Action         ThermalAction `json:"recommendedAction"`
	SampledAt      time.Time     `json:"sampledAt"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	OutputDir       string `json:"outputDir"`
	DefaultPresetID string `json:"defaultPresetId"`
	ThermalEnabled  bool   `json:"thermalEnabled"`
	MaxConcurrent   int    `json:"maxConcurrent"`
}
