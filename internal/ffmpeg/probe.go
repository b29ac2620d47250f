package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// Prober reads media duration via ffprobe so timemark progress lines can be
// converted to percentages.
type Prober struct {
	ffprobePath string
	output      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewProber constructs a prober using the ffprobe binary on PATH.
func NewProber() *Prober {
	return &Prober{
		ffprobePath: "ffprobe",
		output: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, name, args...)
			var out bytes.Buffer
			cmd.Stdout = &out
			err := cmd.Run()
			return out.Bytes(), err
		},
	}
}

// NewProberForTests constructs a prober with injected command output.
func NewProberForTests(output func(ctx context.Context, name string, args ...string) ([]byte, error)) *Prober {
	return &Prober{ffprobePath: "ffprobe", output: output}
}

// Duration returns the media duration in seconds, or 0 when the container
// does not report one. Callers treat 0 as indeterminate progress.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	out, err := p.output(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("parse probe output: %w", err)
	}

	if probe.Format.Duration == "" {
		return 0, nil
	}
	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, nil
	}
	return duration, nil
}
