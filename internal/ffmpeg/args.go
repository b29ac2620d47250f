package ffmpeg

import (
	"fmt"
	"os"
	"strings"
)

// EncodeSpec is one fully resolved transcode invocation: preset values with
// any advanced overrides already applied by the strategy.
type EncodeSpec struct {
	InputPath           string
	OutputPath          string
	VideoCodec          string
	VideoBitrate        string
	AudioCodec          string
	AudioBitrate        string
	Resolution          string
	FPS                 int
	CRF                 int
	SpeedPreset         string
	KeepAudio           bool
	PreserveAspectRatio bool
	FastStart           bool
	OptimizeForWeb      bool
}

// webmOnlyCodecs cannot be muxed into mp4; output naming maps them to .webm.
var webmOnlyCodecs = map[string]bool{
	"libvpx":     true,
	"libvpx-vp9": true,
	"vp8":        true,
	"vp9":        true,
}

// NeedsWebM reports whether a video codec requires a WebM container.
func NeedsWebM(codec string) bool {
	return webmOnlyCodecs[strings.ToLower(strings.TrimSpace(codec))]
}

// BuildEncodeArgs builds the argument list for a single-invocation encode.
func BuildEncodeArgs(spec EncodeSpec) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", spec.InputPath,
		"-c:v", spec.VideoCodec,
	}

	args = append(args, qualityArgs(spec)...)
	args = append(args, filterArgs(spec)...)
	args = append(args, audioArgs(spec)...)
	args = append(args, outputFlagArgs(spec)...)
	args = append(args, spec.OutputPath)
	return args
}

// BuildTwoPassArgs builds the sequential pass-1 and pass-2 argument lists.
// Pass 1 analyzes only: audio is dropped and output goes to the null muxer,
// leaving nothing but the statistics log behind.
func BuildTwoPassArgs(spec EncodeSpec, passLogFile string) (pass1, pass2 []string) {
	common := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", spec.InputPath,
		"-c:v", spec.VideoCodec,
	}
	common = append(common, qualityArgs(spec)...)
	common = append(common, filterArgs(spec)...)

	pass1 = append(append([]string{}, common...),
		"-pass", "1",
		"-passlogfile", passLogFile,
		"-an",
		"-f", "null",
		os.DevNull,
	)

	pass2 = append(append([]string{}, common...),
		"-pass", "2",
		"-passlogfile", passLogFile,
	)
	pass2 = append(pass2, audioArgs(spec)...)
	pass2 = append(pass2, outputFlagArgs(spec)...)
	pass2 = append(pass2, spec.OutputPath)
	return pass1, pass2
}

// PassLogArtifacts lists the statistics files a two-pass run leaves on disk.
func PassLogArtifacts(passLogFile string) []string {
	return []string{
		passLogFile + "-0.log",
		passLogFile + "-0.log.mbtree",
	}
}

// qualityArgs emits bitrate, CRF, fps, and encoder speed settings.
func qualityArgs(spec EncodeSpec) []string {
	var args []string
	if spec.VideoBitrate != "" {
		args = append(args, "-b:v", spec.VideoBitrate)
	}
	if spec.CRF > 0 {
		args = append(args, "-crf", fmt.Sprintf("%d", spec.CRF))
	}
	if spec.FPS > 0 {
		args = append(args, "-r", fmt.Sprintf("%d", spec.FPS))
	}
	if spec.SpeedPreset != "" {
		args = append(args, "-preset", spec.SpeedPreset)
	}
	return args
}

// filterArgs emits the scale filter for the requested resolution.
func filterArgs(spec EncodeSpec) []string {
	res := strings.TrimSpace(spec.Resolution)
	if res == "" {
		return nil
	}

	parts := strings.SplitN(res, "x", 2)
	if len(parts) != 2 {
		return nil
	}

	if spec.PreserveAspectRatio {
		// Fit inside the box and pad instead of distorting.
		scale := fmt.Sprintf("scale=%s:%s:force_original_aspect_ratio=decrease", parts[0], parts[1])
		return []string{"-vf", scale}
	}
	return []string{"-vf", fmt.Sprintf("scale=%s:%s", parts[0], parts[1])}
}

// audioArgs emits audio encode or drop flags.
func audioArgs(spec EncodeSpec) []string {
	if !spec.KeepAudio {
		return []string{"-an"}
	}

	var args []string
	if spec.AudioCodec != "" {
		args = append(args, "-c:a", spec.AudioCodec)
	} else {
		args = append(args, "-c:a", "copy")
	}
	if spec.AudioBitrate != "" {
		args = append(args, "-b:a", spec.AudioBitrate)
	}
	return args
}

// outputFlagArgs emits progressive-playback and web-compatibility flags.
func outputFlagArgs(spec EncodeSpec) []string {
	var args []string
	if spec.FastStart && !NeedsWebM(spec.VideoCodec) {
		args = append(args, "-movflags", "+faststart")
	}
	if spec.OptimizeForWeb && !NeedsWebM(spec.VideoCodec) {
		args = append(args, "-profile:v", "baseline", "-level", "3.0")
	}
	return args
}
