package ffmpeg

import (
	"strings"
	"testing"
)

func baseSpec() EncodeSpec {
	return EncodeSpec{
		InputPath:    "/in/clip.mov",
		OutputPath:   "/out/clip.mp4",
		VideoCodec:   "libx264",
		VideoBitrate: "2500k",
		AudioCodec:   "aac",
		AudioBitrate: "128k",
		Resolution:   "1920x1080",
		FPS:          30,
		CRF:          23,
		SpeedPreset:  "medium",
		KeepAudio:    true,
	}
}

// hasPair reports whether flag is immediately followed by value in args.
func hasPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

// TestBuildEncodeArgs checks the single-invocation argument layout.
func TestBuildEncodeArgs(t *testing.T) {
	args := BuildEncodeArgs(baseSpec())

	for _, pair := range [][2]string{
		{"-i", "/in/clip.mov"},
		{"-c:v", "libx264"},
		{"-b:v", "2500k"},
		{"-crf", "23"},
		{"-r", "30"},
		{"-preset", "medium"},
		{"-vf", "scale=1920:1080"},
		{"-c:a", "aac"},
		{"-b:a", "128k"},
	} {
		if !hasPair(args, pair[0], pair[1]) {
			t.Fatalf("missing %s %s in %v", pair[0], pair[1], args)
		}
	}
	if args[len(args)-1] != "/out/clip.mp4" {
		t.Fatalf("last arg = %q, want output path", args[len(args)-1])
	}
}

// TestBuildEncodeArgsDropsAudio checks keepAudio=false emits -an.
func TestBuildEncodeArgsDropsAudio(t *testing.T) {
	spec := baseSpec()
	spec.KeepAudio = false

	args := BuildEncodeArgs(spec)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-an") {
		t.Fatalf("expected -an in %v", args)
	}
	if strings.Contains(joined, "-c:a") {
		t.Fatalf("unexpected audio codec flag in %v", args)
	}
}

// TestBuildEncodeArgsOutputFlags checks faststart and web-profile flags.
func TestBuildEncodeArgsOutputFlags(t *testing.T) {
	spec := baseSpec()
	spec.FastStart = true
	spec.OptimizeForWeb = true

	args := BuildEncodeArgs(spec)
	if !hasPair(args, "-movflags", "+faststart") {
		t.Fatalf("missing faststart in %v", args)
	}
	if !hasPair(args, "-profile:v", "baseline") {
		t.Fatalf("missing baseline profile in %v", args)
	}

	// WebM codecs take neither mp4 flag.
	spec.VideoCodec = "libvpx-vp9"
	args = BuildEncodeArgs(spec)
	if strings.Contains(strings.Join(args, " "), "faststart") {
		t.Fatalf("faststart should not apply to webm codecs: %v", args)
	}
}

// TestBuildTwoPassArgs checks pass separation: analysis-only pass 1, real
// encode with audio on pass 2.
func TestBuildTwoPassArgs(t *testing.T) {
	pass1, pass2 := BuildTwoPassArgs(baseSpec(), "/tmp/fflog")

	p1 := strings.Join(pass1, " ")
	if !strings.Contains(p1, "-pass 1") || !strings.Contains(p1, "-an") || !strings.Contains(p1, "-f null") {
		t.Fatalf("pass 1 args = %v", pass1)
	}
	if strings.Contains(p1, "/out/clip.mp4") {
		t.Fatalf("pass 1 must not write the real output: %v", pass1)
	}

	p2 := strings.Join(pass2, " ")
	if !strings.Contains(p2, "-pass 2") || !strings.Contains(p2, "-c:a aac") {
		t.Fatalf("pass 2 args = %v", pass2)
	}
	if pass2[len(pass2)-1] != "/out/clip.mp4" {
		t.Fatalf("pass 2 last arg = %q, want output path", pass2[len(pass2)-1])
	}
}

// TestNeedsWebM checks container mapping for mp4-incompatible codecs.
func TestNeedsWebM(t *testing.T) {
	for codec, want := range map[string]bool{
		"libvpx-vp9": true,
		"vp8":        true,
		"libx264":    false,
		"libx265":    false,
	} {
		if got := NeedsWebM(codec); got != want {
			t.Fatalf("NeedsWebM(%q) = %v, want %v", codec, got, want)
		}
	}
}
