package ffmpeg

import (
	"bytes"
	"regexp"
	"strconv"
)

// Progress line fields ffmpeg writes to stderr during an encode.
var (
	reFrame   = regexp.MustCompile(`frame=\s*(\d+)`)
	reFPS     = regexp.MustCompile(`fps=\s*([\d.]+)`)
	reTime    = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2}\.\d+)`)
	reSpeed   = regexp.MustCompile(`speed=\s*([\d.]+)x`)
	reBitrate = regexp.MustCompile(`bitrate=\s*([\d.]+)kbits/s`)
)

// Progress is one parsed ffmpeg stderr status line.
type Progress struct {
	Frame    int
	FPS      float64
	Timemark string
	Seconds  float64
	Bitrate  float64
	Speed    float64
}

// ParseProgressLine extracts progress fields from one stderr line. The
// second return is false for lines carrying no progress information.
func ParseProgressLine(line string) (Progress, bool) {
	var p Progress
	found := false

	if m := reFrame.FindStringSubmatch(line); len(m) > 1 {
		p.Frame, _ = strconv.Atoi(m[1])
		found = true
	}
	if m := reFPS.FindStringSubmatch(line); len(m) > 1 {
		p.FPS, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := reTime.FindStringSubmatch(line); len(m) > 1 {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		s, _ := strconv.ParseFloat(m[3], 64)
		p.Seconds = float64(h)*3600 + float64(min)*60 + s
		p.Timemark = m[1] + ":" + m[2] + ":" + m[3]
		found = true
	}
	if m := reBitrate.FindStringSubmatch(line); len(m) > 1 {
		p.Bitrate, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := reSpeed.FindStringSubmatch(line); len(m) > 1 {
		p.Speed, _ = strconv.ParseFloat(m[1], 64)
	}

	return p, found
}

// Percent converts a processed timemark into a 0–100 completion value given
// the input duration. Unknown durations yield -1 (indeterminate).
func Percent(processedSeconds, durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return -1
	}

	pct := processedSeconds / durationSeconds * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// splitProgressLines is a bufio.Scanner split function treating both \r and
// \n as line terminators; ffmpeg rewrites its status line with \r.
func splitProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
