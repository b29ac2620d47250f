package presets

import "video-compressor/internal/domain"

// builtinPresets are the compression configurations shipped with the app.
// Category values outside "custom" form a small closed set.
func builtinPresets() map[string]domain.Preset {
	return map[string]domain.Preset{
		"web-standard": {
			Name:        "Web Standard",
			Description: "Balanced H.264 output for general web upload.",
			Category:    "web",
			Settings: domain.PresetSettings{
				VideoCodec:   "libx264",
				VideoBitrate: "2500k",
				AudioCodec:   "aac",
				AudioBitrate: "128k",
				Resolution:   "1920x1080",
				FPS:          30,
				CRF:          23,
				SpeedPreset:  "medium",
			},
		},
		"web-small": {
			Name:        "Web Small",
			Description: "Smaller 720p H.264 output for constrained uploads.",
			Category:    "web",
			Settings: domain.PresetSettings{
				VideoCodec:   "libx264",
				VideoBitrate: "1200k",
				AudioCodec:   "aac",
				AudioBitrate: "96k",
				Resolution:   "1280x720",
				FPS:          30,
				CRF:          26,
				SpeedPreset:  "fast",
			},
		},
		"archive-quality": {
			Name:        "Archive Quality",
			Description: "High quality HEVC for long-term storage.",
			Category:    "archive",
			Settings: domain.PresetSettings{
				VideoCodec:   "libx265",
				VideoBitrate: "6000k",
				AudioCodec:   "aac",
				AudioBitrate: "192k",
				Resolution:   "3840x2160",
				FPS:          60,
				CRF:          20,
				SpeedPreset:  "slow",
			},
		},
		"social-vertical": {
			Name:        "Social Vertical",
			Description: "Vertical 1080x1920 H.264 for short-form platforms.",
			Category:    "social",
			Settings: domain.PresetSettings{
				VideoCodec:   "libx264",
				VideoBitrate: "3500k",
				AudioCodec:   "aac",
				AudioBitrate: "128k",
				Resolution:   "1080x1920",
				FPS:          30,
				CRF:          22,
				SpeedPreset:  "medium",
			},
		},
		"webm-vp9": {
			Name:        "WebM VP9",
			Description: "VP9 in a WebM container for browsers without H.264.",
			Category:    "web",
			Settings: domain.PresetSettings{
				VideoCodec:   "libvpx-vp9",
				VideoBitrate: "2000k",
				AudioCodec:   "libopus",
				AudioBitrate: "128k",
				Resolution:   "1920x1080",
				FPS:          30,
				CRF:          31,
				SpeedPreset:  "good",
			},
		},
	}
}
