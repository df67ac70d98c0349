// Package config handles viewer and tool configuration.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-anim/pkg/formats"
)

// Config holds all settings.
type Config struct {
	Animation AnimationConfig `yaml:"animation"`
	Codec     CodecConfig     `yaml:"codec"`
	Assets    AssetsConfig    `yaml:"assets"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AnimationConfig holds controller settings.
type AnimationConfig struct {
	SpineNode       string  `yaml:"spine_node"`
	NeckNode        string  `yaml:"neck_node"`
	LocomotionClips []int   `yaml:"locomotion_clips"` // clip per speed tier 0..3
	AnimSpeed       float32 `yaml:"anim_speed"`
}

// CodecConfig selects how bundles are compressed when saved.
type CodecConfig struct {
	Compressor string `yaml:"compressor"` // zstd or snappy
	Level      int    `yaml:"level"`
}

// AssetsConfig holds bundle loading settings.
type AssetsConfig struct {
	Root    string `yaml:"root"`
	CacheDB string `yaml:"cache_db"` // empty disables the store
	Watch   bool   `yaml:"watch"`
}

// ViewerConfig holds window and scene settings of the viewer.
type ViewerConfig struct {
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	Fullscreen     bool   `yaml:"fullscreen"`
	VSync          bool   `yaml:"vsync"`
	Bundle         string `yaml:"bundle"`
	Humanoid       bool   `yaml:"humanoid"`
	LowerBodyStart int    `yaml:"lower_body_start"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Animation: AnimationConfig{
			SpineNode:       "mixamorig:Spine",
			NeckNode:        "mixamorig:Neck",
			LocomotionClips: []int{0, 1, 2, 3},
			AnimSpeed:       1.0,
		},
		Codec: CodecConfig{
			Compressor: "zstd",
			Level:      formats.DefaultCompressionLevel,
		},
		Assets: AssetsConfig{
			Root: "assets",
		},
		Viewer: ViewerConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports settings the viewer and tools cannot use.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Codec.Kind(); err != nil {
		errs = append(errs, err)
	}
	if c.Codec.Level < 1 || c.Codec.Level > 22 {
		errs = append(errs, fmt.Errorf("codec level %d outside 1..22", c.Codec.Level))
	}
	if n := len(c.Animation.LocomotionClips); n == 0 || n > 4 {
		errs = append(errs, fmt.Errorf("%d locomotion clips, want 1 to 4", n))
	}
	for _, clip := range c.Animation.LocomotionClips {
		if clip < 0 {
			errs = append(errs, fmt.Errorf("negative locomotion clip %d", clip))
		}
	}
	if c.Animation.AnimSpeed <= 0 {
		errs = append(errs, fmt.Errorf("anim speed %v must be positive", c.Animation.AnimSpeed))
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d", c.Viewer.Width, c.Viewer.Height))
	}
	if c.Viewer.LowerBodyStart < 0 {
		errs = append(errs, fmt.Errorf("negative lower body start %d", c.Viewer.LowerBodyStart))
	}
	return errors.Join(errs...)
}

// Kind parses the configured compressor name.
func (c CodecConfig) Kind() (formats.CompressorKind, error) {
	return formats.ParseCompressorKind(c.Compressor)
}
