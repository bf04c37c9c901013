// Package config handles configuration loading, validation, and management for trackpad.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"trackpad/internal/gesture"
	"trackpad/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Screen describes the touch surface and its scroll bands.
	Screen ScreenConfig `toml:"screen" json:"screen" yaml:"screen"`

	// Gesture holds the engine tuning.
	Gesture GestureConfig `toml:"gesture" json:"gesture" yaml:"gesture"`

	// Touch configures the input device.
	Touch TouchConfig `toml:"touch" json:"touch" yaml:"touch"`

	// HID configures the USB mouse gadget.
	HID HIDConfig `toml:"hid" json:"hid" yaml:"hid"`

	// Feedback selects where the drag indicator is shown.
	Feedback FeedbackConfig `toml:"feedback" json:"feedback" yaml:"feedback"`

	// Trace configures gesture trace recording.
	Trace TraceConfig `toml:"trace" json:"trace" yaml:"trace"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// ScreenConfig is the surface geometry in screen pixels.
type ScreenConfig struct {
	Width  int `toml:"width" json:"width" yaml:"width"`
	Height int `toml:"height" json:"height" yaml:"height"`

	// ScrollZoneWidth is the width of the right-edge vertical scroll band.
	// 0 disables the band.
	ScrollZoneWidth int `toml:"scroll_zone_width" json:"scroll_zone_width" yaml:"scroll_zone_width"`

	// ScrollZoneHeight is the height of the bottom-edge horizontal scroll band.
	// 0 disables the band.
	ScrollZoneHeight int `toml:"scroll_zone_height" json:"scroll_zone_height" yaml:"scroll_zone_height"`
}

// GestureConfig mirrors gesture.Params in file form.
type GestureConfig struct {
	JitterThreshold int     `toml:"jitter_threshold" json:"jitter_threshold" yaml:"jitter_threshold"`
	VelocityAlpha   float64 `toml:"velocity_alpha" json:"velocity_alpha" yaml:"velocity_alpha"`

	PrecisionSensitivity float64 `toml:"precision_sensitivity" json:"precision_sensitivity" yaml:"precision_sensitivity"`
	BaseSensitivity      float64 `toml:"base_sensitivity" json:"base_sensitivity" yaml:"base_sensitivity"`
	MaxMultiplier        float64 `toml:"max_multiplier" json:"max_multiplier" yaml:"max_multiplier"`
	PrecisionThreshold   float64 `toml:"precision_threshold" json:"precision_threshold" yaml:"precision_threshold"`
	LinearThreshold      float64 `toml:"linear_threshold" json:"linear_threshold" yaml:"linear_threshold"`
	MaxThreshold         float64 `toml:"max_threshold" json:"max_threshold" yaml:"max_threshold"`

	TapMinMs         int     `toml:"tap_min_ms" json:"tap_min_ms" yaml:"tap_min_ms"`
	TapMaxMs         int     `toml:"tap_max_ms" json:"tap_max_ms" yaml:"tap_max_ms"`
	TapMoveThreshold int     `toml:"tap_move_threshold" json:"tap_move_threshold" yaml:"tap_move_threshold"`
	TapJitterRatio   float64 `toml:"tap_jitter_ratio" json:"tap_jitter_ratio" yaml:"tap_jitter_ratio"`
	TapJitterMinPath int     `toml:"tap_jitter_min_path" json:"tap_jitter_min_path" yaml:"tap_jitter_min_path"`

	MultiTapWindowMs  int `toml:"multi_tap_window_ms" json:"multi_tap_window_ms" yaml:"multi_tap_window_ms"`
	DragMoveThreshold int `toml:"drag_move_threshold" json:"drag_move_threshold" yaml:"drag_move_threshold"`
	DragHoldMs        int `toml:"drag_hold_ms" json:"drag_hold_ms" yaml:"drag_hold_ms"`

	ScrollDivisor float64 `toml:"scroll_divisor" json:"scroll_divisor" yaml:"scroll_divisor"`
	NaturalScroll bool    `toml:"natural_scroll" json:"natural_scroll" yaml:"natural_scroll"`
}

// TouchConfig holds input device configuration.
type TouchConfig struct {
	// Device is an evdev node such as /dev/input/event2. Empty autodetects.
	Device string `toml:"device" json:"device" yaml:"device"`

	// PollIntervalMs is the period of the poll loop.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`

	// Rotation of the panel relative to the screen: 0, 90, 180 or 270.
	Rotation int `toml:"rotation" json:"rotation" yaml:"rotation"`
}

// HIDConfig holds USB HID gadget configuration.
type HIDConfig struct {
	// Device is the gadget node reports are written to.
	Device string `toml:"device" json:"device" yaml:"device"`

	// ClickPressMs is how long each click pulse holds the button.
	ClickPressMs int `toml:"click_press_ms" json:"click_press_ms" yaml:"click_press_ms"`

	// ClickGapMs is the released gap between pulses of a multi-click.
	ClickGapMs int `toml:"click_gap_ms" json:"click_gap_ms" yaml:"click_gap_ms"`
}

// FeedbackConfig selects the drag indicator backend.
type FeedbackConfig struct {
	// Backend is "dbus", "log" or "none".
	Backend string `toml:"backend" json:"backend" yaml:"backend"`

	// BusName is the well-known session bus name owned by the dbus backend.
	BusName string `toml:"bus_name" json:"bus_name" yaml:"bus_name"`
}

// TraceConfig holds gesture trace recording configuration.
type TraceConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `toml:"path" json:"path" yaml:"path"`

	// FlushEvery is the number of buffered rows that triggers a flush.
	FlushEvery int `toml:"flush_every" json:"flush_every" yaml:"flush_every"`
}

// MetricsConfig holds the metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Listen  string `toml:"listen" json:"listen" yaml:"listen"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is stdout, stderr, file or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
}

// DefaultConfig returns the configuration of the reference hardware: a
// 320x240 panel mounted upside down, 40 px scroll bands and a 100 Hz poll.
func DefaultConfig() *Config {
	p := gesture.DefaultParams()
	return &Config{
		Version: Version,
		Screen: ScreenConfig{
			Width:            320,
			Height:           240,
			ScrollZoneWidth:  40,
			ScrollZoneHeight: 40,
		},
		Gesture: GestureConfig{
			JitterThreshold:      int(p.JitterThreshold),
			VelocityAlpha:        p.VelocityAlpha,
			PrecisionSensitivity: p.Curve.PrecisionSensitivity,
			BaseSensitivity:      p.Curve.BaseSensitivity,
			MaxMultiplier:        p.Curve.MaxMultiplier,
			PrecisionThreshold:   p.Curve.PrecisionThreshold,
			LinearThreshold:      p.Curve.LinearThreshold,
			MaxThreshold:         p.Curve.MaxThreshold,
			TapMinMs:             int(p.Tap.MinDurationMs),
			TapMaxMs:             int(p.Tap.MaxDurationMs),
			TapMoveThreshold:     int(p.Tap.MoveThreshold),
			TapJitterRatio:       p.Tap.JitterRatio,
			TapJitterMinPath:     int(p.Tap.JitterMinPath),
			MultiTapWindowMs:     int(p.MultiTapWindowMs),
			DragMoveThreshold:    int(p.DragMoveThreshold),
			DragHoldMs:           int(p.DragHoldMs),
			ScrollDivisor:        p.ScrollDivisor,
			NaturalScroll:        p.NaturalScroll,
		},
		Touch: TouchConfig{
			PollIntervalMs: 10,
			Rotation:       180,
		},
		HID: HIDConfig{
			Device:       "/dev/hidg0",
			ClickPressMs: 10,
			ClickGapMs:   30,
		},
		Feedback: FeedbackConfig{
			Backend: "log",
			BusName: "org.trackpad.Feedback",
		},
		Trace: TraceConfig{
			Enabled:    false,
			Path:       filepath.Join(DataDir(), "trace.db"),
			FlushEvery: 256,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9120",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(StateDir(), "trackpad.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// DataDir returns the trackpad data directory.
// TRACKPAD_DATA_DIR overrides the XDG location.
func DataDir() string {
	if dir := os.Getenv("TRACKPAD_DATA_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "trackpad")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "trackpad")
}

// StateDir returns the directory for logs.
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "trackpad")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "trackpad")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "trackpad", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "trackpad", "config.toml")
}

// Load reads configuration from path, applies environment overrides and
// validates the result. A missing file yields the defaults.
// TOML, JSON and YAML are chosen by file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with TRACKPAD_.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := os.Getenv("TRACKPAD_TOUCH_DEVICE"); v != "" {
		c.Touch.Device = v
	}
	if v := os.Getenv("TRACKPAD_HID_DEVICE"); v != "" {
		c.HID.Device = v
	}
	if v := os.Getenv("TRACKPAD_FEEDBACK_BACKEND"); v != "" {
		c.Feedback.Backend = v
	}
	if v := os.Getenv("TRACKPAD_TRACE_PATH"); v != "" {
		c.Trace.Path = v
		c.Trace.Enabled = true
	}
	if v := os.Getenv("TRACKPAD_METRICS_LISTEN"); v != "" {
		c.Metrics.Listen = v
		c.Metrics.Enabled = true
	}
	if v := os.Getenv("TRACKPAD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TRACKPAD_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Version:  c.Version,
		Screen:   c.Screen,
		Gesture:  c.Gesture,
		Touch:    c.Touch,
		HID:      c.HID,
		Feedback: c.Feedback,
		Trace:    c.Trace,
		Metrics:  c.Metrics,
		Logging:  c.Logging,
	}
}

// Geometry returns the surface geometry for the gesture engine.
func (c *Config) Geometry() gesture.Geometry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return gesture.Geometry{
		HRes:        uint16(c.Screen.Width),
		VRes:        uint16(c.Screen.Height),
		ScrollZoneW: int32(c.Screen.ScrollZoneWidth),
		ScrollZoneH: int32(c.Screen.ScrollZoneHeight),
	}
}

// GestureParams returns the engine tuning.
func (c *Config) GestureParams() gesture.Params {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g := c.Gesture
	return gesture.Params{
		JitterThreshold: int32(g.JitterThreshold),
		VelocityAlpha:   g.VelocityAlpha,
		Curve: gesture.Curve{
			PrecisionSensitivity: g.PrecisionSensitivity,
			BaseSensitivity:      g.BaseSensitivity,
			MaxMultiplier:        g.MaxMultiplier,
			PrecisionThreshold:   g.PrecisionThreshold,
			LinearThreshold:      g.LinearThreshold,
			MaxThreshold:         g.MaxThreshold,
		},
		Tap: gesture.TapRules{
			MinDurationMs: uint32(g.TapMinMs),
			MaxDurationMs: uint32(g.TapMaxMs),
			MoveThreshold: int32(g.TapMoveThreshold),
			JitterRatio:   g.TapJitterRatio,
			JitterMinPath: int32(g.TapJitterMinPath),
		},
		MultiTapWindowMs:  uint32(g.MultiTapWindowMs),
		DragMoveThreshold: int32(g.DragMoveThreshold),
		DragHoldMs:        uint32(g.DragHoldMs),
		ScrollDivisor:     g.ScrollDivisor,
		NaturalScroll:     g.NaturalScroll,
	}
}

// LoggerConfig converts the logging section for logging.New.
// Values are assumed validated; unknown ones fall back to defaults.
func (c *Config) LoggerConfig() *logging.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lc := logging.DefaultConfig()
	if lvl, err := logging.ParseLevel(c.Logging.Level); err == nil {
		lc.Level = lvl
	}
	if f, err := logging.ParseFormat(c.Logging.Format); err == nil {
		lc.Format = f
	}
	lc.Output = c.Logging.Output
	if c.Logging.FilePath != "" {
		lc.FilePath = c.Logging.FilePath
	}
	lc.MaxSize = int64(c.Logging.MaxSizeMB)
	lc.MaxBackups = c.Logging.MaxBackups
	return lc
}

// EncodeTOML renders the configuration as a TOML document.
func (c *Config) EncodeTOML() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the configuration as TOML to path, creating its directory.
func (c *Config) Save(path string) error {
	data, err := c.EncodeTOML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
