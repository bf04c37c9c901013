package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether any error concerns field.
func (e ValidationErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Is makes errors.Is(err, ErrInvalidConfig) hold for validation failures.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ValidateConfig checks cross-field constraints the schema cannot express.
func ValidateConfig(c *Config) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateScreen(&c.Screen)...)
	errs = append(errs, validateGesture(&c.Gesture)...)
	errs = append(errs, validateTouch(&c.Touch)...)
	errs = append(errs, validateHID(&c.HID)...)
	errs = append(errs, validateFeedback(&c.Feedback)...)
	errs = append(errs, validateTrace(&c.Trace)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateScreen(s *ScreenConfig) ValidationErrors {
	var errs ValidationErrors

	if s.Width < 1 || s.Width > 65535 {
		errs = append(errs, *RangeError("screen.width", 1, 65535))
	}
	if s.Height < 1 || s.Height > 65535 {
		errs = append(errs, *RangeError("screen.height", 1, 65535))
	}
	if s.ScrollZoneWidth < 0 || s.ScrollZoneWidth > s.Width {
		errs = append(errs, *RangeError("screen.scroll_zone_width", 0, s.Width))
	}
	if s.ScrollZoneHeight < 0 || s.ScrollZoneHeight > s.Height {
		errs = append(errs, *RangeError("screen.scroll_zone_height", 0, s.Height))
	}
	return errs
}

func validateGesture(g *GestureConfig) ValidationErrors {
	var errs ValidationErrors

	if g.JitterThreshold < 0 {
		errs = append(errs, ValidationError{Field: "gesture.jitter_threshold", Message: "cannot be negative"})
	}
	if g.VelocityAlpha <= 0 || g.VelocityAlpha > 1 {
		errs = append(errs, ValidationError{Field: "gesture.velocity_alpha", Message: "must be in (0, 1]"})
	}

	if !(g.PrecisionThreshold < g.LinearThreshold && g.LinearThreshold < g.MaxThreshold) {
		errs = append(errs, ValidationError{
			Field:   "gesture.linear_threshold",
			Message: "thresholds must satisfy precision < linear < max",
		})
	}
	if g.PrecisionSensitivity <= 0 {
		errs = append(errs, ValidationError{Field: "gesture.precision_sensitivity", Message: "must be positive"})
	}
	if !(g.PrecisionSensitivity <= g.BaseSensitivity && g.BaseSensitivity <= g.MaxMultiplier) {
		errs = append(errs, ValidationError{
			Field:   "gesture.base_sensitivity",
			Message: "sensitivities must satisfy precision <= base <= max_multiplier",
		})
	}

	if g.TapMinMs < 0 || g.TapMaxMs <= g.TapMinMs {
		errs = append(errs, ValidationError{Field: "gesture.tap_max_ms", Message: "must be greater than tap_min_ms"})
	}
	if g.TapMoveThreshold < 0 {
		errs = append(errs, ValidationError{Field: "gesture.tap_move_threshold", Message: "cannot be negative"})
	}
	if g.TapJitterRatio < 1 {
		errs = append(errs, ValidationError{Field: "gesture.tap_jitter_ratio", Message: "must be at least 1"})
	}
	if g.MultiTapWindowMs <= 0 {
		errs = append(errs, ValidationError{Field: "gesture.multi_tap_window_ms", Message: "must be positive"})
	}
	if g.DragMoveThreshold < 0 {
		errs = append(errs, ValidationError{Field: "gesture.drag_move_threshold", Message: "cannot be negative"})
	}
	if g.DragHoldMs <= 0 {
		errs = append(errs, ValidationError{Field: "gesture.drag_hold_ms", Message: "must be positive"})
	}
	if g.ScrollDivisor <= 0 {
		errs = append(errs, ValidationError{Field: "gesture.scroll_divisor", Message: "must be positive"})
	}
	return errs
}

func validateTouch(t *TouchConfig) ValidationErrors {
	var errs ValidationErrors

	if t.PollIntervalMs < 1 || t.PollIntervalMs > 100 {
		errs = append(errs, *RangeError("touch.poll_interval_ms", 1, 100))
	}
	switch t.Rotation {
	case 0, 90, 180, 270:
	default:
		errs = append(errs, ValidationError{
			Field:   "touch.rotation",
			Message: fmt.Sprintf("invalid rotation: %d (valid: 0, 90, 180, 270)", t.Rotation),
		})
	}
	return errs
}

func validateHID(h *HIDConfig) ValidationErrors {
	var errs ValidationErrors

	if h.Device == "" {
		errs = append(errs, *RequiredFieldError("hid.device"))
	}
	if h.ClickPressMs < 1 {
		errs = append(errs, ValidationError{Field: "hid.click_press_ms", Message: "must be at least 1ms"})
	}
	if h.ClickGapMs < 1 {
		errs = append(errs, ValidationError{Field: "hid.click_gap_ms", Message: "must be at least 1ms"})
	}
	return errs
}

func validateFeedback(f *FeedbackConfig) ValidationErrors {
	var errs ValidationErrors

	switch f.Backend {
	case "dbus":
		if f.BusName == "" {
			errs = append(errs, *RequiredFieldError("feedback.bus_name"))
		}
	case "log", "none":
	default:
		errs = append(errs, ValidationError{
			Field:   "feedback.backend",
			Message: fmt.Sprintf("invalid backend: %s (valid: dbus, log, none)", f.Backend),
		})
	}
	return errs
}

func validateTrace(t *TraceConfig) ValidationErrors {
	var errs ValidationErrors

	if t.Enabled && t.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "trace.path",
			Message: "path is required when tracing is enabled",
		})
	}
	if t.FlushEvery < 1 {
		errs = append(errs, ValidationError{Field: "trace.flush_every", Message: "must be at least 1"})
	}
	return errs
}

func validateMetrics(m *MetricsConfig) ValidationErrors {
	var errs ValidationErrors

	if m.Enabled {
		if _, _, err := net.SplitHostPort(m.Listen); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics.listen",
				Message: fmt.Sprintf("invalid listen address %q: %v", m.Listen, err),
			})
		}
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}
	return errs
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
