// Package poller runs the fixed-rate loop that connects the touch panel,
// the gesture engine and the HID mouse.
//
// Each cycle reads the panel once, feeds the resulting sample to the
// engine, ticks the engine and advances the click pulse train. Every
// action is forwarded to the mouse, the drag indicator, the optional
// trace recorder and the metrics.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"trackpad/internal/config"
	"trackpad/internal/feedback"
	"trackpad/internal/gesture"
	"trackpad/internal/hid"
	"trackpad/internal/logging"
	"trackpad/internal/metrics"
	"trackpad/internal/touch"
	"trackpad/internal/trace"
)

const (
	// DefaultPollInterval is the 100 Hz cycle of the reference hardware.
	DefaultPollInterval = 10 * time.Millisecond
	// DefaultReopenInterval spaces attempts to reopen a lost touch device.
	DefaultReopenInterval = time.Second
)

// Options configures New. Source, Engine and Mouse are required.
type Options struct {
	Source    touch.Source
	Transform touch.Transform
	Engine    *gesture.Engine
	Mouse     *hid.Mouse
	Tracker   *feedback.Tracker
	Recorder  *trace.Recorder
	Metrics   *metrics.Trackpad
	Logger    *logging.Logger

	PollInterval time.Duration

	// Reopen opens the touch device again after it reported
	// touch.ErrNoDevice. When nil the service keeps polling Source.
	Reopen         func() (touch.Source, error)
	ReopenInterval time.Duration

	// Clock returns the millisecond timestamp of a cycle. The default
	// counts from New and wraps with uint32.
	Clock func() uint32
}

// Status is a snapshot of the panel and engine after a cycle.
type Status struct {
	X          int32
	Y          int32
	Touched    bool
	Zone       gesture.Zone
	Phase      gesture.Phase
	ButtonHeld bool
	At         uint32
}

type staged struct {
	geom    gesture.Geometry
	params  gesture.Params
	xf      touch.Transform
	pressMs uint32
	gapMs   uint32
}

// Service is the polling loop.
type Service struct {
	src      touch.Source
	engine   *gesture.Engine
	mouse    *hid.Mouse
	tracker  *feedback.Tracker
	recorder *trace.Recorder
	metrics  *metrics.Trackpad
	log      *logging.Logger
	interval time.Duration
	clock    func() uint32
	reopen   func() (touch.Source, error)
	reopenMs uint32

	mu          sync.Mutex
	xf          touch.Transform
	edge        touch.EdgeDetector
	last        touch.Reading
	pending     *staged
	readFailing bool
	detached    bool
	reopenAt    uint32

	status atomic.Pointer[Status]
}

// New returns a service ready to Run.
func New(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New("poller: source is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("poller: engine is required")
	}
	if opts.Mouse == nil {
		return nil, errors.New("poller: mouse is required")
	}
	if opts.Tracker == nil {
		opts.Tracker = feedback.NewTracker(nil)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewTrackpad(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ReopenInterval <= 0 {
		opts.ReopenInterval = DefaultReopenInterval
	}
	if opts.Clock == nil {
		start := time.Now()
		opts.Clock = func() uint32 { return uint32(time.Since(start).Milliseconds()) }
	}

	s := &Service{
		src:      opts.Source,
		engine:   opts.Engine,
		mouse:    opts.Mouse,
		tracker:  opts.Tracker,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		log:      opts.Logger.WithComponent("poller"),
		interval: opts.PollInterval,
		clock:    opts.Clock,
		reopen:   opts.Reopen,
		reopenMs: uint32(opts.ReopenInterval.Milliseconds()),
		xf:       opts.Transform,
	}
	s.status.Store(&Status{})
	return s, nil
}

// Run polls until ctx is cancelled, then releases every button, hides the
// indicator and flushes the recorder.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("poll loop started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("poll loop stopping")
			return s.Shutdown()
		case <-ticker.C:
			s.Step(s.clock())
		}
	}
}

// Step performs one poll cycle at now and returns the actions it produced.
// Failures of the source, the mouse, the indicator or the recorder are
// logged and counted; the cycle always ticks the engine.
func (s *Service) Step(now uint32) []gesture.Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var out []gesture.Action

	// Staged config only lands while no contact is down.
	if s.pending != nil && !s.edge.Touched() {
		s.applyLocked(s.pending)
		s.pending = nil
	}

	if r, ok := s.read(now); ok {
		r = s.xf.Apply(r)
		s.last = r
		if smp, ok := s.edge.Next(r, now); ok {
			s.metrics.SamplesTotal.Inc()
			if s.recorder != nil {
				if err := s.recorder.Sample(smp); err != nil {
					s.traceError(err)
				}
			}
			out = s.dispatch(out, s.engine.ProcessInput(smp), now)
		}
	}

	out = s.dispatch(out, s.engine.Tick(now), now)

	if err := s.mouse.Service(now); err != nil {
		s.hidError(err)
	}

	sess := s.engine.Session()
	s.status.Store(&Status{
		X:          s.last.X,
		Y:          s.last.Y,
		Touched:    s.last.Touched,
		Zone:       s.engine.Geometry().Zone(s.last.X, s.last.Y),
		Phase:      sess.Phase,
		ButtonHeld: sess.ButtonHeld,
		At:         now,
	})
	s.metrics.SetState(sess.Phase, sess.Touching)
	s.metrics.CycleDuration.ObserveDuration(time.Since(start))
	return out
}

func (s *Service) read(now uint32) (touch.Reading, bool) {
	if s.detached && s.reopen != nil && !s.reattach(now) {
		return touch.Reading{}, false
	}

	r, err := s.src.Read()
	if err != nil {
		s.metrics.SourceErrorsTotal.Inc()
		if errors.Is(err, touch.ErrNoDevice) {
			s.detach(now, err)
			return touch.Reading{}, false
		}
		if !s.readFailing {
			s.log.Warn("touch read failed", "error", err)
			s.readFailing = true
		} else {
			s.log.Debug("touch read failed", "error", err)
		}
		return touch.Reading{}, false
	}
	if s.readFailing {
		s.log.Info("touch read recovered")
		s.readFailing = false
	}
	s.detached = false
	return r, true
}

// detach drops the contact of a device that went away. A drag in
// progress would otherwise leave the host with the button held.
func (s *Service) detach(now uint32, err error) {
	s.readFailing = true
	if s.detached {
		s.log.Debug("touch device still missing", "error", err)
		return
	}
	s.detached = true
	s.reopenAt = now
	s.metrics.DeviceLossesTotal.Inc()
	s.log.Warn("touch device lost", "error", err)
	if err := s.resetLocked(); err != nil {
		s.log.Warn("release after device loss failed", "error", err)
	}
}

// reattach tries Reopen once per reopen interval and reports whether a
// new source is in place.
func (s *Service) reattach(now uint32) bool {
	if now-s.reopenAt < s.reopenMs {
		return false
	}
	s.reopenAt = now

	src, err := s.reopen()
	if err != nil {
		s.log.Debug("touch device reopen failed", "error", err)
		return false
	}
	if err := s.src.Close(); err != nil {
		s.log.Debug("closing lost touch device", "error", err)
	}
	s.src = src
	s.detached = false
	s.metrics.DeviceReopensTotal.Inc()
	s.log.Info("touch device reopened")

	s.engine.Reset()
	s.edge.Reset()
	return true
}

func (s *Service) dispatch(out []gesture.Action, a gesture.Action, now uint32) []gesture.Action {
	if a.None() {
		return out
	}
	s.log.Debug("action", "action", a.String(), "at", now)
	s.metrics.RecordAction(a)

	if err := s.mouse.Handle(a, now); err != nil {
		s.hidError(err)
	}
	if err := s.tracker.Observe(a); err != nil {
		s.metrics.FeedbackErrorsTotal.Inc()
		s.log.Warn("feedback update failed", "error", err)
	}
	if s.recorder != nil {
		if err := s.recorder.Action(a, now); err != nil {
			s.traceError(err)
		}
	}
	return append(out, a)
}

func (s *Service) hidError(err error) {
	s.metrics.HIDErrorsTotal.Inc()
	if errors.Is(err, hid.ErrNotReady) {
		s.log.Debug("hid host not ready", "error", err)
		return
	}
	s.log.Warn("hid write failed", "error", err)
}

func (s *Service) traceError(err error) {
	s.metrics.TraceErrorsTotal.Inc()
	var dropped *trace.DroppedError
	if errors.As(err, &dropped) {
		s.metrics.TraceDroppedTotal.Add(uint64(dropped.Rows))
		s.log.Warn("trace backlog dropped", "rows", dropped.Rows, "error", dropped.Err)
		return
	}
	s.log.Debug("trace write failed", "error", err)
}

// Status returns the snapshot taken at the end of the last cycle. It is
// safe to call from any goroutine.
func (s *Service) Status() Status {
	return *s.status.Load()
}

// UpdateConfig stages the geometry, tuning, panel rotation and click
// timing of cfg. They take effect at the start of the first cycle with no
// contact down, so a gesture in progress keeps its parameters.
func (s *Service) UpdateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	xf, err := touch.NewTransform(int32(cfg.Screen.Width), int32(cfg.Screen.Height), cfg.Touch.Rotation)
	if err != nil {
		return fmt.Errorf("poller: %w", err)
	}
	next := &staged{
		geom:    cfg.Geometry(),
		params:  cfg.GestureParams(),
		xf:      xf,
		pressMs: uint32(cfg.HID.ClickPressMs),
		gapMs:   uint32(cfg.HID.ClickGapMs),
	}

	s.mu.Lock()
	s.pending = next
	s.mu.Unlock()
	s.log.Info("configuration staged", "width", cfg.Screen.Width, "height", cfg.Screen.Height)
	return nil
}

func (s *Service) applyLocked(c *staged) {
	s.engine.SetGeometry(c.geom)
	s.engine.SetParams(c.params)
	s.xf = c.xf
	s.mouse.SetTiming(c.pressMs, c.gapMs)
	s.metrics.ConfigReloadsTotal.Inc()
	s.log.Info("configuration applied")
}

// Reset returns the engine to idle, forgets the current contact and
// releases every HID button.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

func (s *Service) resetLocked() error {
	s.engine.Reset()
	s.edge.Reset()
	s.last = touch.Reading{}
	return errors.Join(s.mouse.ReleaseAll(), s.tracker.Hide())
}

// Shutdown resets the service, flushes the recorder and closes the touch
// source. Run calls it on exit.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.resetLocked()
	if s.recorder != nil {
		err = errors.Join(err, s.recorder.Flush())
	}
	return errors.Join(err, s.src.Close())
}
