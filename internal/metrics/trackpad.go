package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"trackpad/internal/gesture"
	"trackpad/internal/logging"
)

// Trackpad holds the metrics of one polling service.
type Trackpad struct {
	registry *Registry
	started  time.Time

	SamplesTotal        *Counter
	SourceErrorsTotal   *Counter
	HIDErrorsTotal      *Counter
	FeedbackErrorsTotal *Counter
	TraceErrorsTotal    *Counter
	ConfigReloadsTotal  *Counter
	DeviceLossesTotal   *Counter
	DeviceReopensTotal  *Counter
	TraceDroppedTotal   *Counter

	actions map[gesture.ActionKind]*Counter

	Phase         *Gauge
	Touching      *Gauge
	UptimeSeconds *Gauge

	CycleDuration *Histogram
}

// NewTrackpad registers the trackpad metrics in registry.
func NewTrackpad(registry *Registry) *Trackpad {
	if registry == nil {
		registry = NewRegistry("trackpad", "")
	}

	m := &Trackpad{
		registry: registry,
		started:  time.Now(),

		SamplesTotal: registry.RegisterCounter(
			"samples_total", "Touch samples fed to the gesture engine", nil),
		SourceErrorsTotal: registry.RegisterCounter(
			"source_errors_total", "Failed touch source reads", nil),
		HIDErrorsTotal: registry.RegisterCounter(
			"hid_errors_total", "Failed HID report writes", nil),
		FeedbackErrorsTotal: registry.RegisterCounter(
			"feedback_errors_total", "Failed drag indicator updates", nil),
		TraceErrorsTotal: registry.RegisterCounter(
			"trace_errors_total", "Failed trace writes", nil),
		ConfigReloadsTotal: registry.RegisterCounter(
			"config_reloads_total", "Configuration reloads applied", nil),
		DeviceLossesTotal: registry.RegisterCounter(
			"touch_device_losses_total", "Times the touch device went away", nil),
		DeviceReopensTotal: registry.RegisterCounter(
			"touch_device_reopens_total", "Times the touch device was reopened", nil),
		TraceDroppedTotal: registry.RegisterCounter(
			"trace_dropped_rows_total", "Trace rows dropped while the store was failing", nil),

		actions: make(map[gesture.ActionKind]*Counter),

		Phase: registry.RegisterGauge(
			"engine_phase", "Current gesture engine phase (0=idle .. 5=dragging)", nil),
		Touching: registry.RegisterGauge(
			"touching", "1 while the panel is touched", nil),
		UptimeSeconds: registry.RegisterGauge(
			"uptime_seconds", "Seconds since the service started", nil),

		CycleDuration: registry.RegisterHistogram(
			"cycle_duration_seconds", "Duration of one poll cycle", nil, CycleBuckets),
	}

	for k := gesture.ActionMove; k <= gesture.ActionHideDragIndicator; k++ {
		m.actions[k] = registry.RegisterCounter(
			"actions_total", "Gesture actions emitted by kind", Labels{"kind": k.String()})
	}
	return m
}

// Registry returns the registry the metrics live in.
func (m *Trackpad) Registry() *Registry {
	return m.registry
}

// RecordAction counts a non-empty action.
func (m *Trackpad) RecordAction(a gesture.Action) {
	if c, ok := m.actions[a.Kind]; ok {
		c.Inc()
	}
}

// Actions returns the count for kind.
func (m *Trackpad) Actions(kind gesture.ActionKind) uint64 {
	if c, ok := m.actions[kind]; ok {
		return c.Value()
	}
	return 0
}

// SetState records the engine phase and contact state.
func (m *Trackpad) SetState(p gesture.Phase, touching bool) {
	m.Phase.Set(int64(p))
	if touching {
		m.Touching.Set(1)
	} else {
		m.Touching.Set(0)
	}
}

// UpdateUptime refreshes the uptime gauge.
func (m *Trackpad) UpdateUptime() {
	m.UptimeSeconds.Set(int64(time.Since(m.started).Seconds()))
}

// Server exposes a registry over HTTP at /metrics.
type Server struct {
	srv *http.Server
	mux *http.ServeMux
	ln  net.Listener
	log *logging.Logger
}

// Listen binds addr and returns a server ready to Serve.
func Listen(addr string, m *Trackpad, log *logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.Nop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		m.UpdateUptime()
		m.registry.HTTPHandler().ServeHTTP(w, req)
	}))

	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		mux: mux,
		ln:  ln,
		log: log.WithComponent("metrics"),
	}, nil
}

// Handle adds another endpoint. Call it before Serve.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve handles requests until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("metrics endpoint listening", "addr", s.Addr())
		errCh <- s.srv.Serve(s.ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
