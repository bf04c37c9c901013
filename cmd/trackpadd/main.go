// trackpadd turns a touch panel into a USB HID mouse.
//
// It polls the panel at a fixed rate, runs every sample through the
// gesture engine and writes the resulting pointer, click, drag and scroll
// reports to a USB gadget node:
//
//	trackpadd                       Run with ~/.config/trackpad/config.toml
//	trackpadd -config panel.yaml    Run with another configuration file
//	trackpadd -dry-run              Log reports instead of writing the gadget
//
// The configuration file is watched and reloaded on change or SIGHUP.
// SIGINT and SIGTERM stop the daemon after releasing every button.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackpad/internal/config"
	"trackpad/internal/daemon"
	"trackpad/internal/feedback"
	"trackpad/internal/gesture"
	"trackpad/internal/health"
	"trackpad/internal/hid"
	"trackpad/internal/logging"
	"trackpad/internal/metrics"
	"trackpad/internal/poller"
	"trackpad/internal/touch"
	"trackpad/internal/trace"
)

var version = "dev"

var (
	configPath  = flag.String("config", "", "path to config file (default: ~/.config/trackpad/config.toml)")
	logLevel    = flag.String("log-level", "", "override logging.level (debug, info, warn, error)")
	dryRun      = flag.Bool("dry-run", false, "log HID reports instead of writing the gadget")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("trackpadd", version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trackpadd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := cfg.LoggerConfig()
	if *logLevel != "" {
		lvl, err := logging.ParseLevel(*logLevel)
		if err != nil {
			return err
		}
		logCfg.Level = lvl
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Close()
	logging.SetDefault(log)

	loader := config.NewLoader(path, log)
	defer loader.Close()
	if cfg, err = loader.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Info("starting trackpadd", "version", version, "config", path)

	touchOpts := touch.Options{
		Device: cfg.Touch.Device,
		Width:  cfg.Screen.Width,
		Height: cfg.Screen.Height,
	}
	src, err := touch.Open(touchOpts)
	if err != nil {
		return fmt.Errorf("open touch panel: %w", err)
	}
	defer src.Close()
	touchDevice := cfg.Touch.Device
	if dev, ok := src.(namedDevice); ok {
		touchDevice = dev.Path()
		log.Info("touch panel opened", "path", dev.Path(), "name", dev.Name())
	}

	var writer hid.ReportWriter
	hidDevice := cfg.HID.Device
	if *dryRun {
		writer = &reportLogger{log: log.WithComponent("hid")}
		hidDevice = "dry-run"
	} else {
		g, err := hid.OpenGadget(cfg.HID.Device)
		if err != nil {
			return err
		}
		defer g.Close()
		writer = g
	}
	mouse := hid.NewMouse(writer, hid.MouseOptions{
		ClickPressMs: uint32(cfg.HID.ClickPressMs),
		ClickGapMs:   uint32(cfg.HID.ClickGapMs),
		Logger:       log,
	})

	ind, closeInd, err := feedback.New(cfg.Feedback.Backend, cfg.Feedback.BusName, log)
	if err != nil {
		log.Warn("drag indicator unavailable, continuing without it", "backend", cfg.Feedback.Backend, "error", err)
		ind = feedback.Nop{}
	}
	defer closeInd()

	tm := metrics.NewTrackpad(metrics.NewRegistry("trackpad", ""))

	var store *trace.Store
	var recorder *trace.Recorder
	if cfg.Trace.Enabled {
		store, err = trace.Open(cfg.Trace.Path)
		if err != nil {
			return fmt.Errorf("open trace store: %w", err)
		}
		defer store.Close()
		recorder, err = trace.NewRecorder(store, cfg.Geometry(), "trackpadd "+version, cfg.Trace.FlushEvery)
		if err != nil {
			return fmt.Errorf("start trace session: %w", err)
		}
		log.Info("recording gesture trace", "path", cfg.Trace.Path, "session", recorder.Session())
	}

	xf, err := touch.NewTransform(int32(cfg.Screen.Width), int32(cfg.Screen.Height), cfg.Touch.Rotation)
	if err != nil {
		return err
	}

	svc, err := poller.New(poller.Options{
		Source:       src,
		Transform:    xf,
		Engine:       gesture.New(cfg.Geometry(), cfg.GestureParams()),
		Mouse:        mouse,
		Tracker:      feedback.NewTracker(ind),
		Recorder:     recorder,
		Metrics:      tm,
		Logger:       log,
		PollInterval: time.Duration(cfg.Touch.PollIntervalMs) * time.Millisecond,
		Reopen: func() (touch.Source, error) {
			return touch.Open(touchOpts)
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := health.NewChecker()
	checker.RegisterFunc("poll_loop", true, health.ProgressCheck(tm.CycleDuration.Count))
	checker.RegisterFunc("touch", true, health.FailureCheck(tm.SourceErrorsTotal.Value, tm.CycleDuration.Count))
	checker.RegisterFunc("hid", false, health.FailureCheck(tm.HIDErrorsTotal.Value, tm.CycleDuration.Count))
	if store != nil {
		checker.RegisterFunc("trace", false, health.PingCheck(store.Ping))
	}

	var metricsAddr string
	if cfg.Metrics.Enabled {
		srv, err := metrics.Listen(cfg.Metrics.Listen, tm, log)
		if err != nil {
			return err
		}
		for path, h := range checker.Routes() {
			srv.Handle(path, h)
		}
		metricsAddr = srv.Addr()
		go func() {
			if err := srv.Serve(ctx); err != nil {
				log.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	loader.OnChange(func(c *config.Config) {
		if err := svc.UpdateConfig(c); err != nil {
			log.Warn("reloaded config not applied", "error", err)
		}
	})
	if err := loader.Watch(); err != nil {
		log.Warn("config watch unavailable", "error", err)
	}

	mgr := daemon.NewManager(config.StateDir())
	if err := mgr.WritePID(); err != nil {
		log.Warn("write pid file", "error", err)
	}
	state := &daemon.State{
		PID:         os.Getpid(),
		StartedAt:   time.Now(),
		Version:     version,
		ConfigPath:  path,
		TouchDevice: touchDevice,
		HIDDevice:   hidDevice,
		MetricsAddr: metricsAddr,
	}
	if recorder != nil {
		state.TraceSession = recorder.Session()
	}
	if err := mgr.WriteState(state); err != nil {
		log.Warn("write state file", "error", err)
	}
	defer mgr.Cleanup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				if sig == syscall.SIGHUP {
					log.Info("reload requested")
					loader.Reload()
					continue
				}
				log.Info("shutting down", "signal", sig.String())
				cancel()
				return
			}
		}
	}()

	checker.SetReady(true)
	err = svc.Run(ctx)
	checker.SetReady(false)
	log.Info("trackpadd stopped",
		"samples", tm.SamplesTotal.Value(),
		"source_errors", tm.SourceErrorsTotal.Value(),
		"hid_errors", tm.HIDErrorsTotal.Value())
	return err
}

// namedDevice is implemented by sources backed by a device node.
type namedDevice interface {
	Path() string
	Name() string
}

// reportLogger is the dry-run ReportWriter.
type reportLogger struct {
	log *logging.Logger
}

func (w *reportLogger) WriteReport(r hid.Report) error {
	w.log.Debug("report", "report", r.String())
	return nil
}
