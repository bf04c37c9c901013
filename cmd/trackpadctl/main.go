// trackpadctl is the control CLI for trackpadd.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"trackpad/internal/config"
	"trackpad/internal/daemon"
	"trackpad/internal/gesture"
	"trackpad/internal/trace"
)

// replayDrainMs covers the longest tap window a session can end in.
const replayDrainMs = 1000

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("trackpadctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() < 1 {
		usage(stderr)
		return 1
	}

	var err error
	switch cmd := fs.Arg(0); cmd {
	case "defaults":
		err = cmdDefaults(stdout, stderr, fs.Args()[1:])
	case "validate":
		if fs.NArg() < 2 {
			fmt.Fprintln(stderr, "Usage: trackpadctl validate <file>")
			return 1
		}
		err = cmdValidate(stdout, fs.Arg(1))
	case "sessions":
		if fs.NArg() < 2 {
			fmt.Fprintln(stderr, "Usage: trackpadctl sessions <trace.db>")
			return 1
		}
		err = cmdSessions(stdout, fs.Arg(1))
	case "replay":
		if fs.NArg() < 3 {
			fmt.Fprintln(stderr, "Usage: trackpadctl replay <trace.db> <session>")
			return 1
		}
		err = cmdReplay(stdout, *configPath, fs.Arg(1), fs.Arg(2))
	case "delete":
		if fs.NArg() < 3 {
			fmt.Fprintln(stderr, "Usage: trackpadctl delete <trace.db> <session>")
			return 1
		}
		err = cmdDelete(stdout, fs.Arg(1), fs.Arg(2))
	case "status":
		err = cmdStatus(stdout)
	case "stop":
		err = cmdStop(stdout)
	case "reload":
		err = daemon.NewManager(config.StateDir()).SignalReload()
	case "help":
		usage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		usage(stderr)
		return 1
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `trackpadctl - Control utility for trackpadd

Usage: trackpadctl [options] <command> [args]

Commands:
  defaults [-write <file>]   Print the default configuration as TOML, or
                             write it to <file> if that does not exist
  validate <file>            Check a configuration file
  sessions <trace.db>        List recorded gesture sessions
  replay <trace.db> <id>     Re-run a session through the current engine
  delete <trace.db> <id>     Remove a recorded session
  status                     Show daemon status
  stop                       Stop the daemon
  reload                     Ask the daemon to reload its configuration
  help                       Show this help message

Options:
  -config <path>  Config file whose gesture tuning replay uses`)
}

func cmdDefaults(w, errOut io.Writer, args []string) error {
	fs := flag.NewFlagSet("defaults", flag.ContinueOnError)
	fs.SetOutput(errOut)
	write := fs.String("write", "", "create this config file from the defaults")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *write != "" {
		_, created, err := config.LoadOrCreate(*write)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(w, "wrote %s\n", *write)
		} else {
			fmt.Fprintf(w, "%s already exists, left unchanged\n", *write)
		}
		return nil
	}

	data, err := config.DefaultConfig().EncodeTOML()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func cmdValidate(w io.Writer, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	if _, err := config.Load(path); err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Fprintf(w, "%s: %d problem(s)\n", path, len(verrs))
			for _, e := range verrs {
				fmt.Fprintf(w, "  %s: %s\n", e.Field, e.Message)
			}
		}
		return err
	}
	fmt.Fprintf(w, "%s: ok\n", path)
	return nil
}

func cmdSessions(w io.Writer, dbPath string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return err
	}
	store, err := trace.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSCREEN\tSAMPLES\tACTIONS\tNOTE")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%d\t%d\t%s\n",
			s.ID, s.StartedAt.Format(time.RFC3339), s.Geometry.HRes, s.Geometry.VRes,
			s.Samples, s.Actions, s.Note)
	}
	return tw.Flush()
}

func cmdReplay(w io.Writer, configPath, dbPath, idArg string) error {
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q", idArg)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); err != nil {
		return err
	}

	store, err := trace.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := store.Session(id)
	if err != nil {
		return err
	}
	samples, err := store.Samples(id)
	if err != nil {
		return err
	}
	recorded, err := store.Actions(id)
	if err != nil {
		return err
	}

	// The live ticker may fire up to one interval off the replay grid.
	step := uint32(cfg.Touch.PollIntervalMs)
	replayed := trace.Replay(gesture.New(info.Geometry, cfg.GestureParams()), samples, step, replayDrainMs)
	return printReplay(w, recorded, replayed, step)
}

func cmdDelete(w io.Writer, dbPath, idArg string) error {
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q", idArg)
	}
	if _, err := os.Stat(dbPath); err != nil {
		return err
	}
	store, err := trace.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteSession(id); err != nil {
		return err
	}
	fmt.Fprintf(w, "deleted session %d\n", id)
	return nil
}

func printReplay(w io.Writer, recorded, replayed []trace.TimedAction, toleranceMs uint32) error {
	div := trace.FirstDivergence(recorded, replayed, toleranceMs)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tRECORDED\tREPLAYED\t")
	n := max(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		mark := ""
		if i == div {
			mark = "<-- first difference"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, cell(recorded, i), cell(replayed, i), mark)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if div < 0 {
		fmt.Fprintf(w, "identical: %d actions\n", len(recorded))
		return nil
	}
	return fmt.Errorf("replay diverges at action %d", div)
}

func cell(actions []trace.TimedAction, i int) string {
	if i < len(actions) {
		return actions[i].String()
	}
	return "-"
}

func cmdStatus(w io.Writer) error {
	st := daemon.NewManager(config.StateDir()).Status()

	fmt.Fprintln(w, "=== trackpadd Status ===")
	if !st.Running {
		fmt.Fprintln(w, "Daemon Status: NOT RUNNING")
		return nil
	}
	fmt.Fprintf(w, "Daemon Status: RUNNING (PID %d)\n", st.PID)
	if s := st.State; s != nil {
		fmt.Fprintf(w, "Version:       %s\n", s.Version)
		fmt.Fprintf(w, "Uptime:        %s\n", st.Uptime.Round(time.Second))
		fmt.Fprintf(w, "Config:        %s\n", s.ConfigPath)
		fmt.Fprintf(w, "Touch device:  %s\n", s.TouchDevice)
		fmt.Fprintf(w, "HID device:    %s\n", s.HIDDevice)
		if s.MetricsAddr != "" {
			fmt.Fprintf(w, "Metrics:       http://%s/metrics\n", s.MetricsAddr)
		}
		if s.TraceSession != 0 {
			fmt.Fprintf(w, "Trace session: %d\n", s.TraceSession)
		}
	}
	return nil
}

func cmdStop(w io.Writer) error {
	m := daemon.NewManager(config.StateDir())
	if !m.IsRunning() {
		return errors.New("daemon is not running")
	}
	if err := m.SignalStop(); err != nil {
		return err
	}
	if err := m.WaitForStop(5 * time.Second); err != nil {
		return err
	}
	fmt.Fprintln(w, "trackpadd stopped")
	return nil
}
