// Package daemon manages the pid and state files of a running trackpadd.
//
// trackpadctl uses them to report status and to signal the daemon: SIGTERM
// stops it, SIGHUP reloads its configuration.
package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// State is the persistent state of the daemon.
type State struct {
	PID          int       `json:"pid"`
	StartedAt    time.Time `json:"started_at"`
	Version      string    `json:"version"`
	ConfigPath   string    `json:"config_path,omitempty"`
	TouchDevice  string    `json:"touch_device,omitempty"`
	HIDDevice    string    `json:"hid_device,omitempty"`
	MetricsAddr  string    `json:"metrics_addr,omitempty"`
	TraceSession int64     `json:"trace_session,omitempty"`
}

// Manager handles daemon lifecycle files in one directory.
type Manager struct {
	dir       string
	pidFile   string
	stateFile string
}

// NewManager creates a manager for dir.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:       dir,
		pidFile:   filepath.Join(dir, "trackpadd.pid"),
		stateFile: filepath.Join(dir, "trackpadd.state"),
	}
}

// Dir returns the directory the files live in.
func (m *Manager) Dir() string { return m.dir }

// IsRunning checks if the daemon is running.
func (m *Manager) IsRunning() bool {
	pid, err := m.ReadPID()
	if err != nil {
		return false
	}
	return isProcessRunning(pid)
}

// ReadPID reads the daemon's PID from the PID file.
func (m *Manager) ReadPID() (int, error) {
	data, err := os.ReadFile(m.pidFile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// WritePID writes the current process PID to the PID file.
func (m *Manager) WritePID() error {
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}
	return os.WriteFile(m.pidFile, []byte(strconv.Itoa(os.Getpid())), 0600)
}

// WriteState writes the daemon state.
func (m *Manager) WriteState(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return os.WriteFile(m.stateFile, data, 0600)
}

// ReadState reads the daemon state.
func (m *Manager) ReadState() (*State, error) {
	data, err := os.ReadFile(m.stateFile)
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &state, nil
}

// SignalStop sends SIGTERM to the daemon.
func (m *Manager) SignalStop() error {
	return m.signal(syscall.SIGTERM)
}

// SignalReload sends SIGHUP to the daemon.
func (m *Manager) SignalReload() error {
	return m.signal(syscall.SIGHUP)
}

func (m *Manager) signal(sig os.Signal) error {
	pid, err := m.ReadPID()
	if err != nil {
		return fmt.Errorf("read PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}
	return process.Signal(sig)
}

// WaitForStop waits for the daemon to stop.
func (m *Manager) WaitForStop(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if !m.IsRunning() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not stop within %v", timeout)
}

// Cleanup removes PID and state files.
func (m *Manager) Cleanup() {
	os.Remove(m.pidFile)
	os.Remove(m.stateFile)
}

// Status is the daemon status for display.
type Status struct {
	Running bool
	PID     int
	Uptime  time.Duration
	State   *State
}

// Status returns the current daemon status. A missing state file is not
// an error.
func (m *Manager) Status() *Status {
	status := &Status{}

	if pid, err := m.ReadPID(); err == nil && isProcessRunning(pid) {
		status.Running = true
		status.PID = pid
	}

	if state, err := m.ReadState(); err == nil {
		status.State = state
		if status.Running {
			status.Uptime = time.Since(state.StartedAt)
		}
	}
	return status
}

// isProcessRunning checks if a process with the given PID is running.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds. Send signal 0 to check if process exists.
	return process.Signal(syscall.Signal(0)) == nil
}
