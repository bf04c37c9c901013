package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "run"))

	assert.False(t, m.IsRunning())
	_, err := m.ReadPID()
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, m.WritePID())
	pid, err := m.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, m.IsRunning())
}

func TestInvalidPIDFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trackpadd.pid"), []byte("not-a-pid"), 0600))

	_, err := m.ReadPID()
	assert.ErrorContains(t, err, "invalid PID file")
	assert.False(t, m.IsRunning())
	assert.Error(t, m.SignalReload())
}

func TestStateRoundTrip(t *testing.T) {
	m := NewManager(t.TempDir())
	want := &State{
		PID:         42,
		StartedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Version:     "test",
		TouchDevice: "/dev/input/event2",
		HIDDevice:   "/dev/hidg0",
	}
	require.NoError(t, m.WriteState(want))

	got, err := m.ReadState()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStatus(t *testing.T) {
	m := NewManager(t.TempDir())

	st := m.Status()
	assert.False(t, st.Running)
	assert.Nil(t, st.State)

	require.NoError(t, m.WritePID())
	require.NoError(t, m.WriteState(&State{PID: os.Getpid(), StartedAt: time.Now().Add(-time.Minute)}))

	st = m.Status()
	assert.True(t, st.Running)
	assert.Equal(t, os.Getpid(), st.PID)
	require.NotNil(t, st.State)
	assert.GreaterOrEqual(t, st.Uptime, time.Minute)
}

func TestCleanupAndWait(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.WritePID())
	require.NoError(t, m.WriteState(&State{}))

	m.Cleanup()
	assert.False(t, m.IsRunning())
	_, err := m.ReadState()
	assert.Error(t, err)
	assert.NoError(t, m.WaitForStop(time.Second))
}
