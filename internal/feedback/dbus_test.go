package feedback

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBusIndicatorEmitsSignal(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no session bus")
	}

	name := fmt.Sprintf("org.trackpad.FeedbackTest.p%d", os.Getpid())
	d, err := NewDBus(name, nil)
	if err != nil {
		t.Skipf("session bus unavailable: %v", err)
	}
	defer d.Close()

	listener, err := dbus.ConnectSessionBus()
	require.NoError(t, err)
	defer listener.Close()

	require.NoError(t, listener.AddMatchSignal(
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(Interface),
	))
	signals := make(chan *dbus.Signal, 4)
	listener.Signal(signals)

	require.NoError(t, d.SetDragIndicator(true))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case sig := <-signals:
			if sig.Name != SignalName {
				continue
			}
			require.Len(t, sig.Body, 1)
			assert.Equal(t, true, sig.Body[0])
		case <-deadline:
			t.Fatal("no DragIndicator signal")
		}
		break
	}

	var visible bool
	require.NoError(t, listener.Object(name, ObjectPath).Call(Interface+".Visible", 0).Store(&visible))
	assert.True(t, visible)
}
