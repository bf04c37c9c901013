package feedback

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"trackpad/internal/logging"
)

// D-Bus names of the feedback service.
const (
	DefaultBusName = "org.trackpad.Feedback"
	ObjectPath     = dbus.ObjectPath("/org/trackpad/Feedback")
	Interface      = "org.trackpad.Feedback"
	SignalName     = Interface + ".DragIndicator"
)

// DBus publishes the drag indicator on the session bus. It emits a
// DragIndicator(b) signal on every change and answers Visible() so that
// a late-starting overlay can catch up.
type DBus struct {
	conn    *dbus.Conn
	name    string
	log     *logging.Logger
	mu      sync.RWMutex
	visible bool
}

// NewDBus connects to the session bus and claims busName.
func NewDBus(busName string, log *logging.Logger) (*DBus, error) {
	if busName == "" {
		busName = DefaultBusName
	}
	if log == nil {
		log = logging.Nop()
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	d, err := newDBus(conn, busName, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func newDBus(conn *dbus.Conn, busName string, log *logging.Logger) (*DBus, error) {
	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("bus name %s already taken", busName)
	}

	d := &DBus{conn: conn, name: busName, log: log.WithComponent("feedback")}
	if err := conn.Export(&dbusObject{d: d}, ObjectPath, Interface); err != nil {
		conn.ReleaseName(busName)
		return nil, fmt.Errorf("export feedback object: %w", err)
	}
	d.log.Info("drag indicator on session bus", "name", busName, "path", string(ObjectPath))
	return d, nil
}

// SetDragIndicator implements Indicator.
func (d *DBus) SetDragIndicator(visible bool) error {
	d.mu.Lock()
	d.visible = visible
	d.mu.Unlock()

	if err := d.conn.Emit(ObjectPath, SignalName, visible); err != nil {
		return fmt.Errorf("emit %s: %w", SignalName, err)
	}
	return nil
}

// Close releases the bus name and the connection.
func (d *DBus) Close() error {
	d.conn.Export(nil, ObjectPath, Interface)
	if _, err := d.conn.ReleaseName(d.name); err != nil {
		d.log.Warn("release bus name", "error", err)
	}
	return d.conn.Close()
}

// dbusObject holds the exported methods so that SetDragIndicator and
// Close are not callable over the bus.
type dbusObject struct {
	d *DBus
}

// Visible returns the current indicator state.
func (o *dbusObject) Visible() (bool, *dbus.Error) {
	o.d.mu.RLock()
	defer o.d.mu.RUnlock()
	return o.d.visible, nil
}
