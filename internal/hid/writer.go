package hid

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
)

// ReportWriter delivers mouse reports to a host.
type ReportWriter interface {
	WriteReport(Report) error
}

// Gadget writes reports to a Linux USB gadget HID function node such as
// /dev/hidg0.
type Gadget struct {
	path string
	mu   sync.Mutex
	f    *os.File
}

// OpenGadget opens the gadget node for writing.
func OpenGadget(path string) (*Gadget, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open hid gadget %s: %w", path, err)
	}
	return &Gadget{path: path, f: f}, nil
}

// Path returns the gadget node.
func (g *Gadget) Path() string { return g.path }

// WriteReport implements ReportWriter. It returns ErrNotReady while the
// host has not enumerated the device or drains reports too slowly.
func (g *Gadget) WriteReport(r Report) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.f == nil {
		return ErrNotReady
	}
	b, _ := r.MarshalBinary()
	if _, err := g.f.Write(b); err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ESHUTDOWN) {
			return fmt.Errorf("%w: %v", ErrNotReady, err)
		}
		return fmt.Errorf("write hid report: %w", err)
	}
	return nil
}

// Close closes the gadget node.
func (g *Gadget) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.f == nil {
		return nil
	}
	err := g.f.Close()
	g.f = nil
	return err
}

// Capture is a ReportWriter that keeps every report in memory.
type Capture struct {
	mu      sync.Mutex
	reports []Report
	err     error
}

// WriteReport implements ReportWriter.
func (c *Capture) WriteReport(r Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	c.reports = append(c.reports, r)
	return nil
}

// FailWith makes subsequent writes return err; nil restores success.
func (c *Capture) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Reports returns a copy of the captured reports.
func (c *Capture) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Report(nil), c.reports...)
}

// Reset discards captured reports.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = nil
}
