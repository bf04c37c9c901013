//go:build linux

package touch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// inputEvent is struct input_event.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// inputAbsInfo is struct input_absinfo.
type inputAbsInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

const sizeofInputEvent = int(unsafe.Sizeof(inputEvent{}))

// Name fragments of the controllers this daemon has been used with.
var touchNameHints = []string{"goodix", "gt911", "ft6x36", "ft5x06", "touch"}

// Evdev is a Source backed by a Linux input event device.
type Evdev struct {
	fd   int
	path string
	name string
	dec  *frameDecoder
	buf  [64]inputEvent
}

// Open opens the configured or autodetected evdev touch device.
func Open(opts Options) (Source, error) {
	return OpenEvdev(opts)
}

// OpenEvdev opens an evdev device in non-blocking mode and reads its axis
// ranges.
func OpenEvdev(opts Options) (*Evdev, error) {
	path := opts.Device
	if path == "" {
		p, err := findTouchDevice()
		if err != nil {
			return nil, err
		}
		path = p
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrNoDevice, path, err)
	}

	rx := axisRange{max: int32(opts.Width - 1)}
	ry := axisRange{max: int32(opts.Height - 1)}
	if info, err := ioctlGetAbs(fd, absMTPositionX); err == nil {
		rx = axisRange{info.Minimum, info.Maximum}
	} else if info, err := ioctlGetAbs(fd, absX); err == nil {
		rx = axisRange{info.Minimum, info.Maximum}
	}
	if info, err := ioctlGetAbs(fd, absMTPositionY); err == nil {
		ry = axisRange{info.Minimum, info.Maximum}
	} else if info, err := ioctlGetAbs(fd, absY); err == nil {
		ry = axisRange{info.Minimum, info.Maximum}
	}

	name, _ := ioctlGetName(fd)
	return &Evdev{
		fd:   fd,
		path: path,
		name: name,
		dec:  newFrameDecoder(rx, ry, int32(opts.Width), int32(opts.Height)),
	}, nil
}

// Path returns the device node.
func (e *Evdev) Path() string { return e.path }

// Name returns the device name reported by the kernel.
func (e *Evdev) Name() string { return e.name }

// Read drains every pending event and returns the latest committed frame.
func (e *Evdev) Read() (Reading, error) {
	if e.fd < 0 {
		return Reading{}, ErrNoDevice
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&e.buf[0])), len(e.buf)*sizeofInputEvent)
	for {
		n, err := unix.Read(e.fd, raw)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				break
			}
			if errors.Is(err, unix.ENODEV) {
				e.Close()
				return Reading{}, fmt.Errorf("%w: %s removed", ErrNoDevice, e.path)
			}
			return e.dec.reading(), fmt.Errorf("read %s: %w", e.path, err)
		}
		if n <= 0 {
			break
		}
		for i := 0; i < n/sizeofInputEvent; i++ {
			ev := e.buf[i]
			e.dec.handle(event{Type: ev.Type, Code: ev.Code, Value: ev.Value})
		}
		if n < len(raw) {
			break
		}
	}
	return e.dec.reading(), nil
}

// Close implements Source.
func (e *Evdev) Close() error {
	if e.fd < 0 {
		return nil
	}
	err := unix.Close(e.fd)
	e.fd = -1
	return err
}

func findTouchDevice() (string, error) {
	cands, _ := filepath.Glob("/dev/input/event*")
	for _, p := range cands {
		fd, err := unix.Open(p, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		name, err := ioctlGetName(fd)
		_ = unix.Close(fd)
		if err != nil {
			continue
		}
		if matchesTouchName(name) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no touch panel under /dev/input", ErrNoDevice)
}

func matchesTouchName(name string) bool {
	low := strings.ToLower(name)
	for _, hint := range touchNameHints {
		if strings.Contains(low, hint) {
			return true
		}
	}
	return false
}

// ioctl request encoding from linux/ioctl.h.
func ioc(dir, typ, nr, size uintptr) uintptr {
	const (
		nrShift   = 0
		typeShift = nrShift + 8
		sizeShift = typeShift + 8
		dirShift  = sizeShift + 14
	)
	return dir<<dirShift | typ<<typeShift | nr<<nrShift | size<<sizeShift
}

const iocRead = 2

func eviocgname(n int) uintptr { return ioc(iocRead, 'E', 0x06, uintptr(n)) }

func eviocgabs(axis uintptr) uintptr {
	return ioc(iocRead, 'E', 0x40+axis, unsafe.Sizeof(inputAbsInfo{}))
}

func ioctlGetName(fd int) (string, error) {
	buf := make([]byte, 256)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), eviocgname(len(buf)), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return "", errno
	}
	return unix.ByteSliceToString(buf), nil
}

func ioctlGetAbs(fd int, axis uintptr) (*inputAbsInfo, error) {
	var info inputAbsInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), eviocgabs(axis), uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return nil, errno
	}
	return &info, nil
}
