package touch

// Linux input event codes used by single-touch and type B multi-touch
// panels.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00

	btnTouch = 0x014a

	absX            = 0x00
	absY            = 0x01
	absMTSlot       = 0x2f
	absMTPositionX  = 0x35
	absMTPositionY  = 0x36
	absMTTrackingID = 0x39
)

// axisRange is a device axis range from EVIOCGABS.
type axisRange struct {
	min, max int32
}

// event is the payload of a struct input_event without its timestamp.
type event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// frameDecoder accumulates input events and commits a Reading at every
// SYN_REPORT. Coordinates are scaled from the device ranges to the screen.
//
// On multi-touch panels only the contact in slot 0 is followed; further
// fingers neither move the pointer nor end the touch. Once an ABS_MT event
// has been seen the single-touch emulation (BTN_TOUCH, ABS_X, ABS_Y) is
// ignored, since it tracks whichever contact is oldest.
type frameDecoder struct {
	rangeX, rangeY axisRange
	width, height  int32

	mt   bool
	slot int32
	down bool
	x, y int32

	committed Reading
	frames    int
}

func newFrameDecoder(rx, ry axisRange, width, height int32) *frameDecoder {
	if rx.max <= rx.min {
		rx.max = rx.min + 1
	}
	if ry.max <= ry.min {
		ry.max = ry.min + 1
	}
	return &frameDecoder{rangeX: rx, rangeY: ry, width: width, height: height}
}

// handle consumes one event and reports whether it committed a frame.
func (d *frameDecoder) handle(ev event) bool {
	switch ev.Type {
	case evAbs:
		switch ev.Code {
		case absX:
			if !d.mt {
				d.x = scaleAxis(ev.Value, d.rangeX, d.width)
			}
		case absY:
			if !d.mt {
				d.y = scaleAxis(ev.Value, d.rangeY, d.height)
			}
		case absMTSlot:
			d.mt = true
			d.slot = ev.Value
		case absMTPositionX:
			d.mt = true
			if d.slot == 0 {
				d.x = scaleAxis(ev.Value, d.rangeX, d.width)
			}
		case absMTPositionY:
			d.mt = true
			if d.slot == 0 {
				d.y = scaleAxis(ev.Value, d.rangeY, d.height)
			}
		case absMTTrackingID:
			d.mt = true
			if d.slot == 0 {
				d.down = ev.Value >= 0
			}
		}
	case evKey:
		if ev.Code == btnTouch && !d.mt {
			d.down = ev.Value != 0
		}
	case evSyn:
		if ev.Code == synReport {
			d.committed = Reading{Touched: d.down, X: d.x, Y: d.y}
			d.frames++
			return true
		}
	}
	return false
}

// reading returns the last committed frame.
func (d *frameDecoder) reading() Reading {
	return d.committed
}

func scaleAxis(v int32, r axisRange, out int32) int32 {
	if out <= 1 {
		return 0
	}
	if v < r.min {
		v = r.min
	}
	if v > r.max {
		v = r.max
	}
	return int32(int64(v-r.min) * int64(out-1) / int64(r.max-r.min))
}
