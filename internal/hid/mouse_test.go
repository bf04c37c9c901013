package hid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackpad/internal/gesture"
)

func newTestMouse() (*Mouse, *Capture) {
	c := &Capture{}
	return NewMouse(c, MouseOptions{}), c
}

// runTrain services m every 10 ms from start until end.
func runTrain(t *testing.T, m *Mouse, start, end uint32) {
	t.Helper()
	for now := start; now <= end; now += 10 {
		require.NoError(t, m.Service(now))
	}
}

func buttonEdges(reports []Report) []uint8 {
	var out []uint8
	for _, r := range reports {
		if len(out) == 0 || out[len(out)-1] != r.Buttons {
			out = append(out, r.Buttons)
		}
	}
	return out
}

func TestMoveReport(t *testing.T) {
	m, c := newTestMouse()

	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionMove, DX: 5, DY: -300}, 0))
	assert.Equal(t, []Report{{X: 5, Y: -127}}, c.Reports())
}

func TestSingleClickPulse(t *testing.T) {
	m, c := newTestMouse()

	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionClick, Buttons: gesture.ButtonLeft}, 100))
	assert.Empty(t, c.Reports(), "clicks are only queued by Handle")

	require.NoError(t, m.Service(100))
	assert.Equal(t, gesture.ButtonLeft, m.Buttons())

	require.NoError(t, m.Service(105))
	assert.Len(t, c.Reports(), 1, "press lasts ClickPressMs")

	require.NoError(t, m.Service(110))
	assert.Equal(t, []Report{{Buttons: 0x01}, {Buttons: 0x00}}, c.Reports())
	assert.Zero(t, m.PendingClicks())

	runTrain(t, m, 120, 300)
	assert.Len(t, c.Reports(), 2)
}

func TestMultiClickTrain(t *testing.T) {
	tests := []struct {
		kind  gesture.ActionKind
		count int
	}{
		{gesture.ActionDoubleClick, 2},
		{gesture.ActionTripleClick, 3},
		{gesture.ActionQuadClick, 4},
	}

	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			m, c := newTestMouse()
			require.NoError(t, m.Handle(gesture.Action{Kind: tc.kind}, 0))
			runTrain(t, m, 0, 500)

			edges := buttonEdges(c.Reports())
			presses := 0
			for _, b := range edges {
				if b == gesture.ButtonLeft {
					presses++
				}
			}
			assert.Equal(t, tc.count, presses)
			assert.Equal(t, uint8(0), edges[len(edges)-1])
			assert.Zero(t, m.PendingClicks())
		})
	}
}

func TestClickGapTiming(t *testing.T) {
	m, c := newTestMouse()
	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionDoubleClick}, 0))

	require.NoError(t, m.Service(0))  // press
	require.NoError(t, m.Service(10)) // release
	require.NoError(t, m.Service(30)) // still in gap
	assert.Len(t, c.Reports(), 2)
	require.NoError(t, m.Service(40)) // second press
	assert.Len(t, c.Reports(), 3)
	assert.Equal(t, gesture.ButtonLeft, c.Reports()[2].Buttons)
}

func TestDragHoldsButton(t *testing.T) {
	m, c := newTestMouse()

	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionDragStart, Buttons: gesture.ButtonLeft}, 0))
	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionDragMove, DX: 3, DY: 4, Buttons: gesture.ButtonLeft}, 10))
	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionMove, DX: 1}, 20))
	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionDragEnd}, 30))

	assert.Equal(t, []Report{
		{Buttons: 0x01},
		{Buttons: 0x01, X: 3, Y: 4},
		{Buttons: 0x01, X: 1},
		{Buttons: 0x00},
	}, c.Reports())
}

func TestScrollReports(t *testing.T) {
	m, c := newTestMouse()

	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionScrollV, Scroll: -2}, 0))
	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionScrollH, Scroll: 1}, 0))

	assert.Equal(t, []Report{{Wheel: -2}, {Pan: 1}}, c.Reports())
}

func TestIndicatorActionsWriteNothing(t *testing.T) {
	m, c := newTestMouse()

	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionShowDragIndicator}, 0))
	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionHideDragIndicator}, 0))
	require.NoError(t, m.Handle(gesture.Action{}, 0))
	assert.Empty(t, c.Reports())
}

func TestReleaseAll(t *testing.T) {
	m, c := newTestMouse()

	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionDragStart}, 0))
	require.NoError(t, m.Handle(gesture.Action{Kind: gesture.ActionTripleClick}, 0))
	require.NoError(t, m.ReleaseAll())

	assert.Zero(t, m.Buttons())
	assert.Zero(t, m.PendingClicks())
	reports := c.Reports()
	assert.Equal(t, Report{}, reports[len(reports)-1])

	runTrain(t, m, 0, 200)
	assert.Len(t, c.Reports(), len(reports))
}

func TestWriteErrorsAreWrapped(t *testing.T) {
	m, c := newTestMouse()
	c.FailWith(ErrNotReady)

	err := m.Handle(gesture.Action{Kind: gesture.ActionMove, DX: 1}, 0)
	assert.True(t, errors.Is(err, ErrNotReady))
}

func TestReportEncoding(t *testing.T) {
	r := Report{Buttons: 0x01, X: -1, Y: 127, Wheel: -127, Pan: 3}
	b, err := r.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0xff, 0x7f, 0x81, 0x03}, b)

	var got Report
	require.NoError(t, got.UnmarshalBinary(b))
	assert.Equal(t, r, got)
	assert.Error(t, got.UnmarshalBinary(b[:3]))
}
