package gesture

import "fmt"

// ButtonLeft is the button bit carried in Action.Buttons. Taps only ever
// press the left button.
const ButtonLeft uint8 = 0x01

// ActionKind identifies what an Action asks the HID layer to do.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionMove
	ActionClick
	ActionDoubleClick
	ActionTripleClick
	ActionQuadClick
	ActionDragStart
	ActionDragMove
	ActionDragEnd
	ActionScrollV
	ActionScrollH
	ActionShowDragIndicator
	ActionHideDragIndicator
)

var actionNames = [...]string{
	ActionNone:              "none",
	ActionMove:              "move",
	ActionClick:             "click",
	ActionDoubleClick:       "double_click",
	ActionTripleClick:       "triple_click",
	ActionQuadClick:         "quad_click",
	ActionDragStart:         "drag_start",
	ActionDragMove:          "drag_move",
	ActionDragEnd:           "drag_end",
	ActionScrollV:           "scroll_v",
	ActionScrollH:           "scroll_h",
	ActionShowDragIndicator: "show_drag_indicator",
	ActionHideDragIndicator: "hide_drag_indicator",
}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return "unknown"
}

// ParseActionKind is the inverse of ActionKind.String.
func ParseActionKind(s string) (ActionKind, bool) {
	for k, name := range actionNames {
		if name == s {
			return ActionKind(k), true
		}
	}
	return ActionNone, false
}

// IsClick reports whether k is one of the click kinds.
func (k ActionKind) IsClick() bool {
	return k >= ActionClick && k <= ActionQuadClick
}

// ClickCount returns how many press/release pulses a click kind stands
// for, or 0 for non-click kinds.
func (k ActionKind) ClickCount() int {
	if !k.IsClick() {
		return 0
	}
	return int(k-ActionClick) + 1
}

// Action is the single output of one engine call.
//
// DX and DY are post-acceleration pixel deltas (Move, DragMove). Scroll
// holds wheel units (ScrollV, ScrollH). Buttons is the button mask the
// action implies.
type Action struct {
	Kind    ActionKind
	DX      int16
	DY      int16
	Scroll  int8
	Buttons uint8
}

// None reports whether a carries no action.
func (a Action) None() bool {
	return a.Kind == ActionNone
}

func (a Action) String() string {
	switch a.Kind {
	case ActionMove, ActionDragMove:
		return fmt.Sprintf("%s(%d,%d)", a.Kind, a.DX, a.DY)
	case ActionScrollV, ActionScrollH:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Scroll)
	default:
		return a.Kind.String()
	}
}

// clickAction converts a flushed tap chain into its click action.
func clickAction(r TapResult) Action {
	switch r {
	case TapSingle:
		return Action{Kind: ActionClick, Buttons: ButtonLeft}
	case TapDouble:
		return Action{Kind: ActionDoubleClick, Buttons: ButtonLeft}
	case TapTriple:
		return Action{Kind: ActionTripleClick, Buttons: ButtonLeft}
	case TapQuadruple:
		return Action{Kind: ActionQuadClick, Buttons: ButtonLeft}
	default:
		return Action{}
	}
}
