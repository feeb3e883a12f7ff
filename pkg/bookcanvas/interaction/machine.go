// Package interaction implements the pointer state machines for dragging
// cards and groups and for resizing groups. A Machine belongs to one entity;
// it never looks at other entities.
package interaction

import "fmt"

// State of a Machine.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Region is the part of an element a pointer-down landed on.
type Region int

const (
	// RegionSurface is the draggable body of the element.
	RegionSurface Region = iota
	// RegionControl is an embedded menu or button; it never starts a gesture.
	RegionControl
	// RegionResizeHandle is the bottom-right corner of a group.
	RegionResizeHandle
)

// ParseRegion maps the wire names onto regions.
func ParseRegion(s string) (Region, error) {
	switch s {
	case "", "surface":
		return RegionSurface, nil
	case "control":
		return RegionControl, nil
	case "resize", "resize-handle":
		return RegionResizeHandle, nil
	default:
		return 0, fmt.Errorf("unknown region %q", s)
	}
}

// Outcome is what a finished gesture changed.
type Outcome struct {
	Moved    bool
	Resized  bool
	Position Point
	Size     Size
}

// Machine tracks one element's drag/resize gesture.
type Machine struct {
	state     State
	offset    Point // pointer minus top-left, fixed at drag start
	origin    Point // top-left, fixed at resize start
	position  Point
	size      Size
	resizable bool
	readOnly  bool
}

// NewDraggable returns a machine for an element that can only be moved.
func NewDraggable(position Point, readOnly bool) *Machine {
	return &Machine{position: position, readOnly: readOnly}
}

// NewResizable returns a machine for a group container.
func NewResizable(position Point, size Size, readOnly bool) *Machine {
	return &Machine{position: position, size: size, resizable: true, readOnly: readOnly}
}

func (m *Machine) State() State    { return m.state }
func (m *Machine) Position() Point { return m.position }
func (m *Machine) Size() Size      { return m.size }

// Down starts a gesture and reports whether one started. Nothing starts in
// read-only mode, on a control region, or while a gesture is already active.
func (m *Machine) Down(region Region, pointer Point) bool {
	if m.readOnly || m.state != Idle {
		return false
	}
	switch region {
	case RegionSurface:
		m.offset = pointer.Sub(m.position)
		m.state = Dragging
		return true
	case RegionResizeHandle:
		if !m.resizable {
			return false
		}
		m.origin = m.position
		m.state = Resizing
		return true
	default:
		return false
	}
}

// Move updates the live geometry. It reports whether anything changed.
func (m *Machine) Move(pointer Point) bool {
	switch m.state {
	case Dragging:
		m.position = pointer.Sub(m.offset)
		return true
	case Resizing:
		rel := pointer.Sub(m.origin)
		m.size = ClampSize(Size{Width: rel.X, Height: rel.Y})
		return true
	default:
		return false
	}
}

// Up ends the active gesture at pointer. The second result is false when no
// gesture was active, in which case nothing changes.
func (m *Machine) Up(pointer Point) (Outcome, bool) {
	if m.state == Idle {
		return Outcome{}, false
	}
	m.Move(pointer)

	out := Outcome{Position: m.position, Size: m.size}
	switch m.state {
	case Dragging:
		out.Moved = true
	case Resizing:
		out.Resized = true
	}
	m.state = Idle
	return out, true
}

// Cancel drops the active gesture, keeping the live geometry.
func (m *Machine) Cancel() {
	m.state = Idle
}
