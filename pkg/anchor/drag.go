package anchor

import (
	"sync"

	"github.com/matzehuels/flowcanvas/pkg/geometry"
)

// DragState is the transient state of one drag gesture.
type DragState struct {
	Dragged   string          `json:"dragged"`
	DropPoint *geometry.Point `json:"drop_point,omitempty"`
	Candidate *Anchor         `json:"candidate,omitempty"`
}

// Active reports whether a step is being dragged.
func (s DragState) Active() bool { return s.Dragged != "" }

// Dragger holds the in-flight drag gesture and resolves candidates as the
// pointer moves.
type Dragger struct {
	resolver *Resolver

	mu    sync.Mutex
	state DragState
}

// NewDragger creates a dragger resolving against res.
func NewDragger(res *Resolver) *Dragger {
	return &Dragger{resolver: res}
}

// SetDragPiece records the step being dragged and clears any previous
// candidate.
func (d *Dragger) SetDragPiece(step string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = DragState{Dragged: step}
}

// SetDropPoint records the pointer position for step and returns the
// resolved candidate, which is also kept as the current candidate. The
// lookup runs under the drag lock so a concurrent EndDrag either precedes
// the whole update or clears its result.
func (d *Dragger) SetDropPoint(p geometry.Point, step string) (Anchor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.resolver.Resolve(p, step)
	d.state.Dragged = step
	d.state.DropPoint = &p
	d.state.Candidate = nil
	if ok {
		d.state.Candidate = &a
	}
	return a, ok
}

// Candidate returns the current candidate anchor.
func (d *Dragger) Candidate() (Anchor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Candidate == nil {
		return Anchor{}, false
	}
	return *d.state.Candidate, true
}

// State returns a copy of the current drag state.
func (d *Dragger) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.copyState()
}

// EndDrag finishes the gesture and returns its final state.
func (d *Dragger) EndDrag() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.copyState()
	d.state = DragState{}
	return s
}

func (d *Dragger) copyState() DragState {
	s := d.state
	if s.DropPoint != nil {
		p := *s.DropPoint
		s.DropPoint = &p
	}
	if s.Candidate != nil {
		a := *s.Candidate
		s.Candidate = &a
	}
	return s
}
