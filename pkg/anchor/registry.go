// Package anchor tracks drag-and-drop insertion points and resolves which one
// a dropped step attaches to.
//
// The renderer owns anchor lifetimes: it registers an [Anchor] when an add
// button mounts and unregisters it when the button unmounts. The [Resolver]
// only reads snapshots, so registry mutation between resolve calls is fine.
//
//	reg := anchor.NewRegistry()
//	reg.Register(anchor.Anchor{StepName: "step_1", Kind: anchor.KindAfter, Rect: r})
//
//	res := anchor.NewResolver(reg, 250)
//	if a, ok := res.Resolve(drop, "step_4"); ok {
//	    // attach step_4 at a
//	}
//
// # Concurrency
//
// [Registry] and [Dragger] are safe for concurrent use.
package anchor

import (
	"fmt"
	"sync"

	"github.com/matzehuels/flowcanvas/pkg/geometry"
)

// Kind says where, relative to its step, an anchor inserts.
type Kind string

// Anchor kinds.
const (
	KindAfter         Kind = "after"          // below the step, on its chain
	KindLoopBody      Kind = "loop"           // head of a loop body
	KindBranchSuccess Kind = "branch-success" // head of a branch's success arm
	KindBranchFailure Kind = "branch-failure" // head of a branch's failure arm
)

// ParseKind validates an anchor kind string.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAfter, KindLoopBody, KindBranchSuccess, KindBranchFailure:
		return k, nil
	}
	return "", fmt.Errorf("unknown anchor kind %q", s)
}

// Anchor is a named insertion point and its current on-screen rectangle.
type Anchor struct {
	StepName string        `json:"step_name"`
	Kind     Kind          `json:"kind"`
	Rect     geometry.Rect `json:"rect"`
}

// Key identifies an anchor within a registry.
type Key struct {
	StepName string
	Kind     Kind
}

// Key returns the registry key of a.
func (a Anchor) Key() Key {
	return Key{StepName: a.StepName, Kind: a.Kind}
}

// Registry is the set of anchors currently mounted by the renderer, kept in
// registration order.
type Registry struct {
	mu      sync.RWMutex
	anchors []Anchor
	index   map[Key]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[Key]int)}
}

// Register adds a. Registering a key that is already present updates its
// rectangle and keeps its original position in the order.
func (r *Registry) Register(a Anchor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[a.Key()]; ok {
		r.anchors[i] = a
		return
	}
	r.index[a.Key()] = len(r.anchors)
	r.anchors = append(r.anchors, a)
}

// Unregister removes the anchor with the given key. It reports whether an
// anchor was removed.
func (r *Registry) Unregister(k Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[k]
	if !ok {
		return false
	}
	r.anchors = append(r.anchors[:i], r.anchors[i+1:]...)
	delete(r.index, k)
	for j := i; j < len(r.anchors); j++ {
		r.index[r.anchors[j].Key()] = j
	}
	return true
}

// Snapshot returns a copy of the registered anchors in registration order.
func (r *Registry) Snapshot() []Anchor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Anchor, len(r.anchors))
	copy(out, r.anchors)
	return out
}

// Len returns the number of registered anchors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.anchors)
}

// Reset removes every anchor, as when the renderer tears down the canvas.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anchors = nil
	r.index = make(map[Key]int)
}

// Replace swaps the whole registry for anchors in one step, as when the
// renderer remounts a new layout. Readers see either the old set or the new
// one, never a mix. Duplicate keys behave as in Register.
func (r *Registry) Replace(anchors []Anchor) {
	next := make([]Anchor, 0, len(anchors))
	index := make(map[Key]int, len(anchors))
	for _, a := range anchors {
		if i, ok := index[a.Key()]; ok {
			next[i] = a
			continue
		}
		index[a.Key()] = len(next)
		next = append(next, a)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.anchors = next
	r.index = index
}
