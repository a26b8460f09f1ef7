package layout

import "github.com/matzehuels/flowcanvas/pkg/geometry"

// Kind identifies the structural shape of a render node.
type Kind string

// Node kinds.
const (
	KindTrigger Kind = "trigger"
	KindSimple  Kind = "simple"
	KindLoop    Kind = "loop"
	KindBranch  Kind = "branch"
)

// Node is a step in the render tree. It is implemented only by [*Trigger],
// [*SimpleAction], [*LoopAction] and [*BranchAction]; code that needs the
// variant should use a type switch over those four.
type Node interface {
	// Common returns the fields shared by every variant.
	Common() *Base
	// Kind returns the structural shape of the node.
	Kind() Kind

	isNode()
}

// Base holds identity and geometry shared by all node variants.
// Geometry fields are derived: ComputeBoxes and AssignOffsets overwrite them.
type Base struct {
	Name        string
	DisplayName string
	StepType    string // persisted discriminant, e.g. "CODE"

	Width  float64 // card width
	Height float64 // card height

	// Offset is relative to the parent's content origin.
	Offset geometry.Point

	BoundingBox    geometry.Size
	ConnectionsBox geometry.Size

	Next Node
}

// Common implements Node.
func (b *Base) Common() *Base { return b }

func (b *Base) isNode() {}

// Label returns the display name if set, otherwise the name.
func (b *Base) Label() string {
	if b.DisplayName != "" {
		return b.DisplayName
	}
	return b.Name
}

// Trigger is the root of every flow.
type Trigger struct{ Base }

// SimpleAction is a code or piece step with no nested chain.
type SimpleAction struct{ Base }

// LoopAction repeats FirstLoopAction's chain once per item.
type LoopAction struct {
	Base
	FirstLoopAction Node
}

// BranchAction owns two independent arms rendered side by side.
type BranchAction struct {
	Base
	OnSuccessAction Node
	OnFailureAction Node
}

// Kind implements Node.
func (*Trigger) Kind() Kind { return KindTrigger }

// Kind implements Node.
func (*SimpleAction) Kind() Kind { return KindSimple }

// Kind implements Node.
func (*LoopAction) Kind() Kind { return KindLoop }

// Kind implements Node.
func (*BranchAction) Kind() Kind { return KindBranch }

// Children returns the nested chain heads of n followed by its continuation,
// skipping absent links.
func Children(n Node) []Node {
	var out []Node
	switch n := n.(type) {
	case *LoopAction:
		out = appendPresent(out, n.FirstLoopAction)
	case *BranchAction:
		out = appendPresent(out, n.OnSuccessAction, n.OnFailureAction)
	}
	return appendPresent(out, n.Common().Next)
}

func appendPresent(out []Node, nodes ...Node) []Node {
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Walk visits n and every descendant depth-first, nested chains before the
// continuation. Returning false from fn skips the node's descendants.
func Walk(n Node, fn func(Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Find returns the node with the given name, or nil.
func Find(root Node, name string) Node {
	var found Node
	Walk(root, func(n Node) bool {
		if found != nil {
			return false
		}
		if n.Common().Name == name {
			found = n
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes reachable from n.
func Count(n Node) int {
	count := 0
	Walk(n, func(Node) bool {
		count++
		return true
	})
	return count
}
