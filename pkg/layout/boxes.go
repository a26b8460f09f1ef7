package layout

import (
	"fmt"

	"github.com/matzehuels/flowcanvas/pkg/geometry"
)

// ComputeBoxes fills ConnectionsBox and BoundingBox for n and everything
// reachable from it.
//
// Order per node: nested chains, own connections box, continuation, then
// BoundingBox.Height = ConnectionsBox.Height + Spacing + Next.BoundingBox.Height
// (the last two terms only when Next is present). Nothing is memoized; call
// it again after any structural change.
func ComputeBoxes(n Node, g geometry.Geometry) {
	if n == nil {
		return
	}
	b := n.Common()

	switch n := n.(type) {
	case *Trigger, *SimpleAction:
		b.ConnectionsBox = geometry.Size{Width: g.NodeWidth, Height: g.StepHeight()}

	case *LoopAction:
		ComputeBoxes(n.FirstLoopAction, g)
		body := geometry.Size{Width: g.NodeWidth, Height: g.EmptyLoopPlaceholderHeight}
		if n.FirstLoopAction != nil {
			body = n.FirstLoopAction.Common().BoundingBox
		}
		b.ConnectionsBox = geometry.Size{
			Width:  max(g.NodeWidth, body.Width+2*g.HorizontalSpacing),
			Height: nestedFrame(g) + body.Height,
		}

	case *BranchAction:
		ComputeBoxes(n.OnSuccessAction, g)
		ComputeBoxes(n.OnFailureAction, g)
		success := armSize(n.OnSuccessAction, g)
		failure := armSize(n.OnFailureAction, g)
		// Arms sit side by side: the taller one sets the height.
		nested := max(success.Height, failure.Height, g.EmptyBranchPlaceholderHeight)
		b.ConnectionsBox = geometry.Size{
			Width:  max(g.NodeWidth, success.Width+failure.Width+g.HorizontalSpacing),
			Height: nestedFrame(g) + nested,
		}

	default:
		panic(fmt.Sprintf("layout: unknown node type %T", n))
	}

	ComputeBoxes(b.Next, g)
	b.BoundingBox = b.ConnectionsBox
	if b.Next != nil {
		next := b.Next.Common().BoundingBox
		b.BoundingBox.Height += g.Spacing + next.Height
		b.BoundingBox.Width = max(b.BoundingBox.Width, next.Width)
	}
}

// nestedFrame is the connector height a loop or branch adds around its body.
func nestedFrame(g geometry.Geometry) float64 {
	return g.EntrySegment + 2*g.ArcLength + g.ExitSegment + 2*g.Spacing
}

// armSize is the footprint of a branch arm; an empty arm still reserves a
// card's width for its add button and zero height.
func armSize(n Node, g geometry.Geometry) geometry.Size {
	if n == nil {
		return geometry.Size{Width: g.NodeWidth}
	}
	return n.Common().BoundingBox
}
