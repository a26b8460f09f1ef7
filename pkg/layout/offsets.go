package layout

import "github.com/matzehuels/flowcanvas/pkg/geometry"

// AssignOffsets sets every node's offset relative to its parent's content
// origin. The root gets (0,0); a continuation sits directly below its
// predecessor's connections box; nested chain heads get (0,0) within their
// container, which the renderer positions from the connections box.
//
// The tree must already have gone through ComputeBoxes.
func AssignOffsets(root Node, g geometry.Geometry) {
	if root == nil {
		return
	}
	if root.Common().ConnectionsBox.Height == 0 {
		panic("layout: AssignOffsets called before ComputeBoxes")
	}
	assignChain(root, geometry.Point{}, g)
}

func assignChain(n Node, origin geometry.Point, g geometry.Geometry) {
	for n != nil {
		b := n.Common()
		b.Offset = origin

		switch n := n.(type) {
		case *LoopAction:
			assignChain(n.FirstLoopAction, geometry.Point{}, g)
		case *BranchAction:
			assignChain(n.OnSuccessAction, geometry.Point{}, g)
			assignChain(n.OnFailureAction, geometry.Point{}, g)
		}

		origin = geometry.Point{X: 0, Y: b.ConnectionsBox.Height + g.Spacing}
		n = b.Next
	}
}
