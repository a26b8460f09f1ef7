package layout

import (
	"github.com/matzehuels/flowcanvas/pkg/flow"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
)

// Tree is a fully laid-out render tree. Trees are replaced, never patched:
// any structural edit goes back through Compute.
type Tree struct {
	FlowID    string
	VersionID string
	Revision  string // set by the publisher, identifies one computation
	Geometry  geometry.Geometry
	Root      Node
}

// Compute runs construct → boxes → offsets for the selected version of fl.
func Compute(fl *flow.Flow, g geometry.Geometry) (*Tree, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	root, err := Build(fl, g)
	if err != nil {
		return nil, err
	}
	ComputeBoxes(root, g)
	AssignOffsets(root, g)
	return &Tree{
		FlowID:    fl.ID,
		VersionID: fl.Version.ID,
		Geometry:  g,
		Root:      root,
	}, nil
}

// BranchDepth returns the branch nesting depth of the whole tree.
func (t *Tree) BranchDepth() int {
	return BranchDepth(t.Root)
}

// Find returns the node with the given name, or nil.
func (t *Tree) Find(name string) Node {
	return Find(t.Root, name)
}

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int {
	return Count(t.Root)
}

// Size returns the root's bounding box, the footprint of the whole flow.
func (t *Tree) Size() geometry.Size {
	if t.Root == nil {
		return geometry.Size{}
	}
	return t.Root.Common().BoundingBox
}
