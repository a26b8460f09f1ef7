// Package canvas is the reference renderer for laid-out trees. It turns the
// relative offsets and boxes of a [layout.Tree] into absolute card rectangles
// and the add-button anchors an editor would mount.
//
// # Placement
//
// Each chain is centred on a vertical axis. The root axis is half the tree's
// bounding width, so every card lands inside [0, width]. A continuation sits
// at its predecessor's origin plus its offset. Loop bodies share the loop's
// axis and start below the entry segment and corner arc; branch arms sit side
// by side, centred on the branch, success on the left.
//
//	c := canvas.Place(tree)
//	c.Mount(registry)
//	svg := canvas.RenderSVG(c)
package canvas

import (
	"github.com/matzehuels/flowcanvas/pkg/anchor"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
	"github.com/matzehuels/flowcanvas/pkg/layout"
)

// Card is one step card at its absolute position.
type Card struct {
	Name  string        `json:"name"`
	Label string        `json:"label"`
	Kind  layout.Kind   `json:"kind"`
	Rect  geometry.Rect `json:"rect"`
}

// Placeholder is the dashed drop area drawn for an empty loop body or branch
// arm.
type Placeholder struct {
	StepName string        `json:"step_name"`
	Kind     anchor.Kind   `json:"kind"`
	Rect     geometry.Rect `json:"rect"`
}

// Canvas is a fully placed tree.
type Canvas struct {
	Size         geometry.Size     `json:"size"`
	Cards        []Card            `json:"cards"`
	Placeholders []Placeholder     `json:"placeholders,omitempty"`
	Anchors      []anchor.Anchor   `json:"anchors"`
	Geometry     geometry.Geometry `json:"-"`
}

// Place computes absolute positions for t. Cards are listed in walk order: a
// node, then its nested chains, then its continuation. Anchors follow the same
// walk except that a node's after-anchor comes once its nested chains are
// placed.
func Place(t *layout.Tree) *Canvas {
	c := &Canvas{Size: t.Size(), Geometry: t.Geometry}
	if t.Root == nil {
		return c
	}
	p := placer{g: t.Geometry, c: c}
	p.chain(t.Root, geometry.Point{X: c.Size.Width / 2})
	return c
}

// Card returns the card for the named step.
func (c *Canvas) Card(name string) (Card, bool) {
	for _, card := range c.Cards {
		if card.Name == name {
			return card, true
		}
	}
	return Card{}, false
}

// Mount registers every anchor with reg, in placement order.
func (c *Canvas) Mount(reg *anchor.Registry) {
	for _, a := range c.Anchors {
		reg.Register(a)
	}
}

// Remount replaces everything in reg with this canvas's anchors in a single
// step.
func (c *Canvas) Remount(reg *anchor.Registry) {
	reg.Replace(c.Anchors)
}

// Unmount removes this canvas's anchors from reg.
func (c *Canvas) Unmount(reg *anchor.Registry) {
	for _, a := range c.Anchors {
		reg.Unregister(a.Key())
	}
}

type placer struct {
	g geometry.Geometry
	c *Canvas
}

// chain places n and its continuations. top is the axis x and the top y of
// the chain head.
func (p *placer) chain(n layout.Node, top geometry.Point) {
	origin := top
	for n != nil {
		b := n.Common()
		origin = geometry.Point{X: origin.X + b.Offset.X, Y: origin.Y + b.Offset.Y}
		p.node(n, origin)
		n = b.Next
	}
}

func (p *placer) node(n layout.Node, at geometry.Point) {
	b := n.Common()
	p.c.Cards = append(p.c.Cards, Card{
		Name:  b.Name,
		Label: b.Label(),
		Kind:  n.Kind(),
		Rect:  geometry.Rect{X: at.X - b.Width/2, Y: at.Y, Width: b.Width, Height: b.Height},
	})

	bodyTop := at.Y + p.g.EntrySegment + p.g.ArcLength + p.g.Spacing
	switch n := n.(type) {
	case *layout.LoopAction:
		p.nested(b.Name, anchor.KindLoopBody, n.FirstLoopAction,
			geometry.Point{X: at.X, Y: bodyTop}, p.g.EmptyLoopPlaceholderHeight)

	case *layout.BranchAction:
		sw := p.armWidth(n.OnSuccessAction)
		fw := p.armWidth(n.OnFailureAction)
		left := at.X - (sw+fw+p.g.HorizontalSpacing)/2
		p.nested(b.Name, anchor.KindBranchSuccess, n.OnSuccessAction,
			geometry.Point{X: left + sw/2, Y: bodyTop}, p.g.EmptyBranchPlaceholderHeight)
		p.nested(b.Name, anchor.KindBranchFailure, n.OnFailureAction,
			geometry.Point{X: left + sw + p.g.HorizontalSpacing + fw/2, Y: bodyTop}, p.g.EmptyBranchPlaceholderHeight)
	}

	// The after-anchor sits on the connector leaving the node's connections
	// box: the plain line for cards, the exit segment for loops and branches.
	line := p.g.VerticalLine
	if n.Kind() == layout.KindLoop || n.Kind() == layout.KindBranch {
		line = p.g.ExitSegment
	}
	p.anchor(b.Name, anchor.KindAfter, geometry.Point{X: at.X, Y: at.Y + b.ConnectionsBox.Height - line/2})
}

// nested places a loop body or branch arm. An empty one gets a placeholder
// with its anchor in the middle; a present one gets its anchor just above the
// head card.
func (p *placer) nested(step string, kind anchor.Kind, head layout.Node, top geometry.Point, emptyHeight float64) {
	if head == nil {
		p.c.Placeholders = append(p.c.Placeholders, Placeholder{
			StepName: step,
			Kind:     kind,
			Rect:     geometry.Rect{X: top.X - p.g.NodeWidth/2, Y: top.Y, Width: p.g.NodeWidth, Height: emptyHeight},
		})
		p.anchor(step, kind, geometry.Point{X: top.X, Y: top.Y + emptyHeight/2})
		return
	}
	p.anchor(step, kind, geometry.Point{X: top.X, Y: top.Y - p.g.Spacing - p.g.AddButtonSize/2})
	p.chain(head, top)
}

func (p *placer) anchor(step string, kind anchor.Kind, center geometry.Point) {
	s := p.g.AddButtonSize
	p.c.Anchors = append(p.c.Anchors, anchor.Anchor{
		StepName: step,
		Kind:     kind,
		Rect:     geometry.Rect{X: center.X - s/2, Y: center.Y - s/2, Width: s, Height: s},
	})
}

func (p *placer) armWidth(n layout.Node) float64 {
	if n == nil {
		return p.g.NodeWidth
	}
	return n.Common().BoundingBox.Width
}
