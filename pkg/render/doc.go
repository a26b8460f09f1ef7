// Package render groups the renderers for laid-out flow trees.
//
// The layout engine itself stops at relative geometry; renderers decide
// where the tree lands on screen.
//
//   - [canvas] places every card at an absolute position, derives the
//     add-button anchors and draws a reference SVG.
//   - [dot] emits a Graphviz digraph of the tree and renders it to SVG for
//     debugging box sizes.
//
//	tree, _ := layout.Compute(fl, geometry.Default())
//	c := canvas.Place(tree)
//	svg := canvas.RenderSVG(c, canvas.WithAnchors())
//	src := dot.ToDOT(tree, dot.Options{Detailed: true})
package render
