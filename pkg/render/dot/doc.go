// Package dot renders laid-out flows as Graphviz node-link diagrams.
//
// The diagram is a debugging view: one box per step, solid arrows for
// continuations and dashed, labelled arrows into loop bodies and branch arms.
// It shows the structure the layout passes walked, not the canvas positions;
// see pkg/render/canvas for those.
//
//	src := dot.ToDOT(tree, dot.Options{Detailed: true})
//	svg, err := dot.RenderSVG(ctx, src)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering, so no Graphviz installation is needed.
package dot
