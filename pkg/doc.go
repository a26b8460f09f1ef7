// Package pkg provides the core libraries for flowcanvas, the layout engine
// behind a visual automation-flow editor.
//
// # Overview
//
// A flow is a trigger followed by a chain of actions; loops own a body chain
// and branches own a success and a failure chain. flowcanvas turns a stored
// flow into a render tree annotated with the geometry an editor needs: card
// sizes, the boxes each subtree occupies, the offset of each card from the
// one it follows, and the drop targets for drag-and-drop insertion.
//
//  1. [flow] - persisted flow model and its JSON/YAML codecs
//  2. [geometry] - layout constants and shapes
//  3. [layout] - render tree construction, box sizing, offsets, depth
//  4. [anchor] - anchor registry and drop-point resolution
//  5. [notify] - latest-value stream used to publish trees
//  6. [pipeline] - orchestration (parse → layout → publish → render)
//  7. [render] - canvas placement, Graphviz output
//  8. [cache], [config], [observability], [errors], [server] - infrastructure
//
// # Architecture
//
//	flow JSON/YAML
//	      ↓
//	[layout.Build]          typed node tree, default card sizes
//	      ↓
//	[layout.ComputeBoxes]   connections and bounding boxes, bottom-up
//	      ↓
//	[layout.AssignOffsets]  offsets relative to the preceding card
//	      ↓
//	[pipeline.Runner]       cache, publish to subscribers
//	      ↓
//	[render/canvas]         absolute placement + anchors → [anchor.Registry]
//
// # Quick Start
//
//	fl, err := flow.ReadFile("flow.yaml")
//	if err != nil {
//	    return err
//	}
//	tree, err := layout.Compute(fl, geometry.Default())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(tree.Size(), tree.BranchDepth())
package pkg
