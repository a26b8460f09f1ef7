package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowcanvas/pkg/layout"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds step type, connections and bounding heights to labels.
	// When false, only the step label is shown.
	Detailed bool
}

// ToDOT converts a laid-out tree to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Continuations are solid edges; loop bodies and branch arms are labelled
// edges so the nesting stays readable. Empty loop bodies and branch arms are
// drawn as dashed placeholder nodes.
func ToDOT(t *layout.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	var edges []string
	layout.Walk(t.Root, func(n layout.Node) bool {
		b := n.Common()
		fmt.Fprintf(&buf, "  %q [%s];\n", b.Name, strings.Join(fmtAttrs(n, opts.Detailed), ", "))

		switch n := n.(type) {
		case *layout.LoopAction:
			edges = appendNested(&buf, edges, b.Name, n.FirstLoopAction, "loop")
		case *layout.BranchAction:
			edges = appendNested(&buf, edges, b.Name, n.OnSuccessAction, "success")
			edges = appendNested(&buf, edges, b.Name, n.OnFailureAction, "failure")
		}
		if b.Next != nil {
			edges = append(edges, fmt.Sprintf("  %q -> %q;\n", b.Name, b.Next.Common().Name))
		}
		return true
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// appendNested records the edge from a container to a nested chain head, or
// writes a placeholder node when the chain is empty.
func appendNested(buf *bytes.Buffer, edges []string, from string, head layout.Node, label string) []string {
	to := from + "#" + label
	if head != nil {
		to = head.Common().Name
	} else {
		fmt.Fprintf(buf, "  %q [label=\"+\", style=\"rounded,dashed\", fontcolor=grey];\n", to)
	}
	return append(edges, fmt.Sprintf("  %q -> %q [label=%q, style=dashed];\n", from, to, label))
}

func fmtLabel(n layout.Node, detailed bool) string {
	b := n.Common()
	if !detailed {
		return b.Label()
	}

	parts := []string{
		fmt.Sprintf("type: %s", b.StepType),
		fmt.Sprintf("connections: %gx%g", b.ConnectionsBox.Width, b.ConnectionsBox.Height),
		fmt.Sprintf("bounding: %gx%g", b.BoundingBox.Width, b.BoundingBox.Height),
	}
	return b.Label() + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n layout.Node, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, detailed))}
	switch n.Kind() {
	case layout.KindTrigger:
		attrs = append(attrs, "fillcolor=lavender")
	case layout.KindLoop, layout.KindBranch:
		attrs = append(attrs, "shape=hexagon", "style=filled", "fillcolor=whitesmoke")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one whose
// width and height match the viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(header))
}
