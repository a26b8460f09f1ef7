package canvas

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/flowcanvas/pkg/anchor"
)

const canvasCSS = `
    .card { fill: #ffffff; stroke: #3f3f46; stroke-width: 1.5; }
    .card.trigger { stroke: #7c3aed; }
    .card-text { font: 14px sans-serif; fill: #18181b; }
    .placeholder { fill: none; stroke: #a1a1aa; stroke-dasharray: 6 4; }
    .anchor { fill: #e4e4e7; stroke: #71717a; }
    .anchor.candidate { fill: #7c3aed; stroke: #5b21b6; }`

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	anchors   bool
	candidate *anchor.Key
}

// WithAnchors draws the add-button anchors.
func WithAnchors() SVGOption { return func(r *svgRenderer) { r.anchors = true } }

// WithCandidate highlights the anchor a drop would attach to. It implies
// WithAnchors.
func WithCandidate(a anchor.Anchor) SVGOption {
	return func(r *svgRenderer) {
		k := a.Key()
		r.anchors = true
		r.candidate = &k
	}
}

// RenderSVG draws c as a standalone SVG document.
func RenderSVG(c *Canvas, opts ...SVGOption) []byte {
	var r svgRenderer
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		c.Size.Width, c.Size.Height, c.Size.Width, c.Size.Height)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", canvasCSS)

	for _, p := range c.Placeholders {
		fmt.Fprintf(&buf, `  <rect class="placeholder" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="8"/>`+"\n",
			p.Rect.X, p.Rect.Y, p.Rect.Width, p.Rect.Height)
	}
	for _, card := range c.Cards {
		fmt.Fprintf(&buf, `  <rect id="card-%s" class="card %s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="6"/>`+"\n",
			html.EscapeString(card.Name), card.Kind, card.Rect.X, card.Rect.Y, card.Rect.Width, card.Rect.Height)
		center := card.Rect.Center()
		fmt.Fprintf(&buf, `  <text class="card-text" x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
			center.X, center.Y, html.EscapeString(card.Label))
	}
	if r.anchors {
		for _, a := range c.Anchors {
			class := "anchor"
			if r.candidate != nil && *r.candidate == a.Key() {
				class += " candidate"
			}
			fmt.Fprintf(&buf, `  <rect class="%s" data-step="%s" data-kind="%s" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="4"/>`+"\n",
				class, html.EscapeString(a.StepName), a.Kind, a.Rect.X, a.Rect.Y, a.Rect.Width, a.Rect.Height)
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}
