package pipeline

import (
	"context"

	"github.com/matzehuels/flowcanvas/pkg/layout"
	"github.com/matzehuels/flowcanvas/pkg/render/canvas"
	"github.com/matzehuels/flowcanvas/pkg/render/dot"
)

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, t *layout.Tree, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := renderFormat(ctx, t, format, opts)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func renderFormat(ctx context.Context, t *layout.Tree, format string, opts Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		return layout.MarshalDocument(t.Export())
	case FormatDOT:
		return []byte(dot.ToDOT(t, dot.Options{Detailed: opts.Detailed})), nil
	case FormatSVG:
		return dot.RenderSVG(ctx, dot.ToDOT(t, dot.Options{Detailed: opts.Detailed}))
	case FormatCanvas:
		var svgOpts []canvas.SVGOption
		if opts.Anchors {
			svgOpts = append(svgOpts, canvas.WithAnchors())
		}
		return canvas.RenderSVG(canvas.Place(t), svgOpts...), nil
	}
	return nil, ValidateFormat(format)
}
