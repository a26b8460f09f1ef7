// Package pipeline runs the flowcanvas layout pipeline: decode a flow,
// build and lay out its render tree, publish the result, and render
// artifacts from it.
//
// The CLI, the HTTP server and the drag TUI all go through a [Runner], so
// caching, logging and observability behave the same everywhere.
//
// # Stages
//
//  1. Parse: decode a flow from JSON or YAML and validate it
//  2. Layout: Build → ComputeBoxes → AssignOffsets, cached by flow content
//     and geometry
//  3. Publish: replace the latest tree on the runner's notification channel
//  4. Render: layout JSON, Graphviz DOT/SVG, or the canvas reference SVG
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	defer runner.Close()
//
//	tree, err := runner.Update(ctx, fl, pipeline.Options{})
//	if err != nil {
//	    // the previously published tree is still current
//	}
//	artifacts, err := runner.Render(ctx, tree, pipeline.Options{Formats: []string{"svg"}})
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/cache"
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
	"github.com/matzehuels/flowcanvas/pkg/layout"
)

// Format constants for output formats.
const (
	FormatJSON   = "json"   // layout document
	FormatDOT    = "dot"    // Graphviz source
	FormatSVG    = "svg"    // Graphviz-rendered SVG
	FormatCanvas = "canvas" // canvas reference SVG with absolute placement
)

// ValidFormats lists the supported output formats in display order.
var ValidFormats = []string{FormatJSON, FormatDOT, FormatSVG, FormatCanvas}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one pipeline run. The zero value lays out with the
// default geometry and renders the layout document.
type Options struct {
	// Layout options
	Geometry geometry.Geometry `json:"geometry"`
	Refresh  bool              `json:"refresh,omitempty"` // bypass cache reads

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // box sizes in DOT labels
	Anchors  bool     `json:"anchors,omitempty"`  // draw anchors in canvas SVG

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Tree      *layout.Tree
	FlowHash  string
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount   int
	BranchDepth int
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !slices.Contains(ValidFormats, format) {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)",
			format, strings.Join(ValidFormats, ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// SetLayoutDefaults fills an unset geometry and logger.
func (o *Options) SetLayoutDefaults() {
	if o.Geometry == (geometry.Geometry{}) {
		o.Geometry = geometry.Default()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout sets layout defaults and validates the geometry.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	return o.Geometry.Validate()
}

// SetRenderDefaults renders the layout document when no format is named.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender sets render defaults and validates the formats.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	switch format {
	case FormatDOT, FormatSVG:
		opts.Detailed = o.Detailed
	case FormatCanvas:
		opts.Anchors = o.Anchors
	}
	return opts
}
