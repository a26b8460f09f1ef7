// Package geometry holds the layout dimensions shared by the layout passes,
// the anchor resolver and the reference renderer.
//
// All values are in canvas units (CSS pixels in the editor). [Default] is the
// single source of truth; configuration files may override individual fields
// through the `[geometry]` table (see pkg/config).
package geometry

import (
	"math"

	"github.com/matzehuels/flowcanvas/pkg/errors"
)

// Default dimensions.
const (
	DefaultNodeWidth                    = 260.0
	DefaultNodeHeight                   = 70.0
	DefaultVerticalLine                 = 60.0
	DefaultEntrySegment                 = DefaultNodeHeight + DefaultVerticalLine
	DefaultExitSegment                  = 60.0
	DefaultArcLength                    = 15.0
	DefaultSpacing                      = 7.0
	DefaultHorizontalSpacing            = 80.0
	DefaultAddButtonSize                = 25.0
	DefaultEmptyLoopPlaceholderHeight   = 80.0
	DefaultEmptyBranchPlaceholderHeight = 80.0
	DefaultAcceptanceRadius             = 250.0
)

// Geometry is the table of layout dimensions.
type Geometry struct {
	NodeWidth    float64 `json:"node_width" toml:"node_width"`
	NodeHeight   float64 `json:"node_height" toml:"node_height"`
	VerticalLine float64 `json:"vertical_line" toml:"vertical_line"`

	// EntrySegment covers a loop or branch card and the line into its body.
	EntrySegment float64 `json:"entry_segment" toml:"entry_segment"`
	// ExitSegment is the line from the end of a body back to the main chain.
	ExitSegment float64 `json:"exit_segment" toml:"exit_segment"`

	ArcLength         float64 `json:"arc_length" toml:"arc_length"`
	Spacing           float64 `json:"spacing" toml:"spacing"`
	HorizontalSpacing float64 `json:"horizontal_spacing" toml:"horizontal_spacing"`
	AddButtonSize     float64 `json:"add_button_size" toml:"add_button_size"`

	EmptyLoopPlaceholderHeight   float64 `json:"empty_loop_placeholder_height" toml:"empty_loop_placeholder_height"`
	EmptyBranchPlaceholderHeight float64 `json:"empty_branch_placeholder_height" toml:"empty_branch_placeholder_height"`

	AcceptanceRadius float64 `json:"acceptance_radius" toml:"acceptance_radius"`
}

// Default returns the standard geometry table.
func Default() Geometry {
	return Geometry{
		NodeWidth:                    DefaultNodeWidth,
		NodeHeight:                   DefaultNodeHeight,
		VerticalLine:                 DefaultVerticalLine,
		EntrySegment:                 DefaultEntrySegment,
		ExitSegment:                  DefaultExitSegment,
		ArcLength:                    DefaultArcLength,
		Spacing:                      DefaultSpacing,
		HorizontalSpacing:            DefaultHorizontalSpacing,
		AddButtonSize:                DefaultAddButtonSize,
		EmptyLoopPlaceholderHeight:   DefaultEmptyLoopPlaceholderHeight,
		EmptyBranchPlaceholderHeight: DefaultEmptyBranchPlaceholderHeight,
		AcceptanceRadius:             DefaultAcceptanceRadius,
	}
}

// StepHeight is the connections height of a trigger or simple action: the
// card plus the connector segment below it.
func (g Geometry) StepHeight() float64 {
	return g.NodeHeight + g.VerticalLine
}

// Validate checks that every dimension is finite and strictly positive.
// Spacing may be zero; the acceptance radius may be zero (exact hits only).
func (g Geometry) Validate() error {
	fields := []struct {
		name      string
		v         float64
		allowZero bool
	}{
		{"node_width", g.NodeWidth, false},
		{"node_height", g.NodeHeight, false},
		{"vertical_line", g.VerticalLine, false},
		{"entry_segment", g.EntrySegment, false},
		{"exit_segment", g.ExitSegment, false},
		{"arc_length", g.ArcLength, true},
		{"spacing", g.Spacing, true},
		{"horizontal_spacing", g.HorizontalSpacing, true},
		{"add_button_size", g.AddButtonSize, false},
		{"empty_loop_placeholder_height", g.EmptyLoopPlaceholderHeight, false},
		{"empty_branch_placeholder_height", g.EmptyBranchPlaceholderHeight, false},
		{"acceptance_radius", g.AcceptanceRadius, true},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errors.New(errors.ErrCodeInvalidGeometry, "%s must be finite", f.name)
		}
		if f.v < 0 || (f.v == 0 && !f.allowZero) {
			return errors.New(errors.ErrCodeInvalidGeometry, "%s must be positive, got %g", f.name, f.v)
		}
	}
	return nil
}
