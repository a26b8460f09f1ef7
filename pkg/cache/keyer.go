package cache

import "github.com/matzehuels/flowcanvas/pkg/geometry"

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey identifies the layout document of a flow under a geometry.
	LayoutKey(flowHash string, g geometry.Geometry) string
	// ArtifactKey identifies a rendered artifact of a layout document.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the render options that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
	Anchors  bool   `json:"anchors,omitempty"`
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey hashes the flow hash with every geometry field, so changing any
// dimension yields a new key.
func (DefaultKeyer) LayoutKey(flowHash string, g geometry.Geometry) string {
	return hashKey("layout", flowHash, g)
}

// ArtifactKey hashes the layout hash with the render options.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact:"+opts.Format, layoutHash, opts)
}
