package cache

import "github.com/matzehuels/flowcanvas/pkg/geometry"

// ScopedKeyer wraps a Keyer with a prefix, giving several servers or
// workspaces separate namespaces in a shared backend.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "workspace:acme:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(flowHash string, g geometry.Geometry) string {
	return k.prefix + k.inner.LayoutKey(flowHash, g)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
