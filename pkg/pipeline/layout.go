package pipeline

import (
	"github.com/google/uuid"

	"github.com/matzehuels/flowcanvas/pkg/cache"
	"github.com/matzehuels/flowcanvas/pkg/flow"
	"github.com/matzehuels/flowcanvas/pkg/layout"
)

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout computes a fresh tree for fl and stamps it with a new
// revision. It does not touch any cache.
func GenerateLayout(fl *flow.Flow, opts Options) (*layout.Tree, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	tree, err := layout.Compute(fl, opts.Geometry)
	if err != nil {
		return nil, err
	}
	tree.Revision = uuid.NewString()
	return tree, nil
}

// FlowHash is the content hash used in layout cache keys. Settings are
// part of the hash; they do not affect geometry, but a flow that differs in
// any byte is treated as a different flow.
func FlowHash(fl *flow.Flow) (string, error) {
	return cache.HashJSON(fl)
}

// decodeCachedTree turns cached layout document bytes back into a tree.
func decodeCachedTree(data []byte) (*layout.Tree, error) {
	doc, err := layout.UnmarshalDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.Parse()
}
