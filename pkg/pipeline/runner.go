package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/cache"
	"github.com/matzehuels/flowcanvas/pkg/flow"
	"github.com/matzehuels/flowcanvas/pkg/layout"
	"github.com/matzehuels/flowcanvas/pkg/notify"
	"github.com/matzehuels/flowcanvas/pkg/observability"
)

// Runner encapsulates pipeline execution with caching and publishing.
//
// Layout and render calls are safe for concurrent use. The runner holds one
// piece of state besides the cache: the latest published tree, which
// [Runner.Update] replaces atomically.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL bounds layout entries in the cache; zero means cache.TTLLayout.
	TTL time.Duration

	trees notify.Latest[layout.Tree]
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute lays out fl, publishes the tree and renders opts.Formats.
func (r *Runner) Execute(ctx context.Context, fl *flow.Flow, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	opts.SetRenderDefaults()
	result := &Result{}

	layoutStart := time.Now()
	tree, hit, err := r.LayoutWithCacheInfo(ctx, fl, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	r.publish(ctx, tree)
	result.Tree = tree
	result.FlowHash, _ = FlowHash(fl)
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.NodeCount = tree.NodeCount()
	result.Stats.BranchDepth = tree.BranchDepth()
	result.CacheInfo.LayoutHit = hit

	r.Logger.Info("computed layout",
		"flow", fl.ID,
		"nodes", result.Stats.NodeCount,
		"size", fmt.Sprintf("%gx%g", tree.Size().Width, tree.Size().Height),
		"cached", hit,
		"duration", result.Stats.LayoutTime)

	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, tree, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LayoutWithCacheInfo returns the laid-out tree for fl, reading and filling
// the cache, and reports whether it came from the cache. Cache failures are
// logged and otherwise ignored: the layout is always computable.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, fl *flow.Flow, opts Options) (*layout.Tree, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}

	flowID := fl.ID
	start := time.Now()
	observability.Layout().OnLayoutStart(ctx, flowID)

	hash, err := FlowHash(fl)
	if err != nil {
		observability.Layout().OnLayoutComplete(ctx, flowID, 0, time.Since(start), err)
		return nil, false, err
	}
	cacheKey := r.Keyer.LayoutKey(hash, opts.Geometry)

	if !opts.Refresh {
		data, hit, err := r.Cache.Get(ctx, cacheKey)
		switch {
		case err != nil:
			r.Logger.Warn("layout cache read failed", "key", cacheKey, "error", err)
		case hit:
			if tree, err := decodeCachedTree(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				observability.Layout().OnLayoutComplete(ctx, flowID, tree.NodeCount(), time.Since(start), nil)
				return tree, true, nil
			}
			r.Logger.Debug("discarding undecodable cache entry", "key", cacheKey)
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	tree, err := GenerateLayout(fl, opts)
	if err != nil {
		observability.Layout().OnLayoutComplete(ctx, flowID, 0, time.Since(start), err)
		return nil, false, err
	}
	observability.Layout().OnLayoutComplete(ctx, flowID, tree.NodeCount(), time.Since(start), nil)

	if data, err := layout.MarshalDocument(tree.Export()); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.layoutTTL()); err != nil {
			r.Logger.Warn("layout cache write failed", "key", cacheKey, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}

	return tree, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, fl *flow.Flow, opts Options) (*layout.Tree, error) {
	tree, _, err := r.LayoutWithCacheInfo(ctx, fl, opts)
	return tree, err
}

// Update lays out fl and, on success, publishes the tree as the latest one.
// On failure nothing is published: subscribers keep the previous tree and
// the error is returned to the caller.
func (r *Runner) Update(ctx context.Context, fl *flow.Flow, opts Options) (*layout.Tree, error) {
	tree, err := r.Layout(ctx, fl, opts)
	if err != nil {
		r.Logger.Warn("layout failed, keeping previous tree", "flow", fl.ID, "error", err)
		return nil, err
	}
	r.publish(ctx, tree)
	return tree, nil
}

func (r *Runner) publish(ctx context.Context, tree *layout.Tree) {
	r.trees.Publish(tree)
	observability.Layout().OnPublish(ctx, tree.FlowID, tree.Revision)
	r.Logger.Debug("published layout", "flow", tree.FlowID, "revision", tree.Revision)
}

// Latest returns the most recently published tree, or nil.
// Callers must treat the tree as read-only.
func (r *Runner) Latest() *layout.Tree {
	return r.trees.Load()
}

// Subscribe returns a channel that receives each newly published tree. A
// slow subscriber only ever sees the newest tree. The channel closes when
// cancel is called or the runner is closed.
func (r *Runner) Subscribe() (<-chan *layout.Tree, func()) {
	return r.trees.Subscribe()
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, tree *layout.Tree, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	// The document, including its revision, identifies the artifact. A
	// recomputed tree gets a new revision and therefore fresh artifacts.
	docData, err := layout.MarshalDocument(tree.Export())
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(docData)

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil || !hit {
			break
		}
		artifacts[format] = data
	}
	if len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	rendered := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		start := time.Now()
		observability.Layout().OnRenderStart(ctx, format)
		data, err := renderFormat(ctx, tree, format, opts)
		observability.Layout().OnRenderComplete(ctx, format, time.Since(start), err)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", format, err)
		}
		rendered[format] = data

		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, tree *layout.Tree, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, tree, opts)
	return artifacts, err
}

// Close ends the publish stream and releases the cache.
func (r *Runner) Close() error {
	r.trees.Close()
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) layoutTTL() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return cache.TTLLayout
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
