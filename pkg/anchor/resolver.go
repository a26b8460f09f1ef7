package anchor

import "github.com/matzehuels/flowcanvas/pkg/geometry"

// Source supplies the anchors a resolver scans. *Registry implements it.
type Source interface {
	Snapshot() []Anchor
}

// Resolver finds the nearest eligible anchor to a drop point.
type Resolver struct {
	source Source
	radius float64
}

// NewResolver creates a resolver over src accepting anchors within radius.
func NewResolver(src Source, radius float64) *Resolver {
	return &Resolver{source: src, radius: radius}
}

// Radius returns the acceptance radius.
func (r *Resolver) Radius() float64 { return r.radius }

// Resolve returns the anchor closest to drop, measured to the centre of its
// rectangle, among anchors within the acceptance radius whose step is not
// dragged. Exact ties go to the anchor registered first. ok is false when no
// anchor qualifies.
func (r *Resolver) Resolve(drop geometry.Point, dragged string) (best Anchor, ok bool) {
	return Nearest(r.source.Snapshot(), drop, dragged, r.radius)
}

// Nearest is the resolver's scan over an explicit anchor list.
func Nearest(anchors []Anchor, drop geometry.Point, dragged string, radius float64) (best Anchor, ok bool) {
	bestDist := 0.0
	for _, a := range anchors {
		if a.StepName == dragged {
			continue
		}
		d := geometry.Distance(drop, a.Rect.Center())
		if d > radius {
			continue
		}
		if !ok || d < bestDist {
			best, bestDist, ok = a, d, true
		}
	}
	return best, ok
}
