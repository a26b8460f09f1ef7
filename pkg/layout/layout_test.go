package layout

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/flow"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
)

// =============================================================================
// Fixtures
// =============================================================================

func step(name, typ string) *flow.Step {
	return &flow.Step{Name: name, DisplayName: "Step " + name, Type: typ}
}

// chain links steps through NextAction and returns the head.
func chain(steps ...*flow.Step) *flow.Step {
	for i := 0; i < len(steps)-1; i++ {
		steps[i].NextAction = steps[i+1]
	}
	if len(steps) == 0 {
		return nil
	}
	return steps[0]
}

// codeChain returns n CODE steps named prefix_0..prefix_n-1.
func codeChain(prefix string, n int) *flow.Step {
	steps := make([]*flow.Step, n)
	for i := range steps {
		steps[i] = step(fmt.Sprintf("%s_%d", prefix, i), flow.TypeCode)
	}
	return chain(steps...)
}

func newFlow(trigger *flow.Step) *flow.Flow {
	return &flow.Flow{ID: "flow", Version: flow.Version{ID: "v1", Trigger: trigger}}
}

func mustCompute(t *testing.T, fl *flow.Flow) *Tree {
	t.Helper()
	tree, err := Compute(fl, geometry.Default())
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	return tree
}

// chainHeight is the bounding height of n simple steps with default geometry.
func chainHeight(n int) float64 {
	g := geometry.Default()
	if n == 0 {
		return 0
	}
	return float64(n)*g.StepHeight() + float64(n-1)*g.Spacing
}

// scenarioFlow is Trigger → A → B(success: C) → D.
func scenarioFlow() *flow.Flow {
	b := step("B", flow.TypeBranch)
	b.OnSuccessAction = step("C", flow.TypeCode)
	return newFlow(chain(
		step("trigger", flow.TypeWebhook),
		step("A", flow.TypePiece),
		b,
		step("D", flow.TypeCode),
	))
}

// =============================================================================
// Build
// =============================================================================

func TestBuildVariants(t *testing.T) {
	loop := step("loop", flow.TypeLoopOnItems)
	loop.FirstLoopAction = step("body", flow.TypeCode)
	branch := step("branch", flow.TypeBranch)
	branch.OnSuccessAction = step("yes", flow.TypePiece)
	branch.OnFailureAction = step("no", flow.TypeCode)
	fl := newFlow(chain(step("trigger", flow.TypeSchedule), loop, branch))

	g := geometry.Default()
	root, err := Build(fl, g)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := map[string]Kind{
		"trigger": KindTrigger,
		"loop":    KindLoop,
		"body":    KindSimple,
		"branch":  KindBranch,
		"yes":     KindSimple,
		"no":      KindSimple,
	}
	if got := Count(root); got != len(want) {
		t.Fatalf("Count() = %d, want %d", got, len(want))
	}
	for name, kind := range want {
		n := Find(root, name)
		if n == nil {
			t.Fatalf("Find(%q) = nil", name)
		}
		if n.Kind() != kind {
			t.Errorf("%s kind = %v, want %v", name, n.Kind(), kind)
		}
		b := n.Common()
		if b.Width != g.NodeWidth || b.Height != g.NodeHeight {
			t.Errorf("%s card = %vx%v, want defaults", name, b.Width, b.Height)
		}
		if b.BoundingBox != (geometry.Size{}) || b.ConnectionsBox != (geometry.Size{}) {
			t.Errorf("%s boxes should start zeroed", name)
		}
	}
	if Find(root, "loop").(*LoopAction).FirstLoopAction.Common().Name != "body" {
		t.Error("loop body not linked")
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	fl := scenarioFlow()
	before, _ := flow.Marshal(fl)
	if _, err := Build(fl, geometry.Default()); err != nil {
		t.Fatal(err)
	}
	after, _ := flow.Marshal(fl)
	if string(before) != string(after) {
		t.Error("Build() modified the persisted flow")
	}
}

func TestBuildErrors(t *testing.T) {
	deep := step("B", flow.TypeBranch)
	deep.OnFailureAction = chain(step("x", flow.TypeCode), step("y", "DELAY"))

	nestedTrigger := step("loop", flow.TypeLoopOnItems)
	nestedTrigger.FirstLoopAction = step("inner", flow.TypeWebhook)

	tests := []struct {
		name string
		fl   *flow.Flow
		code errors.Code
	}{
		{"nil flow", nil, errors.ErrCodeInvalidFlow},
		{"no trigger", newFlow(nil), errors.ErrCodeInvalidFlow},
		{"unknown root", newFlow(step("t", "MAGIC")), errors.ErrCodeUnsupportedStepType},
		{"action at root", newFlow(step("t", flow.TypeCode)), errors.ErrCodeUnsupportedStepType},
		{"unknown deep in arm", newFlow(chain(step("t", flow.TypeEmptyTrigger), deep)), errors.ErrCodeUnsupportedStepType},
		{"trigger below root", newFlow(chain(step("t", flow.TypeEmptyTrigger), nestedTrigger)), errors.ErrCodeUnsupportedStepType},
		{"duplicate", newFlow(chain(step("t", flow.TypeEmptyTrigger), step("a", flow.TypeCode), step("a", flow.TypeCode))), errors.ErrCodeDuplicateStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Build(tt.fl, geometry.Default())
			if err == nil {
				t.Fatal("Build() should fail")
			}
			if root != nil {
				t.Errorf("Build() returned a partial tree: %v", root)
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), tt.code)
			}
		})
	}
}

// =============================================================================
// Bounding boxes
// =============================================================================

func TestBoundingBoxInvariant(t *testing.T) {
	inner := step("inner", flow.TypeBranch)
	inner.OnSuccessAction = codeChain("s", 2)
	loop := step("loop", flow.TypeLoopOnItems)
	loop.FirstLoopAction = chain(step("l0", flow.TypeCode), inner)
	outer := step("outer", flow.TypeBranch)
	outer.OnFailureAction = loop
	emptyLoop := step("empty", flow.TypeLoopOnItems)
	fl := newFlow(chain(step("trigger", flow.TypeWebhook), outer, emptyLoop, step("end", flow.TypeCode)))

	tree := mustCompute(t, fl)
	g := tree.Geometry

	Walk(tree.Root, func(n Node) bool {
		b := n.Common()
		want := b.ConnectionsBox.Height
		if b.Next != nil {
			want += g.Spacing + b.Next.Common().BoundingBox.Height
		}
		if b.BoundingBox.Height != want {
			t.Errorf("%s: BoundingBox.Height = %v, want %v", b.Name, b.BoundingBox.Height, want)
		}
		if b.BoundingBox.Height < b.ConnectionsBox.Height {
			t.Errorf("%s: bounding box shorter than connections box", b.Name)
		}
		if b.BoundingBox.Width < b.ConnectionsBox.Width {
			t.Errorf("%s: bounding box narrower than connections box", b.Name)
		}
		return true
	})
}

func TestBranchMaxNotSum(t *testing.T) {
	g := geometry.Default()
	frame := g.EntrySegment + 2*g.ArcLength + g.ExitSegment + 2*g.Spacing

	tests := []struct {
		name         string
		success      int
		failure      int
		wantConnH    float64
		wantNestedBy string
	}{
		{"failure empty", 3, 0, frame + chainHeight(3), "success"},
		{"failure shorter", 3, 1, frame + chainHeight(3), "success"},
		{"failure just shorter", 3, 2, frame + chainHeight(3), "success"},
		{"failure taller", 3, 4, frame + chainHeight(4), "failure"},
		{"both empty", 0, 0, frame + g.EmptyBranchPlaceholderHeight, "placeholder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := step("B", flow.TypeBranch)
			if tt.success > 0 {
				b.OnSuccessAction = codeChain("s", tt.success)
			}
			if tt.failure > 0 {
				b.OnFailureAction = codeChain("f", tt.failure)
			}
			tree := mustCompute(t, newFlow(chain(step("t", flow.TypeEmptyTrigger), b)))

			got := tree.Find("B").Common().ConnectionsBox.Height
			if got != tt.wantConnH {
				t.Errorf("ConnectionsBox.Height = %v, want %v (driven by %s)", got, tt.wantConnH, tt.wantNestedBy)
			}
		})
	}
}

func TestBranchWidthSumsArms(t *testing.T) {
	g := geometry.Default()
	inner := step("inner", flow.TypeBranch)
	outer := step("outer", flow.TypeBranch)
	outer.OnSuccessAction = inner
	tree := mustCompute(t, newFlow(chain(step("t", flow.TypeEmptyTrigger), outer)))

	innerW := 2*g.NodeWidth + g.HorizontalSpacing
	if got := tree.Find("inner").Common().ConnectionsBox.Width; got != innerW {
		t.Errorf("inner width = %v, want %v", got, innerW)
	}
	if got, want := tree.Find("outer").Common().ConnectionsBox.Width, innerW+g.NodeWidth+g.HorizontalSpacing; got != want {
		t.Errorf("outer width = %v, want %v", got, want)
	}
	if got := tree.Size().Width; got != tree.Find("outer").Common().ConnectionsBox.Width {
		t.Errorf("tree width = %v, should follow the widest node", got)
	}
}

func TestLoopTracksBody(t *testing.T) {
	g := geometry.Default()
	frame := g.EntrySegment + 2*g.ArcLength + g.ExitSegment + 2*g.Spacing

	for n := 0; n <= 4; n++ {
		t.Run(fmt.Sprintf("body of %d", n), func(t *testing.T) {
			loop := step("loop", flow.TypeLoopOnItems)
			if n > 0 {
				loop.FirstLoopAction = codeChain("b", n)
			}
			tree := mustCompute(t, newFlow(chain(step("t", flow.TypeEmptyTrigger), loop)))

			want := frame + chainHeight(n)
			if n == 0 {
				want = frame + g.EmptyLoopPlaceholderHeight
			}
			if got := tree.Find("loop").Common().ConnectionsBox.Height; got != want {
				t.Errorf("ConnectionsBox.Height = %v, want %v", got, want)
			}
		})
	}
}

func TestEmptyPlaceholdersAreFinite(t *testing.T) {
	g := geometry.Default()
	loop := step("loop", flow.TypeLoopOnItems)
	branch := step("branch", flow.TypeBranch)
	tree := mustCompute(t, newFlow(chain(step("t", flow.TypeEmptyTrigger), loop, branch)))

	frame := g.EntrySegment + 2*g.ArcLength + g.ExitSegment + 2*g.Spacing
	if got := tree.Find("loop").Common().ConnectionsBox.Height; got != frame+g.EmptyLoopPlaceholderHeight {
		t.Errorf("empty loop height = %v", got)
	}
	if got := tree.Find("branch").Common().ConnectionsBox.Height; got != frame+g.EmptyBranchPlaceholderHeight {
		t.Errorf("empty branch height = %v", got)
	}
	if h := tree.Size().Height; h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		t.Errorf("tree height = %v, want finite positive", h)
	}
}

func TestEndToEndScenario(t *testing.T) {
	tree := mustCompute(t, scenarioFlow())
	g := tree.Geometry

	box := func(name string) *Base { return tree.Find(name).Common() }
	c, b, a, d, trig := box("C"), box("B"), box("A"), box("D"), box("trigger")

	if c.BoundingBox.Height != c.ConnectionsBox.Height {
		t.Errorf("leaf C: bounding %v != connections %v", c.BoundingBox.Height, c.ConnectionsBox.Height)
	}

	frame := g.EntrySegment + 2*g.ArcLength + g.ExitSegment + 2*g.Spacing
	if want := frame + max(c.BoundingBox.Height, g.EmptyBranchPlaceholderHeight); b.ConnectionsBox.Height != want {
		t.Errorf("B connections = %v, want %v", b.ConnectionsBox.Height, want)
	}

	want := trig.ConnectionsBox.Height + g.Spacing +
		a.ConnectionsBox.Height + g.Spacing +
		b.ConnectionsBox.Height + g.Spacing +
		d.BoundingBox.Height
	if trig.BoundingBox.Height != want {
		t.Errorf("trigger bounding = %v, want %v", trig.BoundingBox.Height, want)
	}

	// Default geometry: 130 per step, 7 spacing, 234 frame.
	if trig.BoundingBox.Height != 775 {
		t.Errorf("trigger bounding = %v, want 775 with default geometry", trig.BoundingBox.Height)
	}
}

func TestComputeBoxesPanicsOnForeignNode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("ComputeBoxes should panic on an unknown node implementation")
		}
	}()
	ComputeBoxes(&foreign{}, geometry.Default())
}

type foreign struct{ Base }

func (foreign) Kind() Kind { return "foreign" }

// =============================================================================
// Offsets
// =============================================================================

func TestAssignOffsets(t *testing.T) {
	tree := mustCompute(t, scenarioFlow())
	g := tree.Geometry

	tests := []struct {
		name string
		want geometry.Point
	}{
		{"trigger", geometry.Point{}},
		{"A", geometry.Point{Y: g.StepHeight() + g.Spacing}},
		{"B", geometry.Point{Y: g.StepHeight() + g.Spacing}},
		{"C", geometry.Point{}},
		{"D", geometry.Point{Y: tree.Find("B").Common().ConnectionsBox.Height + g.Spacing}},
	}
	for _, tt := range tests {
		if got := tree.Find(tt.name).Common().Offset; got != tt.want {
			t.Errorf("%s offset = %+v, want %+v", tt.name, got, tt.want)
		}
	}

	Walk(tree.Root, func(n Node) bool {
		if n.Common().Offset.X != 0 {
			t.Errorf("%s: x offset = %v, want 0", n.Common().Name, n.Common().Offset.X)
		}
		return true
	})
}

func TestAssignOffsetsRequiresBoxes(t *testing.T) {
	root, err := Build(scenarioFlow(), geometry.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("AssignOffsets should panic before ComputeBoxes")
		}
	}()
	AssignOffsets(root, geometry.Default())
}

// =============================================================================
// Pipeline properties
// =============================================================================

func TestComputeIsIdempotent(t *testing.T) {
	fl := scenarioFlow()
	first := mustCompute(t, fl).Export()
	second := mustCompute(t, fl).Export()
	if !reflect.DeepEqual(first, second) {
		t.Error("two computations of the same flow differ")
	}
}

func TestComputeRejectsInvalidGeometry(t *testing.T) {
	g := geometry.Default()
	g.NodeWidth = -1
	if _, err := Compute(scenarioFlow(), g); !errors.Is(err, errors.ErrCodeInvalidGeometry) {
		t.Errorf("Compute() error = %v, want INVALID_GEOMETRY", err)
	}
}

// =============================================================================
// Branch depth
// =============================================================================

func TestBranchDepth(t *testing.T) {
	nested := func() *flow.Step {
		inner := step("inner", flow.TypeBranch)
		outer := step("outer", flow.TypeBranch)
		outer.OnFailureAction = inner
		return outer
	}
	loopWithBranch := func() *flow.Step {
		loop := step("loop", flow.TypeLoopOnItems)
		loop.FirstLoopAction = step("lb", flow.TypeBranch)
		return loop
	}

	tests := []struct {
		name string
		head *flow.Step
		want int
	}{
		{"no branches", codeChain("a", 3), 0},
		{"single branch", step("b", flow.TypeBranch), 1},
		{"nested", nested(), 2},
		{"sequential branches", chain(step("b1", flow.TypeBranch), step("b2", flow.TypeBranch)), 1},
		{"branch inside loop body is not counted", loopWithBranch(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustCompute(t, newFlow(chain(step("t", flow.TypeEmptyTrigger), tt.head)))
			if got := tree.BranchDepth(); got != tt.want {
				t.Errorf("BranchDepth() = %d, want %d", got, tt.want)
			}
		})
	}

	if BranchDepth(nil) != 0 {
		t.Error("BranchDepth(nil) should be 0")
	}
}
