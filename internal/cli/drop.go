package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcanvas/pkg/anchor"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
	"github.com/matzehuels/flowcanvas/pkg/layout"
	"github.com/matzehuels/flowcanvas/pkg/observability"
	"github.com/matzehuels/flowcanvas/pkg/render/canvas"
)

// dropResult is the --json output of the drop command.
type dropResult struct {
	Step      string         `json:"step"`
	Point     geometry.Point `json:"point"`
	Candidate *anchor.Anchor `json:"candidate"`
	Distance  float64        `json:"distance,omitempty"`
}

// dropCommand creates the drop command.
func (c *CLI) dropCommand() *cobra.Command {
	var (
		point  geometry.Point
		step   string
		asJSON bool
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "drop [flow]",
		Short: "Resolve a drop point to the anchor it would attach to",
		Long: `Resolve a drop point to the anchor it would attach to.

The flow is laid out and placed on a canvas whose root axis is centred in
the tree's bounding width; --x and --y are canvas coordinates. The nearest
anchor within the acceptance radius wins, skipping the anchors of the step
being dragged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDrop(cmd.Context(), cmd.OutOrStdout(), args[0], point, step, asJSON, flags)
		},
	}

	cmd.Flags().Float64Var(&point.X, "x", 0, "drop point x")
	cmd.Flags().Float64Var(&point.Y, "y", 0, "drop point y")
	cmd.Flags().StringVar(&step, "step", "", "name of the step being dragged")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runDrop(ctx context.Context, out io.Writer, input string, p geometry.Point, step string, asJSON bool, flags layoutFlags) error {
	tree, _, err := c.computeLayout(ctx, input, flags)
	if err != nil {
		return err
	}
	if step != "" && tree.Find(step) == nil {
		return fmt.Errorf("step %q is not in flow %s", step, tree.FlowID)
	}

	dragger, _ := mountCanvas(tree)
	hooks := observability.Drag()
	if step != "" {
		dragger.SetDragPiece(step)
		hooks.OnDragStart(ctx, step)
	}

	res := dropResult{Step: step, Point: p}
	if a, ok := dragger.SetDropPoint(p, step); ok {
		res.Candidate = &a
		res.Distance = geometry.Distance(p, a.Rect.Center())
		hooks.OnResolve(ctx, step, a.StepName, string(a.Kind), res.Distance)
	} else {
		hooks.OnResolve(ctx, step, "", "", 0)
	}
	if step != "" {
		dragger.EndDrag()
		hooks.OnDragEnd(ctx, step)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if res.Candidate == nil {
		printInfo("No anchor within %gpx of (%g, %g)", tree.Geometry.AcceptanceRadius, p.X, p.Y)
		return nil
	}
	printCandidate(res.Candidate.StepName, string(res.Candidate.Kind), res.Distance)
	return nil
}

// mountCanvas places tree, registers its anchors and returns a dragger
// resolving against them.
func mountCanvas(tree *layout.Tree) (*anchor.Dragger, *canvas.Canvas) {
	cv := canvas.Place(tree)
	reg := anchor.NewRegistry()
	cv.Mount(reg)
	return anchor.NewDragger(anchor.NewResolver(reg, tree.Geometry.AcceptanceRadius)), cv
}
