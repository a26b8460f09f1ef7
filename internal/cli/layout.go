package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcanvas/pkg/layout"
)

// layoutFlags are the flags shared by commands that lay out a flow.
type layoutFlags struct {
	noCache bool
	refresh bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute even when a cached layout exists")
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [flow.json|flow.yaml]",
		Short: "Compute the layout document for a flow",
		Long: `Compute the layout document for a flow.

The layout document records, for every step, its card size, its connections
and bounding boxes, and its offset from the node it follows. Pass "-" to read
the flow from stdin. Results are cached by flow content and geometry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), cmd.OutOrStdout(), args[0], output, flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json, - for stdout)")
	flags.register(cmd)

	return cmd
}

// runLayout loads the flow, computes the layout, and writes the document.
func (c *CLI) runLayout(ctx context.Context, out io.Writer, input, output string, flags layoutFlags) error {
	tree, cacheHit, err := c.computeLayout(ctx, input, flags)
	if err != nil {
		return err
	}

	if output == "-" {
		return layout.WriteDocument(tree.Export(), out)
	}
	if output == "" {
		output = outputBase(input) + ".layout.json"
	}
	if err := layout.WriteDocumentFile(tree.Export(), output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(tree.NodeCount(), tree.Size(), cacheHit)
	printNewline()
	printNextStep("Render", appName+" render "+input)
	return nil
}

// computeLayout reads and lays out the flow at input.
func (c *CLI) computeLayout(ctx context.Context, input string, flags layoutFlags) (*layout.Tree, bool, error) {
	fl, err := readFlow(input)
	if err != nil {
		return nil, false, err
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return nil, false, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := c.layoutOptions()
	opts.Refresh = flags.refresh

	prog := newProgress(c.Logger)
	tree, cacheHit, err := runner.LayoutWithCacheInfo(ctx, fl, opts)
	if err != nil {
		return nil, false, fmt.Errorf("compute layout: %w", err)
	}
	prog.done(fmt.Sprintf("Laid out %d steps", tree.NodeCount()))
	return tree, cacheHit, nil
}

// depthCommand creates the depth command.
func (c *CLI) depthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "depth [flow]",
		Short: "Print the deepest branch nesting of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fl, err := readFlow(args[0])
			if err != nil {
				return err
			}
			root, err := layout.Build(fl, c.layoutOptions().Geometry)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), layout.BranchDepth(root))
			return nil
		},
	}
}
