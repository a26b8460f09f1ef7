package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcanvas/pkg/pipeline"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		flags      layoutFlags
		detailed   bool
		anchors    bool
	)

	cmd := &cobra.Command{
		Use:   "render [flow]",
		Short: "Render a flow layout as DOT, SVG or a canvas preview",
		Long: `Render a flow layout.

Formats:
  json    the layout document
  dot     Graphviz source, one box per step
  svg     the DOT graph rendered by Graphviz
  canvas  SVG with every card at its absolute position, as an editor draws it`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			opts := c.layoutOptions()
			opts.Refresh = flags.refresh
			opts.Formats = formats
			opts.Detailed = detailed
			opts.Anchors = anchors
			return c.runRender(cmd.Context(), args[0], output, flags.noCache, opts)
		},
	}

	cmd.Flags().StringVarP(&formatsStr, "format", "f", "",
		"output format(s): "+strings.Join(pipeline.ValidFormats, ", ")+" (comma-separated, default svg)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show box sizes in DOT/SVG labels")
	cmd.Flags().BoolVar(&anchors, "anchors", false, "draw drop anchors in the canvas preview")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input, output string, noCache bool, opts pipeline.Options) error {
	fl, err := readFlow(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, fmt.Sprintf("Rendering %s...", strings.Join(opts.Formats, ", ")))
	spinner.Start()

	result, err := runner.Execute(ctx, fl, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, input, output)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", fl.ID)
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats.NodeCount, result.Tree.Size(), result.CacheInfo.LayoutHit)
	return nil
}

// writeArtifacts writes one file per format. A single format goes to output
// verbatim; several formats share output (or the input's stem) as a base
// path with per-format suffixes.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	var paths []string
	for _, format := range formats {
		path := artifactPath(format, len(formats), input, output)
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func artifactPath(format string, count int, input, output string) string {
	if output != "" && count == 1 {
		return output
	}
	base := output
	if base == "" {
		base = outputBase(input)
	} else {
		base = outputBase(base)
	}
	switch format {
	case pipeline.FormatJSON:
		return base + ".layout.json"
	case pipeline.FormatCanvas:
		return base + ".canvas.svg"
	}
	return base + "." + format
}
