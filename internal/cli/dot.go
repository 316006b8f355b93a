package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depsgraph/pkg/cache"
	"github.com/matzehuels/depsgraph/pkg/depsgraph/debug"
	"github.com/matzehuels/depsgraph/pkg/pipeline"
)

// Output formats supported by the dot command.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPNG = "png"
	formatPDF = "pdf"
)

// dotCommand creates the dot command.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		output        string
		format        string
		labels        bool
		hideInvisible bool
		frame         float64
		scale         float64
		noCache       bool
	)

	cmd := &cobra.Command{
		Use:   "dot <scene.toml>",
		Short: "Export the dependency graph as DOT, SVG, PNG or PDF",
		Long: `Build the dependency graph of a scene and export it. The format is taken
from --format or from the extension of --output. Rendered images are cached
by the hash of the DOT source; use --no-cache to bypass the cache.

With --frame the graph is evaluated before export, so the highlighted dirty
operations reflect the state after that evaluation.`,
		Example: `  depsgraph dot shot.toml -o graph.dot
  depsgraph dot shot.toml -o graph.svg --labels --hide-invisible`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if format == "" {
				format = formatFromPath(output)
			}
			switch format {
			case formatDOT, formatSVG, formatPNG, formatPDF:
			default:
				return fmt.Errorf("unsupported format %q", format)
			}

			r, err := newRunner(ctx, args[0], pipeline.Options{})
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("frame") {
				_, err = r.EvaluateOnFramechange(ctx, frame)
			} else {
				_, err = r.Build(ctx)
			}
			if err != nil {
				return err
			}

			dot := debug.ToDOT(r.Graph(), debug.Options{Labels: labels, HideInvisible: hideInvisible})
			data := []byte(dot)
			if format != formatDOT {
				store := newCache(noCache)
				defer store.Close()
				spinner := newSpinner(ctx, cmd.ErrOrStderr(), "Rendering "+format+"...")
				spinner.Start()
				var cached bool
				data, cached, err = renderCached(ctx, store, format, dot, scale)
				spinner.Stop()
				if err != nil {
					return err
				}
				if output != "" {
					printCacheStatus(out, cached)
				}
			}

			if output == "" {
				_, err := out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess(out, "Exported %s", strings.ToUpper(format))
			printFile(out, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: dot, svg, png, pdf (default from --output)")
	cmd.Flags().BoolVar(&labels, "labels", false, "draw relation descriptions on edges")
	cmd.Flags().BoolVar(&hideInvisible, "hide-invisible", false, "leave out operations that affect nothing visible")
	cmd.Flags().Float64Var(&frame, "frame", 1, "evaluate at this frame before export")
	cmd.Flags().Float64Var(&scale, "scale", 2, "PNG scale factor")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the render cache")

	return cmd
}

// formatFromPath derives the output format from a file extension. Unknown
// or missing extensions give DOT.
func formatFromPath(path string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case formatSVG, formatPNG, formatPDF:
		return ext
	default:
		return formatDOT
	}
}

// renderCached renders dot in format, serving and filling c.
func renderCached(ctx context.Context, c cache.Cache, format, dot string, scale float64) ([]byte, bool, error) {
	key := cache.RenderKey(format, dot, scale)
	logger := loggerFromContext(ctx)
	if data, ok, err := c.Get(ctx, key); err != nil {
		logger.Warn("render cache read failed", "error", err)
	} else if ok {
		logger.Debug("render cache hit", "format", format)
		return data, true, nil
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case formatSVG:
		data, err = debug.RenderSVG(ctx, dot)
	case formatPNG:
		data, err = debug.RenderPNG(ctx, dot, scale)
	case formatPDF:
		data, err = debug.RenderPDF(ctx, dot)
	default:
		return nil, false, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, false, err
	}
	if err := c.Set(ctx, key, data, cache.DefaultTTL); err != nil {
		logger.Warn("render cache write failed", "error", err)
	}
	return data, false, nil
}
