package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/depsgraph/debug"
	"github.com/matzehuels/depsgraph/pkg/pipeline"
)

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var (
		strict    bool
		breakdown bool
	)

	cmd := &cobra.Command{
		Use:   "build <scene.toml>",
		Short: "Build the dependency graph of a scene and report its shape",
		Long: `Build the dependency graph of a scene and print node counts and build
diagnostics. Relations that could not be resolved and relations removed to
break dependency cycles are reported as diagnostics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			r, err := newRunner(ctx, args[0], pipeline.Options{StrictCycles: strict})
			if err != nil {
				return err
			}
			prog := newProgress(r.Logger)
			res, err := r.Build(ctx)
			if err != nil {
				return err
			}
			prog.built(res)

			printSuccess(out, "Built %s", StyleValue.Render(args[0]))
			printCounts(out,
				count{res.IDs, "ids"},
				count{res.Components, "components"},
				count{res.Operations, "operations"},
				count{res.Relations, "relations"},
				count{len(res.Cycles), "cycles removed"})
			printKeyValue(out, "scope", res.Scope)
			printKeyValue(out, "graph", res.GraphID.String())

			if breakdown {
				printBreakdown(out, debug.Stats(r.Graph()))
			}

			if len(res.Diagnostics) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, StyleTitle.Render(fmt.Sprintf("Diagnostics (%d)", len(res.Diagnostics))))
				for _, d := range res.Diagnostics {
					printDiagnostic(out, d)
				}
			}

			fmt.Fprintln(out)
			printNextStep(out, "Export the graph", fmt.Sprintf("%s dot %s -o graph.svg", appName, args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when a dependency cycle had to be broken")
	cmd.Flags().BoolVar(&breakdown, "breakdown", false, "print operation counts per component and code")

	return cmd
}

func printBreakdown(w io.Writer, s debug.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, StyleTitle.Render("Components"))
	comps := make([]depsgraph.ComponentType, 0, len(s.ByComponent))
	for k := range s.ByComponent {
		comps = append(comps, k)
	}
	slices.Sort(comps)
	for _, k := range comps {
		printKeyValue(w, k.String(), StyleNumber.Render(fmt.Sprint(s.ByComponent[k])))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, StyleTitle.Render("Operations"))
	codes := make([]depsgraph.OperationCode, 0, len(s.ByCode))
	for k := range s.ByCode {
		codes = append(codes, k)
	}
	slices.Sort(codes)
	for _, k := range codes {
		printKeyValue(w, k.String(), StyleNumber.Render(fmt.Sprint(s.ByCode[k])))
	}
}
