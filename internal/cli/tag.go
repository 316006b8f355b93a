package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/depsgraph/eval"
	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/pipeline"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// tagCommand creates the tag command.
func (c *CLI) tagCommand() *cobra.Command {
	var (
		name     string
		kindName string
		tags     []string
		frame    float64
		evaluate bool
	)

	cmd := &cobra.Command{
		Use:   "tag <scene.toml>",
		Short: "Show which operations a change to an entity dirties",
		Long: `Evaluate the scene once, tag an entity as changed and flush the change
through the graph. Every operation that would re-run is listed. With --eval
the change is evaluated as well.`,
		Example: `  depsgraph tag shot.toml --id Cube --tag geometry
  depsgraph tag shot.toml --id RigData --kind armature --tag transform,geometry --eval`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			kind, ok := scene.ParseKind(kindName)
			if !ok {
				return deperrors.New(deperrors.ErrCodeInvalidScene, "unknown kind %q", kindName)
			}
			var tag depsgraph.Tag
			for _, t := range tags {
				v, ok := depsgraph.ParseTag(t)
				if !ok {
					return fmt.Errorf("unknown tag %q", t)
				}
				tag |= v
			}
			if tag == 0 {
				tag = depsgraph.TagComplete
			}

			r, err := newRunner(ctx, args[0], pipeline.Options{})
			if err != nil {
				return err
			}
			h, ok := r.Scene().Lookup(kind, name)
			if !ok {
				return deperrors.New(deperrors.ErrCodeNotFound, "%s %q not found", kind, name)
			}
			if _, err := r.EvaluateOnFramechange(ctx, frame); err != nil {
				return err
			}

			r.TagUpdate(h, tag)
			g := r.Graph()
			eval.ApplyPending(g, loggerFromContext(ctx))
			eval.Flush(g)
			dirty := eval.Dirty(g)

			visible := 0
			for _, op := range dirty {
				if op.AffectsVisible {
					visible++
				}
			}
			printInfo(out, "Tagging %s %s %s", kind, StyleValue.Render(name), tag)
			printCounts(out, count{len(dirty), "dirty"}, count{visible, "visible"})
			for _, op := range dirty {
				line := fmt.Sprintf("%s  %s", op.Identifier(), StyleDim.Render(op.Tag.String()))
				if !op.AffectsVisible {
					line += " " + StyleDim.Render("(invisible)")
				}
				fmt.Fprintln(out, "  "+line)
			}

			if !evaluate {
				return nil
			}
			res, err := r.EvaluateOnRefresh(ctx, scene.Clock{Frame: frame})
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			printSuccess(out, "Evaluated")
			printCounts(out,
				count{res.Ran, "ran"},
				count{res.Failed, "failed"},
				count{res.Skipped, "skipped"},
				count{res.Invisible, "invisible"})
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "id", "", "name of the entity to tag")
	cmd.Flags().StringVar(&kindName, "kind", "object", "kind of the entity (object, mesh, armature, ...)")
	cmd.Flags().StringSliceVar(&tags, "tag", []string{"complete"}, "domains that changed (animation, parameters, transform, geometry, visibility, complete)")
	cmd.Flags().Float64Var(&frame, "frame", 1, "frame to evaluate at before tagging")
	cmd.Flags().BoolVar(&evaluate, "eval", false, "evaluate the change after flushing")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
