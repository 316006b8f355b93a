package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/pipeline"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// evalCommand creates the eval command.
func (c *CLI) evalCommand() *cobra.Command {
	var (
		frames  string
		workers int
		names   []string
	)

	cmd := &cobra.Command{
		Use:   "eval <scene.toml>",
		Short: "Evaluate a frame range and print evaluated object transforms",
		Long: `Evaluate the dependency graph of a scene at each frame of a range and print
the evaluated world location of every object, or of the objects named with
--id. Frames are given as "start:end" or "start:end:step", both ends
inclusive.`,
		Example: `  depsgraph eval shot.toml --frames 1:24
  depsgraph eval shot.toml --frames 1:100:10 --id Cube --id Camera`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			list, err := parseFrames(frames)
			if err != nil {
				return err
			}
			r, err := newRunner(ctx, args[0], pipeline.Options{Workers: workers})
			if err != nil {
				return err
			}
			objects, err := selectObjects(r.Scene(), names)
			if err != nil {
				return err
			}

			prog := newProgress(r.Logger)
			for _, f := range list {
				res, err := r.EvaluateOnFramechange(ctx, f)
				if err != nil {
					return err
				}
				prog.pass(f, res)
				fmt.Fprintln(out, StyleTitle.Render(fmt.Sprintf("frame %s", formatFrame(f))))
				for _, e := range res.Errors {
					printError(out, "%s", e.Error())
				}
				for _, h := range objects {
					printTransform(out, r.Scene().Get(h).Name, r.Evaluated(h))
				}
			}
			prog.done()
			if prog.failed > 0 {
				return deperrors.New(deperrors.ErrCodeCallbackFailed, "%d operations failed", prog.failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&frames, "frames", "1:1", "frame range start:end[:step]")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "evaluation workers (0 = GOMAXPROCS)")
	cmd.Flags().StringSliceVar(&names, "id", nil, "object to print (repeatable, default all)")

	return cmd
}

func printTransform(w io.Writer, name string, e *scene.Entity) {
	if e == nil {
		printKeyValue(w, name, StyleDim.Render("not evaluated"))
		return
	}
	loc := e.Eval.World.Translation()
	value := fmt.Sprintf("(%.3f, %.3f, %.3f)", loc[0], loc[1], loc[2])
	if !e.Eval.Visible {
		value += " " + StyleDim.Render("hidden")
	}
	printKeyValue(w, name, value)
}

// selectObjects resolves object names, or returns every object in scene
// order when names is empty.
func selectObjects(s *scene.Scene, names []string) ([]scene.Handle, error) {
	if len(names) == 0 {
		var all []scene.Handle
		for _, e := range s.Entities() {
			if e.Is(scene.KindObject) {
				all = append(all, e.Handle)
			}
		}
		return all, nil
	}
	out := make([]scene.Handle, 0, len(names))
	for _, n := range names {
		h, ok := s.Lookup(scene.KindObject, n)
		if !ok {
			return nil, deperrors.New(deperrors.ErrCodeNotFound, "object %q not found", n)
		}
		out = append(out, h)
	}
	return out, nil
}

// maxFrames bounds the number of frames a single range may expand to.
const maxFrames = 100000

// parseFrames expands "start:end[:step]" into a list of frames. A single
// number is a one-frame range.
func parseFrames(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return nil, invalidFrames(s, "want start:end[:step]")
	}
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, deperrors.Wrap(deperrors.ErrCodeInvalidFrames, err, "invalid frame range %q", s)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalidFrames(s, "frames must be finite")
		}
		vals[i] = v
	}

	start, end, step := vals[0], vals[0], 1.0
	if len(vals) > 1 {
		end = vals[1]
	}
	if len(vals) > 2 {
		step = vals[2]
	}
	switch {
	case step <= 0:
		return nil, invalidFrames(s, "step must be positive")
	case end < start:
		return nil, invalidFrames(s, "end before start")
	}

	span := math.Floor((end-start)/step) + 1
	if math.IsInf(span, 0) || span > maxFrames {
		return nil, invalidFrames(s, fmt.Sprintf("more than %d frames", maxFrames))
	}
	frames := make([]float64, int(span))
	for i := range frames {
		frames[i] = start + float64(i)*step
	}
	return frames, nil
}

func invalidFrames(s, reason string) error {
	return deperrors.New(deperrors.ErrCodeInvalidFrames, "invalid frame range %q: %s", s, reason)
}

func formatFrame(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
