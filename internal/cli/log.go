// Package cli implements the depsgraph command-line interface.
//
// # Commands
//
//   - build: build the dependency graph of a scene and report its shape
//   - eval: evaluate a frame range and print evaluated transforms
//   - tag: show which operations a change would dirty
//   - dot: export the graph as DOT, SVG, PNG or PDF
//   - scrub: step through frames interactively
//   - cache: manage the render cache used by dot
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// travels through context.Context and is handed to the pipeline, so build
// phases and evaluation passes are logged alongside command output.
package cli

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depsgraph/pkg/depsgraph/eval"
	"github.com/matzehuels/depsgraph/pkg/pipeline"
)

// newLogger returns the CLI logger. Pipeline build phases and evaluation
// passes log at debug level; summaries log at info.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Prefix:          appName,
	})
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// progress accumulates what one command made the pipeline do and logs it.
// It is not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time

	passes    int
	ran       int
	invisible int
	failed    int
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

// built logs the shape of a finished build.
func (p *progress) built(res *pipeline.BuildResult) {
	p.logger.Info("graph ready",
		"scope", res.Scope,
		"operations", res.Operations,
		"relations", res.Relations,
		"diagnostics", len(res.Diagnostics),
		"elapsed", p.elapsed())
}

// pass records one evaluation pass.
func (p *progress) pass(frame float64, res *eval.Result) {
	p.passes++
	p.ran += res.Ran
	p.invisible += res.Invisible
	p.failed += res.Failed
	p.logger.Debug("frame done", "frame", formatFrame(frame), "ran", res.Ran, "invisible", res.Invisible)
}

// done logs the totals over every recorded pass.
func (p *progress) done() {
	p.logger.Info("frames evaluated",
		"passes", p.passes,
		"ran", p.ran,
		"invisible", p.invisible,
		"failed", p.failed,
		"elapsed", p.elapsed())
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger set by the root command, or a logger
// that discards everything when a command runs outside it.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return quietLogger()
}

// sceneLogger tags every line logged for the scene at path with its file name.
func sceneLogger(ctx context.Context, path string) *log.Logger {
	return loggerFromContext(ctx).With("scene", filepath.Base(path))
}
