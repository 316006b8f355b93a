package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

const ballFixture = `
[scene]
objects = ["Ball", "Floor"]

[[action]]
name = "Roll"
  [[action.curve]]
  path = "location"
  index = 0
  keys = [[1.0, 0.0], [3.0, 2.0]]

[[object]]
name = "Ball"
action = "Roll"

[[object]]
name = "Floor"
location = [0.0, 0.0, -1.0]
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ball.toml")
	if err := os.WriteFile(path, []byte(ballFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut, logs bytes.Buffer
	root := New(&logs, LogInfo).RootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseFrames(t *testing.T) {
	tests := []struct {
		in      string
		want    []float64
		wantErr bool
	}{
		{"1", []float64{1}, false},
		{"1:3", []float64{1, 2, 3}, false},
		{"0:10:5", []float64{0, 5, 10}, false},
		{"1:4:2", []float64{1, 3}, false},
		{"2.5:3.5", []float64{2.5, 3.5}, false},
		{"3:1", nil, true},
		{"1:3:0", nil, true},
		{"a:b", nil, true},
		{"1:2:3:4", nil, true},
		{"NaN", nil, true},
		{"1:Inf", nil, true},
		{"-Inf:1", nil, true},
		{"1:2:NaN", nil, true},
		{"0:1e15", nil, true},
		{"0:1:1e-300", nil, true},
		{"1:100000", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFrames(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFrames(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if code := deperrors.GetCode(err); code != deperrors.ErrCodeInvalidFrames {
					t.Errorf("parseFrames(%q) code = %s, want %s", tt.in, code, deperrors.ErrCodeInvalidFrames)
				}
				return
			}
			if tt.want == nil {
				if len(got) != maxFrames {
					t.Errorf("parseFrames(%q) len = %d, want %d", tt.in, len(got), maxFrames)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseFrames(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"graph.svg", formatSVG},
		{"graph.PNG", formatPNG},
		{"out/graph.pdf", formatPDF},
		{"graph.dot", formatDOT},
		{"graph.gv", formatDOT},
		{"", formatDOT},
	}
	for _, tt := range tests {
		if got := formatFromPath(tt.path); got != tt.want {
			t.Errorf("formatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSelectObjects(t *testing.T) {
	s, _, err := scene.Load(strings.NewReader(ballFixture))
	if err != nil {
		t.Fatal(err)
	}

	all, err := selectObjects(s, nil)
	if err != nil {
		t.Fatalf("selectObjects(nil) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("selectObjects(nil) = %d objects, want 2", len(all))
	}

	one, err := selectObjects(s, []string{"Floor"})
	if err != nil || len(one) != 1 || s.Get(one[0]).Name != "Floor" {
		t.Errorf("selectObjects(Floor) = %v, %v", one, err)
	}

	if _, err := selectObjects(s, []string{"Missing"}); !deperrors.Is(err, deperrors.ErrCodeNotFound) {
		t.Errorf("selectObjects(Missing) error = %v, want NOT_FOUND", err)
	}
}

func TestBuildCommand(t *testing.T) {
	out, err := run(t, "build", writeFixture(t), "--breakdown")
	if err != nil {
		t.Fatalf("build error = %v", err)
	}
	for _, want := range []string{"Built", "operations", "relations", "Components", "TRANSFORM"} {
		if !strings.Contains(out, want) {
			t.Errorf("build output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildCommandMissingFile(t *testing.T) {
	_, err := run(t, "build", filepath.Join(t.TempDir(), "missing.toml"))
	if !deperrors.Is(err, deperrors.ErrCodeInvalidFixture) {
		t.Errorf("build error = %v, want INVALID_FIXTURE", err)
	}
}

func TestEvalCommand(t *testing.T) {
	out, err := run(t, "eval", writeFixture(t), "--frames", "1:3:2", "--id", "Ball", "--workers", "2")
	if err != nil {
		t.Fatalf("eval error = %v", err)
	}
	for _, want := range []string{
		"frame 1", "(0.000, 0.000, 0.000)",
		"frame 3", "(2.000, 0.000, 0.000)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("eval output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Floor") {
		t.Errorf("eval output lists Floor without --id Floor:\n%s", out)
	}
}

func TestEvalCommandBadFrames(t *testing.T) {
	if _, err := run(t, "eval", writeFixture(t), "--frames", "5:1"); err == nil {
		t.Error("eval with reversed range succeeded, want error")
	}
}

func TestTagCommand(t *testing.T) {
	out, err := run(t, "tag", writeFixture(t), "--id", "Floor", "--tag", "transform", "--eval")
	if err != nil {
		t.Fatalf("tag error = %v", err)
	}
	for _, want := range []string{`"Floor"`, "TRANSFORM", "dirty", "Evaluated", "ran"} {
		if !strings.Contains(out, want) {
			t.Errorf("tag output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, `"Ball"`) {
		t.Errorf("tagging Floor dirtied Ball:\n%s", out)
	}
}

func TestTagCommandErrors(t *testing.T) {
	path := writeFixture(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown entity", []string{"tag", path, "--id", "Nope"}},
		{"unknown tag", []string{"tag", path, "--id", "Ball", "--tag", "color"}},
		{"unknown kind", []string{"tag", path, "--id", "Ball", "--kind", "light"}},
		{"missing id", []string{"tag", path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("%v succeeded, want error", tt.args)
			}
		})
	}
}

func TestDotCommand(t *testing.T) {
	path := writeFixture(t)

	out, err := run(t, "dot", path)
	if err != nil {
		t.Fatalf("dot error = %v", err)
	}
	if !strings.HasPrefix(out, "digraph depsgraph {") {
		t.Errorf("dot to stdout = %q, want DOT source", out)
	}

	file := filepath.Join(t.TempDir(), "graph.dot")
	out, err = run(t, "dot", path, "-o", file, "--labels", "--frame", "2")
	if err != nil {
		t.Fatalf("dot -o error = %v", err)
	}
	if !strings.Contains(out, file) {
		t.Errorf("dot -o output = %q, want file path", out)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Ball") {
		t.Errorf("written DOT does not mention Ball")
	}
}

func TestDotCommandSVGUsesCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	path := writeFixture(t)
	file := filepath.Join(t.TempDir(), "graph.svg")

	first, err := run(t, "dot", path, "-o", file)
	if err != nil {
		t.Fatalf("dot svg error = %v", err)
	}
	if !strings.Contains(first, iconFresh) {
		t.Errorf("first render = %q, want %q", first, iconFresh)
	}
	second, err := run(t, "dot", path, "-o", file)
	if err != nil {
		t.Fatalf("dot svg error = %v", err)
	}
	if !strings.Contains(second, iconCached) {
		t.Errorf("second render = %q, want %q", second, iconCached)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("written file is not SVG")
	}
}

func TestDotCommandNoCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	path := writeFixture(t)
	file := filepath.Join(t.TempDir(), "graph.svg")

	for i := 0; i < 2; i++ {
		out, err := run(t, "dot", path, "-o", file, "--no-cache")
		if err != nil {
			t.Fatalf("dot --no-cache error = %v", err)
		}
		if !strings.Contains(out, iconFresh) {
			t.Errorf("render %d = %q, want %q", i+1, out, iconFresh)
		}
	}
}

func TestDotCommandUnsupportedFormat(t *testing.T) {
	if _, err := run(t, "dot", writeFixture(t), "--format", "gif"); err == nil {
		t.Error("dot --format gif succeeded, want error")
	}
}

func TestCacheCommands(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", home)

	out, err := run(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path error = %v", err)
	}
	if want := filepath.Join(home, appName); strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(out), want)
	}

	out, err = run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear error = %v", err)
	}
	if !strings.Contains(out, "Cache is empty") {
		t.Errorf("cache clear on empty cache = %q", out)
	}
}

func TestExampleScene(t *testing.T) {
	const path = "../../examples/scenes/shot.toml"
	if _, err := run(t, "build", path); err != nil {
		t.Fatalf("build %s error = %v", path, err)
	}
	out, err := run(t, "eval", path, "--frames", "1:48:47")
	if err != nil {
		t.Fatalf("eval %s error = %v", path, err)
	}
	for _, want := range []string{"frame 48", "Ball", "Camera", "Prop"} {
		if !strings.Contains(out, want) {
			t.Errorf("eval output missing %q:\n%s", want, out)
		}
	}
}
