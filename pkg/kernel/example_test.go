package kernel_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/matzehuels/depsgraph/pkg/pipeline"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

const rigFixture = `
[scene]
name = "Shot"
objects = ["Rig", "Cube", "Target", "Follower"]

[[armature]]
name = "RigData"
  [[armature.bone]]
  name = "Root"
  [[armature.bone]]
  name = "Arm"
  parent = "Root"
  head = [0.0, 1.0, 0.0]

[[object]]
name = "Rig"
data = "RigData"
  [[object.pose]]
  bone = "Root"
  location = [1.0, 0.0, 0.0]

[[object]]
name = "Cube"
parent = "Rig"
parent_bone = "Arm"

[[object]]
name = "Target"
location = [4.0, 0.0, 0.0]
scale = [3.0, 3.0, 3.0]

[[object]]
name = "Follower"
  [[object.constraint]]
  name = "Half"
  type = "copy_location"
  target = "Target"
  influence = 0.5
  [[object.constraint]]
  name = "Size"
  type = "copy_scale"
  target = "Target"
`

func evaluate(t testing.TB, fixture string, frame float64) (*pipeline.Runner, *scene.Scene, scene.Handle) {
	t.Helper()
	s, root, err := scene.Load(strings.NewReader(fixture))
	if err != nil {
		t.Fatal(err)
	}
	r, err := pipeline.NewRunner(s, pipeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.EvaluateOnFramechange(context.Background(), frame)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() {
		t.Fatalf("evaluation errors: %v", res.Errors)
	}
	return r, s, root
}

func near(a, b scene.Vec3) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestRigEvaluation(t *testing.T) {
	r, s, root := evaluate(t, rigFixture, 7)
	obj := func(name string) *scene.Entity {
		h, ok := s.Lookup(scene.KindObject, name)
		if !ok {
			t.Fatalf("object %q not found", name)
		}
		e := r.Evaluated(h)
		if e == nil {
			t.Fatalf("object %q not evaluated", name)
		}
		return e
	}

	rig := obj("Rig")
	if got, want := rig.Eval.Pose["Arm"].Translation(), (scene.Vec3{1, 1, 0}); !near(got, want) {
		t.Errorf("Arm pose translation = %v, want %v", got, want)
	}
	if got, want := obj("Cube").Eval.World.Translation(), (scene.Vec3{1, 1, 0}); !near(got, want) {
		t.Errorf("Cube world translation = %v, want %v", got, want)
	}

	follower := obj("Follower")
	if got, want := follower.Eval.World.Translation(), (scene.Vec3{2, 0, 0}); !near(got, want) {
		t.Errorf("Follower translation = %v, want %v", got, want)
	}
	if got, want := follower.Eval.World.ScaleFactors(), (scene.Vec3{3, 3, 3}); !near(got, want) {
		t.Errorf("Follower scale = %v, want %v", got, want)
	}
	if !follower.Eval.Visible {
		t.Error("Follower Eval.Visible = false, want true")
	}

	if got := r.Evaluated(root).Frame; got != 7 {
		t.Errorf("scene frame = %v, want 7", got)
	}
}

func Example() {
	const fixture = `
[scene]
objects = ["Ball"]

[[action]]
name = "Bounce"
  [[action.curve]]
  path = "location"
  index = 2
  keys = [[1.0, 0.0], [11.0, 5.0]]

[[object]]
name = "Ball"
action = "Bounce"
`
	s, _, err := scene.Load(strings.NewReader(fixture))
	if err != nil {
		fmt.Println(err)
		return
	}
	r, err := pipeline.NewRunner(s, pipeline.Options{})
	if err != nil {
		fmt.Println(err)
		return
	}
	ball, _ := s.Lookup(scene.KindObject, "Ball")
	for _, frame := range []float64{1, 3, 11} {
		if _, err := r.EvaluateOnFramechange(context.Background(), frame); err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("frame %v: z = %.1f\n", frame, r.Evaluated(ball).Eval.World.Translation()[2])
	}
	// Output:
	// frame 1: z = 0.0
	// frame 3: z = 1.0
	// frame 11: z = 5.0
}
