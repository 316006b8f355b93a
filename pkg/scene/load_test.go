package scene

import (
	"strings"
	"testing"

	deperrors "github.com/matzehuels/depsgraph/pkg/errors"
)

const rigFixture = `
[scene]
name = "Shot"
frame = 1.0
camera = "Cam"
objects = ["Cam"]

[[collection]]
name = "Props"
objects = ["Cube", "Rig"]

[[action]]
name = "CubeAction"
  [[action.curve]]
  path = "location"
  index = 0
  keys = [[1.0, 0.0], [10.0, 9.0]]

[[mesh]]
name = "CubeMesh"

[[armature]]
name = "RigData"
  [[armature.bone]]
  name = "Root"
  [[armature.bone]]
  name = "Arm"
  parent = "Root"

[[camera]]
name = "CamData"

[[object]]
name = "Rig"
data = "RigData"
  [[object.pose]]
  bone = "Arm"

[[object]]
name = "Cube"
data = "CubeMesh"
parent = "Rig"
parent_bone = "Arm"
action = "CubeAction"
props = { weight = 0.5 }
  [[object.modifier]]
  name = "Bevel"
  type = "bevel"
  [[object.constraint]]
  name = "Follow"
  type = "copy_location"
  target = "Rig"
  subtarget = "Arm"
  [[object.driver]]
  path = "scale"
  index = 2
  type = "average"
    [[object.driver.var]]
    name = "w"
    target = "Cube"
    path = '["weight"]'
    [[object.driver.var]]
    name = "t"
    time = true

[[object]]
name = "Cam"
data = "CamData"
location = [0.0, -10.0, 2.0]
`

func TestLoad(t *testing.T) {
	s, root, err := Load(strings.NewReader(rigFixture))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	scn := s.Get(root)
	if !scn.Is(KindScene) || scn.Name != "Shot" {
		t.Fatalf("root = %+v, want scene Shot", scn)
	}
	master := s.Get(scn.Collection)
	if master.Name != "Shot Collection" {
		t.Errorf("master = %q, want %q", master.Name, "Shot Collection")
	}
	props, _ := s.Lookup(KindCollection, "Props")
	if len(master.Children) != 1 || master.Children[0] != props {
		t.Errorf("master.Children = %v, want [%d]", master.Children, props)
	}
	cam, _ := s.Lookup(KindObject, "Cam")
	if len(master.Objects) != 1 || master.Objects[0] != cam || scn.Camera != cam {
		t.Errorf("camera not linked: objects=%v camera=%d", master.Objects, scn.Camera)
	}
	if got := s.Get(cam).Location; got != (Vec3{0, -10, 2}) {
		t.Errorf("Cam.Location = %v", got)
	}

	cubeH, _ := s.Lookup(KindObject, "Cube")
	rigH, _ := s.Lookup(KindObject, "Rig")
	cube := s.Get(cubeH)
	if cube.Parent != rigH || cube.ParentBone != "Arm" {
		t.Errorf("Cube parent = %d/%q, want %d/Arm", cube.Parent, cube.ParentBone, rigH)
	}
	if cube.Scale != (Vec3{1, 1, 1}) {
		t.Errorf("Cube.Scale = %v, want default [1 1 1]", cube.Scale)
	}
	if !s.Get(cube.Data).Is(KindMesh) {
		t.Error("Cube.Data should be a mesh")
	}
	if len(cube.Constraints) != 1 || cube.Constraints[0].Target != rigH || cube.Constraints[0].Influence != 1 {
		t.Errorf("Cube.Constraints = %+v", cube.Constraints)
	}
	if cube.Anim == nil || !s.Get(cube.Anim.Action).Is(KindAction) {
		t.Fatal("Cube should have an action")
	}
	drv := cube.Anim.Drivers[0]
	if drv.Type != DriverAverage || len(drv.Variables) != 2 || drv.Variables[0].Target != cubeH || !drv.Variables[1].Time {
		t.Errorf("driver = %+v", drv)
	}
	rig := s.Get(rigH)
	if pb, ok := rig.PoseBone("Arm"); !ok || pb.Scale != (Vec3{1, 1, 1}) {
		t.Errorf("Rig pose bone Arm = %+v, %v", pb, ok)
	}
	if arm := s.Get(rig.Data); len(arm.Bones) != 2 || arm.Bones[1].Parent != "Root" {
		t.Errorf("RigData.Bones = %+v", arm.Bones)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
	}{
		{"syntax", "[scene"},
		{"unknown parent", "[[object]]\nname = \"A\"\nparent = \"B\"\n"},
		{"unknown data", "[[object]]\nname = \"A\"\ndata = \"Nope\"\n"},
		{"bad data kind", "[[mesh]]\nname = \"M\"\n[[object]]\nname = \"A\"\ndata = \"M\"\ndata_kind = \"lamp\"\n"},
		{"duplicate", "[[object]]\nname = \"A\"\n[[object]]\nname = \"A\"\n"},
		{"bad name", "[[object]]\nname = \"\"\n"},
		{"unknown action", "[[object]]\nname = \"A\"\naction = \"Walk\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(strings.NewReader(tt.fixture))
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if code := deperrors.GetCode(err); code != deperrors.ErrCodeInvalidFixture && code != deperrors.ErrCodeInvalidName {
				t.Errorf("GetCode() = %s, want INVALID_FIXTURE or INVALID_NAME", code)
			}
		})
	}
}
