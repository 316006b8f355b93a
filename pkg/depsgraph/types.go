package depsgraph

import (
	"fmt"
	"strings"
)

// NodeType classifies graph nodes.
type NodeType int

const (
	NodeTimeSource NodeType = iota
	NodeID
	NodeComponent
	NodeOperation
)

func (t NodeType) String() string {
	switch t {
	case NodeTimeSource:
		return "TIME_SOURCE"
	case NodeID:
		return "ID"
	case NodeComponent:
		return "COMPONENT"
	case NodeOperation:
		return "OPERATION"
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// ComponentType is the evaluation domain of a component.
type ComponentType int

const (
	ComponentUndefined ComponentType = iota
	ComponentParameters
	ComponentAnimation
	ComponentTransform
	ComponentGeometry
	ComponentPose
	ComponentVisibility
	ComponentLayerCollections
	ComponentCopyOnWrite
)

var componentNames = [...]string{
	ComponentUndefined:        "UNDEFINED",
	ComponentParameters:       "PARAMETERS",
	ComponentAnimation:        "ANIMATION",
	ComponentTransform:        "TRANSFORM",
	ComponentGeometry:         "GEOMETRY",
	ComponentPose:             "POSE",
	ComponentVisibility:       "VISIBILITY",
	ComponentLayerCollections: "LAYER_COLLECTIONS",
	ComponentCopyOnWrite:      "COPY_ON_WRITE",
}

func (t ComponentType) String() string {
	if t >= 0 && int(t) < len(componentNames) {
		return componentNames[t]
	}
	return fmt.Sprintf("ComponentType(%d)", int(t))
}

// OperationCode identifies what an operation computes.
type OperationCode int

const (
	OpNoop OperationCode = iota

	OpParametersEntry
	OpParametersEval
	OpParametersExit

	OpAnimation
	OpDriver

	OpTransformLocal
	OpTransformParent
	OpTransformConstraints
	OpTransformFinal

	OpGeometryInit
	OpModifier
	OpGeometryEval
	OpGeometryDone

	OpArmatureEval
	OpPoseInit
	OpBone
	OpPoseDone

	OpVisibility
	OpViewLayerEval
	OpCopyOnWrite
)

var opNames = [...]string{
	OpNoop:                 "NOOP",
	OpParametersEntry:      "PARAMETERS_ENTRY",
	OpParametersEval:       "PARAMETERS_EVAL",
	OpParametersExit:       "PARAMETERS_EXIT",
	OpAnimation:            "ANIMATION_EVAL",
	OpDriver:               "DRIVER",
	OpTransformLocal:       "TRANSFORM_LOCAL",
	OpTransformParent:      "TRANSFORM_PARENT",
	OpTransformConstraints: "TRANSFORM_CONSTRAINTS",
	OpTransformFinal:       "TRANSFORM_FINAL",
	OpGeometryInit:         "GEOMETRY_INIT",
	OpModifier:             "MODIFIER",
	OpGeometryEval:         "GEOMETRY_EVAL",
	OpGeometryDone:         "GEOMETRY_DONE",
	OpArmatureEval:         "ARMATURE_EVAL",
	OpPoseInit:             "POSE_INIT",
	OpBone:                 "BONE",
	OpPoseDone:             "POSE_DONE",
	OpVisibility:           "VISIBILITY",
	OpViewLayerEval:        "VIEW_LAYER_EVAL",
	OpCopyOnWrite:          "COPY_ON_WRITE",
}

func (c OperationCode) String() string {
	if c >= 0 && int(c) < len(opNames) {
		return opNames[c]
	}
	return fmt.Sprintf("OperationCode(%d)", int(c))
}

// Tag is the dirty bitfield of an operation. Zero means clean.
type Tag uint32

const (
	TagAnimation Tag = 1 << iota
	TagParameters
	TagTransform
	TagGeometry
	// TagVisibility marks operations scheduled because their entity became
	// visible. Only tags carrying it cross FlushVisibility relations.
	TagVisibility
	// TagTime is propagated from the time source.
	TagTime

	TagComplete = TagAnimation | TagParameters | TagTransform | TagGeometry
)

var tagNames = []struct {
	tag  Tag
	name string
}{
	{TagAnimation, "ANIMATION"},
	{TagParameters, "PARAMETERS"},
	{TagTransform, "TRANSFORM"},
	{TagGeometry, "GEOMETRY"},
	{TagVisibility, "VISIBILITY"},
	{TagTime, "TIME"},
}

// Has reports whether all bits of o are set in t.
func (t Tag) Has(o Tag) bool { return t&o == o }

func (t Tag) String() string {
	if t == 0 {
		return "CLEAN"
	}
	var parts []string
	if t.Has(TagComplete) {
		parts = append(parts, "COMPLETE")
		t &^= TagComplete
	}
	for _, tn := range tagNames {
		if t&tn.tag != 0 {
			parts = append(parts, tn.name)
			t &^= tn.tag
		}
	}
	if t != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(t)))
	}
	return strings.Join(parts, "|")
}

// ParseTag converts a lowercase tag name ("geometry", "complete", ...) to a Tag.
func ParseTag(s string) (Tag, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "COMPLETE" {
		return TagComplete, true
	}
	for _, tn := range tagNames {
		if tn.name == s {
			return tn.tag, true
		}
	}
	return 0, false
}

// RelationFlag alters how a relation is treated by flushing and cycle breaking.
type RelationFlag uint8

const (
	// RelationNoFlush orders two operations without propagating tags.
	RelationNoFlush RelationFlag = 1 << iota
	// RelationFlushVisibility propagates only tags that carry TagVisibility.
	RelationFlushVisibility
	// RelationCheckBeforeAdd skips adding an edge that already exists.
	RelationCheckBeforeAdd
	// RelationNoCycle marks an edge the cycle breaker must keep if it can.
	RelationNoCycle
)

func (f RelationFlag) String() string {
	var parts []string
	for _, fl := range []struct {
		flag RelationFlag
		name string
	}{
		{RelationNoFlush, "no_flush"},
		{RelationFlushVisibility, "flush_visibility"},
		{RelationCheckBeforeAdd, "check_before_add"},
		{RelationNoCycle, "no_cycle"},
	} {
		if f&fl.flag != 0 {
			parts = append(parts, fl.name)
		}
	}
	return strings.Join(parts, ",")
}
