package builder

import (
	"github.com/matzehuels/depsgraph/pkg/depsgraph"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// Kernel supplies the callbacks of the operations the node builder creates.
// Returning nil leaves the operation as an ordering-only step.
type Kernel interface {
	Callback(kind scene.Kind, code depsgraph.OperationCode, name string) depsgraph.OperationFunc
}

// KernelFunc adapts a function to the Kernel interface.
type KernelFunc func(kind scene.Kind, code depsgraph.OperationCode, name string) depsgraph.OperationFunc

func (f KernelFunc) Callback(kind scene.Kind, code depsgraph.OperationCode, name string) depsgraph.OperationFunc {
	return f(kind, code, name)
}

// NopKernel returns nil for every operation.
type NopKernel struct{}

func (NopKernel) Callback(scene.Kind, depsgraph.OperationCode, string) depsgraph.OperationFunc {
	return nil
}
