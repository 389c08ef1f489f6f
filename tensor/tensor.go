// Package tensor provides dense float32 tensors resident in device memory.
package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/LynnColeArt/convbench/device"
)

// Tensor is a contiguous row-major float32 array on a device.
// When RequiresGrad is set, backward passes accumulate into Grad.
type Tensor struct {
	Shape        []int
	RequiresGrad bool
	Grad         *Tensor

	ctx *device.Context
	ptr device.DevicePtr
}

// NumElements returns the product of the dimensions of shape.
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// New allocates an uninitialised tensor of the given shape on ctx.
func New(ctx *device.Context, shape []int) (*Tensor, error) {
	if len(shape) == 0 {
		return nil, device.NewInvalidArgError("tensor.New", "empty shape")
	}
	for _, d := range shape {
		if d <= 0 {
			return nil, device.NewInvalidArgError("tensor.New", fmt.Sprintf("invalid shape %v", shape))
		}
	}

	ptr, err := ctx.Malloc(NumElements(shape) * 4)
	if err != nil {
		return nil, err
	}
	return &Tensor{
		Shape: append([]int(nil), shape...),
		ctx:   ctx,
		ptr:   ptr,
	}, nil
}

// Zeros allocates a tensor filled with zeros.
func Zeros(ctx *device.Context, shape []int) (*Tensor, error) {
	t, err := New(ctx, shape)
	if err != nil {
		return nil, err
	}
	t.Fill(0)
	return t, nil
}

// Full allocates a tensor with every element set to v.
func Full(ctx *device.Context, shape []int, v float32) (*Tensor, error) {
	t, err := New(ctx, shape)
	if err != nil {
		return nil, err
	}
	t.Fill(v)
	return t, nil
}

// RandN allocates a tensor with elements drawn from the standard normal
// distribution.
func RandN(ctx *device.Context, shape []int) (*Tensor, error) {
	t, err := New(ctx, shape)
	if err != nil {
		return nil, err
	}
	data := t.Data()
	for i := range data {
		data[i] = float32(distuv.UnitNormal.Rand())
	}
	return t, nil
}

// Data returns the tensor contents. Callers must synchronize the stream
// that writes the tensor before reading it on the host.
func (t *Tensor) Data() []float32 {
	return t.ptr.Float32()
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return NumElements(t.Shape)
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float32) {
	data := t.Data()
	for i := range data {
		data[i] = v
	}
}

// EnsureGrad allocates a zeroed gradient buffer if none exists yet.
func (t *Tensor) EnsureGrad() (*Tensor, error) {
	if t.Grad != nil {
		return t.Grad, nil
	}
	g, err := Zeros(t.ctx, t.Shape)
	if err != nil {
		return nil, err
	}
	t.Grad = g
	return g, nil
}

// ZeroGrad resets an existing gradient to zero.
func (t *Tensor) ZeroGrad() {
	if t.Grad != nil {
		t.Grad.Fill(0)
	}
}

// Free returns the tensor and its gradient to the device pool.
func (t *Tensor) Free() error {
	if t == nil || t.ptr.IsNil() {
		return nil
	}
	if t.Grad != nil {
		if err := t.Grad.Free(); err != nil {
			return err
		}
		t.Grad = nil
	}
	err := t.ctx.Free(t.ptr)
	t.ptr = device.DevicePtr{}
	return err
}

// String describes the tensor shape.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.Shape)
}
