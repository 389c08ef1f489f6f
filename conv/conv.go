// Package conv implements bias-free grouped 2-D and 3-D convolution on a
// device, with forward, backward-data and backward-weights passes.
//
// Convolution is lowered to im2col + GEMM per (sample, group) pair:
//
//	kernel:  [kg, cg*kd*kh*kw]
//	im2col:  [cg*kd*kh*kw, od*oh*ow]
//	output:  [kg, od*oh*ow]
//
// Work is submitted to the context's default stream; results are only
// visible on the host after synchronizing.
package conv

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/LynnColeArt/convbench/device"
	"github.com/LynnColeArt/convbench/tensor"
)

// workspaceBudget caps the im2col workspace held across workers, in bytes.
const workspaceBudget = 512 << 20

// Conv is a convolution operator with its weights resident on a device.
type Conv struct {
	Params Params
	Weight *tensor.Tensor

	ctx     *device.Context
	geom    geometry
	workers int

	// input saved by the last Forward for Backward
	input *tensor.Tensor

	cols     []device.DevicePtr
	dcols    []device.DevicePtr
	partials []device.DevicePtr
}

// New validates p and creates the operator on ctx. Weights are drawn
// from U(-1/sqrt(fan_in), 1/sqrt(fan_in)).
func New(ctx *device.Context, p Params) (*Conv, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = Params{
		BatchSize:   p.BatchSize,
		InChannels:  p.InChannels,
		OutChannels: p.OutChannels,
		Groups:      p.Groups,
		InSize:      slices.Clone(p.InSize),
		KernelSize:  slices.Clone(p.KernelSize),
		Stride:      slices.Clone(p.Stride),
		Padding:     slices.Clone(p.Padding),
		Dilation:    slices.Clone(p.Dilation),
	}

	w, err := tensor.New(ctx, p.WeightShape())
	if err != nil {
		return nil, err
	}
	g := p.geometry()
	bound := 1 / math.Sqrt(float64(g.colRows))
	uniform := distuv.Uniform{Min: -bound, Max: bound}
	data := w.Data()
	for i := range data {
		data[i] = float32(uniform.Rand())
	}
	w.RequiresGrad = true

	colBytes := g.colRows * g.colCols * 4
	maxWorkers := workspaceBudget / (2 * colBytes)
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	return &Conv{
		Params:  p,
		Weight:  w,
		ctx:     ctx,
		geom:    g,
		workers: ctx.Device().Workers(p.BatchSize*p.Groups, maxWorkers),
	}, nil
}

func checkShape(op string, got, want []int) error {
	if !slices.Equal(got, want) {
		return device.NewInvalidArgError(op, fmt.Sprintf("shape %v, want %v", got, want))
	}
	return nil
}

// Forward enqueues y = conv(x, W) and returns the output tensor. x is
// kept for a following Backward.
func (c *Conv) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkShape("Conv.Forward", x.Shape, c.Params.InputShape()); err != nil {
		return nil, err
	}
	y, err := tensor.New(c.ctx, c.Params.OutputShape())
	if err != nil {
		return nil, err
	}
	c.input = x

	w := c.Weight
	c.ctx.Stream().Submit(func() error {
		if err := c.ensureWorkspace(false); err != nil {
			return err
		}
		c.forward(x.Data(), w.Data(), y.Data())
		return nil
	})
	return y, nil
}

// Backward enqueues the gradient computation for the last Forward given
// the gradient of the loss with respect to its output. Gradients are
// accumulated into Weight.Grad and, when the input requires it, the
// input's Grad.
func (c *Conv) Backward(gradOut *tensor.Tensor) error {
	x := c.input
	if x == nil {
		return device.NewInvalidArgError("Conv.Backward", "backward called before forward")
	}
	if err := checkShape("Conv.Backward", gradOut.Shape, c.Params.OutputShape()); err != nil {
		return err
	}

	wgrad, err := c.Weight.EnsureGrad()
	if err != nil {
		return err
	}
	var xgrad *tensor.Tensor
	if x.RequiresGrad {
		if xgrad, err = x.EnsureGrad(); err != nil {
			return err
		}
	}

	w := c.Weight
	c.ctx.Stream().Submit(func() error {
		if err := c.ensureWorkspace(true); err != nil {
			return err
		}
		var dx []float32
		if xgrad != nil {
			dx = xgrad.Data()
		}
		c.backward(x.Data(), w.Data(), gradOut.Data(), wgrad.Data(), dx)
		return nil
	})
	return nil
}

// ZeroGrad enqueues a reset of the weight gradient.
func (c *Conv) ZeroGrad() {
	w := c.Weight
	c.ctx.Stream().Submit(func() error {
		w.ZeroGrad()
		return nil
	})
}

// Free returns the weights and workspaces to the device pool. The
// caller must synchronize before freeing.
func (c *Conv) Free() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for _, set := range [][]device.DevicePtr{c.cols, c.dcols, c.partials} {
		for _, ptr := range set {
			keep(c.ctx.Free(ptr))
		}
	}
	c.cols, c.dcols, c.partials = nil, nil, nil
	keep(c.Weight.Free())
	c.input = nil
	return first
}

// String formats the operator like a layer summary.
func (c *Conv) String() string {
	p := &c.Params
	tuple := func(v []int) string {
		s := make([]string, len(v))
		for i, x := range v {
			s[i] = fmt.Sprint(x)
		}
		return "(" + strings.Join(s, ", ") + ")"
	}
	return fmt.Sprintf("Conv%dd(%d, %d, kernel_size=%s, stride=%s, padding=%s, dilation=%s, groups=%d, bias=False)",
		p.Rank(), p.InChannels, p.OutChannels, tuple(p.KernelSize), tuple(p.Stride),
		tuple(p.Padding), tuple(p.Dilation), p.Groups)
}

func (c *Conv) ensureWorkspace(backward bool) error {
	alloc := func(set *[]device.DevicePtr, floats int) error {
		if *set != nil {
			return nil
		}
		ptrs := make([]device.DevicePtr, c.workers)
		for i := range ptrs {
			ptr, err := c.ctx.Malloc(floats * 4)
			if err != nil {
				for _, p := range ptrs[:i] {
					c.ctx.Free(p)
				}
				return err
			}
			ptrs[i] = ptr
		}
		*set = ptrs
		return nil
	}

	g := &c.geom
	if err := alloc(&c.cols, g.colRows*g.colCols); err != nil {
		return err
	}
	if !backward {
		return nil
	}
	if err := alloc(&c.dcols, g.colRows*g.colCols); err != nil {
		return err
	}
	return alloc(&c.partials, c.Weight.Len())
}

func matrix(rows, cols int, data []float32) blas32.General {
	return blas32.General{Rows: rows, Cols: cols, Data: data[:rows*cols], Stride: cols}
}

func (c *Conv) groupInput(x []float32, b, grp int) []float32 {
	g := &c.geom
	start := (b*c.Params.InChannels + grp*g.cg) * g.inSpatial
	return x[start : start+g.cg*g.inSpatial]
}

func (c *Conv) groupOutput(y []float32, b, grp int) []float32 {
	g := &c.geom
	start := (b*c.Params.OutChannels + grp*g.kg) * g.outSpatial
	return y[start : start+g.kg*g.outSpatial]
}

func (c *Conv) groupWeight(w []float32, grp int) []float32 {
	g := &c.geom
	n := g.kg * g.colRows
	return w[grp*n : (grp+1)*n]
}

func (c *Conv) forward(x, w, y []float32) {
	g := &c.geom
	groups := c.Params.Groups

	c.ctx.Device().ParallelFor(c.Params.BatchSize*groups, c.workers, func(worker, start, end int) {
		col := c.cols[worker].Float32()
		for i := start; i < end; i++ {
			b, grp := i/groups, i%groups
			im2col(c.groupInput(x, b, grp), g, col)
			blas32.Gemm(blas.NoTrans, blas.NoTrans,
				1, matrix(g.kg, g.colRows, c.groupWeight(w, grp)), matrix(g.colRows, g.colCols, col),
				0, matrix(g.kg, g.colCols, c.groupOutput(y, b, grp)))
		}
	})
}

func (c *Conv) backward(x, w, gy, dw, dx []float32) {
	g := &c.geom
	groups := c.Params.Groups

	// Each worker accumulates its own weight gradient; they are summed below.
	for _, ptr := range c.partials {
		clear(ptr.Float32())
	}

	c.ctx.Device().ParallelFor(c.Params.BatchSize*groups, c.workers, func(worker, start, end int) {
		col := c.cols[worker].Float32()
		dcol := c.dcols[worker].Float32()
		partial := c.partials[worker].Float32()
		for i := start; i < end; i++ {
			b, grp := i/groups, i%groups
			gyMat := matrix(g.kg, g.colCols, c.groupOutput(gy, b, grp))

			// dW += dY * col^T
			im2col(c.groupInput(x, b, grp), g, col)
			blas32.Gemm(blas.NoTrans, blas.Trans,
				1, gyMat, matrix(g.colRows, g.colCols, col),
				1, matrix(g.kg, g.colRows, c.groupWeight(partial, grp)))

			// dX += col2im(W^T * dY)
			if dx != nil {
				blas32.Gemm(blas.Trans, blas.NoTrans,
					1, matrix(g.kg, g.colRows, c.groupWeight(w, grp)), gyMat,
					0, matrix(g.colRows, g.colCols, dcol))
				col2im(dcol, g, c.groupInput(dx, b, grp))
			}
		}
	})

	for _, ptr := range c.partials {
		for i, v := range ptr.Float32() {
			dw[i] += v
		}
	}
}
