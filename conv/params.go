package conv

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is wrapped by every Params validation failure.
var ErrInvalidParams = errors.New("invalid convolution parameters")

// Params defines a bias-free grouped convolution over 2 or 3 spatial
// dimensions. Spatial slices are ordered outermost first: [H, W] for
// 2-D, [D, H, W] for 3-D.
type Params struct {
	BatchSize   int
	InChannels  int
	OutChannels int
	Groups      int

	InSize     []int
	KernelSize []int
	Stride     []int
	Padding    []int
	Dilation   []int
}

// Rank returns the number of spatial dimensions.
func (p *Params) Rank() int {
	return len(p.InSize)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}

// Validate checks if convolution parameters are valid
func (p *Params) Validate() error {
	r := p.Rank()
	if r != 2 && r != 3 {
		return invalid("unsupported spatial rank %d", r)
	}
	for _, f := range []struct {
		name string
		v    []int
	}{
		{"kernel size", p.KernelSize},
		{"stride", p.Stride},
		{"padding", p.Padding},
		{"dilation", p.Dilation},
	} {
		if len(f.v) != r {
			return invalid("%s has %d dimensions, want %d", f.name, len(f.v), r)
		}
	}

	if p.BatchSize <= 0 || p.InChannels <= 0 {
		return invalid("invalid input dimensions n=%d c=%d", p.BatchSize, p.InChannels)
	}
	if p.OutChannels <= 0 {
		return invalid("invalid output channels k=%d", p.OutChannels)
	}
	if p.Groups <= 0 {
		return invalid("invalid groups %d", p.Groups)
	}
	if p.InChannels%p.Groups != 0 {
		return invalid("in_channels %d must be divisible by groups %d", p.InChannels, p.Groups)
	}
	if p.OutChannels%p.Groups != 0 {
		return invalid("out_channels %d must be divisible by groups %d", p.OutChannels, p.Groups)
	}

	for i := 0; i < r; i++ {
		switch {
		case p.InSize[i] <= 0:
			return invalid("invalid input size %v", p.InSize)
		case p.KernelSize[i] <= 0:
			return invalid("invalid kernel size %v", p.KernelSize)
		case p.Stride[i] <= 0:
			return invalid("invalid stride %v", p.Stride)
		case p.Dilation[i] <= 0:
			return invalid("invalid dilation %v", p.Dilation)
		case p.Padding[i] < 0:
			return invalid("invalid padding %v", p.Padding)
		}
	}

	for i, o := range p.OutputSize() {
		if o <= 0 {
			return invalid("kernel %v with dilation %v does not fit padded input %v (axis %d)",
				p.KernelSize, p.Dilation, p.InSize, i)
		}
	}
	return nil
}

// OutputSize computes the spatial output size after convolution
func (p *Params) OutputSize() []int {
	out := make([]int, p.Rank())
	for i := range out {
		effective := (p.KernelSize[i]-1)*p.Dilation[i] + 1
		span := p.InSize[i] + 2*p.Padding[i] - effective
		if span < 0 {
			out[i] = 0
			continue
		}
		out[i] = span/p.Stride[i] + 1
	}
	return out
}

// InputShape returns [N, C, spatial...].
func (p *Params) InputShape() []int {
	return append([]int{p.BatchSize, p.InChannels}, p.InSize...)
}

// OutputShape returns [N, K, out spatial...].
func (p *Params) OutputShape() []int {
	return append([]int{p.BatchSize, p.OutChannels}, p.OutputSize()...)
}

// WeightShape returns [K, C/groups, kernel...].
func (p *Params) WeightShape() []int {
	return append([]int{p.OutChannels, p.InChannels / p.Groups}, p.KernelSize...)
}

// geometry is the convolution lowered to three spatial axes; 2-D
// problems get a unit depth axis.
type geometry struct {
	in, kernel, out       [3]int
	stride, pad, dil      [3]int
	inSpatial, outSpatial int
	kernelSpatial         int
	cg, kg                int
	colRows, colCols      int
}

func (p *Params) geometry() geometry {
	var g geometry
	out := p.OutputSize()
	shift := 3 - p.Rank()
	for i := 0; i < 3; i++ {
		g.in[i], g.kernel[i], g.out[i] = 1, 1, 1
		g.stride[i], g.dil[i] = 1, 1
	}
	for i := 0; i < p.Rank(); i++ {
		j := i + shift
		g.in[j] = p.InSize[i]
		g.kernel[j] = p.KernelSize[i]
		g.out[j] = out[i]
		g.stride[j] = p.Stride[i]
		g.pad[j] = p.Padding[i]
		g.dil[j] = p.Dilation[i]
	}
	g.inSpatial = g.in[0] * g.in[1] * g.in[2]
	g.outSpatial = g.out[0] * g.out[1] * g.out[2]
	g.kernelSpatial = g.kernel[0] * g.kernel[1] * g.kernel[2]
	g.cg = p.InChannels / p.Groups
	g.kg = p.OutChannels / p.Groups
	g.colRows = g.cg * g.kernelSpatial
	g.colCols = g.outSpatial
	return g
}
