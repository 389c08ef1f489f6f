// Package builder turns parsed driver commands into convolution operators
// placed on a device.
package builder

import (
	"errors"
	"fmt"

	"github.com/LynnColeArt/convbench/conv"
	"github.com/LynnColeArt/convbench/device"
	"github.com/LynnColeArt/convbench/miopen"
)

// ConstructionError reports a descriptor that cannot be built into an
// operator. Field names the offending descriptor field when one is known.
type ConstructionError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConstructionError) Error() string {
	msg := "cannot build convolution"
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %s)", e.Field)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// IsConstructionError reports whether err is or wraps a ConstructionError.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

// Params converts a complete descriptor into convolution parameters.
func Params(d miopen.Descriptor) (conv.Params, error) {
	if d.Dim != 2 && d.Dim != 3 {
		return conv.Params{}, &ConstructionError{
			Field:   "dim",
			Message: fmt.Sprintf("unsupported spatial dimension %d", d.Dim),
		}
	}
	if missing := d.Missing(); len(missing) > 0 {
		return conv.Params{}, &ConstructionError{
			Field:   missing[0],
			Message: fmt.Sprintf("required fields missing %v", missing),
		}
	}
	if invalid := d.Invalid(); len(invalid) > 0 {
		v, _ := d.Get(invalid[0])
		return conv.Params{}, &ConstructionError{
			Field:   invalid[0],
			Message: fmt.Sprintf("value %s out of range", v.Raw),
		}
	}

	p := conv.Params{
		BatchSize:   d.N.Int,
		InChannels:  d.C.Int,
		OutChannels: d.K.Int,
		Groups:      d.Groups.Int,
		InSize:      []int{d.H.Int, d.W.Int},
		KernelSize:  []int{d.Y.Int, d.X.Int},
		Stride:      []int{d.StrideH.Int, d.StrideW.Int},
		Padding:     []int{d.PadH.Int, d.PadW.Int},
		Dilation:    []int{d.DilH.Int, d.DilW.Int},
	}
	if d.Dim == 3 {
		p.InSize = []int{d.D.Int, d.H.Int, d.W.Int}
		p.KernelSize = []int{d.FilD.Int, d.Y.Int, d.X.Int}
		p.Stride = []int{d.StrideD.Int, d.StrideH.Int, d.StrideW.Int}
		p.Padding = []int{d.PadD.Int, d.PadH.Int, d.PadW.Int}
		p.Dilation = []int{d.DilD.Int, d.DilH.Int, d.DilW.Int}
	}
	return p, nil
}

// Build creates the convolution described by d on ctx and returns it with
// the shape of its input: [n, c, H, W] or [n, c, D, H, W].
func Build(ctx *device.Context, d miopen.Descriptor) (*conv.Conv, []int, error) {
	p, err := Params(d)
	if err != nil {
		return nil, nil, err
	}

	op, err := conv.New(ctx, p)
	if err != nil {
		return nil, nil, &ConstructionError{Message: "invalid operator", Err: err}
	}
	return op, p.InputShape(), nil
}
