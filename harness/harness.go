// Package harness measures operator latency with a warmup+repeat
// protocol. Every timed region is bracketed by device events recorded on
// the context's stream, with the stream synchronized right before the
// start event and right after the end event, so samples reflect completed
// device work rather than dispatch.
package harness

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/LynnColeArt/convbench/config"
	"github.com/LynnColeArt/convbench/device"
	"github.com/LynnColeArt/convbench/tensor"
)

// ErrInvalidOptions is returned for a warmup or repeat count out of range.
var ErrInvalidOptions = errors.New("invalid timing options")

// Options controls the timing protocol.
type Options struct {
	Warmup int
	Repeat int
}

// DefaultOptions returns 3 warmup passes and 10 timed passes.
func DefaultOptions() Options {
	return Options{Warmup: config.DefaultWarmup, Repeat: config.DefaultRepeat}
}

// Validate checks the counts.
func (o Options) Validate() error {
	if o.Warmup < 0 {
		return fmt.Errorf("%w: warmup %d", ErrInvalidOptions, o.Warmup)
	}
	if o.Repeat < 1 {
		return fmt.Errorf("%w: repeat %d", ErrInvalidOptions, o.Repeat)
	}
	return nil
}

// Operator is a differentiable operation that enqueues its work on a
// device stream. Backward applies to the most recent Forward.
type Operator interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	Backward(gradOut *tensor.Tensor) error
	ZeroGrad()
}

// Result holds mean latencies in milliseconds. A nil field was not measured.
type Result struct {
	Forward  *float64
	Backward *float64
}

// MeasurementError reports a device failure during a measurement.
type MeasurementError struct {
	Pass string
	Err  error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("%s measurement failed: %v", e.Pass, e.Err)
}

func (e *MeasurementError) Unwrap() error {
	return e.Err
}

// IsMeasurementError reports whether err is or wraps a MeasurementError.
func IsMeasurementError(err error) bool {
	var me *MeasurementError
	return errors.As(err, &me)
}

// timer times one region of stream work.
type timer struct {
	ctx        *device.Context
	start, end *device.Event
	samples    []float64
}

func newTimer(ctx *device.Context, n int) *timer {
	return &timer{
		ctx:     ctx,
		start:   device.NewEvent(),
		end:     device.NewEvent(),
		samples: make([]float64, 0, n),
	}
}

func (t *timer) time(region func() error) error {
	if err := t.ctx.Synchronize(); err != nil {
		return err
	}
	stream := t.ctx.Stream()
	t.start.Record(stream)
	if err := region(); err != nil {
		t.ctx.Synchronize()
		return err
	}
	t.end.Record(stream)
	if err := t.ctx.Synchronize(); err != nil {
		return err
	}
	ms, err := t.start.ElapsedTime(t.end)
	if err != nil {
		return err
	}
	t.samples = append(t.samples, ms)
	return nil
}

func (t *timer) mean() float64 {
	return stat.Mean(t.samples, nil)
}

// MeasureForward returns the mean forward latency of op on an input of
// the given shape.
func MeasureForward(ctx *device.Context, op Operator, shape []int, opts Options) (float64, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	// Queued work must drain before the deferred frees run.
	fail := func(err error) (float64, error) {
		ctx.Synchronize()
		return 0, &MeasurementError{Pass: "forward", Err: err}
	}

	x, err := tensor.RandN(ctx, shape)
	if err != nil {
		return fail(err)
	}
	defer x.Free()

	forward := func() error {
		y, err := op.Forward(x)
		if err != nil {
			return err
		}
		err = ctx.Synchronize()
		y.Free()
		return err
	}

	for i := 0; i < opts.Warmup; i++ {
		if err := forward(); err != nil {
			return fail(err)
		}
	}

	t := newTimer(ctx, opts.Repeat)
	for i := 0; i < opts.Repeat; i++ {
		var y *tensor.Tensor
		err := t.time(func() error {
			var err error
			y, err = op.Forward(x)
			return err
		})
		y.Free()
		if err != nil {
			return fail(err)
		}
	}
	return t.mean(), nil
}

// MeasureBackward returns the mean backward latency of op. Each trial runs
// an untimed forward whose loss is the sum of the output, resets the
// gradients and times only the backward pass.
func MeasureBackward(ctx *device.Context, op Operator, shape []int, opts Options) (float64, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	// Queued work must drain before the deferred frees run.
	fail := func(err error) (float64, error) {
		ctx.Synchronize()
		return 0, &MeasurementError{Pass: "backward", Err: err}
	}

	x, err := tensor.RandN(ctx, shape)
	if err != nil {
		return fail(err)
	}
	defer x.Free()
	x.RequiresGrad = true

	// d(sum y)/dy
	var seed *tensor.Tensor
	defer func() { seed.Free() }()

	prepare := func() (*tensor.Tensor, error) {
		y, err := op.Forward(x)
		if err != nil {
			return nil, err
		}
		if seed == nil {
			if seed, err = tensor.Full(ctx, y.Shape, 1); err != nil {
				ctx.Synchronize()
				y.Free()
				return nil, err
			}
		}
		op.ZeroGrad()
		ctx.Stream().Submit(func() error {
			x.ZeroGrad()
			return nil
		})
		return y, nil
	}

	for i := 0; i < opts.Warmup; i++ {
		y, err := prepare()
		if err != nil {
			return fail(err)
		}
		err = op.Backward(seed)
		if serr := ctx.Synchronize(); err == nil {
			err = serr
		}
		y.Free()
		if err != nil {
			return fail(err)
		}
	}

	t := newTimer(ctx, opts.Repeat)
	for i := 0; i < opts.Repeat; i++ {
		y, err := prepare()
		if err != nil {
			return fail(err)
		}
		err = t.time(func() error {
			return op.Backward(seed)
		})
		y.Free()
		if err != nil {
			return fail(err)
		}
	}
	return t.mean(), nil
}

// Measure runs MeasureForward then MeasureBackward. It returns an empty
// Result on the first error.
func Measure(ctx *device.Context, op Operator, shape []int, opts Options) (Result, error) {
	fwd, err := MeasureForward(ctx, op, shape, opts)
	if err != nil {
		return Result{}, err
	}
	bwd, err := MeasureBackward(ctx, op, shape, opts)
	if err != nil {
		return Result{}, err
	}
	return Result{Forward: &fwd, Backward: &bwd}, nil
}
