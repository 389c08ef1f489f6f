package batch

import (
	"fmt"
	"io"
	"log"

	"github.com/LynnColeArt/convbench/builder"
	"github.com/LynnColeArt/convbench/device"
	"github.com/LynnColeArt/convbench/harness"
	"github.com/LynnColeArt/convbench/miopen"
)

// InProcessBatch parses, builds and measures each command on a device
// context. A failing command yields a row with no timings.
type InProcessBatch struct {
	Ctx     *device.Context
	Options harness.Options
	Matcher miopen.Matcher
	Out     io.Writer
	Session *Session
}

// Run processes cmds in order and returns one row per command.
func (b *InProcessBatch) Run(cmds []string) []Row {
	rows := make([]Row, 0, len(cmds))
	for i, cmd := range cmds {
		fmt.Fprintf(b.Out, "[%d/%d] Running command:\n%s\n", i+1, len(cmds), cmd)

		row := Row{Command: cmd}
		res, err := b.measure(cmd)
		if err != nil {
			log.Printf("Warning: command %d failed: %v", i+1, err)
		} else {
			row.Forward, row.Backward = res.Forward, res.Backward
		}
		fmt.Fprintf(b.Out, "fwd: %s, bwd: %s\n", FormatMs(row.Forward), FormatMs(row.Backward))

		if err := b.Session.Record(row, err); err != nil {
			log.Printf("Failed to write session log: %v", err)
		}
		rows = append(rows, row)
	}
	return rows
}

func (b *InProcessBatch) measure(cmd string) (res harness.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = harness.Result{}
			err = &harness.MeasurementError{Pass: "command", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	m := b.Matcher
	if m == nil {
		m = miopen.LiteralMatcher{}
	}
	op, shape, err := builder.Build(b.Ctx, miopen.ParseWith(cmd, m))
	if err != nil {
		return harness.Result{}, err
	}
	defer func() {
		b.Ctx.Synchronize()
		op.Free()
		b.Ctx.TrimMemory()
	}()

	return harness.Measure(b.Ctx, op, shape, b.Options)
}
