package batch

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/LynnColeArt/convbench/outparse"
)

// ScriptBatch runs the single-command tool once per command and scrapes
// its "Forward time:" and "Backward time:" lines.
type ScriptBatch struct {
	Runner Runner
	// Interpreter, when set, runs Script as its first argument.
	Interpreter string
	Script      string
	Out         io.Writer
	Session     *Session
}

// Run processes cmds in order and returns one row per command.
func (b *ScriptBatch) Run(ctx context.Context, cmds []string) []Row {
	rows := make([]Row, 0, len(cmds))
	for i, cmd := range cmds {
		fmt.Fprintf(b.Out, "[%d/%d] Running command:\n%s\n", i+1, len(cmds), cmd)

		name, args := toolInvocation(b.Interpreter, b.Script, cmd)
		out, err := b.Runner.Run(ctx, name, args, nil)
		fwd, bwd := outparse.ParseRunOutput(out)
		fmt.Fprintf(b.Out, "fwd: %s, bwd: %s\n", FormatMs(fwd), FormatMs(bwd))

		if fwd == nil || bwd == nil {
			fmt.Fprintf(b.Out, "Warning: Failed to parse time from output:\n%s\n", out)
			if err == nil {
				err = fmt.Errorf("no timing in output")
			}
		}
		if err != nil {
			log.Printf("Warning: command %d: %v", i+1, err)
		}

		row := Row{Command: cmd, Forward: fwd, Backward: bwd}
		if err := b.Session.Record(row, err); err != nil {
			log.Printf("Failed to write session log: %v", err)
		}
		rows = append(rows, row)
	}
	return rows
}
