package batch

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/LynnColeArt/convbench/config"
	"github.com/LynnColeArt/convbench/miopen"
	"github.com/LynnColeArt/convbench/outparse"
)

// DriverBatch runs every command through an external driver three times,
// once per -F direction. The forward time is the F1 run and the backward
// time is F2 + F4, reported only when both were measured.
type DriverBatch struct {
	Runner  Runner
	Out     io.Writer
	Session *Session
}

// Run processes cmds in order and returns one row per command.
func (b *DriverBatch) Run(ctx context.Context, cmds []string) []Row {
	rows := make([]Row, 0, len(cmds))
	for _, cmd := range cmds {
		fmt.Fprintf(b.Out, "\n=== Processing Command ===\n%s\n", cmd)

		var times [3]*float64
		var errs []string
		for i, dir := range miopen.Directions {
			t, err := b.time(ctx, miopen.ReplaceFlag(cmd, config.DirectionFlag, int(dir)))
			if err != nil {
				errs = append(errs, err.Error())
			}
			times[i] = t
		}

		row := Row{Command: cmd, Forward: times[0], F2: times[1], F4: times[2]}
		if row.F2 != nil && row.F4 != nil {
			bwd := *row.F2 + *row.F4
			row.Backward = &bwd
		}

		fmt.Fprintf(b.Out, "  Forward (F1): %s ms\n", FormatMs(row.Forward))
		fmt.Fprintf(b.Out, "  Backward (F2+F4): %s ms  (F2=%s, F4=%s)\n",
			FormatMs(row.Backward), FormatMs(row.F2), FormatMs(row.F4))

		var err error
		if len(errs) > 0 {
			err = fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		if err := b.Session.Record(row, err); err != nil {
			log.Printf("Failed to write session log: %v", err)
		}
		rows = append(rows, row)
	}
	return rows
}

// time runs one driver command and scrapes its latency. The command's
// first token is the program. A failing run is still scraped; the error
// is only reported when no time could be recovered.
func (b *DriverBatch) time(ctx context.Context, cmd string) (*float64, error) {
	fmt.Fprintf(b.Out, "Executing: %s\n", cmd)
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	out, runErr := b.Runner.Run(ctx, fields[0], fields[1:], nil)
	if t, ok := outparse.ParseTime(out); ok {
		return &t, nil
	}
	if runErr != nil {
		log.Printf("%s: %v", fields[0], runErr)
		return nil, fmt.Errorf("%s: %w", cmd, runErr)
	}
	return nil, fmt.Errorf("%s: no timing in output", cmd)
}
