package batch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/xid"

	"github.com/LynnColeArt/convbench/config"
	"github.com/LynnColeArt/convbench/miopen"
)

// Verdict is the validation outcome for one command.
type Verdict struct {
	Index   int
	Command string
	Skipped bool
	// Logged is the number of driver commands found in the tool's log.
	Logged int
	// Match is the index of the first logged command equal to Command,
	// or -1.
	Match int
	Err   error
}

// Validator checks that the single-command tool logs each input command
// verbatim when driver command logging is enabled.
type Validator struct {
	Runner      Runner
	Interpreter string
	Script      string
	// LogDir holds the captured logs; the system temp directory if empty.
	LogDir   string
	KeepLogs bool
	Out      io.Writer
}

var (
	pass = color.New(color.FgGreen)
	fail = color.New(color.FgRed)
)

// Env returns the environment the tool is run with.
func Env() []string {
	return []string{
		config.EnvLogCmd + "=1",
		config.EnvForceImmediate + "=1",
	}
}

// SkipCommand reports whether cmd already selects a backward pass.
func SkipCommand(cmd string) bool {
	return miopen.HasFlagValue(cmd, config.DirectionFlag, int(miopen.BackwardWeights)) ||
		miopen.HasFlagValue(cmd, config.DirectionFlag, int(miopen.BackwardData))
}

// Run validates cmds in order.
func (v *Validator) Run(ctx context.Context, cmds []string) []Verdict {
	verdicts := make([]Verdict, 0, len(cmds))
	for i, cmd := range cmds {
		if SkipCommand(cmd) {
			verdicts = append(verdicts, Verdict{Index: i, Command: cmd, Skipped: true, Match: -1})
			continue
		}
		fmt.Fprintf(v.Out, "\n=== Testing command #%d ===\n", i)
		fmt.Fprintf(v.Out, "Original command: %s\n", cmd)

		verdict := Verdict{Index: i, Command: cmd, Match: -1}
		logged, err := v.capture(ctx, cmd)
		if err != nil {
			log.Printf("Warning: command #%d: %v", i, err)
			verdict.Err = err
		}
		verdict.Logged = len(logged)
		fmt.Fprintf(v.Out, "Found %d conv commands in log\n", len(logged))

		verdict.Match = miopen.FindCommand(cmd, logged)
		if verdict.Match >= 0 {
			pass.Fprintf(v.Out, "✅ Match found at log entry #%d\n", verdict.Match)
		} else {
			fail.Fprintln(v.Out, "❌ Original command NOT found in log")
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts
}

// capture runs the tool on cmd, stores its output in a log file and
// returns the driver commands found in it.
func (v *Validator) capture(ctx context.Context, cmd string) ([]string, error) {
	name, args := toolInvocation(v.Interpreter, v.Script, cmd)
	out, runErr := v.Runner.Run(ctx, name, args, Env())

	dir := v.LogDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_validate_%s.log", config.SessionLogName, xid.New().String()))
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return nil, fmt.Errorf("failed to write log: %w", err)
	}
	if v.KeepLogs {
		fmt.Fprintf(v.Out, "Log kept at %s\n", path)
	} else {
		defer os.Remove(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	logged, err := miopen.ExtractDriverCommands(f)
	if err != nil {
		return logged, err
	}
	return logged, runErr
}
