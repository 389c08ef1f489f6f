package batch

import (
	"context"
	"os"
	"os/exec"
)

// Runner runs an external program and returns its combined stdout and
// stderr. env entries are added to the current environment.
type Runner interface {
	Run(ctx context.Context, name string, args []string, env []string) (string, error)
}

// ExecRunner runs programs with os/exec. It blocks until the program
// exits or ctx is cancelled.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args []string, env []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// toolInvocation builds the call of the single-command tool for cmd.
// With an interpreter, script is passed as its first argument.
func toolInvocation(interpreter, script, cmd string) (string, []string) {
	args := []string{"--cmd", cmd}
	if interpreter == "" {
		return script, args
	}
	return interpreter, append([]string{script}, args...)
}
