// Package batch drives convolution timing over a list of driver commands
// and collects one row per command.
package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadCommands returns the non-blank lines of r, trimmed.
func ReadCommands(r io.Reader) ([]string, error) {
	var cmds []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			cmds = append(cmds, line)
		}
	}
	return cmds, scanner.Err()
}

// ReadCommandFile reads a command list from path.
func ReadCommandFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open command list: %w", err)
	}
	defer f.Close()
	return ReadCommands(f)
}

// Row is the result for one input command. Nil fields were not measured.
// F2 and F4 are only set by driver batches.
type Row struct {
	Command  string
	Forward  *float64
	Backward *float64
	F2       *float64
	F4       *float64
}

// FormatMs prints a measurement for progress output.
func FormatMs(v *float64) string {
	if v == nil {
		return "None"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
