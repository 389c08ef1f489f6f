package miopen

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/LynnColeArt/convbench/config"
)

var driverCommand = regexp.MustCompile(config.DriverProgram + `\s+conv\b.*`)

// LogLine formats the log entry a driver run of d in direction dir emits.
func LogLine(d Descriptor, dir Direction) string {
	return fmt.Sprintf("%s %s %s", config.CommandLogPrefix, config.DriverProgram, d.Command(dir))
}

// ExtractDriverCommands returns every driver convolution command found in
// r, one per line, trimmed.
func ExtractDriverCommands(r io.Reader) ([]string, error) {
	var cmds []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if m := driverCommand.FindString(scanner.Text()); m != "" {
			cmds = append(cmds, strings.TrimSpace(m))
		}
	}
	return cmds, scanner.Err()
}

// FindCommand returns the index of the first logged command equal to
// original after trimming, or -1.
func FindCommand(original string, logged []string) int {
	original = strings.TrimSpace(original)
	for i, cmd := range logged {
		if cmd == original {
			return i
		}
	}
	return -1
}
