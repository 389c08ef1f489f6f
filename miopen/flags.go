package miopen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Direction is the driver's -F pass selector.
type Direction int

const (
	Forward         Direction = 1
	BackwardData    Direction = 2
	BackwardWeights Direction = 4
)

// Directions lists the passes a driver batch runs for each command.
var Directions = []Direction{Forward, BackwardData, BackwardWeights}

func (d Direction) String() string {
	switch d {
	case Forward:
		return "Forward"
	case BackwardData:
		return "BackwardData"
	case BackwardWeights:
		return "BackwardWeights"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ReplaceFlag sets flag to value in cmd. Every existing "<flag> <digits>"
// occurrence is rewritten; if there is none, the flag is appended.
func ReplaceFlag(cmd, flag string, value int) string {
	re := compile(regexp.QuoteMeta(flag) + `\s+\d+`)
	repl := flag + " " + strconv.Itoa(value)
	if re.MatchString(cmd) {
		return re.ReplaceAllLiteralString(cmd, repl)
	}
	return cmd + " " + repl
}

// HasFlagValue reports whether cmd contains the literal text "<flag> <value>".
func HasFlagValue(cmd, flag string, value int) bool {
	return strings.Contains(cmd, flag+" "+strconv.Itoa(value))
}
