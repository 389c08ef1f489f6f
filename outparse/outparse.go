// Package outparse scrapes latency figures out of benchmark tool output.
package outparse

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

const number = `([0-9]*\.[0-9]+|[0-9]+)`

var (
	statsMarker = regexp.MustCompile(`(?i)stats:\s*`)
	firstNumber = regexp.MustCompile(number)
	elapsed     = regexp.MustCompile(`(?i)Elapsed:\s*` + number + `\s*ms`)
	timeMs      = regexp.MustCompile(`(?i)timeMs\s*.*?` + number)
)

// ParseTime extracts a latency in milliseconds from text. Strategies, in
// order:
//
//  1. the last column of the line after each "stats:" marker, latest
//     marker first
//  2. "Elapsed: <n> ms"
//  3. the first number after "timeMs"
//
// It reports false when nothing matches.
func ParseTime(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}

	parts := statsMarker.Split(text, -1)
	for i := len(parts) - 1; i >= 1; i-- {
		if v, ok := parseStatsLine(firstLine(parts[i])); ok {
			return v, true
		}
	}

	if m := elapsed.FindStringSubmatch(text); m != nil {
		return parseFloat(m[1])
	}
	if m := timeMs.FindStringSubmatch(text); m != nil {
		return parseFloat(m[1])
	}
	return 0, false
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func parseStatsLine(line string) (float64, bool) {
	var last string
	for _, tok := range strings.Split(line, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			last = tok
		}
	}
	if last == "" {
		return 0, false
	}
	m := firstNumber.FindString(last)
	if m == "" {
		return 0, false
	}
	return parseFloat(m)
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseRunOutput reads the "Forward time: <n> ms" and "Backward time: <n> ms"
// lines printed by the single-command tool. A nil result was not found;
// when a line repeats, the last one wins.
func ParseRunOutput(text string) (fwd, bwd *float64) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Forward time:"):
			if v, ok := unitValue(line); ok {
				fwd = &v
			}
		case strings.HasPrefix(line, "Backward time:"):
			if v, ok := unitValue(line); ok {
				bwd = &v
			}
		}
	}
	return fwd, bwd
}

// unitValue parses the field before the trailing unit.
func unitValue(line string) (float64, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, false
	}
	return parseFloat(fields[len(fields)-2])
}
