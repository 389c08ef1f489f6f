// Package miopen parses MIOpenDriver convolution commands into
// descriptors and formats descriptors back into driver commands.
//
// Flags are matched literally: the configured flag string followed by
// whitespace and a decimal integer. Callers that need protection against
// prefix collisions can parse with TokenMatcher instead.
//
//	d := miopen.Parse("conv -n 8 -c 3 -k 64 -H 224 -W 224 -y 7 -x 7 -p 3 -q 3 -u 2 -v 2")
//	if missing := d.Missing(); len(missing) > 0 {
//		// reject
//	}
package miopen

import (
	"regexp"
	"strconv"
	"sync"
)

// Status records how a descriptor value was resolved.
type Status int

const (
	// Missing means a required flag was not found.
	Missing Status = iota
	// Defaulted means an optional flag was not found and its default applies.
	Defaulted
	// Present means the value was read from the command.
	Present
	// Invalid means a flag was found but its value does not fit an int.
	Invalid
)

func (s Status) String() string {
	switch s {
	case Missing:
		return "Missing"
	case Defaulted:
		return "Defaulted"
	case Present:
		return "Present"
	case Invalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Value is a resolved descriptor field. Raw holds the matched digits of
// an Invalid value.
type Value struct {
	Int    int
	Status Status
	Raw    string
}

// Valid reports whether the value can be used.
func (v Value) Valid() bool {
	return v.Status == Present || v.Status == Defaulted
}

func (v Value) String() string {
	switch v.Status {
	case Missing:
		return "None"
	case Invalid:
		return v.Raw
	}
	return strconv.Itoa(v.Int)
}

// Field describes one descriptor field: the flags that set it, tried in
// order, and whether it has a default.
type Field struct {
	Name     string
	Flags    []string
	Required bool
	Default  int
}

// Required returns a field that resolves to Missing when no flag matches.
func Required(name string, flags ...string) Field {
	return Field{Name: name, Flags: flags, Required: true}
}

// Optional returns a field that resolves to def when no flag matches.
func Optional(name string, def int, flags ...string) Field {
	return Field{Name: name, Flags: flags, Default: def}
}

// Matcher finds the decimal digits following a flag in a command.
type Matcher interface {
	Match(cmd, flag string) (string, bool)
}

// LiteralMatcher matches the exact flag string anywhere in the command,
// including the tail of a longer flag such as "--x-p 1".
type LiteralMatcher struct{}

// Match implements Matcher.
func (LiteralMatcher) Match(cmd, flag string) (string, bool) {
	return matchPattern(cmd, regexp.QuoteMeta(flag)+`\s+(\d+)`)
}

// TokenMatcher only matches a flag that starts the command or follows
// whitespace.
type TokenMatcher struct{}

// Match implements Matcher.
func (TokenMatcher) Match(cmd, flag string) (string, bool) {
	return matchPattern(cmd, `(?:^|\s)`+regexp.QuoteMeta(flag)+`\s+(\d+)`)
}

var patterns sync.Map // string -> *regexp.Regexp

func compile(pattern string) *regexp.Regexp {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := patterns.LoadOrStore(pattern, regexp.MustCompile(pattern))
	return re.(*regexp.Regexp)
}

func matchPattern(cmd, pattern string) (string, bool) {
	m := compile(pattern).FindStringSubmatch(cmd)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Extract resolves f against cmd. The first flag alias that matches wins.
// A matched value that overflows int resolves to Invalid, never to the
// default.
func Extract(cmd string, f Field, m Matcher) Value {
	for _, flag := range f.Flags {
		if digits, ok := m.Match(cmd, flag); ok {
			n, err := strconv.Atoi(digits)
			if err != nil {
				return Value{Status: Invalid, Raw: digits}
			}
			return Value{Int: n, Status: Present}
		}
	}
	if f.Required {
		return Value{Status: Missing}
	}
	return Value{Int: f.Default, Status: Defaulted}
}
