package miopen

import (
	"fmt"
	"strings"
)

// SpatialDim selects the field set. It is resolved before any other field.
var SpatialDim = Optional("dim", 2, "--spatial_dim")

// Common fields are parsed for every rank.
var Common = []Field{
	Required("n", "-n"),
	Required("c", "-c"),
	Required("k", "-k"),
	Optional("groups", 1, "-g"),
}

// Fields2D are parsed when the spatial dimension is 2.
var Fields2D = []Field{
	Required("H", "-H"),
	Required("W", "-W"),
	Required("y", "-y"),
	Required("x", "-x"),
	Optional("pad_h", 0, "-p"),
	Optional("pad_w", 0, "-q"),
	Optional("stride_h", 1, "-u"),
	Optional("stride_w", 1, "-v"),
	Optional("dil_h", 1, "-l"),
	Optional("dil_w", 1, "-j"),
}

// Fields3D are parsed for any other spatial dimension.
var Fields3D = []Field{
	Required("D", "--in_d"),
	Required("H", "-H"),
	Required("W", "-W"),
	Required("fil_d", "--fil_d"),
	Required("y", "-y"),
	Required("x", "-x"),
	Optional("pad_d", 0, "--pad_d"),
	Optional("pad_h", 0, "-p"),
	Optional("pad_w", 0, "-q"),
	Optional("stride_d", 1, "--conv_stride_d"),
	Optional("stride_h", 1, "-u"),
	Optional("stride_w", 1, "-v"),
	Optional("dil_d", 1, "--dilation_d"),
	Optional("dil_h", 1, "-l"),
	Optional("dil_w", 1, "-j"),
}

// Descriptor is a parsed convolution command. Fields that do not belong
// to the descriptor's rank stay Missing.
type Descriptor struct {
	Dim int

	N, C, K, Groups Value

	D, H, W                   Value
	FilD, Y, X                Value
	PadD, PadH, PadW          Value
	StrideD, StrideH, StrideW Value
	DilD, DilH, DilW          Value
}

// Parse parses cmd with LiteralMatcher.
func Parse(cmd string) Descriptor {
	return ParseWith(cmd, LiteralMatcher{})
}

// ParseWith parses cmd with m. It never fails: flags that are not found
// resolve to their default or to Missing.
func ParseWith(cmd string, m Matcher) Descriptor {
	d := Descriptor{Dim: Extract(cmd, SpatialDim, m).Int}
	for _, f := range d.Fields() {
		*d.slot(f.Name) = Extract(cmd, f, m)
	}
	return d
}

// Fields returns the field table for the descriptor's rank.
func (d *Descriptor) Fields() []Field {
	spatial := Fields3D
	if d.Dim == 2 {
		spatial = Fields2D
	}
	fields := make([]Field, 0, len(Common)+len(spatial))
	fields = append(fields, Common...)
	return append(fields, spatial...)
}

// Get returns the value of the named field.
func (d *Descriptor) Get(name string) (Value, bool) {
	v := d.slot(name)
	if v == nil {
		return Value{}, false
	}
	return *v, true
}

func (d *Descriptor) slot(name string) *Value {
	switch name {
	case "n":
		return &d.N
	case "c":
		return &d.C
	case "k":
		return &d.K
	case "groups":
		return &d.Groups
	case "D":
		return &d.D
	case "H":
		return &d.H
	case "W":
		return &d.W
	case "fil_d":
		return &d.FilD
	case "y":
		return &d.Y
	case "x":
		return &d.X
	case "pad_d":
		return &d.PadD
	case "pad_h":
		return &d.PadH
	case "pad_w":
		return &d.PadW
	case "stride_d":
		return &d.StrideD
	case "stride_h":
		return &d.StrideH
	case "stride_w":
		return &d.StrideW
	case "dil_d":
		return &d.DilD
	case "dil_h":
		return &d.DilH
	case "dil_w":
		return &d.DilW
	}
	return nil
}

// Missing returns the names of required fields that were not found, in
// table order.
func (d *Descriptor) Missing() []string {
	var names []string
	for _, f := range d.Fields() {
		if d.slot(f.Name).Status == Missing {
			names = append(names, f.Name)
		}
	}
	return names
}

// Invalid returns the names of fields whose value was found but could
// not be read as an int, in table order.
func (d *Descriptor) Invalid() []string {
	var names []string
	for _, f := range d.Fields() {
		if d.slot(f.Name).Status == Invalid {
			names = append(names, f.Name)
		}
	}
	return names
}

// String prints the descriptor as a field map; missing fields print as None.
func (d Descriptor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "{dim: %d", d.Dim)
	for _, f := range d.Fields() {
		fmt.Fprintf(&b, ", %s: %s", f.Name, d.slot(f.Name))
	}
	b.WriteString("}")
	return b.String()
}

// Command formats the descriptor as a driver command running pass dir,
// in the order the driver logs it.
func (d Descriptor) Command(dir Direction) string {
	var b strings.Builder
	flag := func(name string, v Value) {
		fmt.Fprintf(&b, " %s %s", name, v)
	}

	b.WriteString("conv")
	flag("-n", d.N)
	flag("-c", d.C)
	if d.Dim != 2 {
		flag("--in_d", d.D)
	}
	flag("-H", d.H)
	flag("-W", d.W)
	flag("-k", d.K)
	if d.Dim != 2 {
		flag("--fil_d", d.FilD)
	}
	flag("-y", d.Y)
	flag("-x", d.X)
	if d.Dim != 2 {
		flag("--pad_d", d.PadD)
	}
	flag("-p", d.PadH)
	flag("-q", d.PadW)
	if d.Dim != 2 {
		flag("--conv_stride_d", d.StrideD)
	}
	flag("-u", d.StrideH)
	flag("-v", d.StrideW)
	if d.Dim != 2 {
		flag("--dilation_d", d.DilD)
	}
	flag("-l", d.DilH)
	flag("-j", d.DilW)
	if d.Dim != 2 {
		fmt.Fprintf(&b, " --spatial_dim %d", d.Dim)
	}
	b.WriteString(" -m conv")
	flag("-g", d.Groups)
	fmt.Fprintf(&b, " -F %d -t 1", int(dir))
	return b.String()
}
