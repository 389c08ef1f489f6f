// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command convrun parses one MIOpenDriver convolution command, builds the
// convolution on a device and prints its mean forward and backward times.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tebeka/atexit"

	"github.com/LynnColeArt/convbench"
	"github.com/LynnColeArt/convbench/builder"
	"github.com/LynnColeArt/convbench/config"
	"github.com/LynnColeArt/convbench/device"
	"github.com/LynnColeArt/convbench/harness"
	"github.com/LynnColeArt/convbench/miopen"
)

func main() {
	var (
		cmd      = flag.String("cmd", "", "Full MIOpenDriver command line string")
		warmup   = flag.Int("warmup", config.DefaultWarmup, "Untimed passes before measuring")
		repeat   = flag.Int("repeat", config.DefaultRepeat, "Timed passes to average")
		deviceID = flag.Int("device", config.DefaultDeviceID, "Device to run on")
		matcher  = flag.String("matcher", "literal", "Flag matching: literal or token")
		version  = flag.Bool("version", false, "Print the version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println(convbench.VersionString())
		atexit.Exit(0)
	}

	if *cmd == "" {
		fmt.Println("Usage: convrun --cmd <MIOpenDriver command>")
		atexit.Exit(1)
	}

	var m miopen.Matcher
	switch *matcher {
	case "literal":
		m = miopen.LiteralMatcher{}
	case "token":
		m = miopen.TokenMatcher{}
	default:
		fatalf("Unknown matcher %q", *matcher)
	}

	ctx, err := device.NewContext(*deviceID)
	if err != nil {
		fatalf("Failed to open device: %v", err)
	}
	atexit.Register(ctx.Destroy)

	fmt.Println("\n=== Parsing MIOpenDriver command ===")
	d := miopen.ParseWith(*cmd, m)
	fmt.Println(d)

	op, shape, err := builder.Build(ctx, d)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("device: %s\n", ctx.Device())

	opts := harness.Options{Warmup: *warmup, Repeat: *repeat}

	logCommands(d, miopen.Forward)
	fwd, err := harness.MeasureForward(ctx, op, shape, opts)
	if err != nil {
		fatalf("%v", err)
	}

	logCommands(d, miopen.BackwardData, miopen.BackwardWeights)
	bwd, err := harness.MeasureBackward(ctx, op, shape, opts)
	if err != nil {
		fatalf("%v", err)
	}

	printTimes(os.Stdout, fwd, bwd)
	atexit.Exit(0)
}

// printTimes writes the result lines batch runs scrape from the output.
func printTimes(w io.Writer, fwd, bwd float64) {
	fmt.Fprintf(w, "Forward time:  %.4f ms\n", fwd)
	fmt.Fprintf(w, "Backward time: %.4f ms\n", bwd)
}

// logCommands prints the driver command of each pass when command logging
// is enabled in the environment.
func logCommands(d miopen.Descriptor, dirs ...miopen.Direction) {
	if v := os.Getenv(config.EnvLogCmd); v == "" || v == "0" {
		return
	}
	for _, dir := range dirs {
		fmt.Fprintln(os.Stderr, miopen.LogLine(d, dir))
	}
}

func fatalf(format string, args ...interface{}) {
	log.Printf(format, args...)
	atexit.Exit(1)
}
