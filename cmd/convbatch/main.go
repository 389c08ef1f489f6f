// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command convbatch times every command of a command list and writes a
// forward/backward table. Commands are measured in-process unless
// --parser_script names a single-command tool to run instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tebeka/atexit"

	"github.com/LynnColeArt/convbench"
	"github.com/LynnColeArt/convbench/batch"
	"github.com/LynnColeArt/convbench/config"
	"github.com/LynnColeArt/convbench/device"
	"github.com/LynnColeArt/convbench/harness"
)

func main() {
	var (
		cmdList      = flag.String("cmd_list", "", "File with one MIOpenDriver command per line")
		outCSV       = flag.String("out_csv", config.DefaultOutCSV, "Output CSV filename")
		parserScript = flag.String("parser_script", "", "Single-command tool to run per command")
		interpreter  = flag.String("interpreter", "", "Program that runs the parser script")
		warmup       = flag.Int("warmup", config.DefaultWarmup, "Untimed passes before measuring")
		repeat       = flag.Int("repeat", config.DefaultRepeat, "Timed passes to average")
		deviceID     = flag.Int("device", config.DefaultDeviceID, "Device to run on")
		logDir       = flag.String("log_dir", "", "Directory for the JSON session log")
		version      = flag.Bool("version", false, "Print the version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println(convbench.VersionString())
		atexit.Exit(0)
	}

	if *cmdList == "" {
		fmt.Println("Usage: convbatch --cmd_list <file> [--out_csv results.csv]")
		atexit.Exit(1)
	}

	cmds, err := batch.ReadCommandFile(*cmdList)
	if err != nil {
		log.Printf("%v", err)
		atexit.Exit(1)
	}

	var session *batch.Session
	if *logDir != "" {
		if session, err = batch.NewSession(*logDir, config.SessionLogName); err != nil {
			log.Printf("%v", err)
			atexit.Exit(1)
		}
		fmt.Printf("Session %s logging to %s\n", session.ID, session.Path())
	}

	var rows []batch.Row
	if *parserScript != "" {
		b := &batch.ScriptBatch{
			Runner:      batch.ExecRunner{},
			Interpreter: *interpreter,
			Script:      *parserScript,
			Out:         os.Stdout,
			Session:     session,
		}
		rows = b.Run(context.Background(), cmds)
	} else {
		opts := harness.Options{Warmup: *warmup, Repeat: *repeat}
		if err := opts.Validate(); err != nil {
			log.Printf("%v", err)
			atexit.Exit(1)
		}
		ctx, err := device.NewContext(*deviceID)
		if err != nil {
			log.Printf("Failed to open device: %v", err)
			atexit.Exit(1)
		}
		atexit.Register(ctx.Destroy)

		b := &batch.InProcessBatch{
			Ctx:     ctx,
			Options: opts,
			Out:     os.Stdout,
			Session: session,
		}
		rows = b.Run(cmds)
	}

	if err := batch.WriteFile(*outCSV, rows, batch.WriteTimingCSV); err != nil {
		log.Printf("Failed to write results: %v", err)
		atexit.Exit(1)
	}
	fmt.Printf("\n=== Done. Results written to: %s ===\n", *outCSV)
	atexit.Exit(0)
}
