// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command validate checks that the single-command tool reproduces each
// forward driver command of a command list in its command log.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/tebeka/atexit"

	"github.com/LynnColeArt/convbench/batch"
)

func main() {
	var (
		parseScript = flag.String("parse_script", "", "Path to the single-command tool")
		cmdList     = flag.String("cmd_list", "", "Path to a text file with one MIOpenDriver command per line")
		interpreter = flag.String("interpreter", "", "Program that runs the parse script")
		logDir      = flag.String("log_dir", "", "Directory for captured logs (default: system temp)")
		keepLogs    = flag.Bool("keep_logs", false, "Keep captured logs")
	)
	flag.Parse()

	if *parseScript == "" || *cmdList == "" {
		fmt.Println("Usage: validate --parse_script <tool> --cmd_list <file>")
		atexit.Exit(1)
	}

	cmds, err := batch.ReadCommandFile(*cmdList)
	if err != nil {
		log.Printf("%v", err)
		atexit.Exit(1)
	}

	v := &batch.Validator{
		Runner:      batch.ExecRunner{},
		Interpreter: *interpreter,
		Script:      *parseScript,
		LogDir:      *logDir,
		KeepLogs:    *keepLogs,
		Out:         os.Stdout,
	}
	verdicts := v.Run(context.Background(), cmds)

	var tested, matched int
	for _, verdict := range verdicts {
		if verdict.Skipped {
			continue
		}
		tested++
		if verdict.Match >= 0 {
			matched++
		}
	}
	summary := color.New(color.FgGreen)
	if matched < tested {
		summary = color.New(color.FgRed)
	}
	summary.Printf("\n%d/%d commands reproduced\n", matched, tested)
	atexit.Exit(0)
}
