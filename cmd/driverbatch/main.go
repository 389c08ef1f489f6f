// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command driverbatch runs each command of a command list through
// MIOpenDriver with -F 1, -F 2 and -F 4 and tabulates the scraped times.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tebeka/atexit"

	"github.com/LynnColeArt/convbench/batch"
	"github.com/LynnColeArt/convbench/config"
)

func main() {
	var (
		cmdList = flag.String("cmd_list", "", "Path to command_list.txt")
		outCSV  = flag.String("out_csv", config.DefaultOutCSV, "Output CSV filename")
		logDir  = flag.String("log_dir", "", "Directory for the JSON session log")
	)
	flag.Parse()

	if *cmdList == "" {
		fmt.Println("Usage: driverbatch --cmd_list <file> [--out_csv results.csv]")
		atexit.Exit(1)
	}

	cmds, err := batch.ReadCommandFile(*cmdList)
	if err != nil {
		log.Printf("%v", err)
		atexit.Exit(1)
	}

	b := &batch.DriverBatch{Runner: batch.ExecRunner{}, Out: os.Stdout}
	if *logDir != "" {
		if b.Session, err = batch.NewSession(*logDir, config.SessionLogName); err != nil {
			log.Printf("%v", err)
			atexit.Exit(1)
		}
	}

	rows := b.Run(context.Background(), cmds)

	if err := batch.WriteFile(*outCSV, rows, batch.WriteDriverCSV); err != nil {
		log.Printf("Failed to write results: %v", err)
		atexit.Exit(1)
	}
	fmt.Printf("\n=== Done. Results written to %s ===\n", *outCSV)
	atexit.Exit(0)
}
