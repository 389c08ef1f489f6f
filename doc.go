// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package convbench benchmarks convolution operators described by
// MIOpenDriver command lines.
//
// A command such as
//
//	conv -n 8 -c 3 -k 64 -H 224 -W 224 -y 7 -x 7 -p 3 -q 3 -u 2 -v 2
//
// is parsed into a descriptor (package miopen), built into a bias-free
// grouped convolution on a CPU device (packages builder, conv, device)
// and timed with a warmup+repeat protocol on device events (package
// harness). Package batch runs whole command lists and writes CSV tables;
// package outparse scrapes times from external tool output.
//
// The tools live under cmd/: convrun times one command, convbatch and
// driverbatch time command lists, and validate checks that convrun logs
// the driver commands it was given.
package convbench
