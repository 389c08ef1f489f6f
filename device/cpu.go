package device

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Features returns the SIMD extensions the host CPU reports.
func Features() []string {
	var features []string

	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasSSE41 || cpu.X86.HasSSE42 {
			features = append(features, "SSE4")
		}
		if cpu.X86.HasAVX {
			features = append(features, "AVX")
		}
		if cpu.X86.HasAVX2 {
			features = append(features, "AVX2")
		}
		if cpu.X86.HasFMA {
			features = append(features, "FMA")
		}
		if cpu.X86.HasAVX512F {
			features = append(features, "AVX512F")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			features = append(features, "NEON")
		}
		if cpu.ARM64.HasFPHP {
			features = append(features, "FP16")
		}
		if cpu.ARM64.HasSVE {
			features = append(features, "SVE")
		}
	}
	return features
}

func cpuName() string {
	features := Features()
	if len(features) == 0 {
		return "CPU"
	}
	return "CPU (" + strings.Join(features, ",") + ")"
}
