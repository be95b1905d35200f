// Package cpuinfo answers the two questions the reactor pool asks about the
// machine: how many cores there are, and how to pin a worker to one. It also
// exposes the CPU feature flags the JSON cursor uses to pick its wide
// whitespace-skip path.
package cpuinfo

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// CoreCount returns the number of logical CPUs available to the process.
func CoreCount() int {
	return runtime.NumCPU()
}

// HasFastUnalignedLoads reports whether 8-byte unaligned loads are cheap on
// this CPU, which gates the SWAR whitespace-skip fast path.
func HasFastUnalignedLoads() bool {
	return runtime.GOARCH == "amd64" && cpu.X86.HasSSE42 ||
		runtime.GOARCH == "arm64" && cpu.ARM64.HasASIMD
}
