package tuner

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
)

// LocalSpecs describes the machine running the import. The splitter and
// worker pool run here, so local CPU and memory bound the profile even
// when the remote instance is large.
type LocalSpecs struct {
	CPUCores          int
	MemoryGB          float64
	AvailableMemoryGB float64
}

// DetectLocalSpecs inspects the local machine once. Callers pass the
// result to Tune explicitly so the tuning computation itself stays pure.
func DetectLocalSpecs() LocalSpecs {
	specs := LocalSpecs{
		CPUCores: runtime.NumCPU(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		specs.MemoryGB = float64(vm.Total) / (1 << 30)
		specs.AvailableMemoryGB = float64(vm.Available) / (1 << 30)
	} else {
		// Memory probe failed (restricted container, unusual platform).
		// Assume a small machine rather than an unbounded one.
		specs.MemoryGB = 4
		specs.AvailableMemoryGB = 2
	}

	return specs
}
