// Package tuner derives import settings from a declared database
// instance profile and an aggressiveness level.
//
// Tune is a pure function: given identical inputs (including the local
// machine specs, which the caller captures once) it returns a
// bit-for-bit identical TuningProfile. No randomness, no clock reads.
package tuner

import (
	"fmt"
	"math"
	"time"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Level is the aggressiveness selector controlling how close to resource
// limits the tuner pushes settings.
type Level int

const (
	LevelConservative Level = 1
	LevelBalanced     Level = 2
	LevelAggressive   Level = 3
)

// String returns the human-readable level name.
func (l Level) String() string {
	switch l {
	case LevelConservative:
		return "Conservative"
	case LevelBalanced:
		return "Balanced"
	case LevelAggressive:
		return "Aggressive"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// multiplier maps the level to its scalar m.
func (l Level) multiplier() (float64, bool) {
	switch l {
	case LevelConservative:
		return 0.5, true
	case LevelBalanced:
		return 0.75, true
	case LevelAggressive:
		return 1.0, true
	default:
		return 0, false
	}
}

// MinInstanceSize and MaxInstanceSize bound the enumerated instance table.
const (
	MinInstanceSize = 1
	MaxInstanceSize = 11
)

// InstanceSpecs is the fixed table of supported instance sizes, indexed
// 1 (Nano) through 11 (16XL). Only size 1 runs on the shared tier.
var InstanceSpecs = map[int]pgload.HardwareProfile{
	1:  {Name: "Nano", MemoryGB: 0.5, CPUCores: 1, Tier: pgload.TierShared},
	2:  {Name: "Micro", MemoryGB: 1, CPUCores: 2, Tier: pgload.TierDedicated},
	3:  {Name: "Small", MemoryGB: 2, CPUCores: 2, Tier: pgload.TierDedicated},
	4:  {Name: "Medium", MemoryGB: 4, CPUCores: 2, Tier: pgload.TierDedicated},
	5:  {Name: "Large", MemoryGB: 8, CPUCores: 2, Tier: pgload.TierDedicated},
	6:  {Name: "XL", MemoryGB: 16, CPUCores: 4, Tier: pgload.TierDedicated},
	7:  {Name: "2XL", MemoryGB: 32, CPUCores: 8, Tier: pgload.TierDedicated},
	8:  {Name: "4XL", MemoryGB: 64, CPUCores: 16, Tier: pgload.TierDedicated},
	9:  {Name: "8XL", MemoryGB: 128, CPUCores: 32, Tier: pgload.TierDedicated},
	10: {Name: "12XL", MemoryGB: 192, CPUCores: 48, Tier: pgload.TierDedicated},
	11: {Name: "16XL", MemoryGB: 256, CPUCores: 64, Tier: pgload.TierDedicated},
}

// Profile looks up the instance table by size.
func Profile(instanceSize int) (pgload.HardwareProfile, error) {
	spec, ok := InstanceSpecs[instanceSize]
	if !ok {
		return pgload.HardwareProfile{}, fmt.Errorf("instance size %d not in %d-%d: %w",
			instanceSize, MinInstanceSize, MaxInstanceSize, pgload.ErrInvalidProfile)
	}
	return spec, nil
}

// Tune computes the TuningProfile for the given instance size and level,
// bounded by the local machine specs.
func Tune(instanceSize int, level Level, local LocalSpecs) (*pgload.TuningProfile, error) {
	instance, err := Profile(instanceSize)
	if err != nil {
		return nil, err
	}
	m, ok := level.multiplier()
	if !ok {
		return nil, fmt.Errorf("level %d not in 1-3: %w", int(level), pgload.ErrInvalidProfile)
	}

	var maxConns, workers int
	if instance.Tier == pgload.TierShared {
		// Shared tenancy caps connections hard; parallelism buys nothing.
		maxConns = round(5 * m)
		workers = 1
	} else {
		maxConns = minInt(round(10+2*float64(instance.CPUCores)*m), pgload.MaxPoolConnections)
		workers = minInt(
			round(float64(instance.CPUCores)*m),
			local.CPUCores-1,
			maxConns-2,
		)
		if workers < 1 {
			workers = 1
		}
	}

	workMem := clampInt(round(instance.MemoryGB*1024*(0.05+0.05*m)), 64, 1024)
	chunkSize := chunkSizeMB(instance.MemoryGB, local.AvailableMemoryGB, m)

	p := &pgload.TuningProfile{
		MinConnections:       int32(maxInt(2, workers)),
		MaxConnections:       int32(maxConns),
		Keepalive:            pgload.DefaultKeepalive,
		ChunkSizeMB:          chunkSize,
		BatchSize:            batchSize(instance.MemoryGB, m),
		ParallelWorkers:      workers,
		WorkMemMB:            workMem,
		MaintenanceWorkMemMB: workMem * 4,
		StatementTimeout:     statementTimeout(chunkSize, m),
		DisableTriggers:      m > 0.5,
		RunVacuum:            m < 1.0,
		RunAnalyze:           true,
	}
	p.Recommendations = recommendations(instance, m, local)
	return p, nil
}

// chunkSizeMB tiers the split threshold by the limiting memory: the
// smaller of the instance memory and half the local available memory.
func chunkSizeMB(instanceMemoryGB, localAvailableGB, m float64) int {
	limiting := math.Min(instanceMemoryGB, localAvailableGB*0.5)

	var size int
	switch {
	case limiting < 2:
		size = round(50 + 50*m)
	case limiting < 8:
		size = round(100 + 100*m)
	default:
		size = round(200 + 300*m)
	}
	return minInt(size, pgload.MaxChunkSizeMB)
}

// batchSize scales the fallback INSERT batch by instance memory.
func batchSize(instanceMemoryGB, m float64) int {
	var base float64
	switch {
	case instanceMemoryGB < 2:
		base = 1000
	case instanceMemoryGB < 8:
		base = 5000
	default:
		base = 10000
	}
	return round(base * (1 + m))
}

// statementTimeout buckets the estimated load time per chunk: roughly
// ten minutes per 50 MB at conservative settings, less when aggressive.
func statementTimeout(chunkMB int, m float64) string {
	minutes := round(float64(chunkMB) / 50 * (2 - m) * 10)
	switch {
	case minutes <= 30:
		return "30min"
	case minutes <= 60:
		return "1h"
	default:
		return "2h"
	}
}

func recommendations(instance pgload.HardwareProfile, m float64, local LocalSpecs) []string {
	var recs []string

	if instance.Tier == pgload.TierShared {
		recs = append(recs,
			"Shared-tier instance has limited resources; consider upgrading for better throughput.",
			"Import during off-peak hours.")
	}
	if instance.MemoryGB < 4 {
		recs = append(recs, "Consider processing files sequentially rather than in parallel.")
	}
	switch m {
	case 1.0:
		recs = append(recs,
			"Aggressive mode: monitor for connection limits and statement timeouts.",
			"Drop non-critical indexes before import for maximum speed.")
	case 0.5:
		recs = append(recs, "Conservative mode: stable but slower. Good for production imports.")
	}
	if local.AvailableMemoryGB < 4 {
		recs = append(recs, "Local available memory is low; close other applications before importing.")
	}

	return recs
}

func round(v float64) int {
	return int(math.Round(v))
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TimeoutDuration converts a bucketed statement timeout back to a
// duration, for callers that need an absolute deadline.
func TimeoutDuration(timeout string) time.Duration {
	switch timeout {
	case "30min":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	default:
		return 30 * time.Minute
	}
}
