package allocation

import (
	"duoalloc/pkg/types"
)

// AllocationMode indicates which allocation path a resource took.
type AllocationMode string

const (
	ModeUncongested AllocationMode = "uncongested" // Total demand ≤ capacity
	ModeCongested   AllocationMode = "congested"   // Total demand > capacity, floors fit
	ModeOverloaded  AllocationMode = "overloaded"  // Floors alone exceed capacity
)

// Ordinal maps the mode onto 0/1/2 for gauges.
func (m AllocationMode) Ordinal() int {
	switch m {
	case ModeCongested:
		return 1
	case ModeOverloaded:
		return 2
	default:
		return 0
	}
}

// ResourceOutcome describes how one resource was split.
type ResourceOutcome struct {
	Mode        AllocationMode
	TotalDemand int64 // saturates at MaxInt64
	TotalAlloc  int64
	Capacity    int64
	FloorTrim   int64 // floor units dropped, B first then A
	Idle        int64 // capacity left unallocated
}

// Result contains the allocation and per-resource metadata for observability.
type Result struct {
	Allocation types.Allocation
	CPU        ResourceOutcome
	Memory     ResourceOutcome
}

// AllocateWithMode performs the allocation and reports the mode each resource ran in.
func AllocateWithMode(demandA, demandB types.Demand, capacity types.Capacity, floors types.Floors, weights types.Weights) Result {
	demandA, demandB = demandA.Clamped(), demandB.Clamped()
	capacity = capacity.Clamped()
	floors = floors.Clamped()
	weights = weights.Normalized()

	cpu := allocateResource(demandA.CPU, demandB.CPU, capacity.CPU, floors.CPUA, floors.CPUB, weights)
	mem := allocateResource(demandA.Memory, demandB.Memory, capacity.Memory, floors.MemoryA, floors.MemoryB, weights)

	return Result{
		Allocation: types.Allocation{
			CPUA:    cpu.a,
			MemoryA: mem.a,
			CPUB:    cpu.b,
			MemoryB: mem.b,
		},
		CPU:    outcome(cpu, demandA.CPU, demandB.CPU, capacity.CPU),
		Memory: outcome(mem, demandA.Memory, demandB.Memory, capacity.Memory),
	}
}

func outcome(s resourceSplit, needA, needB, total int64) ResourceOutcome {
	totalDemand := saturatingAdd(needA, needB)

	var mode AllocationMode
	switch {
	case s.trimmed > 0:
		mode = ModeOverloaded
	case totalDemand <= total:
		mode = ModeUncongested
	default:
		mode = ModeCongested
	}

	return ResourceOutcome{
		Mode:        mode,
		TotalDemand: totalDemand,
		TotalAlloc:  total - s.idle,
		Capacity:    total,
		FloorTrim:   s.trimmed,
		Idle:        s.idle,
	}
}
