// Package metrics computes per-tick SLA, cost and fairness figures and exports them to Prometheus.
package metrics

import (
	"math"

	"duoalloc/pkg/types"
)

const minutesToHours = 1.0 / 60.0

// Prices are hourly list prices per resource unit.
type Prices struct {
	CPUPerHour    float64
	MemoryPerHour float64
}

// JainIndex returns Jain's fairness index of values, in (0, 1].
// An empty or all-zero input counts as perfectly fair.
func JainIndex(values ...float64) float64 {
	var sum, sumSq float64
	for _, v := range values {
		sum += v
		sumSq += v * v
	}
	if sum == 0 || sumSq == 0 {
		return 1.0
	}
	return (sum * sum) / (float64(len(values)) * sumSq)
}

// CostForTick returns the cost of holding an allocation for one one-minute tick.
func CostForTick(cpu, memory int64, prices Prices) float64 {
	cpuCost := float64(cpu) * prices.CPUPerHour * minutesToHours
	memCost := float64(memory) * prices.MemoryPerHour * minutesToHours
	return cpuCost + memCost
}

// TickRow is one simulated minute: demand, allocation, SLA status, cost and fairness.
type TickRow struct {
	Minute      int
	NeedA       types.Demand
	NeedB       types.Demand
	Allocation  types.Allocation
	SLAOkA      bool
	SLAOkB      bool
	CostA       float64
	CostB       float64
	CPUFairness float64
}

// NewTickRow builds the row for minute t. A tenant's SLA holds when both of its
// resources were granted in full. Costs and fairness are rounded to 6 decimals.
func NewTickRow(t int, needA, needB types.Demand, alloc types.Allocation, prices Prices, cpuFairness float64) TickRow {
	gotA, gotB := alloc.For(types.TenantA), alloc.For(types.TenantB)

	return TickRow{
		Minute:      t,
		NeedA:       needA,
		NeedB:       needB,
		Allocation:  alloc,
		SLAOkA:      satisfied(gotA, needA),
		SLAOkB:      satisfied(gotB, needB),
		CostA:       round6(CostForTick(gotA.CPU, gotA.Memory, prices)),
		CostB:       round6(CostForTick(gotB.CPU, gotB.Memory, prices)),
		CPUFairness: round6(cpuFairness),
	}
}

func satisfied(got, need types.Demand) bool {
	return got.CPU >= need.CPU && got.Memory >= need.Memory
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
