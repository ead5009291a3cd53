package allocation

import (
	"math"

	"duoalloc/pkg/types"
)

// Allocate splits CPU and memory between tenants A and B for one period.
//
// Each resource is handled independently:
//  1. Each tenant gets min(demand, floor)
//  2. If floors alone overcommit capacity, B is trimmed first, then A
//  3. Leftover capacity is split by weight, A's share truncated, B takes the remainder
//  4. Increases are capped by each tenant's unmet demand
//  5. If truncation left both shares at zero, A gets one unit
//  6. Anything still idle goes to A, then B, up to their demand
//
// Inputs are clamped (negative quantities become zero, unusable weights fall
// back to 1:1), so Allocate never fails. It holds no state and is safe to call
// concurrently.
func Allocate(demandA, demandB types.Demand, capacity types.Capacity, floors types.Floors, weights types.Weights) types.Allocation {
	return AllocateWithMode(demandA, demandB, capacity, floors, weights).Allocation
}

// resourceSplit is the per-resource outcome before it is folded into an Allocation.
type resourceSplit struct {
	a, b    int64
	trimmed int64 // floor units removed because floors overcommitted capacity
	idle    int64 // capacity nobody asked for
}

// allocateResource runs the floor/surplus/mop-up pass for a single resource.
// All quantities must already be non-negative and weights normalized. Sums of
// two quantities are never formed, so any int64 input is safe.
func allocateResource(needA, needB, total, floorA, floorB int64, weights types.Weights) resourceSplit {
	a := min(needA, floorA)
	b := min(needB, floorB)

	var trimmed int64
	if a > total-b {
		keptA, keptB := a, b
		if a <= total {
			b = total - a
		} else {
			a, b = total, 0
		}
		trimmed = saturatingAdd(keptA-a, keptB-b)
	}

	remaining := total - a - b
	gapA := needA - a
	gapB := needB - b

	if remaining > 0 && (gapA > 0 || gapB > 0) {
		giveA := weightedShare(remaining, weights.ShareA())
		giveB := remaining - giveA

		a += min(giveA, gapA)
		b += min(giveB, gapB)

		leftover := total - a - b

		if leftover > 0 && giveA == 0 && giveB == 0 && a < needA {
			a++
			leftover--
		}

		if leftover > 0 && a < needA {
			take := min(leftover, needA-a)
			a += take
			leftover -= take
		}
		if leftover > 0 && b < needB {
			b += min(leftover, needB-b)
		}
	}

	return resourceSplit{
		a:       a,
		b:       b,
		trimmed: trimmed,
		idle:    total - a - b,
	}
}

// weightedShare returns trunc(remaining*share) clamped to [0, remaining].
// float64(remaining) may round above MaxInt64, so the product is compared in float space first.
func weightedShare(remaining int64, share float64) int64 {
	f := float64(remaining) * share
	switch {
	case f <= 0:
		return 0
	case f >= float64(remaining):
		return remaining
	}
	return min(int64(f), remaining)
}

// saturatingAdd adds two non-negative values, stopping at MaxInt64.
func saturatingAdd(x, y int64) int64 {
	if x > math.MaxInt64-y {
		return math.MaxInt64
	}
	return x + y
}
