// Package types provides the value objects exchanged between the allocator and its callers.
// They are recreated every period; nothing in this package holds state.
package types

import (
	"fmt"
	"math"
)

// Tenant identifies one of the two consumers.
type Tenant string

const (
	TenantA Tenant = "a"
	TenantB Tenant = "b"
)

// Demand is what a tenant asks for in one period.
type Demand struct {
	CPU    int64 // compute units
	Memory int64 // memory units
}

// NewDemand creates a Demand.
func NewDemand(cpu, memory int64) Demand {
	return Demand{CPU: cpu, Memory: memory}
}

// Clamped returns a copy with negative fields raised to zero.
func (d Demand) Clamped() Demand {
	return Demand{CPU: nonNegative(d.CPU), Memory: nonNegative(d.Memory)}
}

func (d Demand) String() string {
	return fmt.Sprintf("cpu=%d mem=%d", d.CPU, d.Memory)
}

// Capacity is the hard ceiling shared by both tenants for one period.
type Capacity struct {
	CPU    int64
	Memory int64
}

// Clamped returns a copy with negative fields raised to zero.
func (c Capacity) Clamped() Capacity {
	return Capacity{CPU: nonNegative(c.CPU), Memory: nonNegative(c.Memory)}
}

// Floors are the per-tenant minimum guarantees. A floor never lifts a tenant above its demand.
type Floors struct {
	CPUA    int64
	MemoryA int64
	CPUB    int64
	MemoryB int64
}

// Clamped returns a copy with negative fields raised to zero.
func (f Floors) Clamped() Floors {
	return Floors{
		CPUA:    nonNegative(f.CPUA),
		MemoryA: nonNegative(f.MemoryA),
		CPUB:    nonNegative(f.CPUB),
		MemoryB: nonNegative(f.MemoryB),
	}
}

// Weights control how capacity left after floors is split between A and B.
type Weights struct {
	A float64
	B float64
}

// EqualWeights is the 1:1 split used whenever the configured weights carry no information.
var EqualWeights = Weights{A: 1.0, B: 1.0}

// Normalized returns weights safe to divide by: negative, NaN and infinite
// values count as zero, and a zero sum falls back to EqualWeights.
func (w Weights) Normalized() Weights {
	a, b := usableWeight(w.A), usableWeight(w.B)
	if a+b <= 0 {
		return EqualWeights
	}
	return Weights{A: a, B: b}
}

// ShareA is A's fraction of the surplus, in [0, 1].
func (w Weights) ShareA() float64 {
	n := w.Normalized()
	return n.A / (n.A + n.B)
}

// Allocation is the allocator output for one period.
type Allocation struct {
	CPUA    int64
	MemoryA int64
	CPUB    int64
	MemoryB int64
}

// For returns the (cpu, memory) pair granted to a tenant.
func (a Allocation) For(t Tenant) Demand {
	if t == TenantB {
		return Demand{CPU: a.CPUB, Memory: a.MemoryB}
	}
	return Demand{CPU: a.CPUA, Memory: a.MemoryA}
}

// TotalCPU is the CPU handed out across both tenants.
func (a Allocation) TotalCPU() int64 { return a.CPUA + a.CPUB }

// TotalMemory is the memory handed out across both tenants.
func (a Allocation) TotalMemory() int64 { return a.MemoryA + a.MemoryB }

func (a Allocation) String() string {
	return fmt.Sprintf("a_cpu=%d a_ram=%d b_cpu=%d b_ram=%d", a.CPUA, a.MemoryA, a.CPUB, a.MemoryB)
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func usableWeight(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}
