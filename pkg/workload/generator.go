// Package workload produces synthetic per-minute demand for the two tenants.
//
// Tenant A models an e-commerce site with a short flash-sale burst; tenant B
// models a batch analytics job that only runs inside its window. All
// randomness comes from the *rand.Rand handed to the Generator, so two
// generators built from the same seed emit identical traces.
package workload

import (
	"math/rand"

	"duoalloc/pkg/types"
)

// Normal describes a normal distribution for one resource.
type Normal struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stdDev"`
}

// Phase is the (cpu, memory) distribution pair used while a phase is active.
type Phase struct {
	CPU    Normal `yaml:"cpu"`
	Memory Normal `yaml:"memory"`
}

// Profile holds the shape of both tenants' demand.
type Profile struct {
	// FlashStart and FlashEnd bound tenant A's burst, [start, end).
	FlashStart int   `yaml:"flashStart"`
	FlashEnd   int   `yaml:"flashEnd"`
	ABase      Phase `yaml:"aBase"`
	AFlash     Phase `yaml:"aFlash"`

	// BatchStart and BatchEnd bound tenant B's job, [start, end). B asks for nothing outside it.
	BatchStart int   `yaml:"batchStart"`
	BatchEnd   int   `yaml:"batchEnd"`
	BBatch     Phase `yaml:"bBatch"`

	// Jitter adds one of these integers to tenant A's cpu and memory each minute.
	Jitter []int64 `yaml:"jitter"`
}

// DefaultProfile returns the flash-sale / batch profile.
func DefaultProfile() Profile {
	return Profile{
		FlashStart: 30,
		FlashEnd:   45,
		ABase: Phase{
			CPU:    Normal{Mean: 10, StdDev: 2},
			Memory: Normal{Mean: 8, StdDev: 1.5},
		},
		AFlash: Phase{
			CPU:    Normal{Mean: 24, StdDev: 3},
			Memory: Normal{Mean: 16, StdDev: 2},
		},
		BatchStart: 60,
		BatchEnd:   120,
		BBatch: Phase{
			CPU:    Normal{Mean: 13, StdDev: 1.5},
			Memory: Normal{Mean: 12, StdDev: 1.5},
		},
		Jitter: []int64{0, 0, 1, -1},
	}
}

// Generator draws demand from a Profile. It is not safe for concurrent use
// because *rand.Rand is not.
type Generator struct {
	profile Profile
	rng     *rand.Rand
}

// NewGenerator creates a generator that owns rng.
func NewGenerator(profile Profile, rng *rand.Rand) *Generator {
	return &Generator{profile: profile, rng: rng}
}

// NewSeededGenerator creates a generator with its own source seeded by seed.
func NewSeededGenerator(profile Profile, seed int64) *Generator {
	return NewGenerator(profile, rand.New(rand.NewSource(seed)))
}

// InFlash reports whether minute t falls inside tenant A's burst.
func (p Profile) InFlash(t int) bool {
	return t >= p.FlashStart && t < p.FlashEnd
}

// InBatch reports whether minute t falls inside tenant B's job.
func (p Profile) InBatch(t int) bool {
	return t >= p.BatchStart && t < p.BatchEnd
}

// TenantA returns tenant A's demand for minute t.
func (g *Generator) TenantA(t int) types.Demand {
	phase := g.profile.ABase
	if g.profile.InFlash(t) {
		phase = g.profile.AFlash
	}

	cpu := g.sample(phase.CPU)
	mem := g.sample(phase.Memory)

	cpu += g.jitter()
	mem += g.jitter()

	return types.NewDemand(cpu, mem).Clamped()
}

// TenantB returns tenant B's demand for minute t.
func (g *Generator) TenantB(t int) types.Demand {
	if !g.profile.InBatch(t) {
		return types.Demand{}
	}
	phase := g.profile.BBatch
	return types.NewDemand(g.sample(phase.CPU), g.sample(phase.Memory))
}

// sample draws from n and truncates toward zero; non-positive draws become 0.
func (g *Generator) sample(n Normal) int64 {
	x := g.rng.NormFloat64()*n.StdDev + n.Mean
	if x <= 0 {
		return 0
	}
	return int64(x)
}

func (g *Generator) jitter() int64 {
	if len(g.profile.Jitter) == 0 {
		return 0
	}
	return g.profile.Jitter[g.rng.Intn(len(g.profile.Jitter))]
}
