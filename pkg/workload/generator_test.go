package workload

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duoalloc/pkg/types"
)

func trace(g *Generator, minutes int) ([]types.Demand, []types.Demand) {
	a := make([]types.Demand, 0, minutes)
	b := make([]types.Demand, 0, minutes)
	for minute := 0; minute < minutes; minute++ {
		a = append(a, g.TenantA(minute))
		b = append(b, g.TenantB(minute))
	}
	return a, b
}

func TestGenerator_SameSeedSameTrace(t *testing.T) {
	a1, b1 := trace(NewSeededGenerator(DefaultProfile(), 42), 120)
	a2, b2 := trace(NewSeededGenerator(DefaultProfile(), 42), 120)

	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestGenerator_IndependentStreams(t *testing.T) {
	g1 := NewSeededGenerator(DefaultProfile(), 42)
	g2 := NewSeededGenerator(DefaultProfile(), 42)

	// Draining one generator must not shift the other.
	for minute := 0; minute < 50; minute++ {
		g1.TenantA(minute)
	}
	first := g2.TenantA(0)
	fresh := NewSeededGenerator(DefaultProfile(), 42).TenantA(0)
	assert.Equal(t, fresh, first)
}

func TestGenerator_BatchWindow(t *testing.T) {
	g := NewSeededGenerator(DefaultProfile(), 1)
	_, b := trace(g, 120)

	for minute := 0; minute < 60; minute++ {
		require.Equal(t, types.Demand{}, b[minute], "minute %d is outside the batch window", minute)
	}

	var busy int
	for minute := 60; minute < 120; minute++ {
		if b[minute].CPU > 0 {
			busy++
		}
	}
	assert.Greater(t, busy, 50, "batch tenant should demand CPU in nearly every window minute")
}

func TestGenerator_FlashSaleRaisesDemand(t *testing.T) {
	g := NewSeededGenerator(DefaultProfile(), 3)
	a, _ := trace(g, 120)

	mean := func(from, to int) float64 {
		var sum int64
		for minute := from; minute < to; minute++ {
			sum += a[minute].CPU
		}
		return float64(sum) / float64(to-from)
	}

	base := mean(0, 30)
	flash := mean(30, 45)
	assert.InDelta(t, 10, base, 2)
	assert.InDelta(t, 24, flash, 3)
	assert.Greater(t, flash, base)
}

func TestGenerator_NeverNegative(t *testing.T) {
	profile := DefaultProfile()
	profile.ABase = Phase{CPU: Normal{Mean: 0.5, StdDev: 5}, Memory: Normal{Mean: 0, StdDev: 5}}
	profile.Jitter = []int64{-1}

	g := NewGenerator(profile, rand.New(rand.NewSource(9)))
	for minute := 0; minute < 200; minute++ {
		d := g.TenantA(minute)
		require.GreaterOrEqual(t, d.CPU, int64(0))
		require.GreaterOrEqual(t, d.Memory, int64(0))
	}
}

func TestProfile_Windows(t *testing.T) {
	p := DefaultProfile()

	assert.False(t, p.InFlash(29))
	assert.True(t, p.InFlash(30))
	assert.True(t, p.InFlash(44))
	assert.False(t, p.InFlash(45))
	assert.True(t, p.InBatch(60))
	assert.False(t, p.InBatch(120))
}
