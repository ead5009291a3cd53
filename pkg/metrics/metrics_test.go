package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duoalloc/pkg/allocation"
	"duoalloc/pkg/types"
)

var testPrices = Prices{CPUPerHour: 0.04, MemoryPerHour: 0.005}

func TestJainIndex(t *testing.T) {
	assert.Equal(t, 1.0, JainIndex(10, 10))
	assert.Equal(t, 1.0, JainIndex(0, 0), "all-zero allocations count as fair")
	assert.Equal(t, 1.0, JainIndex())
	assert.InDelta(t, 0.5, JainIndex(10, 0), 1e-12)
	// (19+13)^2 / (2 * (19^2 + 13^2)) = 1024 / 1060
	assert.InDelta(t, 1024.0/1060.0, JainIndex(19, 13), 1e-12)
}

func TestCostForTick(t *testing.T) {
	// 12 vCPU * 0.04/h + 60 GB * 0.005/h = 0.78/h = 0.013 per minute
	assert.InDelta(t, 0.013, CostForTick(12, 60, testPrices), 1e-12)
	assert.Equal(t, 0.0, CostForTick(0, 0, testPrices))
}

func TestNewTickRow(t *testing.T) {
	needA := types.NewDemand(24, 16)
	needB := types.NewDemand(20, 12)
	alloc := types.Allocation{CPUA: 19, MemoryA: 16, CPUB: 13, MemoryB: 12}

	row := NewTickRow(31, needA, needB, alloc, testPrices, JainIndex(19, 13))

	assert.Equal(t, 31, row.Minute)
	assert.False(t, row.SLAOkA, "A wanted 24 CPU and got 19")
	assert.False(t, row.SLAOkB, "B wanted 20 CPU and got 13")
	// 19*0.04/60 + 16*0.005/60 = 0.0126666.. + 0.0013333.. = 0.014
	assert.Equal(t, 0.014, row.CostA)
	// 13*0.04/60 + 12*0.005/60 = 0.0086666.. + 0.001 = 0.0096666.. → 0.009667
	assert.Equal(t, 0.009667, row.CostB)
	assert.Equal(t, 0.966038, row.CPUFairness)
}

func TestNewTickRow_FullyServed(t *testing.T) {
	need := types.NewDemand(10, 8)
	alloc := types.Allocation{CPUA: 10, MemoryA: 8}

	row := NewTickRow(0, need, types.Demand{}, alloc, testPrices, 0.5)

	assert.True(t, row.SLAOkA)
	assert.True(t, row.SLAOkB, "a tenant with no demand is trivially served")
	assert.Equal(t, 0.0, row.CostB)
}

func TestRecorder_Record(t *testing.T) {
	rec := NewRecorder()

	needA, needB := types.NewDemand(24, 16), types.NewDemand(13, 12)
	result := allocation.AllocateWithMode(
		needA, needB,
		types.Capacity{CPU: 32, Memory: 64},
		types.Floors{CPUA: 7, MemoryA: 9, CPUB: 5, MemoryB: 7},
		types.Weights{A: 1.6, B: 1},
	)
	row := NewTickRow(30, needA, needB, result.Allocation, testPrices, JainIndex(19, 13))

	rec.Record(row, result)
	rec.Record(row, result)

	assert.Equal(t, 19.0, testutil.ToFloat64(rec.allocated.WithLabelValues("a", "cpu")))
	assert.Equal(t, 12.0, testutil.ToFloat64(rec.allocated.WithLabelValues("b", "memory")))
	assert.Equal(t, 24.0, testutil.ToFloat64(rec.demand.WithLabelValues("a", "cpu")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.slaOk.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.slaOk.WithLabelValues("b")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.slaMisses.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.mode.WithLabelValues("cpu")))
	assert.Equal(t, 36.0, testutil.ToFloat64(rec.idle.WithLabelValues("memory")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.ticks))
	assert.InDelta(t, 2*row.CostA, testutil.ToFloat64(rec.cost.WithLabelValues("a")), 1e-12)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
