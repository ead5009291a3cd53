// Package simulation drives the allocator minute by minute over synthetic demand.
package simulation

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"duoalloc/pkg/allocation"
	"duoalloc/pkg/metrics"
	"duoalloc/pkg/report"
	"duoalloc/pkg/types"
	"duoalloc/pkg/workload"
)

// DemandSource supplies each tenant's demand for a minute.
type DemandSource interface {
	TenantA(t int) types.Demand
	TenantB(t int) types.Demand
}

// RowSink receives every tick row, e.g. a CSV writer.
type RowSink interface {
	Write(row metrics.TickRow) error
}

// Runner runs one simulation. It is single-use and not safe for concurrent use.
type Runner struct {
	config   *Config
	demand   DemandSource
	recorder *metrics.Recorder
	sinks    []RowSink
}

// NewRunner creates a runner. recorder may be nil.
func NewRunner(config *Config, demand DemandSource, recorder *metrics.Recorder, sinks ...RowSink) *Runner {
	return &Runner{
		config:   config,
		demand:   demand,
		recorder: recorder,
		sinks:    sinks,
	}
}

// NewDefaultRunner creates a runner whose demand comes from a generator seeded with config.Seed.
func NewDefaultRunner(config *Config, recorder *metrics.Recorder, sinks ...RowSink) *Runner {
	gen := workload.NewSeededGenerator(config.Workload, config.Seed)
	return NewRunner(config, gen, recorder, sinks...)
}

// Run simulates config.Minutes ticks. On cancellation it returns the summary
// of the ticks completed so far together with the context error.
func (r *Runner) Run(ctx context.Context) (*report.Summary, error) {
	summary := report.NewSummary()
	klog.InfoS("Starting simulation", "runID", summary.RunID, "minutes", r.config.Minutes, "seed", r.config.Seed)

	var tick <-chan time.Time
	if r.config.TickInterval > 0 {
		ticker := time.NewTicker(r.config.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for t := 0; t < r.config.Minutes; t++ {
		if tick != nil && t > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return summary, err
		}

		row, err := r.step(t)
		if err != nil {
			return summary, err
		}
		summary.Add(row)
	}

	klog.InfoS("Simulation finished", "runID", summary.RunID, "ticks", summary.Ticks(),
		"slaA", summary.A.SLACompliance(), "slaB", summary.B.SLACompliance())
	return summary, nil
}

// step computes and records a single minute.
func (r *Runner) step(t int) (metrics.TickRow, error) {
	needA := r.demand.TenantA(t)
	needB := r.demand.TenantB(t)
	weights := r.config.WeightsForMinute(t)

	result := allocation.AllocateWithMode(needA, needB, r.config.Capacity, r.config.Floors, weights)
	alloc := result.Allocation

	fairness := metrics.JainIndex(float64(alloc.CPUA), float64(alloc.CPUB))
	row := metrics.NewTickRow(t, needA, needB, alloc, r.config.Prices, fairness)

	if r.config.IsPriorityEdge(t) {
		klog.InfoS("Priority window edge", "minute", t, "weightA", weights.A, "weightB", weights.B, "allocation", alloc.String())
	}
	klog.V(2).InfoS("Tick",
		"minute", t,
		"needA", needA,
		"needB", needB,
		"allocation", alloc.String(),
		"cpuMode", result.CPU.Mode,
		"memoryMode", result.Memory.Mode)

	if r.recorder != nil {
		r.recorder.Record(row, result)
	}
	for _, sink := range r.sinks {
		if err := sink.Write(row); err != nil {
			return row, fmt.Errorf("minute %d: %w", t, err)
		}
	}
	return row, nil
}
