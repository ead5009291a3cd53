package report

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"duoalloc/pkg/metrics"
)

// TenantSummary aggregates one tenant over a run.
type TenantSummary struct {
	Ticks       int
	SLAOkTicks  int
	TotalCost   float64
	CPUGranted  int64
	CPUDemanded int64
}

// SLACompliance is the share of ticks in which the tenant was fully served, in percent.
func (s TenantSummary) SLACompliance() float64 {
	if s.Ticks == 0 {
		return 100
	}
	return 100 * float64(s.SLAOkTicks) / float64(s.Ticks)
}

// CPUCoverage is granted over demanded CPU across the run, in percent.
func (s TenantSummary) CPUCoverage() float64 {
	if s.CPUDemanded == 0 {
		return 100
	}
	return 100 * float64(s.CPUGranted) / float64(s.CPUDemanded)
}

// Summary aggregates a full run.
type Summary struct {
	RunID       string
	A           TenantSummary
	B           TenantSummary
	fairnessSum float64
}

// NewSummary creates an empty summary with a fresh run id.
func NewSummary() *Summary {
	return &Summary{RunID: uuid.New().String()}
}

// Add folds one tick into the summary.
func (s *Summary) Add(row metrics.TickRow) {
	addTenant(&s.A, row.SLAOkA, row.CostA, row.Allocation.CPUA, row.NeedA.CPU)
	addTenant(&s.B, row.SLAOkB, row.CostB, row.Allocation.CPUB, row.NeedB.CPU)
	s.fairnessSum += row.CPUFairness
}

func addTenant(t *TenantSummary, ok bool, cost float64, granted, demanded int64) {
	t.Ticks++
	if ok {
		t.SLAOkTicks++
	}
	t.TotalCost += cost
	t.CPUGranted += granted
	t.CPUDemanded += demanded
}

// Ticks returns the number of ticks folded in.
func (s *Summary) Ticks() int {
	return s.A.Ticks
}

// MeanCPUFairness is the average Jain index over all ticks.
func (s *Summary) MeanCPUFairness() float64 {
	if s.A.Ticks == 0 {
		return 1
	}
	return s.fairnessSum / float64(s.A.Ticks)
}

// Render writes the summary as a table.
func (s *Summary) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("run %s (%d ticks)", s.RunID, s.Ticks()))
	t.AppendHeader(table.Row{"Tenant", "SLA ok", "SLA %", "CPU coverage %", "Cost"})
	for _, r := range []struct {
		name string
		t    TenantSummary
	}{{"A", s.A}, {"B", s.B}} {
		t.AppendRow(table.Row{
			r.name,
			fmt.Sprintf("%d/%d", r.t.SLAOkTicks, r.t.Ticks),
			fmt.Sprintf("%.1f", r.t.SLACompliance()),
			fmt.Sprintf("%.1f", r.t.CPUCoverage()),
			fmt.Sprintf("%.4f", r.t.TotalCost),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "CPU fairness", fmt.Sprintf("%.4f", s.MeanCPUFairness())})
	t.SetStyle(table.StyleLight)
	t.Render()
}
