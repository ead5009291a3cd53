package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"duoalloc/pkg/allocation"
	"duoalloc/pkg/types"
)

const namespace = "duoalloc"

// Recorder exports tick rows as Prometheus metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	demand      *prometheus.GaugeVec
	allocated   *prometheus.GaugeVec
	slaOk       *prometheus.GaugeVec
	slaMisses   *prometheus.CounterVec
	cost        *prometheus.CounterVec
	mode        *prometheus.GaugeVec
	idle        *prometheus.GaugeVec
	cpuFairness prometheus.Gauge
	ticks       prometheus.Counter
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		demand: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "demand_units",
				Help:      "Units requested by a tenant in the last tick",
			},
			[]string{"tenant", "resource"},
		),
		allocated: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "allocation_units",
				Help:      "Units granted to a tenant in the last tick",
			},
			[]string{"tenant", "resource"},
		),
		slaOk: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sla_ok",
				Help:      "1 if the tenant was fully served in the last tick",
			},
			[]string{"tenant"},
		),
		slaMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sla_misses_total",
				Help:      "Ticks in which the tenant was not fully served",
			},
			[]string{"tenant"},
		),
		cost: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cost_total",
				Help:      "Accumulated cost of a tenant's allocations",
			},
			[]string{"tenant"},
		),
		mode: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "allocation_mode",
				Help:      "Current allocation mode: 0=uncongested, 1=congested, 2=overloaded",
			},
			[]string{"resource"},
		),
		idle: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "idle_units",
				Help:      "Capacity left unallocated in the last tick",
			},
			[]string{"resource"},
		),
		cpuFairness: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cpu_fairness",
				Help:      "Jain's index over the two tenants' CPU allocations",
			},
		),
		ticks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_total",
				Help:      "Simulated ticks processed",
			},
		),
	}
}

// Registry returns the registry backing this recorder, for serving or gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Record records one tick.
func (r *Recorder) Record(row TickRow, result allocation.Result) {
	r.recordTenant(types.TenantA, row.NeedA, row.Allocation.For(types.TenantA), row.SLAOkA, row.CostA)
	r.recordTenant(types.TenantB, row.NeedB, row.Allocation.For(types.TenantB), row.SLAOkB, row.CostB)

	r.mode.WithLabelValues("cpu").Set(float64(result.CPU.Mode.Ordinal()))
	r.mode.WithLabelValues("memory").Set(float64(result.Memory.Mode.Ordinal()))
	r.idle.WithLabelValues("cpu").Set(float64(result.CPU.Idle))
	r.idle.WithLabelValues("memory").Set(float64(result.Memory.Idle))

	r.cpuFairness.Set(row.CPUFairness)
	r.ticks.Inc()
}

func (r *Recorder) recordTenant(t types.Tenant, need, got types.Demand, ok bool, cost float64) {
	tenant := string(t)
	r.demand.WithLabelValues(tenant, "cpu").Set(float64(need.CPU))
	r.demand.WithLabelValues(tenant, "memory").Set(float64(need.Memory))
	r.allocated.WithLabelValues(tenant, "cpu").Set(float64(got.CPU))
	r.allocated.WithLabelValues(tenant, "memory").Set(float64(got.Memory))

	if ok {
		r.slaOk.WithLabelValues(tenant).Set(1)
	} else {
		r.slaOk.WithLabelValues(tenant).Set(0)
		r.slaMisses.WithLabelValues(tenant).Inc()
	}
	r.cost.WithLabelValues(tenant).Add(cost)
}
