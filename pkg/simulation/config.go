package simulation

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	k8stypes "k8s.io/apimachinery/pkg/types"
	"k8s.io/klog/v2"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"duoalloc/pkg/metrics"
	"duoalloc/pkg/types"
	"duoalloc/pkg/workload"
)

// EnvPrefix prefixes every environment variable the simulation reads.
const EnvPrefix = "DUOALLOC_"

// Config holds all configurable parameters for a simulation run.
// Values are layered: defaults, policy file, ConfigMap, then environment.
type Config struct {
	// Minutes is the number of one-minute ticks to simulate.
	Minutes int

	// Seed initializes the demand generator's random source.
	Seed int64

	// Capacity is the per-tick ceiling shared by both tenants.
	Capacity types.Capacity

	// Floors are the per-tenant minimum guarantees.
	Floors types.Floors

	// Prices are hourly prices per vCPU and per GB of memory.
	Prices metrics.Prices

	// DefaultWeights apply outside the priority window.
	DefaultWeights types.Weights

	// PriorityStart and PriorityEnd bound the window [start, end) during which
	// PriorityWeights apply instead of DefaultWeights.
	PriorityStart   int
	PriorityEnd     int
	PriorityWeights types.Weights

	// CSVPath is where tick rows are written (empty = disabled).
	CSVPath string

	// TickInterval paces the loop in wall-clock time (0 = run as fast as possible).
	TickInterval time.Duration

	// MetricsAddr serves /metrics while the run is active (empty = disabled).
	MetricsAddr string

	// Workload shapes the synthetic demand.
	Workload workload.Profile
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Minutes:         120,
		Seed:            42,
		Capacity:        types.Capacity{CPU: 32, Memory: 64},
		Floors:          types.Floors{CPUA: 7, MemoryA: 9, CPUB: 5, MemoryB: 7},
		Prices:          metrics.Prices{CPUPerHour: 0.04, MemoryPerHour: 0.005},
		DefaultWeights:  types.EqualWeights,
		PriorityStart:   27, // a few minutes ahead of the flash sale at 30
		PriorityEnd:     43,
		PriorityWeights: types.Weights{A: 1.6, B: 1.0},
		CSVPath:         "sim_output.csv",
		TickInterval:    0,
		MetricsAddr:     "",
		Workload:        workload.DefaultProfile(),
	}
}

// WeightsForMinute returns the weights in force at minute t.
func (c *Config) WeightsForMinute(t int) types.Weights {
	if t >= c.PriorityStart && t < c.PriorityEnd {
		return c.PriorityWeights
	}
	return c.DefaultWeights
}

// IsPriorityEdge reports whether t sits on either side of a priority window boundary.
func (c *Config) IsPriorityEdge(t int) bool {
	return t == c.PriorityStart-1 || t == c.PriorityStart || t == c.PriorityEnd-1 || t == c.PriorityEnd
}

// setter parses a single string value into the config.
type setter func(c *Config, val string) error

// setting binds a ConfigMap key and an environment variable to a field.
type setting struct {
	key string
	env string
	set setter
}

var settings = []setting{
	{"minutes", "MINUTES", intSetter(func(c *Config) *int { return &c.Minutes })},
	{"seed", "SEED", int64Setter(func(c *Config) *int64 { return &c.Seed })},
	{"totalCPU", "TOTAL_CPU", quantitySetter(func(c *Config) *int64 { return &c.Capacity.CPU })},
	{"totalMemory", "TOTAL_MEMORY", quantitySetter(func(c *Config) *int64 { return &c.Capacity.Memory })},
	{"cpuFloorA", "CPU_FLOOR_A", quantitySetter(func(c *Config) *int64 { return &c.Floors.CPUA })},
	{"memoryFloorA", "MEMORY_FLOOR_A", quantitySetter(func(c *Config) *int64 { return &c.Floors.MemoryA })},
	{"cpuFloorB", "CPU_FLOOR_B", quantitySetter(func(c *Config) *int64 { return &c.Floors.CPUB })},
	{"memoryFloorB", "MEMORY_FLOOR_B", quantitySetter(func(c *Config) *int64 { return &c.Floors.MemoryB })},
	{"priceCPUPerHour", "PRICE_CPU_PER_HOUR", floatSetter(func(c *Config) *float64 { return &c.Prices.CPUPerHour })},
	{"priceMemoryPerHour", "PRICE_MEMORY_PER_HOUR", floatSetter(func(c *Config) *float64 { return &c.Prices.MemoryPerHour })},
	{"weightA", "WEIGHT_A", floatSetter(func(c *Config) *float64 { return &c.DefaultWeights.A })},
	{"weightB", "WEIGHT_B", floatSetter(func(c *Config) *float64 { return &c.DefaultWeights.B })},
	{"priorityStart", "PRIORITY_START", intSetter(func(c *Config) *int { return &c.PriorityStart })},
	{"priorityEnd", "PRIORITY_END", intSetter(func(c *Config) *int { return &c.PriorityEnd })},
	{"priorityWeightA", "PRIORITY_WEIGHT_A", floatSetter(func(c *Config) *float64 { return &c.PriorityWeights.A })},
	{"priorityWeightB", "PRIORITY_WEIGHT_B", floatSetter(func(c *Config) *float64 { return &c.PriorityWeights.B })},
	{"csvPath", "CSV", func(c *Config, val string) error {
		c.CSVPath = val
		return nil
	}},
	{"metricsAddr", "METRICS_ADDR", func(c *Config, val string) error {
		c.MetricsAddr = val
		return nil
	}},
	{"tickInterval", "TICK_INTERVAL", func(c *Config, val string) error {
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		c.TickInterval = d
		return nil
	}},
}

func intSetter(field func(*Config) *int) setter {
	return func(c *Config, val string) error {
		i, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		*field(c) = i
		return nil
	}
}

func int64Setter(field func(*Config) *int64) setter {
	return func(c *Config, val string) error {
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return err
		}
		*field(c) = i
		return nil
	}
}

func floatSetter(field func(*Config) *float64) setter {
	return func(c *Config, val string) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

// quantitySetter accepts Kubernetes quantity strings ("32", "64", "2k") and
// stores the value rounded up to a whole unit.
func quantitySetter(field func(*Config) *int64) setter {
	return func(c *Config, val string) error {
		q, err := resource.ParseQuantity(val)
		if err != nil {
			return err
		}
		*field(c) = q.Value()
		return nil
	}
}

// LoadFromData applies key/value pairs in ConfigMap form. Unknown keys are ignored.
func (c *Config) LoadFromData(data map[string]string) error {
	if data == nil {
		return fmt.Errorf("config data is nil")
	}
	for _, s := range settings {
		val, ok := data[s.key]
		if !ok || val == "" {
			continue
		}
		if err := s.set(c, val); err != nil {
			return fmt.Errorf("invalid %s: %w", s.key, err)
		}
	}
	return nil
}

// LoadFromConfigMap reads the ConfigMap identified by key and applies its data.
func (c *Config) LoadFromConfigMap(ctx context.Context, k8sClient client.Client, key k8stypes.NamespacedName) error {
	cm := &corev1.ConfigMap{}
	if err := k8sClient.Get(ctx, key, cm); err != nil {
		return fmt.Errorf("get configmap %s: %w", key, err)
	}
	if err := c.LoadFromData(cm.Data); err != nil {
		return fmt.Errorf("configmap %s: %w", key, err)
	}
	klog.InfoS("Loaded configuration from ConfigMap", "namespace", key.Namespace, "name", key.Name)
	return nil
}

// LoadFromEnvironment overrides fields from DUOALLOC_* variables. Values that
// do not parse are skipped with a warning.
func (c *Config) LoadFromEnvironment() {
	for _, s := range settings {
		name := EnvPrefix + s.env
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		if err := s.set(c, val); err != nil {
			klog.Warningf("Ignoring %s=%q: %v", name, val, err)
			continue
		}
		klog.V(2).InfoS("Loaded setting from environment", "env", name, "value", val)
	}
}

// Validate checks the configuration for values the run loop cannot use.
func (c *Config) Validate() error {
	if c.Minutes <= 0 {
		return fmt.Errorf("minutes must be > 0, got %d", c.Minutes)
	}
	if c.Capacity.CPU < 0 || c.Capacity.Memory < 0 {
		return fmt.Errorf("capacity must be >= 0, got cpu=%d memory=%d", c.Capacity.CPU, c.Capacity.Memory)
	}
	if c.Floors != c.Floors.Clamped() {
		return fmt.Errorf("floors must be >= 0, got %+v", c.Floors)
	}
	if c.Prices.CPUPerHour < 0 || c.Prices.MemoryPerHour < 0 {
		return fmt.Errorf("prices must be >= 0, got %+v", c.Prices)
	}
	if c.DefaultWeights.A < 0 || c.DefaultWeights.B < 0 {
		return fmt.Errorf("weights must be >= 0, got %+v", c.DefaultWeights)
	}
	if c.PriorityWeights.A < 0 || c.PriorityWeights.B < 0 {
		return fmt.Errorf("priority weights must be >= 0, got %+v", c.PriorityWeights)
	}
	if c.PriorityEnd < c.PriorityStart {
		return fmt.Errorf("priorityEnd (%d) must be >= priorityStart (%d)", c.PriorityEnd, c.PriorityStart)
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("tickInterval must be >= 0, got %v", c.TickInterval)
	}
	return nil
}

// Log logs the effective configuration.
func (c *Config) Log() {
	klog.InfoS("Simulation configuration",
		"minutes", c.Minutes,
		"seed", c.Seed,
		"capacity", c.Capacity,
		"floors", c.Floors,
		"prices", c.Prices,
		"defaultWeights", c.DefaultWeights,
		"priorityWindow", fmt.Sprintf("[%d,%d)", c.PriorityStart, c.PriorityEnd),
		"priorityWeights", c.PriorityWeights,
		"csvPath", c.CSVPath,
		"tickInterval", c.TickInterval,
		"metricsAddr", c.MetricsAddr)
}

// policyFile is the YAML layout of a policy file. Pointer fields stay nil when
// absent so the file only overrides what it names.
type policyFile struct {
	Minutes  *int   `yaml:"minutes"`
	Seed     *int64 `yaml:"seed"`
	Capacity *struct {
		CPU    string `yaml:"cpu"`
		Memory string `yaml:"memory"`
	} `yaml:"capacity"`
	Floors *struct {
		CPUA    string `yaml:"cpuA"`
		MemoryA string `yaml:"memoryA"`
		CPUB    string `yaml:"cpuB"`
		MemoryB string `yaml:"memoryB"`
	} `yaml:"floors"`
	Prices *struct {
		CPUPerHour    *float64 `yaml:"cpuPerHour"`
		MemoryPerHour *float64 `yaml:"memoryPerHour"`
	} `yaml:"prices"`
	Weights *struct {
		A *float64 `yaml:"a"`
		B *float64 `yaml:"b"`
	} `yaml:"weights"`
	PriorityWindow *struct {
		Start   *int     `yaml:"start"`
		End     *int     `yaml:"end"`
		WeightA *float64 `yaml:"weightA"`
		WeightB *float64 `yaml:"weightB"`
	} `yaml:"priorityWindow"`
	CSVPath      *string           `yaml:"csvPath"`
	TickInterval *string           `yaml:"tickInterval"`
	MetricsAddr  *string           `yaml:"metricsAddr"`
	// Workload is pre-populated with the current profile so the file only overrides what it names.
	Workload *workload.Profile `yaml:"workload"`
}

// LoadFromFile applies a YAML policy file.
func (c *Config) LoadFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}
	return c.LoadFromYAML(raw)
}

// LoadFromYAML applies a YAML policy document.
func (c *Config) LoadFromYAML(raw []byte) error {
	profile := c.Workload
	pf := policyFile{Workload: &profile}
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("parse policy: %w", err)
	}

	// Quantities and durations reuse the ConfigMap parsers.
	data := map[string]string{}
	if pf.Capacity != nil {
		data["totalCPU"] = pf.Capacity.CPU
		data["totalMemory"] = pf.Capacity.Memory
	}
	if pf.Floors != nil {
		data["cpuFloorA"] = pf.Floors.CPUA
		data["memoryFloorA"] = pf.Floors.MemoryA
		data["cpuFloorB"] = pf.Floors.CPUB
		data["memoryFloorB"] = pf.Floors.MemoryB
	}
	if pf.TickInterval != nil {
		data["tickInterval"] = *pf.TickInterval
	}
	if err := c.LoadFromData(data); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	if pf.Minutes != nil {
		c.Minutes = *pf.Minutes
	}
	if pf.Seed != nil {
		c.Seed = *pf.Seed
	}
	if p := pf.Prices; p != nil {
		setFloat(&c.Prices.CPUPerHour, p.CPUPerHour)
		setFloat(&c.Prices.MemoryPerHour, p.MemoryPerHour)
	}
	if w := pf.Weights; w != nil {
		setFloat(&c.DefaultWeights.A, w.A)
		setFloat(&c.DefaultWeights.B, w.B)
	}
	if pw := pf.PriorityWindow; pw != nil {
		if pw.Start != nil {
			c.PriorityStart = *pw.Start
		}
		if pw.End != nil {
			c.PriorityEnd = *pw.End
		}
		setFloat(&c.PriorityWeights.A, pw.WeightA)
		setFloat(&c.PriorityWeights.B, pw.WeightB)
	}
	if pf.CSVPath != nil {
		c.CSVPath = *pf.CSVPath
	}
	if pf.MetricsAddr != nil {
		c.MetricsAddr = *pf.MetricsAddr
	}
	c.Workload = profile
	return nil
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
