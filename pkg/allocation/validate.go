package allocation

import (
	"errors"
	"fmt"
	"math"

	"duoalloc/pkg/types"
)

// InvalidInputError names an input field that lies outside the allocator's domain.
// Allocate itself never returns it; callers that prefer rejection over clamping
// run Validate first.
type InvalidInputError struct {
	Field string
	Value string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s=%s", e.Field, e.Value)
}

// IsInvalidInput reports whether err wraps an *InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// Validate checks that every quantity is non-negative and every weight is a
// finite non-negative number. Capacity shortfalls are not errors.
func Validate(demandA, demandB types.Demand, capacity types.Capacity, floors types.Floors, weights types.Weights) error {
	ints := []struct {
		field string
		value int64
	}{
		{"demandA.cpu", demandA.CPU},
		{"demandA.memory", demandA.Memory},
		{"demandB.cpu", demandB.CPU},
		{"demandB.memory", demandB.Memory},
		{"capacity.cpu", capacity.CPU},
		{"capacity.memory", capacity.Memory},
		{"floors.cpuA", floors.CPUA},
		{"floors.memoryA", floors.MemoryA},
		{"floors.cpuB", floors.CPUB},
		{"floors.memoryB", floors.MemoryB},
	}
	for _, in := range ints {
		if in.value < 0 {
			return &InvalidInputError{Field: in.field, Value: fmt.Sprintf("%d", in.value)}
		}
	}

	for _, in := range []struct {
		field string
		value float64
	}{{"weights.a", weights.A}, {"weights.b", weights.B}} {
		if math.IsNaN(in.value) || math.IsInf(in.value, 0) || in.value < 0 {
			return &InvalidInputError{Field: in.field, Value: fmt.Sprintf("%g", in.value)}
		}
	}
	return nil
}
