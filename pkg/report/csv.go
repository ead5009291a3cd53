// Package report persists simulated ticks and renders run summaries.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"duoalloc/pkg/metrics"
)

// Header is the CSV column order.
var Header = []string{
	"minute",
	"a_need_cpu", "a_need_ram",
	"b_need_cpu", "b_need_ram",
	"a_alloc_cpu", "a_alloc_ram",
	"b_alloc_cpu", "b_alloc_ram",
	"a_sla_ok", "b_sla_ok",
	"a_cost", "b_cost",
	"cpu_fairness",
}

// CSVWriter streams tick rows to w. The header is written before the first row.
type CSVWriter struct {
	w             *csv.Writer
	headerWritten bool
	rows          int
}

// NewCSVWriter creates a writer over w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends one row.
func (c *CSVWriter) Write(row metrics.TickRow) error {
	if !c.headerWritten {
		if err := c.w.Write(Header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		c.headerWritten = true
	}
	if err := c.w.Write(Record(row)); err != nil {
		return fmt.Errorf("write csv row for minute %d: %w", row.Minute, err)
	}
	c.rows++
	return nil
}

// Rows returns how many rows have been written.
func (c *CSVWriter) Rows() int {
	return c.rows
}

// Flush writes buffered data to the underlying writer.
func (c *CSVWriter) Flush() error {
	if !c.headerWritten {
		if err := c.w.Write(Header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		c.headerWritten = true
	}
	c.w.Flush()
	return c.w.Error()
}

// Record formats a row in Header order.
func Record(row metrics.TickRow) []string {
	a := row.Allocation
	return []string{
		strconv.Itoa(row.Minute),
		formatInt(row.NeedA.CPU), formatInt(row.NeedA.Memory),
		formatInt(row.NeedB.CPU), formatInt(row.NeedB.Memory),
		formatInt(a.CPUA), formatInt(a.MemoryA),
		formatInt(a.CPUB), formatInt(a.MemoryB),
		formatBool(row.SLAOkA), formatBool(row.SLAOkB),
		formatFloat(row.CostA), formatFloat(row.CostB),
		formatFloat(row.CPUFairness),
	}
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
