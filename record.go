package pxc

import (
	"fmt"
	"strings"
	"time"
)

// MissingCell is written for a column a Record doesn't have a value for.
const MissingCell = "-"

// Record is one emitted row: a mapping from canonical column header to cell
// value. Every Record carries a Timestamp key. Records are produced by a
// step's execute and flow through the file channel; no step retains them.
type Record struct {
	Timestamp time.Time
	values    map[string]string
	order     []string
}

// NewRecord creates an empty Record stamped with the current local time.
func NewRecord() *Record {
	return &Record{
		Timestamp: time.Now(),
		values:    make(map[string]string),
	}
}

// Set stores the cell value for header, remembering first-insertion order.
func (r *Record) Set(header, value string) {
	if _, exists := r.values[header]; !exists {
		r.order = append(r.order, header)
	}
	r.values[header] = value
}

// Get returns the cell value for header, or MissingCell if absent.
func (r *Record) Get(header string) string {
	if v, ok := r.values[header]; ok {
		return v
	}
	return MissingCell
}

// Headers returns the non-Timestamp headers in insertion order.
func (r *Record) Headers() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Row renders one tab-separated data line for the given header plan
// (Timestamp first, then the rest, matching §6.2).
func (r *Record) Row(plan []string) string {
	cells := make([]string, len(plan))
	for i, h := range plan {
		if h == "Timestamp" {
			cells[i] = r.Timestamp.Format(TimestampLayout)
			continue
		}
		cells[i] = r.Get(h)
	}
	return strings.Join(cells, "\t")
}

// ContinuousHeader builds the canonical column header for a continuous
// reading: "<instrument>--<parameter-or-component> (<unit>)".
func ContinuousHeader(instrument, field, unit string) string {
	if unit == "" {
		return fmt.Sprintf("%s--%s", instrument, field)
	}
	return fmt.Sprintf("%s--%s (%s)", instrument, field, unit)
}

// DiscreteHeader builds the canonical column header for a non-continuous
// reading: "<instrument>--<parameter-or-component>".
func DiscreteHeader(instrument, field string) string {
	return fmt.Sprintf("%s--%s", instrument, field)
}
