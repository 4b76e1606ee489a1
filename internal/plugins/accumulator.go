// Package plugins provides the built-in transform plugins, declarative plugin
// definitions and external process plugins.
package plugins

import "strings"

const accumulatorSeparator = "\n"

// Accumulator collects distinct values in first-seen order. One Accumulator lives
// for the whole run of the plugin that owns it.
type Accumulator struct {
	values []string
	seen   map[string]struct{}
}

// NewAccumulator constructs an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{seen: map[string]struct{}{}}
}

// Add records value and reports whether it was new.
func (accumulator *Accumulator) Add(value string) bool {
	if _, duplicate := accumulator.seen[value]; duplicate {
		return false
	}
	accumulator.seen[value] = struct{}{}
	accumulator.values = append(accumulator.values, value)
	return true
}

// Content joins the values one per line.
func (accumulator *Accumulator) Content() string {
	return strings.Join(accumulator.values, accumulatorSeparator)
}
