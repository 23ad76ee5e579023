package batch

import (
	"fmt"
	"strings"
)

// Failure is an item whose create failed.
type Failure[T any] struct {
	Item T
	Err  error
}

// Outcome is the result of one run. Lists keep input order.
type Outcome[T any] struct {
	Succeeded  []T
	Failed     []Failure[T]
	Duplicates []T
	// Malformed counts non-blank lines that did not parse.
	Malformed int

	format func(T) string
}

// FailedItems returns the items of Failed.
func (o *Outcome[T]) FailedItems() []T {
	items := make([]T, len(o.Failed))
	for i, f := range o.Failed {
		items[i] = f.Item
	}
	return items
}

// FailedLines renders each failed item as its input line.
func (o *Outcome[T]) FailedLines() []string {
	lines := make([]string, len(o.Failed))
	for i, f := range o.Failed {
		lines[i] = o.format(f.Item)
	}
	return lines
}

// RetryText renders the failed items one per line, ready to paste back.
func (o *Outcome[T]) RetryText() string {
	return strings.Join(o.FailedLines(), "\n")
}

// Summary is the single notification shown after a run.
func (o *Outcome[T]) Summary() string {
	s := fmt.Sprintf("%d added, %d failed, %d duplicates skipped",
		len(o.Succeeded), len(o.Failed), len(o.Duplicates))
	if o.Malformed > 0 {
		s += fmt.Sprintf(", %d invalid lines ignored", o.Malformed)
	}
	return s
}
