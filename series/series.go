// Package series defines the elementary data structures all analysis stages
// consume and produce: the offset-indexed event series, the immutable
// settings map, and the feature table that maps voice combinations to
// computed results.
package series

import (
	"fmt"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
)

// Event is a single observation in a series: a value at a quarter-length
// offset from the start of the piece.
type Event struct {
	Offset float64 `json:"offset"`
	Value  string  `json:"value"`
}

// Series is an ordered sequence of events for one voice or voice-combination.
// Offsets are non-decreasing; multiple simultaneous events at one offset are
// preserved in insertion order, never collapsed. Combo and Piece carry
// provenance so downstream consumers can place annotations on a score.
type Series struct {
	Combo  string  `json:"combo"`
	Piece  string  `json:"piece"`
	Events []Event `json:"events"`
}

// New creates an empty series for the given voice combination and piece.
func New(combo, piece string) *Series {
	return &Series{Combo: combo, Piece: piece}
}

// Append adds an event, enforcing the non-decreasing offset invariant.
func (s *Series) Append(offset float64, value string) error {
	if n := len(s.Events); n > 0 && offset < s.Events[n-1].Offset {
		return errors.WrapInvalid(
			fmt.Errorf("offset %v before previous offset %v", offset, s.Events[n-1].Offset),
			"Series", "Append", "offset ordering")
	}
	s.Events = append(s.Events, Event{Offset: offset, Value: value})
	return nil
}

// Len returns the number of events in the series.
func (s *Series) Len() int {
	return len(s.Events)
}

// At returns the event at index i.
func (s *Series) At(i int) Event {
	return s.Events[i]
}

// Last returns the final event and true, or a zero event and false when the
// series is empty.
func (s *Series) Last() (Event, bool) {
	if len(s.Events) == 0 {
		return Event{}, false
	}
	return s.Events[len(s.Events)-1], true
}

// Values returns the event values in order.
func (s *Series) Values() []string {
	vals := make([]string, len(s.Events))
	for i, e := range s.Events {
		vals[i] = e.Value
	}
	return vals
}

// ValueAt returns the value of the latest event at or before the given
// offset, with forward fill between events. The second return is false when
// the offset precedes the first event.
func (s *Series) ValueAt(offset float64) (string, bool) {
	if len(s.Events) == 0 || offset < s.Events[0].Offset {
		return "", false
	}
	// Binary search for the last event at or before offset. When several
	// events share that offset, the last one in insertion order wins.
	lo, hi := 0, len(s.Events)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if s.Events[mid].Offset <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return s.Events[lo].Value, true
}
