// Package experimenters holds the built-in Experimenter stages: reductions
// from event series to summary scalars, frequency counts, and merged
// collection-level tables.
package experimenters

import (
	"context"
	"fmt"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
)

// FrequencyName is the registered identity of the frequency experimenter.
const FrequencyName = "frequency"

// Frequency counts the occurrences of each distinct event value, per voice
// combination.
type Frequency struct{}

// Name returns the stage identity.
func (Frequency) Name() string { return FrequencyName }

// Kind returns KindExperimenter.
func (Frequency) Kind() stage.Kind { return stage.KindExperimenter }

// Schema declares that Frequency takes no settings.
func (Frequency) Schema() stage.ConfigSchema { return stage.ConfigSchema{} }

// InputPorts declares the series input.
func (Frequency) InputPorts() []stage.Port {
	return []stage.Port{{Name: "in", Type: stage.PortEventSeries, Required: true}}
}

// OutputPorts declares the frequency-table output.
func (Frequency) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "counts", Type: stage.PortFeatureTable,
		Description: "per-combination counts of distinct values"}}
}

// Run counts every series in the input table.
func (f Frequency) Run(_ context.Context, inputs []*series.FeatureTable, _ series.Settings) (*series.FeatureTable, error) {
	if len(inputs) != 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: frequency takes exactly one input, got %d",
				errors.ErrIncompatibleInput, len(inputs)),
			"Frequency", "Run", "input validation")
	}
	in := inputs[0]
	if len(in.Series) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: frequency input has no series", errors.ErrEmptyInput),
			"Frequency", "Run", "input validation")
	}

	out := series.NewTable(FrequencyName, in.Piece)
	for combo, s := range in.Series {
		counts := make(series.Frequencies)
		for _, e := range s.Events {
			counts[e.Value]++
		}
		out.SetCounts(combo, counts)
	}
	return out, nil
}
