package indexers

import (
	"context"
	"fmt"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/score"
	"github.com/ELVIS-Project/fiddle-tunes/series"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
)

// Stage identities for the filter indexers.
const (
	OffsetFilterName = "offset-filter"
	RepeatFilterName = "repeat-filter"
	RestFilterName   = "rest-filter"
)

// OffsetFilter regularizes each series onto a fixed offset grid: one event
// per grid point from the series' first offset through its last, each
// holding the value sounding at that point. Downstream indexers that assume
// evenly spaced events (n-grams over time rather than over attacks) run on
// its output.
type OffsetFilter struct{}

// Name returns the stage identity.
func (OffsetFilter) Name() string { return OffsetFilterName }

// Kind returns KindIndexer.
func (OffsetFilter) Kind() stage.Kind { return stage.KindIndexer }

// Schema declares the grid interval. quarterLength is required.
func (OffsetFilter) Schema() stage.ConfigSchema {
	return stage.ConfigSchema{
		Properties: map[string]stage.PropertySchema{
			"quarterLength": {Type: "float", Minimum: stage.Min(0.001),
				Description: "grid spacing in quarter-length units"},
		},
		Required: []string{"quarterLength"},
	}
}

// InputPorts declares the series input.
func (OffsetFilter) InputPorts() []stage.Port {
	return []stage.Port{{Name: "in", Type: stage.PortEventSeries, Required: true}}
}

// OutputPorts declares the regularized output.
func (OffsetFilter) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "out", Type: stage.PortEventSeries,
		Description: "series resampled onto the offset grid"}}
}

// Run resamples every series in the input table.
func (of OffsetFilter) Run(_ context.Context, inputs []*series.FeatureTable, settings series.Settings) (*series.FeatureTable, error) {
	if err := of.Schema().Validate(OffsetFilterName, settings); err != nil {
		return nil, err
	}
	if len(inputs) != 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: offset-filter takes exactly one input, got %d",
				errors.ErrIncompatibleInput, len(inputs)),
			"OffsetFilter", "Run", "input validation")
	}
	in := inputs[0]
	q := settings.Float("quarterLength", 0)

	out := series.NewTable(OffsetFilterName, in.Piece)
	for combo, s := range in.Series {
		rs := series.New(combo, s.Piece)
		if s.Len() > 0 {
			first := s.At(0).Offset
			last := s.At(s.Len() - 1).Offset
			// A small epsilon keeps the final grid point when float
			// accumulation lands just past the last offset.
			for offset := first; offset <= last+q*1e-9; offset += q {
				value, ok := s.ValueAt(offset)
				if !ok {
					continue
				}
				if err := rs.Append(offset, value); err != nil {
					return nil, errors.WrapInvalid(err, "OffsetFilter", "Run", "series construction")
				}
			}
		}
		out.AddSeries(rs)
	}
	return out, nil
}

// RepeatFilter drops events identical to the immediately preceding event in
// the same series, so held or restruck notes do not inflate n-gram counts.
type RepeatFilter struct{}

// Name returns the stage identity.
func (RepeatFilter) Name() string { return RepeatFilterName }

// Kind returns KindIndexer.
func (RepeatFilter) Kind() stage.Kind { return stage.KindIndexer }

// Schema declares that RepeatFilter takes no settings.
func (RepeatFilter) Schema() stage.ConfigSchema { return stage.ConfigSchema{} }

// InputPorts declares the series input.
func (RepeatFilter) InputPorts() []stage.Port {
	return []stage.Port{{Name: "in", Type: stage.PortEventSeries, Required: true}}
}

// OutputPorts declares the deduplicated output.
func (RepeatFilter) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "out", Type: stage.PortEventSeries,
		Description: "series with consecutive repeats removed"}}
}

// Run filters every series in the input table.
func (rf RepeatFilter) Run(_ context.Context, inputs []*series.FeatureTable, _ series.Settings) (*series.FeatureTable, error) {
	if len(inputs) != 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: repeat-filter takes exactly one input, got %d",
				errors.ErrIncompatibleInput, len(inputs)),
			"RepeatFilter", "Run", "input validation")
	}
	in := inputs[0]

	out := series.NewTable(RepeatFilterName, in.Piece)
	for combo, s := range in.Series {
		fs := series.New(combo, s.Piece)
		for _, e := range s.Events {
			if last, ok := fs.Last(); ok && last.Value == e.Value {
				continue
			}
			if err := fs.Append(e.Offset, e.Value); err != nil {
				return nil, errors.WrapInvalid(err, "RepeatFilter", "Run", "series construction")
			}
		}
		out.AddSeries(fs)
	}
	return out, nil
}

// RestFilter drops rest events, leaving only sounding values. The interval
// indexer marks any dyad involving a rest with the rest value, so counting
// experiments that ignore silence run on this filter's output.
type RestFilter struct{}

// Name returns the stage identity.
func (RestFilter) Name() string { return RestFilterName }

// Kind returns KindIndexer.
func (RestFilter) Kind() stage.Kind { return stage.KindIndexer }

// Schema declares that RestFilter takes no settings.
func (RestFilter) Schema() stage.ConfigSchema { return stage.ConfigSchema{} }

// InputPorts declares the series input.
func (RestFilter) InputPorts() []stage.Port {
	return []stage.Port{{Name: "in", Type: stage.PortEventSeries, Required: true}}
}

// OutputPorts declares the rest-free output.
func (RestFilter) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "out", Type: stage.PortEventSeries,
		Description: "series with rest events removed"}}
}

// Run filters every series in the input table.
func (rf RestFilter) Run(_ context.Context, inputs []*series.FeatureTable, _ series.Settings) (*series.FeatureTable, error) {
	if len(inputs) != 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: rest-filter takes exactly one input, got %d",
				errors.ErrIncompatibleInput, len(inputs)),
			"RestFilter", "Run", "input validation")
	}
	in := inputs[0]

	out := series.NewTable(RestFilterName, in.Piece)
	for combo, s := range in.Series {
		fs := series.New(combo, s.Piece)
		for _, e := range s.Events {
			if e.Value == score.Rest {
				continue
			}
			if err := fs.Append(e.Offset, e.Value); err != nil {
				return nil, errors.WrapInvalid(err, "RestFilter", "Run", "series construction")
			}
		}
		out.AddSeries(fs)
	}
	return out, nil
}
