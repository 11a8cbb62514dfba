package indexers

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
)

// Stage identities for the interval indexers.
const (
	IntervalName           = "interval"
	HorizontalIntervalName = "horizontal-interval"
)

// Shared settings schema for both interval indexers. All options are
// optional with documented defaults; none is required.
func intervalSchema() stage.ConfigSchema {
	return stage.ConfigSchema{
		Properties: map[string]stage.PropertySchema{
			"quality": {Type: "bool", Default: false,
				Description: "prepend interval quality (P, M, m, A, d)"},
			"simple or compound": {Type: "string", Default: "compound",
				Enum:        []string{"simple", "compound"},
				Description: "reduce intervals to their single-octave form"},
			"byTones": {Type: "bool", Default: false,
				Description: "report distance in whole tones; overrides quality"},
			"simultaneity": {Type: "string", Default: "last",
				Enum:        []string{"first", "last"},
				Description: "which of several simultaneous events in one voice counts"},
		},
	}
}

func intervalOptionsFrom(settings series.Settings) intervalOptions {
	return intervalOptions{
		quality: settings.Bool("quality", false),
		simple:  settings.String("simple or compound", "compound") == "simple",
		byTones: settings.Bool("byTones", false),
	}
}

// Interval indexes the vertical (harmonic) intervals between every two-voice
// combination. Voice priority is fixed by score order: the voice with the
// lower index is the upper voice of each pair, so simultaneous onsets always
// resolve the same way regardless of event arrival order. Within one voice,
// the "simultaneity" setting picks the first or last of several events
// sharing an offset.
type Interval struct{}

// Name returns the stage identity.
func (Interval) Name() string { return IntervalName }

// Kind returns KindIndexer.
func (Interval) Kind() stage.Kind { return stage.KindIndexer }

// Schema declares the interval settings.
func (Interval) Schema() stage.ConfigSchema { return intervalSchema() }

// InputPorts declares the per-voice note input.
func (Interval) InputPorts() []stage.Port {
	return []stage.Port{{Name: "notes", Type: stage.PortEventSeries, Required: true,
		Description: "per-voice pitch-or-rest series"}}
}

// OutputPorts declares the per-pair interval output.
func (Interval) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "intervals", Type: stage.PortEventSeries,
		Description: "one series per two-voice combination"}}
}

// Run computes one series per voice pair, with one event at every offset
// where either voice changes, forward-filling the other voice.
func (iv Interval) Run(_ context.Context, inputs []*series.FeatureTable, settings series.Settings) (*series.FeatureTable, error) {
	if err := iv.Schema().Validate(IntervalName, settings); err != nil {
		return nil, err
	}
	if len(inputs) != 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: interval takes exactly one input, got %d", errors.ErrIncompatibleInput, len(inputs)),
			"Interval", "Run", "input validation")
	}
	in := inputs[0]

	voices, err := voiceOrder(in)
	if err != nil {
		return nil, err
	}
	if len(voices) < 2 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: interval requires at least two voices, got %d", errors.ErrIncompatibleInput, len(voices)),
			"Interval", "Run", "voice cardinality check")
	}

	opts := intervalOptionsFrom(settings)
	firstWins := settings.String("simultaneity", "last") == "first"

	out := series.NewTable(IntervalName, in.Piece)
	for a := 0; a < len(voices); a++ {
		for b := a + 1; b < len(voices); b++ {
			upper := collapseSimultaneous(in.Series[voices[a]], firstWins)
			lower := collapseSimultaneous(in.Series[voices[b]], firstWins)

			combo := voices[a] + "," + voices[b]
			pair := series.New(combo, in.Piece)
			for _, offset := range unionOffsets(upper, lower) {
				uv, uok := upper.ValueAt(offset)
				lv, lok := lower.ValueAt(offset)
				if !uok || !lok {
					// One voice has not started yet
					continue
				}
				if err := pair.Append(offset, intervalName(lv, uv, opts)); err != nil {
					return nil, errors.WrapInvalid(err, "Interval", "Run", "series construction")
				}
			}
			out.AddSeries(pair)
		}
	}
	return out, nil
}

// HorizontalInterval indexes the melodic intervals within each voice. An
// interval's offset is that of the second note involved, so the series stays
// in the piece's temporal domain.
type HorizontalInterval struct{}

// Name returns the stage identity.
func (HorizontalInterval) Name() string { return HorizontalIntervalName }

// Kind returns KindIndexer.
func (HorizontalInterval) Kind() stage.Kind { return stage.KindIndexer }

// Schema declares the interval settings.
func (HorizontalInterval) Schema() stage.ConfigSchema { return intervalSchema() }

// InputPorts declares the per-voice note input.
func (HorizontalInterval) InputPorts() []stage.Port {
	return []stage.Port{{Name: "notes", Type: stage.PortEventSeries, Required: true,
		Description: "per-voice pitch-or-rest series"}}
}

// OutputPorts declares the per-voice melodic output.
func (HorizontalInterval) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "intervals", Type: stage.PortEventSeries,
		Description: "melodic interval series per voice"}}
}

// Run computes each voice's note-to-note intervals. Ascending motion is
// positive; descending carries a "-" prefix.
func (hi HorizontalInterval) Run(_ context.Context, inputs []*series.FeatureTable, settings series.Settings) (*series.FeatureTable, error) {
	if err := hi.Schema().Validate(HorizontalIntervalName, settings); err != nil {
		return nil, err
	}
	if len(inputs) != 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: horizontal-interval takes exactly one input, got %d",
				errors.ErrIncompatibleInput, len(inputs)),
			"HorizontalInterval", "Run", "input validation")
	}
	in := inputs[0]

	opts := intervalOptionsFrom(settings)
	firstWins := settings.String("simultaneity", "last") == "first"

	out := series.NewTable(HorizontalIntervalName, in.Piece)
	for combo, s := range in.Series {
		voice := collapseSimultaneous(s, firstWins)
		ms := series.New(combo, s.Piece)
		for i := 1; i < voice.Len(); i++ {
			prev, cur := voice.At(i-1), voice.At(i)
			if err := ms.Append(cur.Offset, intervalName(prev.Value, cur.Value, opts)); err != nil {
				return nil, errors.WrapInvalid(err, "HorizontalInterval", "Run", "series construction")
			}
		}
		out.AddSeries(ms)
	}
	return out, nil
}

// voiceOrder returns the table's voice labels in score order. Labels are
// numeric voice indices; non-numeric labels mean the input is not a
// per-voice table.
func voiceOrder(t *series.FeatureTable) ([]string, error) {
	labels := t.Combos()
	idx := make([]int, 0, len(labels))
	for _, l := range labels {
		n, err := strconv.Atoi(l)
		if err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: voice label %q is not a voice index", errors.ErrIncompatibleInput, l),
				"indexers", "voiceOrder", "voice label check")
		}
		idx = append(idx, n)
	}
	sort.Ints(idx)
	ordered := make([]string, len(idx))
	for i, n := range idx {
		ordered[i] = strconv.Itoa(n)
	}
	return ordered, nil
}

// collapseSimultaneous reduces events sharing an offset to a single event,
// per the configured policy. The result is safe for forward-fill pairing.
func collapseSimultaneous(s *series.Series, firstWins bool) *series.Series {
	out := series.New(s.Combo, s.Piece)
	for i := 0; i < len(s.Events); i++ {
		e := s.Events[i]
		if n := len(out.Events); n > 0 && out.Events[n-1].Offset == e.Offset {
			if !firstWins {
				out.Events[n-1].Value = e.Value
			}
			continue
		}
		out.Events = append(out.Events, e)
	}
	return out
}

// unionOffsets merges the distinct offsets of two collapsed series, sorted.
func unionOffsets(a, b *series.Series) []float64 {
	seen := make(map[float64]bool, a.Len()+b.Len())
	var offsets []float64
	for _, e := range a.Events {
		if !seen[e.Offset] {
			seen[e.Offset] = true
			offsets = append(offsets, e.Offset)
		}
	}
	for _, e := range b.Events {
		if !seen[e.Offset] {
			seen[e.Offset] = true
			offsets = append(offsets, e.Offset)
		}
	}
	sort.Float64s(offsets)
	return offsets
}
