package indexers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
)

// SubsumeName is the registered identity of the subsumption filter.
const SubsumeName = "subsume"

// Subsume removes an n-gram occurrence from the first input when its tuple
// is wholly contained, as a contiguous sub-window, inside an (n+1)-gram
// value from the second input that repeats at least z times. Containment is
// checked on event-tuple equality, not offset equality, since the same
// tuple may recur at different offsets.
type Subsume struct{}

// Name returns the stage identity.
func (Subsume) Name() string { return SubsumeName }

// Kind returns KindIndexer.
func (Subsume) Kind() stage.Kind { return stage.KindIndexer }

// Schema declares the minimum repetition count z. z is required.
func (Subsume) Schema() stage.ConfigSchema {
	return stage.ConfigSchema{
		Properties: map[string]stage.PropertySchema{
			"z": {Type: "int", Minimum: stage.Min(1),
				Description: "minimum repetitions of an (n+1)-gram before it subsumes"},
			"separator": {Type: "string", Default: DefaultSeparator,
				Description: "separator used when the n-grams were built"},
		},
		Required: []string{"z"},
	}
}

// InputPorts declares the two n-gram inputs.
func (Subsume) InputPorts() []stage.Port {
	return []stage.Port{
		{Name: "ngrams", Type: stage.PortEventSeries, Required: true,
			Description: "n-grams to filter"},
		{Name: "longer", Type: stage.PortEventSeries, Required: true,
			Description: "(n+1)-grams that may subsume them"},
	}
}

// OutputPorts declares the filtered output.
func (Subsume) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "filtered", Type: stage.PortEventSeries,
		Description: "surviving n-gram occurrences"}}
}

// Run filters each voice combination independently. A combination with no
// matching (n+1) series passes through unchanged.
func (sb Subsume) Run(_ context.Context, inputs []*series.FeatureTable, settings series.Settings) (*series.FeatureTable, error) {
	if err := sb.Schema().Validate(SubsumeName, settings); err != nil {
		return nil, err
	}
	if len(inputs) != 2 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: subsume takes n-gram and (n+1)-gram inputs, got %d",
				errors.ErrIncompatibleInput, len(inputs)),
			"Subsume", "Run", "input validation")
	}
	short, long := inputs[0], inputs[1]

	z := settings.Int("z", 0)
	sep := settings.String("separator", DefaultSeparator)

	if err := checkWindowSizes(short, long, sep); err != nil {
		return nil, err
	}

	out := series.NewTable(SubsumeName, short.Piece)
	for combo, s := range short.Series {
		ls, ok := long.Series[combo]
		if !ok {
			out.AddSeries(s)
			continue
		}

		// Count (n+1)-gram repetitions, then mark the two contiguous
		// length-n sub-windows of every value that meets z.
		counts := make(map[string]int)
		for _, e := range ls.Events {
			counts[e.Value]++
		}
		subsumed := make(map[string]bool)
		for value, count := range counts {
			if count < z {
				continue
			}
			tokens := strings.Split(value, sep)
			n := len(tokens) - 1
			subsumed[strings.Join(tokens[:n], sep)] = true
			subsumed[strings.Join(tokens[1:], sep)] = true
		}

		fs := series.New(combo, s.Piece)
		for _, e := range s.Events {
			if subsumed[e.Value] {
				continue
			}
			if err := fs.Append(e.Offset, e.Value); err != nil {
				return nil, errors.WrapInvalid(err, "Subsume", "Run", "series construction")
			}
		}
		out.AddSeries(fs)
	}
	return out, nil
}

// checkWindowSizes verifies that the second input's windows are exactly one
// event longer than the first's, comparing the first event of each table.
func checkWindowSizes(short, long *series.FeatureTable, sep string) error {
	shortN, longN := firstWindowSize(short, sep), firstWindowSize(long, sep)
	if shortN == 0 || longN == 0 {
		// One of the tables is empty; nothing to compare.
		return nil
	}
	if longN != shortN+1 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: expected window sizes n and n+1, got %d and %d",
				errors.ErrIncompatibleInput, shortN, longN),
			"Subsume", "Run", "window size check")
	}
	return nil
}

func firstWindowSize(t *series.FeatureTable, sep string) int {
	for _, s := range t.Series {
		if s.Len() > 0 {
			return len(strings.Split(s.At(0).Value, sep))
		}
	}
	return 0
}
