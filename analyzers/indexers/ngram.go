package indexers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
)

// NGramName is the registered identity of the n-gram indexer.
const NGramName = "ngram"

// DefaultSeparator joins the member events of an n-gram value.
const DefaultSeparator = " "

// NGram produces one output event per valid window start offset, each
// containing the ordered tuple of n consecutive input events. Windows that
// would run past the end of the piece are dropped; there is no padding, so a
// gapless base series of length L yields exactly L-n+1 events.
type NGram struct{}

// Name returns the stage identity.
func (NGram) Name() string { return NGramName }

// Kind returns KindIndexer.
func (NGram) Kind() stage.Kind { return stage.KindIndexer }

// Schema declares the window size and separator settings. n is required;
// there is no default window size.
func (NGram) Schema() stage.ConfigSchema {
	return stage.ConfigSchema{
		Properties: map[string]stage.PropertySchema{
			"n": {Type: "int", Minimum: stage.Min(1),
				Description: "window size; each output event holds n consecutive input events"},
			"separator": {Type: "string", Default: DefaultSeparator,
				Description: "string joining the member events of a window"},
		},
		Required: []string{"n"},
	}
}

// InputPorts declares the base series input.
func (NGram) InputPorts() []stage.Port {
	return []stage.Port{{Name: "base", Type: stage.PortEventSeries, Required: true,
		Description: "base series to window over"}}
}

// OutputPorts declares the windowed output.
func (NGram) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "ngrams", Type: stage.PortEventSeries,
		Description: "one event per valid window start"}}
}

// Run windows every series in the input table.
func (ng NGram) Run(_ context.Context, inputs []*series.FeatureTable, settings series.Settings) (*series.FeatureTable, error) {
	if err := ng.Schema().Validate(NGramName, settings); err != nil {
		return nil, err
	}
	if len(inputs) != 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: ngram takes exactly one input, got %d", errors.ErrIncompatibleInput, len(inputs)),
			"NGram", "Run", "input validation")
	}
	in := inputs[0]

	n := settings.Int("n", 0)
	sep := settings.String("separator", DefaultSeparator)

	out := series.NewTable(NGramName, in.Piece)
	for combo, s := range in.Series {
		gs := series.New(combo, s.Piece)
		values := s.Values()
		for i := 0; i+n <= len(values); i++ {
			value := strings.Join(values[i:i+n], sep)
			if err := gs.Append(s.At(i).Offset, value); err != nil {
				return nil, errors.WrapInvalid(err, "NGram", "Run", "series construction")
			}
		}
		out.AddSeries(gs)
	}
	return out, nil
}
