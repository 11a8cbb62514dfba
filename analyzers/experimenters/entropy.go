package experimenters

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
)

// EntropyName is the registered identity of the entropy experimenter.
const EntropyName = "entropy"

// Entropy computes Shannon-style predictive entropy over a transition model
// built from n-gram occurrences: each n-gram contributes one transition from
// its (n-1)-gram prefix to its final event. The reported value is the
// conditional entropy H(next|current) in bits, weighting each prefix by its
// relative frequency. The smoothing strategy is a configurable policy, not a
// fixed algorithm.
type Entropy struct{}

// Name returns the stage identity.
func (Entropy) Name() string { return EntropyName }

// Kind returns KindExperimenter.
func (Entropy) Kind() stage.Kind { return stage.KindExperimenter }

// Schema declares the smoothing policy settings.
func (Entropy) Schema() stage.ConfigSchema {
	return stage.ConfigSchema{
		Properties: map[string]stage.PropertySchema{
			"separator": {Type: "string", Default: " ",
				Description: "separator used when the n-grams were built"},
			"smoothing": {Type: "string", Default: "none",
				Enum:        []string{"none", "laplace"},
				Description: "prior strategy for the transition model"},
			"prior": {Type: "float", Minimum: stage.Min(0.000001), Default: 1.0,
				Description: "additive prior per transition under laplace smoothing"},
		},
	}
}

// InputPorts declares the n-gram series input.
func (Entropy) InputPorts() []stage.Port {
	return []stage.Port{{Name: "ngrams", Type: stage.PortEventSeries, Required: true,
		Description: "n-gram series with n >= 2"}}
}

// OutputPorts declares the scalar output.
func (Entropy) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "entropy", Type: stage.PortScalar,
		Description: "predictive entropy in bits, per voice combination"}}
}

// Run computes one entropy scalar per voice combination.
func (en Entropy) Run(_ context.Context, inputs []*series.FeatureTable, settings series.Settings) (*series.FeatureTable, error) {
	if err := en.Schema().Validate(EntropyName, settings); err != nil {
		return nil, err
	}
	if len(inputs) != 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: entropy takes exactly one input, got %d",
				errors.ErrIncompatibleInput, len(inputs)),
			"Entropy", "Run", "input validation")
	}
	in := inputs[0]
	if len(in.Series) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: entropy input has no series", errors.ErrEmptyInput),
			"Entropy", "Run", "input validation")
	}

	sep := settings.String("separator", " ")
	laplace := settings.String("smoothing", "none") == "laplace"
	prior := settings.Float("prior", 1.0)

	out := series.NewTable(EntropyName, in.Piece)
	for combo, s := range in.Series {
		if s.Len() == 0 {
			continue
		}

		transitions := make(map[string]map[string]float64)
		prefixCounts := make(map[string]float64)
		vocab := make(map[string]bool)
		var total float64
		for _, e := range s.Events {
			tokens := strings.Split(e.Value, sep)
			if len(tokens) < 2 {
				return nil, errors.WrapInvalid(
					fmt.Errorf("%w: entropy needs n-grams of length >= 2, got %q",
						errors.ErrIncompatibleInput, e.Value),
					"Entropy", "Run", "n-gram length check")
			}
			prefix := strings.Join(tokens[:len(tokens)-1], sep)
			next := tokens[len(tokens)-1]
			if transitions[prefix] == nil {
				transitions[prefix] = make(map[string]float64)
			}
			transitions[prefix][next]++
			prefixCounts[prefix]++
			vocab[next] = true
			total++
		}

		if laplace {
			for _, nexts := range transitions {
				for v := range vocab {
					nexts[v] += prior
				}
			}
		}

		// H(next|current): each prefix's entropy weighted by its share
		// of observed transitions.
		var entropy float64
		for prefix, nexts := range transitions {
			var prefixTotal float64
			for _, c := range nexts {
				prefixTotal += c
			}
			var h float64
			for _, c := range nexts {
				p := c / prefixTotal
				h -= p * math.Log2(p)
			}
			entropy += h * prefixCounts[prefix] / total
		}
		out.SetScalar(combo, entropy)
	}

	if len(out.Scalars) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: all input series are empty", errors.ErrEmptyInput),
			"Entropy", "Run", "input validation")
	}
	return out, nil
}
