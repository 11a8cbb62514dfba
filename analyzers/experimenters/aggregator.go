package experimenters

import (
	"context"
	"fmt"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
)

// AggregatorName is the registered identity of the aggregator experimenter.
const AggregatorName = "aggregator"

// CollectionCombo labels results merged across all voice combinations.
const CollectionCombo = "all"

// Aggregator combines per-piece feature tables within one group into a
// single table: summed or averaged scalars, or merged frequency counts,
// selected by the "combine" setting. Grouping pieces by metadata happens in
// the collection container; the aggregator only ever sees tables that
// belong to the same group.
type Aggregator struct{}

// Name returns the stage identity.
func (Aggregator) Name() string { return AggregatorName }

// Kind returns KindExperimenter.
func (Aggregator) Kind() stage.Kind { return stage.KindExperimenter }

// Schema declares the combine mode. combine is required.
func (Aggregator) Schema() stage.ConfigSchema {
	return stage.ConfigSchema{
		Properties: map[string]stage.PropertySchema{
			"combine": {Type: "string",
				Enum:        []string{"sum", "mean", "frequency"},
				Description: "how member results are merged"},
			"per combo": {Type: "bool", Default: false,
				Description: "keep voice combinations separate instead of merging into \"all\""},
		},
		Required: []string{"combine"},
	}
}

// InputPorts declares the variadic per-piece input.
func (Aggregator) InputPorts() []stage.Port {
	return []stage.Port{{Name: "members", Type: stage.PortFeatureTable, Required: true,
		Description: "per-piece feature tables of one group"}}
}

// OutputPorts declares the merged output.
func (Aggregator) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "merged", Type: stage.PortFeatureTable}}
}

// Run merges the input tables.
func (ag Aggregator) Run(_ context.Context, inputs []*series.FeatureTable, settings series.Settings) (*series.FeatureTable, error) {
	if err := ag.Schema().Validate(AggregatorName, settings); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: aggregator received no member tables", errors.ErrEmptyInput),
			"Aggregator", "Run", "input validation")
	}

	combine := settings.String("combine", "")
	perCombo := settings.Bool("per combo", false)

	out := series.NewTable(AggregatorName, "")
	switch combine {
	case "frequency":
		return out, ag.mergeFrequencies(inputs, perCombo, out)
	case "sum", "mean":
		return out, ag.mergeScalars(inputs, combine, perCombo, out)
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: unknown combine mode %q", errors.ErrInvalidSettings, combine),
			"Aggregator", "Run", "combine mode check")
	}
}

func (Aggregator) mergeFrequencies(inputs []*series.FeatureTable, perCombo bool, out *series.FeatureTable) error {
	merged := make(map[string]series.Frequencies)
	any := false
	for _, in := range inputs {
		if len(in.Counts) == 0 {
			return errors.WrapInvalid(
				fmt.Errorf("%w: piece %q has no frequency counts to merge",
					errors.ErrUnalignableGroups, in.Piece),
				"Aggregator", "Run", "frequency alignment check")
		}
		for combo, counts := range in.Counts {
			key := combo
			if !perCombo {
				key = CollectionCombo
			}
			if merged[key] == nil {
				merged[key] = make(series.Frequencies)
			}
			for value, count := range counts {
				merged[key][value] += count
				any = true
			}
		}
	}
	if !any {
		return errors.WrapInvalid(
			fmt.Errorf("%w: no counts in any member table", errors.ErrEmptyInput),
			"Aggregator", "Run", "frequency merge")
	}
	for key, counts := range merged {
		out.SetCounts(key, counts)
	}
	return nil
}

func (Aggregator) mergeScalars(inputs []*series.FeatureTable, combine string, perCombo bool, out *series.FeatureTable) error {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, in := range inputs {
		if len(in.Scalars) == 0 {
			return errors.WrapInvalid(
				fmt.Errorf("%w: piece %q has no scalar results to combine",
					errors.ErrUnalignableGroups, in.Piece),
				"Aggregator", "Run", "scalar alignment check")
		}
		for combo, v := range in.Scalars {
			key := combo
			if !perCombo {
				key = CollectionCombo
			}
			sums[key] += v
			counts[key]++
		}
	}
	if len(sums) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: no scalars in any member table", errors.ErrEmptyInput),
			"Aggregator", "Run", "scalar merge")
	}
	for key, sum := range sums {
		if combine == "mean" {
			sum /= float64(counts[key])
		}
		out.SetScalar(key, sum)
	}
	return nil
}
