package experimenters

import "github.com/ELVIS-Project/fiddle-tunes/stage"

// Register registers all built-in experimenters with the given registry.
func Register(r *stage.Registry) error {
	registrations := []*stage.Registration{
		{
			Name:        FrequencyName,
			Kind:        stage.KindExperimenter,
			Description: "Counts of distinct event values per voice combination",
			Version:     "1.0.0",
			Schema:      Frequency{}.Schema(),
			Inputs:      Frequency{}.InputPorts(),
			Outputs:     Frequency{}.OutputPorts(),
			Factory:     func() stage.Stage { return Frequency{} },
		},
		{
			Name:        EntropyName,
			Kind:        stage.KindExperimenter,
			Description: "Predictive entropy over an n-gram transition model",
			Version:     "1.0.0",
			Schema:      Entropy{}.Schema(),
			Inputs:      Entropy{}.InputPorts(),
			Outputs:     Entropy{}.OutputPorts(),
			Factory:     func() stage.Stage { return Entropy{} },
		},
		{
			Name:        AggregatorName,
			Kind:        stage.KindExperimenter,
			Description: "Merge per-piece results within a group",
			Version:     "1.0.0",
			Schema:      Aggregator{}.Schema(),
			Inputs:      Aggregator{}.InputPorts(),
			Outputs:     Aggregator{}.OutputPorts(),
			Factory:     func() stage.Stage { return Aggregator{} },
		},
	}

	for _, reg := range registrations {
		if err := r.Register(reg); err != nil {
			return err
		}
	}
	return nil
}
