package indexers

import "github.com/ELVIS-Project/fiddle-tunes/stage"

// Register registers all built-in indexers with the given registry.
func Register(r *stage.Registry) error {
	registrations := []*stage.Registration{
		{
			Name:        NoteRestName,
			Kind:        stage.KindIndexer,
			Description: "Normalize raw score data to per-voice pitch-or-rest series",
			Version:     "1.0.0",
			Schema:      NoteRest{}.Schema(),
			Inputs:      NoteRest{}.InputPorts(),
			Outputs:     NoteRest{}.OutputPorts(),
			Factory:     func() stage.Stage { return NoteRest{} },
		},
		{
			Name:        IntervalName,
			Kind:        stage.KindIndexer,
			Description: "Vertical (harmonic) intervals for every two-voice combination",
			Version:     "1.0.0",
			Schema:      Interval{}.Schema(),
			Inputs:      Interval{}.InputPorts(),
			Outputs:     Interval{}.OutputPorts(),
			Factory:     func() stage.Stage { return Interval{} },
		},
		{
			Name:        HorizontalIntervalName,
			Kind:        stage.KindIndexer,
			Description: "Melodic intervals within each voice",
			Version:     "1.0.0",
			Schema:      HorizontalInterval{}.Schema(),
			Inputs:      HorizontalInterval{}.InputPorts(),
			Outputs:     HorizontalInterval{}.OutputPorts(),
			Factory:     func() stage.Stage { return HorizontalInterval{} },
		},
		{
			Name:        NGramName,
			Kind:        stage.KindIndexer,
			Description: "Contiguous windows of n consecutive events",
			Version:     "1.0.0",
			Schema:      NGram{}.Schema(),
			Inputs:      NGram{}.InputPorts(),
			Outputs:     NGram{}.OutputPorts(),
			Factory:     func() stage.Stage { return NGram{} },
		},
		{
			Name:        SubsumeName,
			Kind:        stage.KindIndexer,
			Description: "Remove n-grams contained in frequent (n+1)-grams",
			Version:     "1.0.0",
			Schema:      Subsume{}.Schema(),
			Inputs:      Subsume{}.InputPorts(),
			Outputs:     Subsume{}.OutputPorts(),
			Factory:     func() stage.Stage { return Subsume{} },
		},
		{
			Name:        OffsetFilterName,
			Kind:        stage.KindIndexer,
			Description: "Resample series onto a fixed offset grid",
			Version:     "1.0.0",
			Schema:      OffsetFilter{}.Schema(),
			Inputs:      OffsetFilter{}.InputPorts(),
			Outputs:     OffsetFilter{}.OutputPorts(),
			Factory:     func() stage.Stage { return OffsetFilter{} },
		},
		{
			Name:        RepeatFilterName,
			Kind:        stage.KindIndexer,
			Description: "Drop events identical to their predecessor",
			Version:     "1.0.0",
			Schema:      RepeatFilter{}.Schema(),
			Inputs:      RepeatFilter{}.InputPorts(),
			Outputs:     RepeatFilter{}.OutputPorts(),
			Factory:     func() stage.Stage { return RepeatFilter{} },
		},
		{
			Name:        RestFilterName,
			Kind:        stage.KindIndexer,
			Description: "Drop rest events from each series",
			Version:     "1.0.0",
			Schema:      RestFilter{}.Schema(),
			Inputs:      RestFilter{}.InputPorts(),
			Outputs:     RestFilter{}.OutputPorts(),
			Factory:     func() stage.Stage { return RestFilter{} },
		},
	}

	for _, reg := range registrations {
		if err := r.Register(reg); err != nil {
			return err
		}
	}
	return nil
}
