// Package indexers holds the built-in Indexer stages: pure computations
// mapping event series to derived event series over the same temporal
// domain.
package indexers

import (
	"context"
	"fmt"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/score"
	"github.com/ELVIS-Project/fiddle-tunes/series"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
)

// NoteRest is the indexer every chain starts from: it normalizes the raw
// score table into per-voice series of pitch names or "Rest".
type NoteRest struct{}

// NoteRestName is the registered identity of the NoteRest indexer.
const NoteRestName = "noterest"

// Name returns the stage identity.
func (NoteRest) Name() string { return NoteRestName }

// Kind returns KindIndexer.
func (NoteRest) Kind() stage.Kind { return stage.KindIndexer }

// Schema declares that NoteRest takes no settings.
func (NoteRest) Schema() stage.ConfigSchema { return stage.ConfigSchema{} }

// InputPorts declares the raw score input.
func (NoteRest) InputPorts() []stage.Port {
	return []stage.Port{{Name: "score", Type: stage.PortEventSeries, Required: true,
		Description: "raw per-voice (offset, pitch-or-rest) series"}}
}

// OutputPorts declares the normalized per-voice output.
func (NoteRest) OutputPorts() []stage.Port {
	return []stage.Port{{Name: "notes", Type: stage.PortEventSeries,
		Description: "per-voice pitch name or Rest"}}
}

// Run normalizes each voice's events: unparseable pitch values become Rest,
// everything else passes through unchanged.
func (nr NoteRest) Run(_ context.Context, inputs []*series.FeatureTable, _ series.Settings) (*series.FeatureTable, error) {
	if len(inputs) != 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: noterest takes exactly one input, got %d", errors.ErrIncompatibleInput, len(inputs)),
			"NoteRest", "Run", "input validation")
	}
	in := inputs[0]

	out := series.NewTable(NoteRestName, in.Piece)
	for combo, s := range in.Series {
		ns := series.New(combo, s.Piece)
		for _, e := range s.Events {
			value := e.Value
			if value != score.Rest {
				if _, err := parsePitch(value); err != nil {
					value = score.Rest
				}
			}
			if err := ns.Append(e.Offset, value); err != nil {
				return nil, errors.WrapInvalid(err, "NoteRest", "Run", "series construction")
			}
		}
		out.AddSeries(ns)
	}
	return out, nil
}
