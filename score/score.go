// Package score defines the boundary contract with the symbolic-music data
// source: per piece, an enumerable list of voices of (offset, pitch-or-rest,
// duration) tuples, plus a metadata mapping queryable by key. The package
// also provides an in-memory implementation and a JSON loader so the
// pipeline can run without the external score library.
package score

import (
	"strconv"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
)

// Rest is the pitch value representing silence in a voice.
const Rest = "Rest"

// Well-known metadata keys, following the fields the importer collects.
const (
	MetaTitle    = "title"
	MetaComposer = "composer"
	MetaDate     = "date"
	MetaPathname = "pathname"
)

// Metadata maps a field name to its value. A missing field returns ok=false
// from Get; there is no empty-string ambiguity.
type Metadata map[string]string

// Get returns the value for a metadata field and whether it is present.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Note is one event in a voice: a pitch name like "C4" or "F#3", or Rest,
// sounding at a quarter-length offset for a quarter-length duration.
type Note struct {
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
	Pitch    string  `json:"pitch"`
}

// Voice is one named part of a piece with its ordered notes.
type Voice struct {
	Name  string `json:"name"`
	Notes []Note `json:"notes"`
}

// Piece is the opaque handle to one score: its voice structure and its
// metadata. A Piece is owned exclusively by one piece container and is never
// mutated after load.
type Piece interface {
	// ID returns a stable identifier for the piece.
	ID() string

	// Voices returns the voices in score order, highest first.
	Voices() []Voice

	// Metadata returns the piece's metadata mapping.
	Metadata() Metadata
}

// BaseTable converts a piece's raw voice data into the score-stage feature
// table that chains start from: one series per voice, keyed by voice index,
// with the raw pitch-or-rest value per note. Simultaneous notes within one
// voice keep their score order. A voice with out-of-order offsets is
// rejected, never silently truncated.
func BaseTable(p Piece) (*series.FeatureTable, error) {
	table := series.NewTable("score", p.ID())
	for i, voice := range p.Voices() {
		s := series.New(comboLabel(i), p.ID())
		for _, n := range voice.Notes {
			if err := s.Append(n.Offset, n.Pitch); err != nil {
				return nil, errors.WrapInvalid(err, "score", "BaseTable",
					"voice "+strconv.Quote(voice.Name)+" of piece "+p.ID())
			}
		}
		table.AddSeries(s)
	}
	return table, nil
}

func comboLabel(i int) string {
	return strconv.Itoa(i)
}
