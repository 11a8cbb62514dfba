package score

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
)

// MemoryPiece is an in-memory Piece used by the JSON loader and by tests.
type MemoryPiece struct {
	id       string
	voices   []Voice
	metadata Metadata
}

// NewMemoryPiece builds a piece from voices and metadata. Notes in each
// voice are sorted by offset (stable, so simultaneous notes keep their
// order). A missing title falls back to the piece ID, matching the importer
// rule that title is the only required field.
func NewMemoryPiece(id string, voices []Voice, metadata Metadata) *MemoryPiece {
	if id == "" {
		id = uuid.NewString()
	}
	if metadata == nil {
		metadata = Metadata{}
	}
	if _, ok := metadata[MetaTitle]; !ok {
		metadata[MetaTitle] = id
	}
	sorted := make([]Voice, len(voices))
	for i, v := range voices {
		notes := make([]Note, len(v.Notes))
		copy(notes, v.Notes)
		sort.SliceStable(notes, func(a, b int) bool { return notes[a].Offset < notes[b].Offset })
		sorted[i] = Voice{Name: v.Name, Notes: notes}
	}
	return &MemoryPiece{id: id, voices: sorted, metadata: metadata}
}

// ID returns the piece identifier.
func (p *MemoryPiece) ID() string { return p.id }

// Voices returns the voices in score order.
func (p *MemoryPiece) Voices() []Voice { return p.voices }

// Metadata returns the metadata mapping.
func (p *MemoryPiece) Metadata() Metadata { return p.metadata }

// scoreFile is the on-disk JSON shape for a piece.
type scoreFile struct {
	Title    string            `json:"title"`
	Composer string            `json:"composer"`
	Date     string            `json:"date"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Voices   []Voice           `json:"voices"`
}

// LoadJSON imports one piece from a JSON score file.
func LoadJSON(path string) (*MemoryPiece, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "score", "LoadJSON", "reading score file")
	}

	var sf scoreFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, errors.WrapInvalid(err, "score", "LoadJSON", "parsing score file")
	}
	if len(sf.Voices) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("score %q has no voices", path),
			"score", "LoadJSON", "voice validation")
	}

	meta := Metadata{MetaPathname: path}
	for k, v := range sf.Metadata {
		meta[k] = v
	}
	if sf.Composer != "" {
		meta[MetaComposer] = sf.Composer
	}
	if sf.Date != "" {
		meta[MetaDate] = sf.Date
	}

	id := sf.Title
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	meta[MetaTitle] = id

	return NewMemoryPiece(id, sf.Voices, meta), nil
}
