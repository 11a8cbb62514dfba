package score

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
)

func twoVoicePiece(t *testing.T) *MemoryPiece {
	t.Helper()
	return NewMemoryPiece("duet", []Voice{
		{Name: "Soprano", Notes: []Note{
			{Offset: 0, Duration: 1, Pitch: "E4"},
			{Offset: 1, Duration: 1, Pitch: "D4"},
		}},
		{Name: "Bass", Notes: []Note{
			{Offset: 0, Duration: 1, Pitch: "C3"},
			{Offset: 1, Duration: 1, Pitch: Rest},
		}},
	}, Metadata{MetaComposer: "Palestrina", MetaDate: "1575"})
}

func TestBaseTable(t *testing.T) {
	p := twoVoicePiece(t)
	table, err := BaseTable(p)
	require.NoError(t, err)

	assert.Equal(t, "score", table.Stage)
	assert.Equal(t, "duet", table.Piece)
	require.Len(t, table.Series, 2)

	soprano := table.Series["0"]
	require.NotNil(t, soprano)
	assert.Equal(t, 2, soprano.Len())
	assert.Equal(t, "E4", soprano.At(0).Value)

	bass := table.Series["1"]
	require.NotNil(t, bass)
	assert.Equal(t, Rest, bass.At(1).Value)
}

// unsortedPiece feeds BaseTable out-of-order notes directly, bypassing the
// sort NewMemoryPiece applies.
type unsortedPiece struct{}

func (unsortedPiece) ID() string { return "unsorted" }

func (unsortedPiece) Voices() []Voice {
	return []Voice{{Name: "V", Notes: []Note{
		{Offset: 2, Duration: 1, Pitch: "D4"},
		{Offset: 0, Duration: 1, Pitch: "C4"},
	}}}
}

func (unsortedPiece) Metadata() Metadata { return nil }

func TestBaseTableRejectsOutOfOrderNotes(t *testing.T) {
	_, err := BaseTable(unsortedPiece{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "unsorted", "error must name the offending piece")
}

func TestMetadataMissingSentinel(t *testing.T) {
	p := twoVoicePiece(t)

	composer, ok := p.Metadata().Get(MetaComposer)
	require.True(t, ok)
	assert.Equal(t, "Palestrina", composer)

	_, ok = p.Metadata().Get("localeOfComposition")
	assert.False(t, ok, "missing metadata must report absence, not an empty value")
}

func TestNewMemoryPieceSortsNotes(t *testing.T) {
	p := NewMemoryPiece("x", []Voice{
		{Name: "V", Notes: []Note{
			{Offset: 2, Pitch: "D4"},
			{Offset: 0, Pitch: "C4"},
			{Offset: 2, Pitch: "E4"},
		}},
	}, nil)

	notes := p.Voices()[0].Notes
	assert.Equal(t, "C4", notes[0].Pitch)
	assert.Equal(t, "D4", notes[1].Pitch, "stable sort keeps simultaneous score order")
	assert.Equal(t, "E4", notes[2].Pitch)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kyrie.json")
	content := `{
		"title": "Kyrie",
		"composer": "Josquin",
		"date": "1503",
		"voices": [
			{"name": "Superius", "notes": [
				{"offset": 0, "duration": 2, "pitch": "G4"},
				{"offset": 2, "duration": 2, "pitch": "A4"}
			]}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "Kyrie", p.ID())

	date, ok := p.Metadata().Get(MetaDate)
	require.True(t, ok)
	assert.Equal(t, "1503", date)

	pathname, ok := p.Metadata().Get(MetaPathname)
	require.True(t, ok)
	assert.Equal(t, path, pathname)

	require.Len(t, p.Voices(), 1)
	assert.Equal(t, 2, len(p.Voices()[0].Notes))
}

func TestLoadJSONRejectsEmptyScore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"empty","voices":[]}`), 0o644))

	_, err := LoadJSON(path)
	assert.Error(t, err)
}
