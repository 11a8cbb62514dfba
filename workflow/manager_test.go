package workflow

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELVIS-Project/fiddle-tunes/analyzers/experimenters"
	"github.com/ELVIS-Project/fiddle-tunes/analyzers/indexers"
	"github.com/ELVIS-Project/fiddle-tunes/dispatch"
	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/score"
	"github.com/ELVIS-Project/fiddle-tunes/stage"
)

func newTestController(t *testing.T) *dispatch.Controller {
	t.Helper()
	reg := stage.NewRegistry()
	require.NoError(t, indexers.Register(reg))
	require.NoError(t, experimenters.Register(reg))

	c := dispatch.NewController(2, dispatch.NewLocalTransport(dispatch.NewRunner(reg, nil)))
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(time.Second) })
	return c
}

// duet yields the vertical intervals M3, m3, P5, M3, m3 with quality on.
func duet(id string) *score.MemoryPiece {
	upper := score.Voice{Name: "upper", Notes: []score.Note{
		{Offset: 0, Duration: 1, Pitch: "E4"},
		{Offset: 1, Duration: 1, Pitch: "D4"},
		{Offset: 2, Duration: 1, Pitch: "G4"},
		{Offset: 3, Duration: 1, Pitch: "E4"},
		{Offset: 4, Duration: 1, Pitch: "D4"},
	}}
	lower := score.Voice{Name: "lower", Notes: []score.Note{
		{Offset: 0, Duration: 1, Pitch: "C4"},
		{Offset: 1, Duration: 1, Pitch: "B3"},
		{Offset: 2, Duration: 1, Pitch: "C4"},
		{Offset: 3, Duration: 1, Pitch: "C4"},
		{Offset: 4, Duration: 1, Pitch: "B3"},
	}}
	return score.NewMemoryPiece(id, []score.Voice{upper, lower}, nil)
}

func TestRunIntervalNGrams(t *testing.T) {
	// Intervals M3 m3 P5 M3 m3 give 2-grams (M3 m3) x2, (m3 P5), (P5 M3).
	c := newTestController(t)
	m := NewManager(c, nil, duet("tune"))
	m.SetShared(SettingQuality, true)
	m.SetShared(SettingN, 2)

	result, err := m.Run(context.Background(), ExperimentIntervalNGrams)
	require.NoError(t, err)
	require.Empty(t, result.Excluded)

	counts := result.Table.Counts[experimenters.CollectionCombo]
	require.NotNil(t, counts)
	assert.Equal(t, 2, counts["M3 m3"])
	assert.Equal(t, 1, counts["m3 P5"])
	assert.Equal(t, 1, counts["P5 M3"])
	assert.Len(t, counts, 3)
}

func TestRunIntervals(t *testing.T) {
	c := newTestController(t)
	m := NewManager(c, nil, duet("a"), duet("b"))
	m.SetShared(SettingQuality, true)

	result, err := m.Run(context.Background(), ExperimentIntervals)
	require.NoError(t, err)

	counts := result.Table.Counts[experimenters.CollectionCombo]
	require.NotNil(t, counts)
	// Two identical pieces, each with M3 x2, m3 x2, P5 x1.
	assert.Equal(t, 4, counts["M3"])
	assert.Equal(t, 4, counts["m3"])
	assert.Equal(t, 2, counts["P5"])
}

func TestRunWithoutQuality(t *testing.T) {
	c := newTestController(t)
	m := NewManager(c, nil, duet("plain"))

	result, err := m.Run(context.Background(), ExperimentIntervals)
	require.NoError(t, err)

	counts := result.Table.Counts[experimenters.CollectionCombo]
	require.NotNil(t, counts)
	assert.Equal(t, 4, counts["3"])
	assert.Equal(t, 1, counts["5"])
}

// restDuet yields the vertical intervals M3, Rest, P5 with quality on.
func restDuet(id string) *score.MemoryPiece {
	upper := score.Voice{Name: "upper", Notes: []score.Note{
		{Offset: 0, Duration: 1, Pitch: "E4"},
		{Offset: 1, Duration: 1, Pitch: "D4"},
		{Offset: 2, Duration: 1, Pitch: "G4"},
	}}
	lower := score.Voice{Name: "lower", Notes: []score.Note{
		{Offset: 0, Duration: 1, Pitch: "C4"},
		{Offset: 1, Duration: 1, Pitch: score.Rest},
		{Offset: 2, Duration: 1, Pitch: "C4"},
	}}
	return score.NewMemoryPiece(id, []score.Voice{upper, lower}, nil)
}

func TestRunDropsRestsByDefault(t *testing.T) {
	c := newTestController(t)
	m := NewManager(c, nil, restDuet("airy"))
	m.SetShared(SettingQuality, true)

	result, err := m.Run(context.Background(), ExperimentIntervals)
	require.NoError(t, err)

	counts := result.Table.Counts[experimenters.CollectionCombo]
	require.NotNil(t, counts)
	assert.Equal(t, 1, counts["M3"])
	assert.Equal(t, 1, counts["P5"])
	assert.NotContains(t, counts, score.Rest)
}

func TestRunIncludeRestsCountsThem(t *testing.T) {
	c := newTestController(t)
	m := NewManager(c, nil, restDuet("airy"))
	m.SetShared(SettingQuality, true)
	m.SetShared(SettingIncludeRests, true)

	result, err := m.Run(context.Background(), ExperimentIntervals)
	require.NoError(t, err)

	counts := result.Table.Counts[experimenters.CollectionCombo]
	require.NotNil(t, counts)
	assert.Equal(t, 1, counts[score.Rest])
	assert.Equal(t, 1, counts["M3"])
	assert.Equal(t, 1, counts["P5"])
}

func TestRunNGramsNeverSpanRests(t *testing.T) {
	// With the rest dropped the only 2-gram pairs M3 with P5; no window
	// contains the rest itself.
	c := newTestController(t)
	m := NewManager(c, nil, restDuet("airy"))
	m.SetShared(SettingQuality, true)
	m.SetShared(SettingN, 2)

	result, err := m.Run(context.Background(), ExperimentIntervalNGrams)
	require.NoError(t, err)

	counts := result.Table.Counts[experimenters.CollectionCombo]
	require.NotNil(t, counts)
	assert.Equal(t, 1, counts["M3 P5"])
	assert.Len(t, counts, 1)
}

func TestRunRejectsOutOfDomainWindowSize(t *testing.T) {
	c := newTestController(t)
	m := NewManager(c, nil, duet("good"), duet("bad"))
	m.SetShared(SettingQuality, true)
	require.NoError(t, m.SetForPiece(1, SettingN, 0))

	result, err := m.Run(context.Background(), ExperimentIntervalNGrams)
	require.NoError(t, err)

	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "bad", result.Excluded[0].PieceID)
	assert.Contains(t, result.Excluded[0].Reason, `setting "n"`)

	counts := result.Table.Counts[experimenters.CollectionCombo]
	require.NotNil(t, counts)
	assert.Equal(t, 2, counts["M3 m3"])
}

func TestRunRejectsNonIntegerWindowSize(t *testing.T) {
	c := newTestController(t)
	m := NewManager(c, nil, duet("only"))
	m.SetShared(SettingN, "two")

	_, err := m.Run(context.Background(), ExperimentIntervalNGrams)
	require.Error(t, err)
}

func TestRunUnknownExperiment(t *testing.T) {
	c := newTestController(t)
	m := NewManager(c, nil, duet("x"))

	_, err := m.Run(context.Background(), "harmonies")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidSettings)
}

func TestRunExcludesFailingPieces(t *testing.T) {
	c := newTestController(t)
	solo := score.NewMemoryPiece("solo", []score.Voice{{Name: "only", Notes: []score.Note{
		{Offset: 0, Duration: 1, Pitch: "C4"},
	}}}, nil)

	m := NewManager(c, nil, duet("ok"), solo)
	result, err := m.Run(context.Background(), ExperimentIntervals)
	require.NoError(t, err)

	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "solo", result.Excluded[0].PieceID)
	assert.NotNil(t, result.Table)
}

func TestSetForPieceOverridesShared(t *testing.T) {
	c := newTestController(t)
	m := NewManager(c, nil, duet("a"), duet("b"))
	m.SetShared(SettingQuality, false)
	require.NoError(t, m.SetForPiece(1, SettingQuality, true))

	result, err := m.Run(context.Background(), ExperimentIntervals)
	require.NoError(t, err)

	counts := result.Table.Counts[experimenters.CollectionCombo]
	// Piece a contributes plain sizes, piece b qualified names.
	assert.Equal(t, 4, counts["3"])
	assert.Equal(t, 2, counts["M3"])
	assert.Equal(t, 2, counts["m3"])
}

func TestSetForPieceOutOfRange(t *testing.T) {
	c := newTestController(t)
	m := NewManager(c, nil, duet("a"))

	err := m.SetForPiece(5, SettingQuality, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownPiece)
}

func TestExportCSV(t *testing.T) {
	c := newTestController(t)
	m := NewManager(c, nil, duet("tune"))
	m.SetShared(SettingQuality, true)

	result, err := m.Run(context.Background(), ExperimentIntervals)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, result.Table, "all pieces"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "group,piece,combo,offset,value,count", lines[0])
	require.Greater(t, len(lines), 1)
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, "all pieces,"))
	}
}
