package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELVIS-Project/fiddle-tunes/analyzers/experimenters"
	"github.com/ELVIS-Project/fiddle-tunes/analyzers/indexers"
	"github.com/ELVIS-Project/fiddle-tunes/dispatch"
	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/score"
	"github.com/ELVIS-Project/fiddle-tunes/series"
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

func duet(id, date string) *score.MemoryPiece {
	upper := score.Voice{Name: "upper", Notes: []score.Note{
		{Offset: 0, Duration: 1, Pitch: "E4"},
		{Offset: 1, Duration: 1, Pitch: "D4"},
		{Offset: 2, Duration: 1, Pitch: "G4"},
		{Offset: 3, Duration: 1, Pitch: "E4"},
	}}
	lower := score.Voice{Name: "lower", Notes: []score.Note{
		{Offset: 0, Duration: 1, Pitch: "C4"},
		{Offset: 1, Duration: 1, Pitch: "B3"},
		{Offset: 2, Duration: 1, Pitch: "C4"},
		{Offset: 3, Duration: 1, Pitch: "C4"},
	}}
	meta := score.Metadata{}
	if date != "" {
		meta[score.MetaDate] = date
	}
	return score.NewMemoryPiece(id, []score.Voice{upper, lower}, meta)
}

func intervalChain() []StageRef {
	return []StageRef{
		{Name: indexers.NoteRestName, Settings: series.NewSettings(nil)},
		{Name: indexers.IntervalName, Settings: series.NewSettings(map[string]any{"quality": true})},
	}
}

func TestGetDataMemoizesResults(t *testing.T) {
	c := newTestController(t)
	p := NewPieceContainer(duet("memo", ""), c)

	chain := intervalChain()
	first, err := p.GetData(context.Background(), chain)
	require.NoError(t, err)
	computed := p.Computations()
	assert.Equal(t, int64(2), computed)

	second, err := p.GetData(context.Background(), chain)
	require.NoError(t, err)
	assert.Equal(t, computed, p.Computations())
	assert.Equal(t, first, second)
}

func TestGetDataReusesChainPrefix(t *testing.T) {
	c := newTestController(t)
	p := NewPieceContainer(duet("prefix", ""), c)

	_, err := p.GetData(context.Background(), intervalChain())
	require.NoError(t, err)
	require.Equal(t, int64(2), p.Computations())

	// Extending the chain recomputes only the new step.
	longer := append(intervalChain(), StageRef{
		Name:     indexers.NGramName,
		Settings: series.NewSettings(map[string]any{"n": 2}),
	})
	out, err := p.GetData(context.Background(), longer)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.Computations())
	assert.NotNil(t, out.Series["0,1"])
}

func TestGetDataDistinctSettingsDistinctResults(t *testing.T) {
	c := newTestController(t)
	p := NewPieceContainer(duet("settings", ""), c)

	withQuality, err := p.GetData(context.Background(), intervalChain())
	require.NoError(t, err)

	plain := []StageRef{
		{Name: indexers.NoteRestName, Settings: series.NewSettings(nil)},
		{Name: indexers.IntervalName, Settings: series.NewSettings(map[string]any{"quality": false})},
	}
	without, err := p.GetData(context.Background(), plain)
	require.NoError(t, err)

	// noterest is shared; the two interval steps each computed once.
	assert.Equal(t, int64(3), p.Computations())
	assert.NotEqual(t, withQuality.Series["0,1"].Values(), without.Series["0,1"].Values())
}

func TestGetDataEmptyChain(t *testing.T) {
	c := newTestController(t)
	p := NewPieceContainer(duet("empty", ""), c)

	_, err := p.GetData(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyInput)
}

func TestRunChainIsolatesFailures(t *testing.T) {
	c := newTestController(t)

	solo := score.NewMemoryPiece("solo", []score.Voice{{Name: "only", Notes: []score.Note{
		{Offset: 0, Duration: 1, Pitch: "C4"},
	}}}, nil)

	coll := NewCollectionContainer(c,
		NewPieceContainer(duet("ok", ""), c),
		NewPieceContainer(solo, c),
	)

	// The interval stage needs two voices, so the solo piece fails alone.
	tables, failures := coll.RunChain(context.Background(), intervalChain())
	assert.Contains(t, tables, "ok")
	require.Contains(t, failures, "solo")
	assert.ErrorIs(t, failures["solo"], errors.ErrIncompatibleInput)
}

func TestAggregateGroupsByDateBins(t *testing.T) {
	c := newTestController(t)
	coll := NewCollectionContainer(c,
		NewPieceContainer(duet("a", "1550"), c),
		NewPieceContainer(duet("b", "1582-03-01"), c),
		NewPieceContainer(duet("c", "1625"), c),
		NewPieceContainer(duet("undated", ""), c),
	)

	chain := append(intervalChain(), StageRef{
		Name:     indexers.NGramName,
		Settings: series.NewSettings(map[string]any{"n": 2}),
	}, StageRef{
		Name:     experimenters.FrequencyName,
		Settings: series.NewSettings(nil),
	})

	result, err := coll.Aggregate(context.Background(), chain,
		Grouping{Key: score.MetaDate, Bin: 50},
		StageRef{Name: experimenters.AggregatorName,
			Settings: series.NewSettings(map[string]any{"combine": "frequency"})})
	require.NoError(t, err)

	require.Contains(t, result.Groups, "1550-1599")
	require.Contains(t, result.Groups, "1600-1649")
	assert.Len(t, result.Groups, 2)

	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "undated", result.Excluded[0].PieceID)
	assert.Contains(t, result.Excluded[0].Reason, score.MetaDate)

	// Identical duets in the 1550-1599 bin: counts are doubled.
	merged := result.Groups["1550-1599"].Counts[experimenters.CollectionCombo]
	require.NotNil(t, merged)
	assert.Equal(t, 2*result.Groups["1600-1649"].Counts[experimenters.CollectionCombo]["M3 m3"], merged["M3 m3"])
}

func TestAggregateMemoized(t *testing.T) {
	c := newTestController(t)
	pa := NewPieceContainer(duet("a", "1550"), c)
	coll := NewCollectionContainer(c, pa)

	chain := append(intervalChain(), StageRef{
		Name:     experimenters.FrequencyName,
		Settings: series.NewSettings(nil),
	})
	agg := StageRef{Name: experimenters.AggregatorName,
		Settings: series.NewSettings(map[string]any{"combine": "frequency"})}
	grouping := Grouping{Key: score.MetaDate, Bin: 50}

	first, err := coll.Aggregate(context.Background(), chain, grouping, agg)
	require.NoError(t, err)
	computed := pa.Computations()

	second, err := coll.Aggregate(context.Background(), chain, grouping, agg)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, computed, pa.Computations())
}

func TestAggregateEmptyCollection(t *testing.T) {
	c := newTestController(t)
	coll := NewCollectionContainer(c)

	_, err := coll.Aggregate(context.Background(), intervalChain(),
		Grouping{Key: score.MetaDate, Bin: 50},
		StageRef{Name: experimenters.AggregatorName,
			Settings: series.NewSettings(map[string]any{"combine": "frequency"})})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyInput)
}

func TestYearOf(t *testing.T) {
	cases := []struct {
		in   string
		year int
		ok   bool
	}{
		{"1582", 1582, true},
		{"1582-03-01", 1582, true},
		{"ca. 1550", 1550, true},
		{"unknown", 0, false},
		{"", 0, false},
		{"15", 0, false},
	}
	for _, tc := range cases {
		year, ok := yearOf(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.year, year, tc.in)
	}
}
