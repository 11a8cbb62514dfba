package indexers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/score"
	"github.com/ELVIS-Project/fiddle-tunes/series"
)

func TestIntervalName(t *testing.T) {
	quality := intervalOptions{quality: true}
	plain := intervalOptions{}

	tests := []struct {
		lower, upper string
		opts         intervalOptions
		want         string
	}{
		{"C4", "E4", quality, "M3"},
		{"E4", "G4", quality, "m3"},
		{"C4", "G4", quality, "P5"},
		{"C4", "F#4", quality, "A4"},
		{"C4", "Gb4", quality, "d5"},
		{"C4", "C4", quality, "P1"},
		{"C4", "C5", quality, "P8"},
		{"C4", "E5", quality, "M10"},
		{"C4", "E5", intervalOptions{quality: true, simple: true}, "M3"},
		{"C4", "C5", intervalOptions{quality: true, simple: true}, "P8"},
		{"E4", "C4", quality, "-M3"},
		{"C4", "E4", plain, "3"},
		{"E4", "C4", plain, "-3"},
		{"C4", "E4", intervalOptions{byTones: true}, "2"},
		{"C4", "G4", intervalOptions{byTones: true}, "3.5"},
		{score.Rest, "E4", quality, score.Rest},
		{"C4", score.Rest, quality, score.Rest},
		{"not-a-pitch", "E4", quality, score.Rest},
	}
	for _, tt := range tests {
		got := intervalName(tt.lower, tt.upper, tt.opts)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.lower, tt.upper)
	}
}

func noteTable(t *testing.T, voices ...[]series.Event) *series.FeatureTable {
	t.Helper()
	table := series.NewTable(NoteRestName, "test-piece")
	for i, events := range voices {
		s := series.New(itoaVoice(i), "test-piece")
		for _, e := range events {
			require.NoError(t, s.Append(e.Offset, e.Value))
		}
		table.AddSeries(s)
	}
	return table
}

func itoaVoice(i int) string {
	return string(rune('0' + i))
}

func TestIntervalRunTwoVoices(t *testing.T) {
	in := noteTable(t,
		[]series.Event{{Offset: 0, Value: "E4"}, {Offset: 1, Value: "D4"}, {Offset: 2, Value: "G4"}},
		[]series.Event{{Offset: 0, Value: "C4"}, {Offset: 2, Value: "C4"}},
	)

	out, err := Interval{}.Run(context.Background(), []*series.FeatureTable{in},
		series.NewSettings(map[string]any{"quality": true}))
	require.NoError(t, err)

	pair := out.Series["0,1"]
	require.NotNil(t, pair)
	require.Equal(t, 3, pair.Len())
	assert.Equal(t, "M3", pair.At(0).Value)
	assert.Equal(t, "M2", pair.At(1).Value, "lower voice forward-fills at offset 1")
	assert.Equal(t, "P5", pair.At(2).Value)
}

func TestIntervalRunRestHandling(t *testing.T) {
	in := noteTable(t,
		[]series.Event{{Offset: 0, Value: "E4"}, {Offset: 1, Value: score.Rest}},
		[]series.Event{{Offset: 0, Value: "C4"}},
	)

	out, err := Interval{}.Run(context.Background(), []*series.FeatureTable{in}, series.NewSettings(nil))
	require.NoError(t, err)

	pair := out.Series["0,1"]
	require.Equal(t, 2, pair.Len())
	assert.Equal(t, score.Rest, pair.At(1).Value)
}

func TestIntervalRunRequiresTwoVoices(t *testing.T) {
	in := noteTable(t, []series.Event{{Offset: 0, Value: "C4"}})

	_, err := Interval{}.Run(context.Background(), []*series.FeatureTable{in}, series.NewSettings(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrIncompatibleInput)
}

func TestIntervalSimultaneityPolicy(t *testing.T) {
	// Upper voice has two events at offset 0; the policy decides which
	// counts, independent of arrival order.
	upper := []series.Event{{Offset: 0, Value: "C4"}, {Offset: 0, Value: "E4"}}
	lower := []series.Event{{Offset: 0, Value: "C3"}}

	out, err := Interval{}.Run(context.Background(),
		[]*series.FeatureTable{noteTable(t, upper, lower)},
		series.NewSettings(map[string]any{"quality": true, "simultaneity": "last"}))
	require.NoError(t, err)
	assert.Equal(t, "M10", out.Series["0,1"].At(0).Value)

	out, err = Interval{}.Run(context.Background(),
		[]*series.FeatureTable{noteTable(t, upper, lower)},
		series.NewSettings(map[string]any{"quality": true, "simultaneity": "first"}))
	require.NoError(t, err)
	assert.Equal(t, "P8", out.Series["0,1"].At(0).Value)
}

func TestHorizontalIntervalRun(t *testing.T) {
	in := noteTable(t,
		[]series.Event{{Offset: 0, Value: "C4"}, {Offset: 1, Value: "E4"}, {Offset: 2, Value: "D4"}},
	)

	out, err := HorizontalInterval{}.Run(context.Background(), []*series.FeatureTable{in},
		series.NewSettings(map[string]any{"quality": true}))
	require.NoError(t, err)

	voice := out.Series["0"]
	require.Equal(t, 2, voice.Len())
	assert.Equal(t, "M3", voice.At(0).Value)
	assert.Equal(t, 1.0, voice.At(0).Offset, "melodic interval sits at the second note's offset")
	assert.Equal(t, "-M2", voice.At(1).Value)
}

func TestNoteRestNormalizesUnparseable(t *testing.T) {
	in := noteTable(t, []series.Event{
		{Offset: 0, Value: "C4"},
		{Offset: 1, Value: "garbage"},
		{Offset: 2, Value: score.Rest},
	})

	out, err := NoteRest{}.Run(context.Background(), []*series.FeatureTable{in}, series.NewSettings(nil))
	require.NoError(t, err)

	voice := out.Series["0"]
	assert.Equal(t, "C4", voice.At(0).Value)
	assert.Equal(t, score.Rest, voice.At(1).Value)
	assert.Equal(t, score.Rest, voice.At(2).Value)
}
