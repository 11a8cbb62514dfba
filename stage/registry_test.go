package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
)

type fakeStage struct{ name string }

func (f *fakeStage) Name() string         { return f.name }
func (f *fakeStage) Kind() Kind           { return KindIndexer }
func (f *fakeStage) Schema() ConfigSchema { return ConfigSchema{} }
func (f *fakeStage) InputPorts() []Port   { return []Port{{Name: "in", Type: PortEventSeries}} }
func (f *fakeStage) OutputPorts() []Port  { return []Port{{Name: "out", Type: PortEventSeries}} }
func (f *fakeStage) Run(_ context.Context, _ []*series.FeatureTable, _ series.Settings) (*series.FeatureTable, error) {
	return series.NewTable(f.name, ""), nil
}

func fakeRegistration(name string) *Registration {
	return &Registration{
		Name:    name,
		Kind:    KindIndexer,
		Version: "1.0.0",
		Inputs:  []Port{{Name: "in", Type: PortEventSeries, Required: true}},
		Outputs: []Port{{Name: "out", Type: PortEventSeries}},
		Factory: func() Stage { return &fakeStage{name: name} },
	}
}

func TestRegistryRegisterAndNew(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeRegistration("interval")))

	st, err := r.New("interval")
	require.NoError(t, err)
	assert.Equal(t, "interval", st.Name())

	_, err = r.New("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownStage)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeRegistration("ngram")))
	assert.Error(t, r.Register(fakeRegistration("ngram")))
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&Registration{Name: "x", Kind: KindIndexer}))

	bad := fakeRegistration("x")
	bad.Kind = Kind("mystery")
	assert.Error(t, r.Register(bad))
}

func TestRegistryDiscovery(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeRegistration("noterest")))
	require.NoError(t, r.Register(fakeRegistration("interval")))

	assert.Equal(t, []string{"interval", "noterest"}, r.Names())

	info := r.ListAvailable()
	require.Contains(t, info, "interval")
	assert.Equal(t, KindIndexer, info["interval"].Kind)

	inputs, outputs, err := r.Ports("interval")
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, PortEventSeries, inputs[0].Type)
	require.Len(t, outputs, 1)
}

func TestSchemaValidateRequired(t *testing.T) {
	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"n": {Type: "int", Minimum: Min(1)},
		},
		Required: []string{"n"},
	}

	err := schema.Validate("ngram", series.NewSettings(nil))
	require.Error(t, err, "missing required setting must be rejected, never defaulted")
	assert.ErrorIs(t, err, errors.ErrInvalidSettings)

	err = schema.Validate("ngram", series.NewSettings(map[string]any{"n": 0}))
	require.Error(t, err, "n below minimum must be rejected")
	assert.ErrorIs(t, err, errors.ErrInvalidSettings)

	assert.NoError(t, schema.Validate("ngram", series.NewSettings(map[string]any{"n": 2})))
}

func TestSchemaValidateEnumAndTypes(t *testing.T) {
	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"simple or compound": {Type: "string", Enum: []string{"simple", "compound"}},
			"quality":            {Type: "bool"},
		},
	}

	assert.NoError(t, schema.Validate("interval",
		series.NewSettings(map[string]any{"simple or compound": "simple", "quality": true})))

	err := schema.Validate("interval",
		series.NewSettings(map[string]any{"simple or compound": "sideways"}))
	assert.ErrorIs(t, err, errors.ErrInvalidSettings)

	err = schema.Validate("interval", series.NewSettings(map[string]any{"quality": "yes"}))
	assert.ErrorIs(t, err, errors.ErrInvalidSettings)

	// Unknown options are allowed
	assert.NoError(t, schema.Validate("interval", series.NewSettings(map[string]any{"extra": 1})))
}
