// Package stage defines the capability contract every analysis stage must
// implement: a declared kind, settings schema, and typed input/output ports,
// plus a pure Run over feature tables. The Registry makes this metadata
// introspectable so workflow front-ends can present stages as typed nodes.
package stage

import (
	"context"

	"github.com/ELVIS-Project/fiddle-tunes/series"
)

// Kind distinguishes the two computation patterns.
type Kind string

// Kind constants for the two stage families.
const (
	// KindIndexer maps event series to event series over the same
	// temporal domain.
	KindIndexer Kind = "indexer"
	// KindExperimenter reduces series (or sets of series) to summary
	// scalars or small tables.
	KindExperimenter Kind = "experimenter"
)

// PortType identifies the data shape flowing through a port.
type PortType string

// Port type constants for declared stage inputs and outputs.
const (
	PortEventSeries  PortType = "event-series"
	PortFeatureTable PortType = "feature-table"
	PortScalar       PortType = "scalar"
)

// Port describes one declared input or output of a stage.
type Port struct {
	Name        string   `json:"name"`
	Type        PortType `json:"type"`
	Required    bool     `json:"required"`
	Description string   `json:"description"`
}

// Stage is the contract every analysis variant implements. Run must be a
// pure function of its declared settings and inputs: no hidden state, so
// that equal (stage, settings, input identity) invocations are cache-hit
// equivalent.
type Stage interface {
	// Name returns the stage identity used for registration, cache keys,
	// and job dispatch.
	Name() string

	// Kind reports whether the stage is an indexer or an experimenter.
	Kind() Kind

	// Schema declares the stage's settings for validation and discovery.
	Schema() ConfigSchema

	// InputPorts declares the expected inputs.
	InputPorts() []Port

	// OutputPorts declares the produced outputs.
	OutputPorts() []Port

	// Run computes the stage's output from its inputs and settings.
	Run(ctx context.Context, inputs []*series.FeatureTable, settings series.Settings) (*series.FeatureTable, error)
}
