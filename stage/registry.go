package stage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
)

// Factory creates a stage instance. Stages are stateless; the factory exists
// so transports can instantiate stages by name on whichever process executes
// the job.
type Factory func() Stage

// Registration holds factory and metadata for a stage type. The metadata is
// static so front-ends can discover a stage's ports and settings schema
// without instantiating it.
type Registration struct {
	Name        string       `json:"name"`
	Kind        Kind         `json:"kind"`
	Description string       `json:"description"`
	Version     string       `json:"version"`
	Schema      ConfigSchema `json:"schema"`
	Inputs      []Port       `json:"inputs"`
	Outputs     []Port       `json:"outputs"`
	Factory     Factory      `json:"-"`
}

// Info holds the discoverable metadata about an available stage type.
type Info struct {
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Registry manages stage factories. It provides thread-safe registration and
// lookup by stage name for both execution (New) and discovery (Schema,
// ListAvailable).
type Registry struct {
	factories map[string]*Registration
	mu        sync.RWMutex
}

// NewRegistry creates a new empty stage registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]*Registration)}
}

// Register registers a stage type. Returns an error if the registration is
// incomplete or the name is already taken.
func (r *Registry) Register(reg *Registration) error {
	if reg == nil || reg.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidSettings, "Registry", "Register", "registration validation")
	}
	if reg.Factory == nil {
		return errors.WrapInvalid(
			fmt.Errorf("stage %q has no factory", reg.Name),
			"Registry", "Register", "factory validation")
	}
	if reg.Kind != KindIndexer && reg.Kind != KindExperimenter {
		return errors.WrapInvalid(
			fmt.Errorf("stage %q has unknown kind %q", reg.Name, reg.Kind),
			"Registry", "Register", "kind validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[reg.Name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("stage %q is already registered", reg.Name),
			"Registry", "Register", "duplicate stage check")
	}
	r.factories[reg.Name] = reg
	return nil
}

// New instantiates a stage by name.
func (r *Registry) New(name string) (Stage, error) {
	r.mu.RLock()
	reg, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownStage, name),
			"Registry", "New", "stage lookup")
	}
	return reg.Factory(), nil
}

// Schema retrieves a stage's settings schema from registration metadata
// without instantiating the stage.
func (r *Registry) Schema(name string) (ConfigSchema, error) {
	r.mu.RLock()
	reg, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return ConfigSchema{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownStage, name),
			"Registry", "Schema", "stage lookup")
	}
	return reg.Schema, nil
}

// Ports returns the declared input and output ports of a stage.
func (r *Registry) Ports(name string) (inputs, outputs []Port, err error) {
	r.mu.RLock()
	reg, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownStage, name),
			"Registry", "Ports", "stage lookup")
	}
	return reg.Inputs, reg.Outputs, nil
}

// ListAvailable returns discoverable metadata for every registered stage.
func (r *Registry) ListAvailable() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Info, len(r.factories))
	for name, reg := range r.factories {
		result[name] = Info{
			Kind:        reg.Kind,
			Description: reg.Description,
			Version:     reg.Version,
		}
	}
	return result
}

// Names returns the sorted names of all registered stages.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
