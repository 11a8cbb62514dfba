package stage

import (
	"fmt"
	"math"

	"github.com/ELVIS-Project/fiddle-tunes/errors"
	"github.com/ELVIS-Project/fiddle-tunes/series"
)

// PropertySchema describes one settings option: its type, bounds, and
// allowed values. Defaults apply only to optional options; a required option
// with no value is always rejected, never silently defaulted.
type PropertySchema struct {
	Type        string   `json:"type"` // "string", "int", "float", "bool"
	Description string   `json:"description,omitempty"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
}

// ConfigSchema declares the full settings surface of a stage.
type ConfigSchema struct {
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// Min is a convenience for building PropertySchema bounds.
func Min(v float64) *float64 { return &v }

// Max is a convenience for building PropertySchema bounds.
func Max(v float64) *float64 { return &v }

// Validate checks settings against the schema: required options present,
// types correct, bounds and enums respected. Unknown options are allowed for
// forward compatibility. Every failure is an ErrInvalidSettings with the
// offending field named.
func (cs ConfigSchema) Validate(stageName string, settings series.Settings) error {
	for _, req := range cs.Required {
		if !settings.Has(req) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %q requires setting %q", errors.ErrInvalidSettings, stageName, req),
				stageName, "Validate", "required setting check")
		}
	}

	for name, prop := range cs.Properties {
		if !settings.Has(name) {
			continue
		}
		if err := validateProperty(stageName, name, prop, settings); err != nil {
			return err
		}
	}
	return nil
}

func validateProperty(stageName, name string, prop PropertySchema, settings series.Settings) error {
	invalid := func(cause string) error {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q setting %q %s", errors.ErrInvalidSettings, stageName, name, cause),
			stageName, "Validate", "setting validation")
	}

	switch prop.Type {
	case "string":
		v := settings.String(name, "\x00")
		if v == "\x00" {
			return invalid("must be a string")
		}
		if len(prop.Enum) > 0 {
			for _, allowed := range prop.Enum {
				if v == allowed {
					return nil
				}
			}
			return invalid(fmt.Sprintf("must be one of %v", prop.Enum))
		}
	case "int":
		sentinel := math.MinInt32
		v := settings.Int(name, sentinel)
		if v == sentinel {
			return invalid("must be an integer")
		}
		if prop.Minimum != nil && float64(v) < *prop.Minimum {
			return invalid(fmt.Sprintf("must be >= %v", *prop.Minimum))
		}
		if prop.Maximum != nil && float64(v) > *prop.Maximum {
			return invalid(fmt.Sprintf("must be <= %v", *prop.Maximum))
		}
	case "float":
		sentinel := math.Inf(-1)
		v := settings.Float(name, sentinel)
		if math.IsInf(v, -1) {
			return invalid("must be a number")
		}
		if prop.Minimum != nil && v < *prop.Minimum {
			return invalid(fmt.Sprintf("must be >= %v", *prop.Minimum))
		}
		if prop.Maximum != nil && v > *prop.Maximum {
			return invalid(fmt.Sprintf("must be <= %v", *prop.Maximum))
		}
	case "bool":
		m := settings.Map()
		if _, ok := m[name].(bool); !ok {
			return invalid("must be a boolean")
		}
	}
	return nil
}
