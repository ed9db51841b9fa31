package plugin

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/voxbot-dev/voxbot/internal/ratelimit"
)

// Manifest describes a plugin's identity and requirements.
type Manifest struct {
	// Name is the unique plugin id (e.g. "guess").
	Name string

	// DisplayName is the human-readable name.
	DisplayName string

	// Description is a short description for help listings.
	Description string

	// Version is informational semver.
	Version string

	// Hidden excludes the plugin from default help listings.
	Hidden bool

	// Dependencies are plugin ids that must be loaded first.
	Dependencies []string

	// UsesStorage provisions a persistent store for the plugin,
	// opened before OnLoad and released after OnUnload.
	UsesStorage bool

	// Quotas are plugin-wide rate limits applied to every command of
	// the plugin in addition to each command's own quotas.
	Quotas []ratelimit.Quota

	// ConfigSchema validates and produces the plugin's typed
	// configuration.
	ConfigSchema map[string]ConfigProperty
}

// ConfigProperty describes one configuration option.
type ConfigProperty struct {
	Type        string   // string, number, boolean, array
	Default     any      // default value applied when the key is absent
	Description string
	Enum        []string // allowed values for string enums
	Minimum     *float64 // minimum value for numbers
	Maximum     *float64 // maximum value for numbers
}

// Validation errors.
var (
	ErrMissingName       = errors.New("manifest: name is required")
	ErrInvalidName       = errors.New("manifest: name must be alphanumeric with hyphens")
	ErrInvalidVersion    = errors.New("manifest: version must be valid semver")
	ErrInvalidConfigType = errors.New("manifest: invalid config property type")
	ErrConfigUnknownKey  = errors.New("config: unknown key")
	ErrConfigBadType     = errors.New("config: wrong value type")
	ErrConfigBadEnum     = errors.New("config: value not in enum")
	ErrConfigOutOfRange  = errors.New("config: value out of range")
)

// namePattern validates plugin ids.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?$`)

// validConfigTypes are the allowed configuration property types.
var validConfigTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
	"array":   true,
}

// Validate checks that the manifest is well formed.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}

	if m.Version != "" && !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	for key, prop := range m.ConfigSchema {
		if prop.Type != "" && !validConfigTypes[prop.Type] {
			return fmt.Errorf("%w: %s.%s has type %q", ErrInvalidConfigType, m.Name, key, prop.Type)
		}
	}

	return nil
}

// ValidateConfig checks a raw configuration blob against the schema
// and returns the merged configuration with defaults applied. A
// validation failure aborts loading the plugin.
func (m *Manifest) ValidateConfig(raw map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(m.ConfigSchema))

	for key, prop := range m.ConfigSchema {
		if prop.Default != nil {
			merged[key] = prop.Default
		}
	}

	for key, value := range raw {
		prop, ok := m.ConfigSchema[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrConfigUnknownKey, m.Name, key)
		}
		if err := prop.check(m.Name, key, value); err != nil {
			return nil, err
		}
		merged[key] = value
	}

	return merged, nil
}

// check validates a single value against the property.
func (p ConfigProperty) check(plugin, key string, value any) error {
	switch p.Type {
	case "", "string":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s.%s wants string", ErrConfigBadType, plugin, key)
		}
		if len(p.Enum) > 0 {
			for _, allowed := range p.Enum {
				if s == allowed {
					return nil
				}
			}
			return fmt.Errorf("%w: %s.%s = %q", ErrConfigBadEnum, plugin, key, s)
		}
	case "number":
		n, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("%w: %s.%s wants number", ErrConfigBadType, plugin, key)
		}
		if p.Minimum != nil && n < *p.Minimum {
			return fmt.Errorf("%w: %s.%s < %v", ErrConfigOutOfRange, plugin, key, *p.Minimum)
		}
		if p.Maximum != nil && n > *p.Maximum {
			return fmt.Errorf("%w: %s.%s > %v", ErrConfigOutOfRange, plugin, key, *p.Maximum)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: %s.%s wants boolean", ErrConfigBadType, plugin, key)
		}
	case "array":
		switch value.(type) {
		case []any, []string:
		default:
			return fmt.Errorf("%w: %s.%s wants array", ErrConfigBadType, plugin, key)
		}
	}
	return nil
}

// toFloat widens the numeric types a TOML or JSON decoder produces.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	display := m.DisplayName
	if display == "" {
		display = m.Name
	}
	if m.Version == "" {
		return display
	}
	return fmt.Sprintf("%s v%s", display, m.Version)
}
