package plugin_test

import (
	"errors"
	"testing"

	"github.com/voxbot-dev/voxbot/internal/plugin"
)

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		man     plugin.Manifest
		wantErr error
	}{
		{"valid", plugin.Manifest{Name: "my-plugin", Version: "1.2.0"}, nil},
		{"single letter", plugin.Manifest{Name: "a"}, nil},
		{"no version", plugin.Manifest{Name: "ok"}, nil},
		{"missing name", plugin.Manifest{}, plugin.ErrMissingName},
		{"bad name", plugin.Manifest{Name: "My_Plugin"}, plugin.ErrInvalidName},
		{"trailing hyphen", plugin.Manifest{Name: "bad-"}, plugin.ErrInvalidName},
		{"bad version", plugin.Manifest{Name: "ok", Version: "1.2"}, plugin.ErrInvalidVersion},
		{"prerelease version", plugin.Manifest{Name: "ok", Version: "1.2.0-rc.1"}, nil},
		{
			"bad config type",
			plugin.Manifest{
				Name:         "ok",
				ConfigSchema: map[string]plugin.ConfigProperty{"x": {Type: "object"}},
			},
			plugin.ErrInvalidConfigType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.man.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfigMergesDefaults(t *testing.T) {
	man := plugin.Manifest{
		Name: "p",
		ConfigSchema: map[string]plugin.ConfigProperty{
			"model":     {Type: "string", Default: "base"},
			"max_turns": {Type: "number", Default: 10},
		},
	}

	cfg, err := man.ValidateConfig(map[string]any{"model": "large"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg["model"] != "large" {
		t.Errorf("model = %v, want large", cfg["model"])
	}
	if cfg["max_turns"] != 10 {
		t.Errorf("max_turns = %v, want default 10", cfg["max_turns"])
	}
}

func TestValidateConfigRejections(t *testing.T) {
	minv, maxv := 1.0, 5.0
	man := plugin.Manifest{
		Name: "p",
		ConfigSchema: map[string]plugin.ConfigProperty{
			"mode":  {Type: "string", Enum: []string{"on", "off"}},
			"level": {Type: "number", Minimum: &minv, Maximum: &maxv},
			"loud":  {Type: "boolean"},
			"tags":  {Type: "array"},
		},
	}

	tests := []struct {
		name    string
		raw     map[string]any
		wantErr error
	}{
		{"unknown key", map[string]any{"bogus": 1}, plugin.ErrConfigUnknownKey},
		{"bad enum", map[string]any{"mode": "auto"}, plugin.ErrConfigBadEnum},
		{"wrong string type", map[string]any{"mode": 3}, plugin.ErrConfigBadType},
		{"below minimum", map[string]any{"level": 0}, plugin.ErrConfigOutOfRange},
		{"above maximum", map[string]any{"level": 9.5}, plugin.ErrConfigOutOfRange},
		{"wrong bool type", map[string]any{"loud": "yes"}, plugin.ErrConfigBadType},
		{"wrong array type", map[string]any{"tags": "a,b"}, plugin.ErrConfigBadType},
		{"all valid", map[string]any{"mode": "on", "level": 3, "loud": true, "tags": []string{"x"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := man.ValidateConfig(tt.raw)
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateConfig() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateConfig() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestManifestString(t *testing.T) {
	man := plugin.Manifest{Name: "guess", DisplayName: "Guessing Game", Version: "2.0.0"}
	if got := man.String(); got != "Guessing Game v2.0.0" {
		t.Errorf("String() = %q", got)
	}

	bare := plugin.Manifest{Name: "guess"}
	if got := bare.String(); got != "guess" {
		t.Errorf("String() = %q", got)
	}
}
