package cmd

import (
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/ClausMunch/PIMMeUpScotty/internal/config"
)

// The file written by `pim config init` must load and validate as-is; a user
// should not have to edit it before their first run.
func TestDefaultConfigTemplateIsValid(t *testing.T) {
	viper.Reset()
	viper.SetConfigType("yaml")
	if err := viper.ReadConfig(strings.NewReader(defaultConfigTemplate)); err != nil {
		t.Fatalf("Template is not valid YAML: %v", err)
	}

	cfg, err := config.LoadFromViper()
	if err != nil {
		t.Fatalf("Template failed to load: %v", err)
	}

	if !cfg.Directory.Enabled {
		t.Error("Expected template to enable directory roles")
	}
	if !cfg.Resource.Enabled {
		t.Error("Expected template to enable resource roles")
	}
	if cfg.Directory.DurationHours != 8 || cfg.Resource.DurationHours != 8 {
		t.Errorf("Expected 8h default durations, got %d/%d",
			cfg.Directory.DurationHours, cfg.Resource.DurationHours)
	}
}
