package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ClausMunch/PIMMeUpScotty/pkg/models"
)

type Config struct {
	Azure      AzureConfig      `mapstructure:"azure"`
	Directory  DirectoryConfig  `mapstructure:"directory"`
	Resource   ResourceConfig   `mapstructure:"resource"`
	Activation ActivationConfig `mapstructure:"activation"`
	State      StateConfig      `mapstructure:"state"`
	Log        LogConfig        `mapstructure:"log"`
}

type AzureConfig struct {
	TenantID string `mapstructure:"tenantId"`
}

type DirectoryConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Roles         []string `mapstructure:"roles"`
	DurationHours int      `mapstructure:"durationHours"`
}

type ResourceConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Scopes        []ScopeConfig `mapstructure:"scopes"`
	Roles         []string      `mapstructure:"roles"`
	DurationHours int           `mapstructure:"durationHours"`
}

type ScopeConfig struct {
	Scope            string `mapstructure:"scope"`
	ScopeType        string `mapstructure:"scopeType"`
	MaxDurationHours int    `mapstructure:"maxDurationHours"`
}

type ActivationConfig struct {
	Mode          string `mapstructure:"mode"`
	Justification string `mapstructure:"justification"`
}

type StateConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	ModeAllEligible = "all"
	ModeNamed       = "named"
)

func LoadFromViper() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.State.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory for state path: %w", err)
		}
		cfg.State.Path = filepath.Join(home, ".pim-activator", "state.json")
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("directory.enabled", true)
	viper.SetDefault("directory.durationHours", 8)

	viper.SetDefault("resource.enabled", true)
	viper.SetDefault("resource.durationHours", 8)

	viper.SetDefault("activation.mode", ModeAllEligible)
	viper.SetDefault("activation.justification", "Scheduled activation of eligible roles")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

func validate(cfg *Config) error {
	if cfg.Activation.Mode != ModeAllEligible && cfg.Activation.Mode != ModeNamed {
		return fmt.Errorf("activation.mode must be %q or %q, got %q", ModeAllEligible, ModeNamed, cfg.Activation.Mode)
	}

	if cfg.Activation.Mode == ModeNamed && len(cfg.Directory.Roles) == 0 && len(cfg.Resource.Roles) == 0 {
		return fmt.Errorf("activation.mode is %q but no directory.roles or resource.roles are configured", ModeNamed)
	}

	if cfg.Directory.DurationHours < 1 {
		return fmt.Errorf("directory.durationHours must be at least 1")
	}

	if cfg.Resource.DurationHours < 1 {
		return fmt.Errorf("resource.durationHours must be at least 1")
	}

	for i, scope := range cfg.Resource.Scopes {
		if scope.Scope == "" {
			return fmt.Errorf("resource.scopes[%d].scope is required", i)
		}
		if !validScopeType(scope.ScopeType) {
			return fmt.Errorf("resource.scopes[%d].scopeType %q is not valid", i, scope.ScopeType)
		}
		if scope.MaxDurationHours < 0 {
			return fmt.Errorf("resource.scopes[%d].maxDurationHours must not be negative", i)
		}
	}

	return nil
}

func validScopeType(scopeType string) bool {
	switch models.ScopeType(scopeType) {
	case models.ScopeTypeSubscription, models.ScopeTypeResourceGroup,
		models.ScopeTypeResource, models.ScopeTypeManagementGroup:
		return true
	}
	return false
}

// DirectoryFilterNames returns the configured directory role filter, nil when
// every eligible role should be activated.
func (c *Config) DirectoryFilterNames() []string {
	if c.Activation.Mode != ModeNamed {
		return nil
	}
	return c.Directory.Roles
}

func (c *Config) ResourceFilterNames() []string {
	if c.Activation.Mode != ModeNamed {
		return nil
	}
	return c.Resource.Roles
}
