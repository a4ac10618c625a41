// Package config provides Viper-based configuration loading for the battle
// simulator and server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings for the battle journal.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleConfig controls how battles are assembled and driven.
type BattleConfig struct {
	// ContentDir is the root of the skills/items/combatants/encounters YAML tree.
	ContentDir string `mapstructure:"content_dir"`
	// Encounter is the default encounter ID for the CLI simulator.
	Encounter string `mapstructure:"encounter"`
	// Seed seeds enemy targeting. Zero selects the crypto-backed source.
	Seed uint64 `mapstructure:"seed"`
	// EnemyTargeting is "random" or "first_living".
	EnemyTargeting string `mapstructure:"enemy_targeting"`
	// PlayerPolicy is "console", "auto", or "script".
	PlayerPolicy string `mapstructure:"player_policy"`
	// ScriptPath is the Lua policy file used when PlayerPolicy is "script".
	ScriptPath string `mapstructure:"script_path"`
	// ScriptInstructionLimit bounds each Lua decide call. Zero means unlimited.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// MaxActions stops a simulated battle that cannot conclude.
	MaxActions int `mapstructure:"max_actions"`
	// MaxDecisionAttempts is how many rejected decisions a player-controlled
	// actor gets before falling back to a plain attack.
	MaxDecisionAttempts int `mapstructure:"max_decision_attempts"`
}

// APIConfig holds HTTP listener settings for the battle server.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// JournalConfig toggles persistence of finished battles.
type JournalConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Battle   BattleConfig   `mapstructure:"battle"`
	API      APIConfig      `mapstructure:"api"`
	Journal  JournalConfig  `mapstructure:"journal"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAPI(c.API); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.ContentDir == "" {
		errs = append(errs, "battle.content_dir must not be empty")
	}
	validTargeting := map[string]bool{"random": true, "first_living": true}
	if !validTargeting[b.EnemyTargeting] {
		errs = append(errs, fmt.Sprintf("battle.enemy_targeting must be one of [random, first_living], got %q", b.EnemyTargeting))
	}
	validPolicies := map[string]bool{"console": true, "auto": true, "script": true}
	if !validPolicies[b.PlayerPolicy] {
		errs = append(errs, fmt.Sprintf("battle.player_policy must be one of [console, auto, script], got %q", b.PlayerPolicy))
	}
	if b.PlayerPolicy == "script" && b.ScriptPath == "" {
		errs = append(errs, "battle.script_path is required when battle.player_policy is script")
	}
	if b.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("battle.script_instruction_limit must be >= 0, got %d", b.ScriptInstructionLimit))
	}
	if b.MaxActions < 1 {
		errs = append(errs, fmt.Sprintf("battle.max_actions must be >= 1, got %d", b.MaxActions))
	}
	if b.MaxDecisionAttempts < 1 {
		errs = append(errs, fmt.Sprintf("battle.max_decision_attempts must be >= 1, got %d", b.MaxDecisionAttempts))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAPI(a APIConfig) error {
	var errs []string
	if a.Port < 1 || a.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port must be 1-65535, got %d", a.Port))
	}
	if a.ReadTimeout < 0 {
		errs = append(errs, "api.read_timeout must not be negative")
	}
	if a.WriteTimeout < 0 {
		errs = append(errs, "api.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// Default returns the built-in configuration with environment overrides
// applied, for binaries started without a config file.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Default() (Config, error) {
	return LoadFromViper(newViper())
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	// Environment variable overrides with TURNBATTLE_ prefix
	v.SetEnvPrefix("TURNBATTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "turnbattle")
	v.SetDefault("database.password", "turnbattle")
	v.SetDefault("database.name", "turnbattle")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("battle.content_dir", "content")
	v.SetDefault("battle.encounter", "forest_ambush")
	v.SetDefault("battle.seed", 0)
	v.SetDefault("battle.enemy_targeting", "random")
	v.SetDefault("battle.player_policy", "console")
	v.SetDefault("battle.script_path", "")
	v.SetDefault("battle.script_instruction_limit", 100000)
	v.SetDefault("battle.max_actions", 500)
	v.SetDefault("battle.max_decision_attempts", 3)

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "10s")

	v.SetDefault("journal.enabled", false)
}
