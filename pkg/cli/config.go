package cli

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/probeworks/toolhost/internal/config"
)

// initConfig reads in the config file and environment variables if set.
func initConfig() {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error reading config file: %v\n", err)
		}
		// Config file not found; using defaults and flags.
	}
}

// buildConfig constructs a config.Config from Viper values.
func buildConfig() (*config.Config, error) {
	cfg := &config.Config{
		InputFile:    viper.GetString("input"),
		OutputFile:   viper.GetString("output"),
		Interactive:  viper.GetBool("interactive"),
		JSONOutput:   viper.GetBool("json"),
		Verbose:      viper.GetBool("verbose"),
		DatabasePath: viper.GetString("database"),
		AuditEnabled: viper.GetBool("audit"),
		Shell: config.ShellConfig{
			BlockedCommands: viper.GetStringSlice("shell-blocked"),
			ProtectedPaths:  viper.GetStringSlice("shell-protected"),
			SandboxEnabled:  viper.GetBool("sandbox"),
			SandboxImage:    viper.GetString("sandbox-image"),
			SandboxMemory:   viper.GetString("sandbox-memory"),
			SandboxCPU:      viper.GetInt("sandbox-cpu"),
		},
		Gemini: config.GeminiConfig{
			BaseURL:      viper.GetString("gemini.base_url"),
			DefaultModel: viper.GetString("gemini.model"),
		},
		SWAPI: config.SWAPIConfig{
			BaseURL: viper.GetString("swapi.base_url"),
		},
		Metals: config.MetalsConfig{
			BaseURL: viper.GetString("metals.base_url"),
		},
	}

	shellTimeout, err := parseTimeout("shell-timeout", "shell.timeout")
	if err != nil {
		return nil, err
	}
	cfg.Shell.Timeout = shellTimeout

	swapiTimeout, err := time.ParseDuration(viper.GetString("swapi.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid swapi.timeout: %w", err)
	}
	cfg.SWAPI.Timeout = swapiTimeout

	metalsTimeout, err := time.ParseDuration(viper.GetString("metals.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid metals.timeout: %w", err)
	}
	cfg.Metals.Timeout = metalsTimeout

	// Config-file rule lists extend the flag-provided ones.
	if viper.IsSet("shell.blocked_commands") {
		cfg.Shell.BlockedCommands = append(cfg.Shell.BlockedCommands, viper.GetStringSlice("shell.blocked_commands")...)
	}
	if viper.IsSet("shell.protected_paths") {
		cfg.Shell.ProtectedPaths = append(cfg.Shell.ProtectedPaths, viper.GetStringSlice("shell.protected_paths")...)
	}

	return cfg, nil
}

// parseTimeout reads a duration from the flag key, falling back to the
// config-file key.
func parseTimeout(flagKey, fileKey string) (time.Duration, error) {
	value := viper.GetString(flagKey)
	if value == "" {
		value = viper.GetString(fileKey)
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", flagKey, err)
	}
	return d, nil
}
