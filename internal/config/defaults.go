package config

import "github.com/spf13/viper"

// SetViperDefaults sets all default configuration values in Viper.
func SetViperDefaults() {
	// Storage defaults
	viper.SetDefault("database", "./toolhost.db")
	viper.SetDefault("audit", true)

	// Shell defaults
	viper.SetDefault("shell.timeout", "30s")
	viper.SetDefault("shell.blocked_commands", []string{})
	viper.SetDefault("shell.protected_paths", []string{})
	viper.SetDefault("shell.sandbox", false)
	viper.SetDefault("shell.sandbox_image", "alpine:3.19")
	viper.SetDefault("shell.sandbox_memory", "512m")
	viper.SetDefault("shell.sandbox_cpu", 1)

	// Gemini defaults
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("gemini.model", "gemini-2.0-flash")

	// Star Wars defaults
	viper.SetDefault("swapi.base_url", "https://www.swapi.tech/api")
	viper.SetDefault("swapi.timeout", "10s")

	// Metals defaults
	viper.SetDefault("metals.base_url", "https://api.gold-api.com")
	viper.SetDefault("metals.timeout", "10s")
}
