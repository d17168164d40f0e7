// Package config holds the runtime configuration for the tool host and
// its adapters.
package config

import "time"

// Config is the full runtime configuration, built from flags, environment
// variables, and an optional config file.
type Config struct {
	// I/O settings
	InputFile   string
	OutputFile  string
	Interactive bool
	JSONOutput  bool
	Verbose     bool

	// Storage settings
	DatabasePath string
	AuditEnabled bool

	Shell  ShellConfig
	Gemini GeminiConfig
	SWAPI  SWAPIConfig
	Metals MetalsConfig
}

// ShellConfig configures command validation and execution.
type ShellConfig struct {
	Timeout         time.Duration
	BlockedCommands []string
	ProtectedPaths  []string
	SandboxEnabled  bool
	SandboxImage    string
	SandboxMemory   string
	SandboxCPU      int
}

// GeminiConfig configures the Gemini adapter. APIKey comes from the
// GEMINI_API_KEY environment variable, never from the config file.
type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// SWAPIConfig configures the Star Wars adapter.
type SWAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// MetalsConfig configures the precious-metals adapter.
type MetalsConfig struct {
	BaseURL string
	Timeout time.Duration
}
