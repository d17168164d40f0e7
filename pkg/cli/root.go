// Package cli defines the toolhost command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/probeworks/toolhost/internal/app"
	"github.com/probeworks/toolhost/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "toolhost",
	Short: "Tool host - uniform tool invocations over external data sources",
	Long: `toolhost exposes shell execution, Gemini AI, Star Wars data, metal
prices, and a star catalog through a uniform tool-invocation protocol.
It reads invocations like <run_command ls> or <get_star Sirius> from its
input and writes structured results.`,
	RunE: runRoot,
}

func init() {
	cobra.OnInitialize(initConfig)

	// I/O flags
	rootCmd.PersistentFlags().String("input", "", "Input file (default: stdin)")
	rootCmd.PersistentFlags().String("output", "", "Output file (default: stdout)")
	rootCmd.PersistentFlags().Bool("interactive", false, "Process input line by line")
	rootCmd.PersistentFlags().Bool("json", false, "Output one JSON object per invocation")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose logging")

	// Storage flags
	rootCmd.PersistentFlags().String("database", "./toolhost.db", "Path to the sqlite database")
	rootCmd.PersistentFlags().Bool("audit", true, "Record every invocation in the audit log")

	// Shell flags
	rootCmd.PersistentFlags().String("shell-timeout", "30s", "Timeout for shell commands")
	rootCmd.PersistentFlags().StringSlice("shell-blocked", []string{}, "Additional blocked command patterns")
	rootCmd.PersistentFlags().StringSlice("shell-protected", []string{}, "Additional protected path prefixes")
	rootCmd.PersistentFlags().Bool("sandbox", false, "Run shell commands in Docker containers")
	rootCmd.PersistentFlags().String("sandbox-image", "alpine:3.19", "Docker image for sandboxed commands")
	rootCmd.PersistentFlags().String("sandbox-memory", "512m", "Memory limit for sandboxed commands")
	rootCmd.PersistentFlags().Int("sandbox-cpu", 1, "CPU limit for sandboxed commands")

	viper.BindPFlags(rootCmd.PersistentFlags())
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	host, err := app.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	defer host.Close()

	return host.Run(context.Background())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.SetViperDefaults()

	viper.SetConfigName("toolhost.config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")

	viper.SetEnvPrefix("TOOLHOST")
	viper.AutomaticEnv()
}
