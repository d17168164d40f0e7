// Package app wires the adapters together and runs the host loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/probeworks/toolhost/internal/adapters"
	"github.com/probeworks/toolhost/internal/config"
	"github.com/probeworks/toolhost/internal/infrastructure"
	"github.com/probeworks/toolhost/internal/security"
	"github.com/probeworks/toolhost/internal/session"
	"github.com/probeworks/toolhost/internal/shell"
	"github.com/probeworks/toolhost/pkg/sandbox"
)

// Bootstrap initializes and returns a configured App.
func Bootstrap(cfg *config.Config) (*App, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	db, err := infrastructure.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sess := session.New(logger, nil)
	if cfg.AuditEnabled {
		audit := security.NewAuditLogger(db, logger, sess.ID)
		sess.SetAudit(audit.Log)
	}

	validator := shell.NewValidator(shell.NewRuleset(cfg.Shell.BlockedCommands, cfg.Shell.ProtectedPaths))
	runner, err := shell.NewRunner(validator, cfg.Shell.Timeout)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	var box adapters.Sandbox
	if cfg.Shell.SandboxEnabled {
		ctx := context.Background()
		if err := sandbox.CheckAvailability(ctx); err != nil {
			db.Close()
			return nil, err
		}
		if err := sandbox.EnsureImage(ctx, cfg.Shell.SandboxImage); err != nil {
			db.Close()
			return nil, err
		}
		box = sandbox.NewRunner(cfg.Shell.SandboxImage, cfg.Shell.SandboxMemory, cfg.Shell.SandboxCPU, cfg.Shell.Timeout)
	}

	// The Gemini adapter is the only one needing a credential; the host
	// still serves the other tools without it.
	var gemini adapters.GeminiAdapter
	g, err := adapters.NewGeminiAdapter(cfg.Gemini, infrastructure.NewHTTPClient(0))
	switch {
	case err == nil:
		gemini = g
	case errors.Is(err, adapters.ErrMissingAPIKey):
		logger.Warn("gemini tools disabled", zap.Error(err))
	default:
		db.Close()
		return nil, err
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		session:  sess,
		db:       db,
		shell:    adapters.NewShellAdapter(validator, runner, box),
		gemini:   gemini,
		starwars: adapters.NewStarWarsAdapter(cfg.SWAPI, infrastructure.NewHTTPClient(cfg.SWAPI.Timeout)),
		metals:   adapters.NewMetalsAdapter(cfg.Metals, infrastructure.NewHTTPClient(cfg.Metals.Timeout)),
		stars:    adapters.NewStarsAdapter(db),
	}, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
