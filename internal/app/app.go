package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/probeworks/toolhost/internal/adapters"
	"github.com/probeworks/toolhost/internal/command"
	"github.com/probeworks/toolhost/internal/config"
	"github.com/probeworks/toolhost/internal/infrastructure"
	"github.com/probeworks/toolhost/internal/session"
)

// App hosts the tool adapters behind the invocation protocol.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	session *session.Session
	db      *infrastructure.Database

	shell    adapters.ShellAdapter
	gemini   adapters.GeminiAdapter
	starwars adapters.StarWarsAdapter
	metals   adapters.MetalsAdapter
	stars    adapters.StarsAdapter
}

// Close releases the app's resources.
func (a *App) Close() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Session returns the app's session.
func (a *App) Session() *session.Session {
	return a.session
}

// Run reads invocations from the configured input and writes results to
// the configured output.
func (a *App) Run(ctx context.Context) error {
	input := io.Reader(os.Stdin)
	if a.cfg.InputFile != "" {
		file, err := os.Open(a.cfg.InputFile)
		if err != nil {
			return fmt.Errorf("cannot read input file: %w", err)
		}
		defer file.Close()
		input = file
	}

	output := io.Writer(os.Stdout)
	if a.cfg.OutputFile != "" {
		file, err := os.Create(a.cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("cannot write output file: %w", err)
		}
		defer file.Close()
		output = file
	}

	if a.cfg.Interactive {
		return a.runInteractive(ctx, input, output)
	}
	return a.runPipe(ctx, input, output)
}

// runPipe reads the whole input, then processes every invocation in it.
func (a *App) runPipe(ctx context.Context, input io.Reader, output io.Writer) error {
	data, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("cannot read input: %w", err)
	}
	a.process(ctx, string(data), output)
	return nil
}

// runInteractive processes one line of input at a time.
func (a *App) runInteractive(ctx context.Context, input io.Reader, output io.Writer) error {
	fmt.Fprintln(os.Stderr, "toolhost - interactive mode")
	fmt.Fprintln(os.Stderr, "Enter invocations like <run_command ls> or <get_star Sirius>, one per line.")

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		a.process(ctx, scanner.Text(), output)
	}
	return scanner.Err()
}

// process dispatches every invocation found in text.
func (a *App) process(ctx context.Context, text string, output io.Writer) {
	for _, inv := range command.ParseInvocations(text) {
		payload, err := a.Dispatch(ctx, inv)
		fmt.Fprint(output, a.formatResult(inv, payload, err))
	}
}

// invocationEnvelope is the JSON output shape for one invocation.
type invocationEnvelope struct {
	Tool    string      `json:"tool"`
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// formatResult renders one invocation outcome, framed for the text mode
// or as a single JSON line when JSON output is on.
func (a *App) formatResult(inv command.Invocation, payload interface{}, err error) string {
	if a.cfg.JSONOutput {
		envelope := invocationEnvelope{Tool: inv.Tool, Success: err == nil, Result: payload}
		if err != nil {
			envelope.Error = err.Error()
		}
		line, marshalErr := json.Marshal(envelope)
		if marshalErr != nil {
			line, _ = json.Marshal(invocationEnvelope{Tool: inv.Tool, Success: false, Error: marshalErr.Error()})
		}
		return string(line) + "\n"
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("=== TOOL: %s ===\n", inv.Original))

	if err != nil {
		out.WriteString(fmt.Sprintf("=== ERROR ===\n%s\n", err.Error()))
	} else {
		body, marshalErr := json.MarshalIndent(payload, "", "  ")
		if marshalErr != nil {
			out.WriteString(fmt.Sprintf("=== ERROR ===\n%s\n", marshalErr.Error()))
		} else {
			out.Write(body)
			out.WriteString("\n")
		}
	}

	out.WriteString("=== END TOOL ===\n")
	out.WriteString(fmt.Sprintf("Invocations run: %d, elapsed: %.2fs\n",
		a.session.InvocationsRun(), a.session.Elapsed().Seconds()))
	return out.String()
}
