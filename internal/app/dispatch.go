package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/probeworks/toolhost/internal/adapters"
	"github.com/probeworks/toolhost/internal/command"
)

// Dispatch routes one invocation to its adapter and returns the result
// payload. Every call is recorded in the session's audit trail.
func (a *App) Dispatch(ctx context.Context, inv command.Invocation) (interface{}, error) {
	payload, err := a.dispatch(ctx, inv)

	success := err == nil
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	// A validator denial is a result, not an error; the audit trail still
	// records it as a failed invocation.
	if rc, ok := payload.(adapters.RunCommandResult); ok && !rc.Success {
		success = false
		errMsg = rc.Stderr
	}
	a.session.Record(inv.Tool, inv.Argument, success, errMsg)

	return payload, err
}

func (a *App) dispatch(ctx context.Context, inv command.Invocation) (interface{}, error) {
	switch inv.Tool {
	// Shell tools
	case "run_command":
		if inv.Argument == "" {
			return nil, fmt.Errorf("run_command requires a command")
		}
		return a.shell.RunCommand(ctx, inv.Argument), nil
	case "change_directory":
		if inv.Argument == "" {
			return nil, fmt.Errorf("change_directory requires a path")
		}
		return a.shell.ChangeDirectory(ctx, inv.Argument), nil
	case "get_current_directory":
		return a.shell.CurrentDirectory(), nil

	// Gemini tools
	case "generate_content":
		gemini, err := a.requireGemini()
		if err != nil {
			return nil, err
		}
		return gemini.GenerateContent(ctx, inv.Argument, "")
	case "list_models":
		gemini, err := a.requireGemini()
		if err != nil {
			return nil, err
		}
		return gemini.ListModels(), nil
	case "analyze_text":
		gemini, err := a.requireGemini()
		if err != nil {
			return nil, err
		}
		analysisType, text := command.SplitArgument(inv.Argument)
		return gemini.AnalyzeText(ctx, text, analysisType)
	case "chat":
		gemini, err := a.requireGemini()
		if err != nil {
			return nil, err
		}
		var messages []adapters.ChatMessage
		if err := json.Unmarshal([]byte(inv.Argument), &messages); err != nil {
			return nil, fmt.Errorf("chat requires a JSON message array: %w", err)
		}
		return gemini.Chat(ctx, messages, "")

	// Star Wars tools
	case "get_character":
		return a.starwars.GetCharacter(ctx, inv.Argument)
	case "get_film":
		return a.starwars.GetFilm(ctx, inv.Argument)
	case "get_starship":
		return a.starwars.GetStarship(ctx, inv.Argument)
	case "get_vehicle":
		return a.starwars.GetVehicle(ctx, inv.Argument)
	case "get_species":
		return a.starwars.GetSpecies(ctx, inv.Argument)
	case "get_planet":
		return a.starwars.GetPlanet(ctx, inv.Argument)
	case "search_all":
		return a.starwars.SearchAll(ctx, inv.Argument)

	// Metals tools
	case "get_gold_price":
		return a.metals.GetPrice(ctx, "XAU")
	case "get_silver_price":
		return a.metals.GetPrice(ctx, "XAG")
	case "get_palladium_price":
		return a.metals.GetPrice(ctx, "XPD")
	case "get_copper_price":
		return a.metals.GetPrice(ctx, "HG")
	case "get_all_metal_prices":
		return a.metals.GetAllPrices(ctx)

	// Star catalog tools
	case "get_star":
		return a.stars.GetStar(inv.Argument)
	case "get_constellation":
		return a.stars.GetConstellation(inv.Argument)
	case "get_all_data":
		return a.stars.GetAllData()
	case "search_stars":
		criteria, value := command.SplitArgument(inv.Argument)
		return a.stars.SearchStars(criteria, value)
	}

	return nil, fmt.Errorf("unknown tool: %s", inv.Tool)
}

func (a *App) requireGemini() (adapters.GeminiAdapter, error) {
	if a.gemini == nil {
		return nil, adapters.ErrMissingAPIKey
	}
	return a.gemini, nil
}
