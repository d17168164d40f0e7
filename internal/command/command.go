// Package command defines the tool-invocation protocol: tags of the form
// <tool_name argument> embedded in a text stream, one per tool call.
package command

// Invocation is a single tool call extracted from the input stream.
type Invocation struct {
	Tool     string
	Argument string
	StartPos int
	EndPos   int
	Original string
}

// Tools recognized by the parser. Anything else inside angle brackets is
// passed through untouched so ordinary text is never misread as a call.
var knownTools = map[string]bool{
	// shell adapter
	"run_command":           true,
	"change_directory":      true,
	"get_current_directory": true,

	// gemini adapter
	"generate_content": true,
	"list_models":      true,
	"analyze_text":     true,
	"chat":             true,

	// star wars adapter
	"get_character": true,
	"get_film":      true,
	"get_starship":  true,
	"get_vehicle":   true,
	"get_species":   true,
	"get_planet":    true,
	"search_all":    true,

	// metals adapter
	"get_gold_price":       true,
	"get_silver_price":     true,
	"get_palladium_price":  true,
	"get_copper_price":     true,
	"get_all_metal_prices": true,

	// stars adapter
	"get_star":          true,
	"get_constellation": true,
	"get_all_data":      true,
	"search_stars":      true,
}

// IsKnownTool reports whether name is a registered tool.
func IsKnownTool(name string) bool {
	return knownTools[name]
}
