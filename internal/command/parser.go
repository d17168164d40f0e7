package command

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<([a-z_]+)(\s+[^>]*)?>`)

// ParseInvocations extracts tool invocations from text, in order of
// appearance. Unknown tags are ignored.
func ParseInvocations(text string) []Invocation {
	var invocations []Invocation

	matches := tagPattern.FindAllStringSubmatchIndex(text, -1)
	for _, match := range matches {
		tool := text[match[2]:match[3]]
		if !IsKnownTool(tool) {
			continue
		}

		argument := ""
		if match[4] >= 0 {
			argument = strings.TrimSpace(text[match[4]:match[5]])
		}

		invocations = append(invocations, Invocation{
			Tool:     tool,
			Argument: argument,
			StartPos: match[0],
			EndPos:   match[1],
			Original: text[match[0]:match[1]],
		})
	}

	return invocations
}

// SplitArgument splits an argument of the form "head rest" and returns
// both parts; rest is empty when the argument is a single word. Used by
// tools that take a leading selector (analyze_text, search_stars).
func SplitArgument(argument string) (string, string) {
	argument = strings.TrimSpace(argument)
	if argument == "" {
		return "", ""
	}
	parts := strings.SplitN(argument, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}
