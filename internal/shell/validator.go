// Package shell implements the command-safety validator and the serialized
// command executor behind the run_command tool. The validator is a layered
// deny-list classifier: it parses a raw command string with a real shell
// parser, checks every chained segment against the rule tables, and fails
// closed on anything it cannot account for.
package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Rule categories reported in a deny verdict.
const (
	RuleEmpty        = "empty"
	RuleUnparseable  = "unparseable"
	RuleSubstitution = "substitution"
	RuleBlocked      = "blocked-command"
	RuleDestructive  = "destructive-flags"
	RuleProtected    = "protected-path"
	RuleWildcard     = "wildcard-guard"
)

// Verdict is the validator's classification of one command string.
// A zero Rule and Reason mean the command is allowed.
type Verdict struct {
	Allow  bool
	Rule   string
	Reason string
}

func allow() Verdict {
	return Verdict{Allow: true}
}

func deny(rule, reason string) Verdict {
	return Verdict{Rule: rule, Reason: reason}
}

// Validator classifies command strings against a fixed ruleset.
// It holds no per-call state: Validate is a pure function of the input,
// the ruleset, and the working directory.
type Validator struct {
	rules  *Ruleset
	parser *syntax.Parser
}

// NewValidator creates a validator over the given ruleset.
func NewValidator(rules *Ruleset) *Validator {
	return &Validator{
		rules:  rules,
		parser: syntax.NewParser(syntax.Variant(syntax.LangPOSIX)),
	}
}

// segment is one simple command extracted from the parsed input:
// every side of a pipe, &&, || or ; chain becomes its own segment and
// must pass the checks independently.
type segment struct {
	// base is the lowercased basename of the executable, so /bin/rm and
	// RM match the same rules as rm. All name lookups use base.
	base string
	args []string // remaining words, quotes already stripped
	// dynamic marks args whose value cannot be determined statically
	// (parameter expansion, globs inside quotes, etc.)
	dynamic []bool
	// redirTargets are file targets of writing redirections (>, >>).
	redirTargets []string
}

// joined returns the normalized command text of the segment.
func (s *segment) joined() string {
	if len(s.args) == 0 {
		return s.base
	}
	return s.base + " " + strings.Join(s.args, " ")
}

// Validate classifies raw as allowed or denied. cwd anchors relative
// paths for the protected-path rule. Checks run in a fixed order and
// short-circuit on the first match; an empty or unparseable command is
// denied rather than allowed through.
func (v *Validator) Validate(raw, cwd string) Verdict {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return deny(RuleEmpty, "empty command")
	}

	segments, verdict := v.parse(trimmed)
	if !verdict.Allow {
		return verdict
	}
	if len(segments) == 0 {
		return deny(RuleUnparseable, "no executable command found")
	}

	for _, seg := range segments {
		if verdict := v.checkSegment(seg, cwd); !verdict.Allow {
			return verdict
		}
	}
	return allow()
}

// parse tokenizes the command with POSIX shell-word rules and splits it
// into independently checked segments. Command substitution and process
// substitution are denied outright: their effective argument lists are
// unknowable without executing them.
func (v *Validator) parse(raw string) ([]*segment, Verdict) {
	file, err := v.parser.Parse(strings.NewReader(raw), "")
	if err != nil {
		return nil, deny(RuleUnparseable, fmt.Sprintf("cannot parse command: %v", err))
	}

	var segments []*segment
	var pendingRedirs []string
	var failed *Verdict

	syntax.Walk(file, func(node syntax.Node) bool {
		if failed != nil {
			return false
		}
		switch x := node.(type) {
		case *syntax.CmdSubst:
			d := deny(RuleSubstitution, "command substitution is not permitted")
			failed = &d
			return false
		case *syntax.ProcSubst:
			d := deny(RuleSubstitution, "process substitution is not permitted")
			failed = &d
			return false
		case *syntax.FuncDecl:
			d := deny(RuleUnparseable, "function definitions are not permitted")
			failed = &d
			return false
		case *syntax.Stmt:
			// Writing redirections belong to the statement; Walk visits
			// the statement before its call, so stash the targets for the
			// segment built next.
			for _, redir := range x.Redirs {
				if redir.Op != syntax.RdrOut && redir.Op != syntax.AppOut && redir.Op != syntax.RdrAll {
					continue
				}
				if target, literal := flattenWord(redir.Word); literal {
					pendingRedirs = append(pendingRedirs, target)
				}
			}
		case *syntax.CallExpr:
			seg, ok := v.buildSegment(x)
			if !ok {
				d := deny(RuleUnparseable, "cannot identify executable")
				failed = &d
				return false
			}
			if seg != nil {
				seg.redirTargets = pendingRedirs
				pendingRedirs = nil
				segments = append(segments, seg)
			}
		}
		return true
	})

	if failed != nil {
		return nil, *failed
	}
	return segments, allow()
}

// buildSegment turns a call expression into a segment. Returns (nil, true)
// for bare assignments with no command word, and ok=false when the
// executable itself is not statically known.
func (v *Validator) buildSegment(call *syntax.CallExpr) (*segment, bool) {
	if len(call.Args) == 0 {
		// Assignment-only statement (FOO=bar); nothing executes.
		return nil, true
	}

	name, literal := flattenWord(call.Args[0])
	if !literal || name == "" {
		return nil, false
	}

	seg := &segment{base: strings.ToLower(filepath.Base(name))}
	for _, word := range call.Args[1:] {
		text, lit := flattenWord(word)
		seg.args = append(seg.args, text)
		seg.dynamic = append(seg.dynamic, !lit)
	}
	return seg, true
}

// flattenWord reduces a shell word to its unquoted text, so that quoting
// and escape tricks ("r"m, 'sudo', su\do) do not defeat rule matching.
// The second result is false when any part of the word is dynamic.
func flattenWord(w *syntax.Word) (string, bool) {
	if w == nil {
		return "", false
	}
	return flattenParts(w.Parts)
}

func flattenParts(parts []syntax.WordPart) (string, bool) {
	var sb strings.Builder
	literal := true
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			text, lit := flattenParts(p.Parts)
			sb.WriteString(text)
			if !lit {
				literal = false
			}
		default:
			// Parameter expansion, arithmetic, globs inside extended
			// syntax: keep the raw placeholder and mark it dynamic.
			literal = false
		}
	}
	return sb.String(), literal
}

// checkSegment applies the ordered rule checks to one command segment.
func (v *Validator) checkSegment(seg *segment, cwd string) Verdict {
	if verdict := v.checkBlocked(seg); !verdict.Allow {
		return verdict
	}
	if verdict := v.checkDestructiveFlags(seg); !verdict.Allow {
		return verdict
	}
	if verdict := v.checkProtectedPaths(seg, cwd); !verdict.Allow {
		return verdict
	}
	if verdict := v.checkWildcards(seg); !verdict.Allow {
		return verdict
	}
	return allow()
}

// checkBlocked matches the segment against the blocked command set.
// Matching runs on the basename of the executable, so /usr/bin/sudo is
// the same as sudo. Single-word patterns match the name exactly (and
// mkfs.ext4 style variants by prefix); multi-word patterns match the
// start of the normalized segment text.
func (v *Validator) checkBlocked(seg *segment) Verdict {
	joined := seg.joined()
	for _, entry := range v.rules.Blocked {
		if strings.ContainsRune(entry.Pattern, ' ') || strings.HasSuffix(entry.Pattern, "=") {
			if strings.HasPrefix(joined, entry.Pattern) {
				return deny(RuleBlocked, "blocked command: "+entry.Reason)
			}
			continue
		}
		if seg.base == entry.Pattern || strings.HasPrefix(seg.base, entry.Pattern+".") {
			return deny(RuleBlocked, "blocked command: "+entry.Reason)
		}
	}
	return allow()
}

// checkDestructiveFlags denies removal commands that combine a recursive
// flag with a force flag, in any order and in combined or separate form.
// The target path is irrelevant here: recursive force deletes are denied
// everywhere.
func (v *Validator) checkDestructiveFlags(seg *segment) Verdict {
	if !v.rules.isRemoval(seg.base) {
		return allow()
	}

	recursive, force := false, false
	for _, arg := range seg.args {
		switch {
		case arg == "--recursive":
			recursive = true
		case arg == "--force":
			force = true
		case strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--"):
			for _, c := range arg[1:] {
				switch c {
				case 'r', 'R':
					recursive = true
				case 'f':
					force = true
				}
			}
		}
	}

	if recursive && force {
		return deny(RuleDestructive, "recursive force delete")
	}
	return allow()
}

// checkProtectedPaths denies mutating commands whose path arguments (or
// write-redirection targets) resolve to a protected prefix. Read-only
// inspectors are exempt; everything else defaults to checked, which keeps
// unknown commands on the conservative side.
func (v *Validator) checkProtectedPaths(seg *segment, cwd string) Verdict {
	for _, target := range seg.redirTargets {
		if hit := v.protectedPrefix(target, cwd); hit != "" {
			return deny(RuleProtected, fmt.Sprintf("protected path %s", hit))
		}
	}

	if v.rules.isReadOnly(seg.base) {
		return allow()
	}
	if !v.rules.isMutating(seg.base) {
		return allow()
	}

	for i, arg := range seg.args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		path, ok := pathOperand(seg.base, arg)
		if !ok {
			continue
		}
		if seg.dynamic[i] {
			// A dynamic argument to a mutating command could point
			// anywhere; fail closed.
			return deny(RuleProtected, "cannot resolve argument of mutating command")
		}
		if hit := v.protectedPrefix(path, cwd); hit != "" {
			return deny(RuleProtected, fmt.Sprintf("protected path %s", hit))
		}
	}
	return allow()
}

// pathOperand extracts the filesystem target written by one argument.
// dd names its output as an of= operand regardless of operand order;
// its other key=value operands (if=, bs=, count=) do not write paths.
// Every other mutating command takes its paths positionally.
func pathOperand(base, arg string) (string, bool) {
	if base == "dd" {
		if target, ok := strings.CutPrefix(arg, "of="); ok {
			return target, true
		}
		return "", false
	}
	return arg, true
}

// protectedPrefix resolves arg against cwd and returns the protected
// entry it falls under, or "" when it is unprotected.
func (v *Validator) protectedPrefix(arg, cwd string) string {
	resolved := ResolvePath(arg, cwd)
	if resolved == "" {
		return ""
	}
	for _, prefix := range v.rules.ProtectedPaths {
		if resolved == prefix || strings.HasPrefix(resolved, prefix+string(filepath.Separator)) {
			return prefix
		}
	}
	return ""
}

// ResolvePath normalizes a path argument: strips quotes-already-removed
// whitespace, applies cwd to relative paths, and cleans the result.
// Non-path arguments (no separator, no dot prefix) resolve relative to
// cwd as well, which is what the shell itself would do.
func ResolvePath(arg, cwd string) string {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return ""
	}
	if arg == "~" || strings.HasPrefix(arg, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			arg = filepath.Join(home, strings.TrimPrefix(arg[1:], "/"))
		}
	}
	// Trailing wildcard segments still need their directory checked:
	// /etc/* resolves to /etc.
	if idx := strings.IndexAny(arg, "*?["); idx >= 0 {
		arg = arg[:idx]
		if arg == "" {
			return ""
		}
		arg = strings.TrimSuffix(arg, "/")
		if arg == "" {
			arg = "/"
		}
	}
	if !filepath.IsAbs(arg) {
		arg = filepath.Join(cwd, arg)
	}
	return filepath.Clean(arg)
}

// checkWildcards denies removal commands aimed at a root-level wildcard,
// even without force flags: the expansion is unpredictable and the blast
// radius is the whole filesystem.
func (v *Validator) checkWildcards(seg *segment) Verdict {
	if !v.rules.isRemoval(seg.base) {
		return allow()
	}
	for _, arg := range seg.args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		switch arg {
		case "/*", "/.*", "/**", "/*.*":
			return deny(RuleWildcard, "root-level wildcard delete")
		}
	}
	return allow()
}
