package shell

import "strings"

// BlockedPattern maps a command pattern to the reason it is denied.
// A single-word pattern matches the executable basename exactly; a
// multi-word pattern matches any command segment that starts with those
// words.
type BlockedPattern struct {
	Pattern string
	Reason  string
}

// Ruleset holds the fixed rule tables the validator matches against.
// It is built once at startup and read-only afterwards.
type Ruleset struct {
	Blocked        []BlockedPattern
	ProtectedPaths []string

	// removal is the file-removal command family subject to the
	// destructive-flag and wildcard checks.
	removal map[string]bool

	// mutating marks commands whose path arguments fall under the
	// protected-path rule. Read-only inspectors are deliberately absent.
	mutating map[string]bool
}

// DefaultBlockedPatterns returns the built-in blocked command set.
func DefaultBlockedPatterns() []BlockedPattern {
	return []BlockedPattern{
		{Pattern: "sudo", Reason: "privilege escalation via sudo"},
		{Pattern: "su", Reason: "user switching is not permitted"},
		{Pattern: "doas", Reason: "privilege escalation via doas"},
		{Pattern: "shutdown", Reason: "system shutdown is not permitted"},
		{Pattern: "reboot", Reason: "system reboot is not permitted"},
		{Pattern: "halt", Reason: "system halt is not permitted"},
		{Pattern: "poweroff", Reason: "system poweroff is not permitted"},
		{Pattern: "init", Reason: "runlevel changes are not permitted"},
		{Pattern: "fdisk", Reason: "disk partitioning is not permitted"},
		{Pattern: "parted", Reason: "disk partitioning is not permitted"},
		{Pattern: "mkfs", Reason: "filesystem creation is not permitted"},
		{Pattern: "systemctl", Reason: "service management is not permitted"},
		{Pattern: "service", Reason: "service management is not permitted"},
		{Pattern: "launchctl", Reason: "service management is not permitted"},
		{Pattern: "ifconfig", Reason: "network interface changes are not permitted"},
		{Pattern: "iptables", Reason: "firewall changes are not permitted"},
		{Pattern: "userdel", Reason: "account management is not permitted"},
		{Pattern: "groupdel", Reason: "account management is not permitted"},
	}
}

// DefaultProtectedPaths returns the built-in protected path prefixes.
// Mutating commands may not touch anything at or under these.
func DefaultProtectedPaths() []string {
	return []string{
		"/bin",
		"/sbin",
		"/usr",
		"/etc",
		"/boot",
		"/lib",
		"/lib64",
		"/dev",
		"/proc",
		"/sys",
		"/var",
		"/System",
		"/Library",
		"/Applications",
		"/private/etc",
	}
}

// readOnlyCommands are inspectors allowed to reference protected paths.
var readOnlyCommands = map[string]bool{
	"ls":     true,
	"cat":    true,
	"head":   true,
	"tail":   true,
	"less":   true,
	"more":   true,
	"stat":   true,
	"file":   true,
	"du":     true,
	"df":     true,
	"wc":     true,
	"grep":   true,
	"find":   true,
	"which":  true,
	"pwd":    true,
	"echo":   true,
}

// NewRuleset builds a ruleset from the defaults plus any extra entries
// from configuration. Extra blocked entries carry a generic reason.
func NewRuleset(extraBlocked, extraProtected []string) *Ruleset {
	blocked := DefaultBlockedPatterns()
	for _, p := range extraBlocked {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		blocked = append(blocked, BlockedPattern{Pattern: p, Reason: "blocked by configuration"})
	}

	protected := DefaultProtectedPaths()
	for _, p := range extraProtected {
		p = strings.TrimSpace(p)
		if p != "" {
			protected = append(protected, p)
		}
	}

	return &Ruleset{
		Blocked:        blocked,
		ProtectedPaths: protected,
		removal: map[string]bool{
			"rm":     true,
			"rmdir":  true,
			"unlink": true,
			"shred":  true,
		},
		mutating: map[string]bool{
			"rm":       true,
			"rmdir":    true,
			"unlink":   true,
			"shred":    true,
			"mv":       true,
			"cp":       true,
			"chmod":    true,
			"chown":    true,
			"chgrp":    true,
			"ln":       true,
			"touch":    true,
			"truncate": true,
			"tee":      true,
			"mkdir":    true,
			"cd":       true,
			"dd":       true,
		},
	}
}

// isRemoval reports whether name belongs to the file-removal family.
func (rs *Ruleset) isRemoval(name string) bool {
	return rs.removal[name]
}

// isMutating reports whether name is subject to the protected-path rule.
func (rs *Ruleset) isMutating(name string) bool {
	return rs.mutating[name]
}

// isReadOnly reports whether name is a read-only inspector.
func (rs *Ruleset) isReadOnly(name string) bool {
	return readOnlyCommands[name]
}
