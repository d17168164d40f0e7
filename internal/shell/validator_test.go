package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestValidator() *Validator {
	return NewValidator(NewRuleset(nil, nil))
}

func TestValidateBlockedCommands(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		command string
	}{
		{"shutdown bare", "shutdown"},
		{"shutdown with args", "shutdown -h now"},
		{"reboot", "reboot"},
		{"halt", "halt -f"},
		{"sudo prefix", "sudo ls /tmp"},
		{"sudo shutdown", "sudo shutdown now"},
		{"su", "su root"},
		{"mkfs variant", "mkfs.ext4 /dev/sda1"},
		{"fdisk", "fdisk -l"},
		{"systemctl", "systemctl stop sshd"},
		{"service", "service networking stop"},
		{"ifconfig", "ifconfig eth0 down"},
		{"iptables", "iptables -F"},
		{"userdel", "userdel alice"},
		{"quoted executable", `"shutdown" now`},
		{"single quoted executable", "'reboot'"},
		{"absolute path sudo", "/usr/bin/sudo ls"},
		{"absolute path shutdown", "/sbin/shutdown -h now"},
		{"uppercase executable", "SUDO rm x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.command, "/tmp")
			assert.False(t, verdict.Allow, "expected deny for %q", tt.command)
			assert.Equal(t, RuleBlocked, verdict.Rule)
		})
	}
}

func TestValidateDestructiveFlags(t *testing.T) {
	v := newTestValidator()

	denied := []struct {
		name    string
		command string
	}{
		{"combined rf", "rm -rf /tmp/foo"},
		{"combined fr", "rm -fr /tmp/foo"},
		{"uppercase R", "rm -Rf /tmp/foo"},
		{"separate flags", "rm -r -f /tmp/foo"},
		{"separate reversed", "rm -f -r /tmp/foo"},
		{"long flags", "rm --recursive --force /tmp/foo"},
		{"mixed long short", "rm --force -r /tmp/foo"},
		{"extra letters", "rm -rvf /tmp/foo"},
		{"non-protected target still denied", "rm -rf ./scratch"},
		{"shred recursive force", "shred -r -f notes.txt"},
		{"absolute path rm", "/bin/rm -rf /tmp/foo"},
	}
	for _, tt := range denied {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.command, "/tmp")
			assert.False(t, verdict.Allow)
			assert.Equal(t, RuleDestructive, verdict.Rule)
		})
	}

	allowed := []struct {
		name    string
		command string
	}{
		{"recursive only", "rm -r /tmp/foo"},
		{"force only", "rm -f /tmp/foo"},
		{"plain remove", "rm /tmp/foo.txt"},
	}
	for _, tt := range allowed {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.command, "/tmp")
			assert.True(t, verdict.Allow, "expected allow for %q: %s", tt.command, verdict.Reason)
		})
	}
}

func TestValidateProtectedPaths(t *testing.T) {
	v := newTestValidator()

	denied := []struct {
		name    string
		command string
		cwd     string
	}{
		{"remove under etc", "rm /etc/hosts", "/tmp"},
		{"remove etc itself", "rm -r /etc", "/tmp"},
		{"move into usr", "mv app /usr/local/bin/app", "/tmp"},
		{"chmod system binary", "chmod 777 /bin/ls", "/tmp"},
		{"relative path resolving into protected", "rm passwd", "/etc"},
		{"dotdot into protected", "rm ../etc/hosts", "/private"},
		{"redirect into etc", "echo 0 > /etc/sysctl.conf", "/tmp"},
		{"append into protected", "cat notes >> /var/log/system.log", "/tmp"},
		{"cd into protected", "cd /etc", "/tmp"},
		{"touch in protected", "touch /usr/lib/marker", "/tmp"},
		{"wildcard under protected dir", "rm /etc/*", "/tmp"},
		{"dd writing to device", "dd if=/dev/zero of=/dev/sda", "/tmp"},
		{"dd operands reordered", "dd of=/dev/sda if=/dev/zero bs=1M", "/tmp"},
		{"dd output under etc", "dd if=seed.bin of=/etc/magic", "/tmp"},
	}
	for _, tt := range denied {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.command, tt.cwd)
			assert.False(t, verdict.Allow, "expected deny for %q", tt.command)
			assert.Equal(t, RuleProtected, verdict.Rule)
		})
	}

	allowed := []struct {
		name    string
		command string
		cwd     string
	}{
		{"list protected dir", "ls /etc", "/tmp"},
		{"read protected file", "cat /etc/hosts", "/tmp"},
		{"head system log", "head -n 5 /var/log/system.log", "/tmp"},
		{"stat binary", "stat /bin/ls", "/tmp"},
		{"grep in protected", "grep root /etc/passwd", "/tmp"},
		{"list home", "ls /Users/me", "/tmp"},
		{"remove in home", "rm notes.txt", "/home/me/project"},
		{"mkdir in writable cwd", "mkdir testdir", "/tmp"},
		{"dd to local file", "dd if=/dev/urandom of=sample.bin bs=1k count=4", "/tmp"},
	}
	for _, tt := range allowed {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.command, tt.cwd)
			assert.True(t, verdict.Allow, "expected allow for %q: %s", tt.command, verdict.Reason)
		})
	}
}

func TestValidateWildcardGuard(t *testing.T) {
	v := newTestValidator()

	verdict := v.Validate("rm /*", "/tmp")
	assert.False(t, verdict.Allow)
	// The directory prefix of /* is / itself, which is not in the
	// protected set, so this lands on the wildcard guard.
	assert.Equal(t, RuleWildcard, verdict.Rule)

	verdict = v.Validate("rm /.*", "/tmp")
	assert.False(t, verdict.Allow)

	// Wildcards scoped to an unprotected directory are fine without
	// force flags.
	verdict = v.Validate("rm /tmp/scratch/*", "/tmp")
	assert.True(t, verdict.Allow, verdict.Reason)
}

func TestValidateChainedCommands(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		command string
		allow   bool
	}{
		{"safe chain", "mkdir build && ls build", true},
		{"unsafe second segment", "ls /tmp && rm -rf /tmp/x", false},
		{"unsafe after semicolon", "echo hi; shutdown -h now", false},
		{"unsafe after or", "make || sudo make install", false},
		{"unsafe in pipe", "cat data.txt | sudo tee /etc/conf", false},
		{"safe pipe", "cat data.txt | wc -l", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.command, "/tmp")
			assert.Equal(t, tt.allow, verdict.Allow, "command %q: %s", tt.command, verdict.Reason)
		})
	}
}

func TestValidateFailsClosed(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		command string
		rule    string
	}{
		{"empty", "", RuleEmpty},
		{"whitespace only", "   \t  ", RuleEmpty},
		{"unterminated quote", `echo "unclosed`, RuleUnparseable},
		{"command substitution", "echo $(reboot)", RuleSubstitution},
		{"backtick substitution", "echo `reboot`", RuleSubstitution},
		{"dynamic executable", "$CMD --help", RuleUnparseable},
		{"assignment only", "FOO=bar", RuleUnparseable},
		{"function definition", "f() { rm -rf /; }; f", RuleUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.command, "/tmp")
			assert.False(t, verdict.Allow, "expected deny for %q", tt.command)
			assert.Equal(t, tt.rule, verdict.Rule)
		})
	}
}

func TestValidateQuotingNormalization(t *testing.T) {
	v := newTestValidator()

	// Quoting tricks around the executable or its arguments must not
	// bypass the rules.
	tests := []struct {
		name    string
		command string
	}{
		{"quoted sudo", `"sudo" rm -rf /`},
		{"split quotes", `"shut"down now`},
		{"quoted rm flags", `rm "-rf" /tmp/x`},
		{"quoted protected path", `rm "/etc/hosts"`},
		{"single quoted protected path", "rm '/etc/hosts'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.command, "/tmp")
			assert.False(t, verdict.Allow, "expected deny for %q", tt.command)
		})
	}
}

func TestValidatePathPrefixedExecutables(t *testing.T) {
	v := newTestValidator()

	// Invoking a command by absolute path must hit the same rules as its
	// bare name.
	denied := []struct {
		name    string
		command string
		rule    string
	}{
		{"rm by full path", "/bin/rm -rf /", RuleDestructive},
		{"sudo by full path", "/usr/bin/sudo ls", RuleBlocked},
		{"shutdown by full path", "/sbin/shutdown -h now", RuleBlocked},
		{"rm by full path into etc", "/bin/rm /etc/hosts", RuleProtected},
	}
	for _, tt := range denied {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.command, "/tmp")
			assert.False(t, verdict.Allow, "expected deny for %q", tt.command)
			assert.Equal(t, tt.rule, verdict.Rule)
		})
	}

	allowed := []struct {
		name    string
		command string
	}{
		{"ls by full path", "/bin/ls /etc"},
		{"wc by full path", "/usr/bin/wc -l /etc/passwd"},
	}
	for _, tt := range allowed {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.command, "/tmp")
			assert.True(t, verdict.Allow, "expected allow for %q: %s", tt.command, verdict.Reason)
		})
	}
}

func TestValidateIsPure(t *testing.T) {
	v := newTestValidator()

	for _, command := range []string{"ls /etc", "rm -rf /", "mkdir testdir", ""} {
		first := v.Validate(command, "/tmp")
		second := v.Validate(command, "/tmp")
		assert.Equal(t, first, second, "verdict for %q changed between calls", command)
	}
}

func TestValidateSpecScenarios(t *testing.T) {
	v := newTestValidator()

	verdict := v.Validate("rm -rf /", "/tmp")
	assert.False(t, verdict.Allow)
	assert.Equal(t, RuleDestructive, verdict.Rule)

	verdict = v.Validate("ls /Users/me", "/tmp")
	assert.True(t, verdict.Allow)

	verdict = v.Validate("sudo shutdown now", "/tmp")
	assert.False(t, verdict.Allow)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/etc/hosts", ResolvePath("/etc/hosts", "/tmp"))
	assert.Equal(t, "/tmp/notes.txt", ResolvePath("notes.txt", "/tmp"))
	assert.Equal(t, "/etc/hosts", ResolvePath("../etc/hosts", "/private"))
	assert.Equal(t, "/etc", ResolvePath("/etc/*", "/tmp"))
	assert.Equal(t, "/", ResolvePath("/*", "/tmp"))
	assert.Equal(t, "", ResolvePath("  ", "/tmp"))
}

func TestRulesetExtension(t *testing.T) {
	rs := NewRuleset([]string{"docker"}, []string{"/srv/data"})
	v := NewValidator(rs)

	verdict := v.Validate("docker ps", "/tmp")
	assert.False(t, verdict.Allow)
	assert.Equal(t, RuleBlocked, verdict.Rule)

	verdict = v.Validate("rm /srv/data/dump.sql", "/tmp")
	assert.False(t, verdict.Allow)
	assert.Equal(t, RuleProtected, verdict.Rule)
}
