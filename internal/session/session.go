// Package session tracks the identity and counters of one tool host run.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditFunc records one tool invocation. Implementations must be safe for
// concurrent use.
type AuditFunc func(tool, argument string, success bool, errorMsg string)

// Session manages a tool execution session.
type Session struct {
	ID        string
	StartTime time.Time

	mu          sync.Mutex
	invocations int

	logger *zap.Logger
	audit  AuditFunc
}

// New creates a session with a fresh ID. audit may be nil when audit
// logging is disabled.
func New(logger *zap.Logger, audit AuditFunc) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		logger:    logger,
		audit:     audit,
	}
}

// SetAudit installs the audit hook. Used at bootstrap, where the hook
// needs the session ID the session itself generates.
func (s *Session) SetAudit(audit AuditFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = audit
}

// Logger returns the session's structured logger.
func (s *Session) Logger() *zap.Logger {
	return s.logger
}

// InvocationsRun returns the number of invocations recorded so far.
func (s *Session) InvocationsRun() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invocations
}

// Record counts an invocation and writes it to the audit trail.
func (s *Session) Record(tool, argument string, success bool, errorMsg string) {
	s.mu.Lock()
	s.invocations++
	audit := s.audit
	s.mu.Unlock()

	s.logger.Info("invocation",
		zap.String("session", s.ID),
		zap.String("tool", tool),
		zap.Bool("success", success),
	)

	if audit != nil {
		audit(tool, argument, success, errorMsg)
	}
}

// Elapsed returns the time since the session started.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}
