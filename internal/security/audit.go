// Package security provides the audit trail for tool invocations.
package security

import (
	"go.uber.org/zap"

	"github.com/probeworks/toolhost/internal/infrastructure"
)

// AuditLogger persists tool invocations to the database and mirrors them
// to the structured log. A nil database disables persistence.
type AuditLogger struct {
	db        *infrastructure.Database
	logger    *zap.Logger
	sessionID string
}

// NewAuditLogger creates an audit logger bound to one session.
func NewAuditLogger(db *infrastructure.Database, logger *zap.Logger, sessionID string) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{db: db, logger: logger, sessionID: sessionID}
}

// Log records one tool invocation. Persistence failures are logged, not
// returned: a broken audit store must not break tool execution.
func (a *AuditLogger) Log(tool, argument string, success bool, errorMsg string) {
	a.logger.Info("audit",
		zap.String("session", a.sessionID),
		zap.String("tool", tool),
		zap.String("argument", argument),
		zap.Bool("success", success),
		zap.String("error", errorMsg),
	)

	if a.db == nil {
		return
	}
	if err := a.db.LogAuditEvent(a.sessionID, tool, argument, success, errorMsg); err != nil {
		a.logger.Warn("audit write failed", zap.Error(err))
	}
}
