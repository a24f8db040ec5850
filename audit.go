package authcore

import (
	"context"
	"io"
	"log/slog"

	"github.com/taskforge/authcore/internal/audit"
)

// Public names for the audit event model and sinks, implemented in
// internal/audit.
type (
	AuditEvent = audit.Event
	AuditSink  = audit.Sink

	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	SlogSink       = audit.SlogSink
)

// NewChannelSink buffers events in a channel for a consumer goroutine.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON event per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewSlogSink logs events through a structured logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return audit.NewSlogSink(logger)
}

// Audit action names emitted by the service. Stable identifiers: SIEM
// pipelines key on them.
const (
	AuditRegister        = "account.register"
	AuditLogin           = "account.login"
	AuditAccountLocked   = "account.locked"
	AuditAccountUnlocked = "account.unlocked"
	AuditRefresh         = "token.refresh"
	AuditAuthenticate    = "token.authenticate"
	AuditPasswordChange  = "account.password_change"
	AuditLogout          = "account.logout"
	AuditStatusChange    = "account.status_change"
)

// Failure reasons recorded in audit events. The login reasons preserve the
// unknown-identifier / wrong-password distinction that the API response
// deliberately hides.
const (
	ReasonUnknownIdentifier = "unknown_identifier"
	ReasonWrongPassword     = "wrong_password"
	ReasonLocked            = "locked"
	ReasonInactive          = "inactive"
	ReasonPolicy            = "policy_violation"
	ReasonDuplicate         = "duplicate_identifier"
	ReasonTokenInvalid      = "token_invalid"
	ReasonTokenExpired      = "token_expired"
	ReasonSuperseded        = "refresh_superseded"
	ReasonPasswordChanged   = "password_changed"
	ReasonReuse             = "password_reuse"
)

func (s *Service) emitAudit(ctx context.Context, action, accountID string, success bool, reason string, meta map[string]string) {
	if s.audit == nil {
		return
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		if meta == nil {
			meta = make(map[string]string, 2)
		}
		meta["ip"] = ip
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if meta == nil {
			meta = make(map[string]string, 1)
		}
		meta["user_agent"] = ua
	}
	s.audit.Emit(ctx, audit.Event{
		Timestamp: s.clock.Now(),
		Action:    action,
		AccountID: accountID,
		Success:   success,
		Reason:    reason,
		Metadata:  meta,
	})
}
