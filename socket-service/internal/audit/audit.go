package audit

import (
	"context"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
)

// Audit actions for socket-service.
const (
	ActionConnect         = "socket.connect"
	ActionAuthFailed      = "socket.auth_failed"
	ActionDisconnect      = "socket.disconnect"
	ActionComment         = "socket.comment"
	ActionCommentReaction = "socket.comment_reaction"
	ActionReaction        = "socket.reaction"
	ActionSendMessage     = "socket.send_message"
	ActionStreamStatus    = "socket.stream_status"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogTarget emits an audit entry about a specific record.
func LogTarget(ctx context.Context, action, userID, targetID, detail string) {
	l := log.Ctx(ctx)
	evt := l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID)
	if detail != "" {
		evt = evt.Str(FieldDetail, detail)
	}
	evt.Msg(action)
}
