package registry

import "context"

// PresenceMirror publishes this instance's presence snapshot for other services.
// Failures are logged by callers and never reach clients.
type PresenceMirror interface {
	SetViewers(ctx context.Context, streamID string, count int) error
	SetStreamStatus(ctx context.Context, streamID, status, updatedBy string) error
	UserOnline(ctx context.Context, userID string) error
	UserOffline(ctx context.Context, userID string) error
	SetUserStatus(ctx context.Context, userID, status string) error
	StartHeartbeat(ctx context.Context) error
	Close() error
}

// Noop discards every update.
type Noop struct{}

func (Noop) SetViewers(context.Context, string, int) error                { return nil }
func (Noop) SetStreamStatus(context.Context, string, string, string) error { return nil }
func (Noop) UserOnline(context.Context, string) error                     { return nil }
func (Noop) UserOffline(context.Context, string) error                    { return nil }
func (Noop) SetUserStatus(context.Context, string, string) error          { return nil }
func (Noop) StartHeartbeat(context.Context) error                         { return nil }
func (Noop) Close() error                                                 { return nil }
