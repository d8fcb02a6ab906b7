package service

import (
	"context"

	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
)

// SocketService is what transports need from the event router.
type SocketService interface {
	// NewClient creates an unregistered client for an authenticated identity.
	NewClient(identity domain.Identity, transport string) *hub.Client
	// Connect registers the client, joins its personal room and greets it.
	Connect(ctx context.Context, c *hub.Client)
	// Handle processes one raw inbound frame from c.
	Handle(ctx context.Context, c *hub.Client, raw []byte)
	// HandleFrame processes an already parsed frame from c.
	HandleFrame(ctx context.Context, c *hub.Client, f domain.Frame)
	// Disconnect runs the removal cascade. Safe to call more than once.
	Disconnect(ctx context.Context, connID string)
}
