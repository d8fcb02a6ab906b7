package transport

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/audit"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/auth"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/metrics"
)

// admit runs the authentication gate for a handshake. On failure the request
// has already been answered with 401.
func admit(c *gin.Context, gate *auth.Gate, m *metrics.Metrics, token string) (domain.Identity, bool) {
	ctx := c.Request.Context()

	identity, err := gate.Authenticate(ctx, token)
	if err != nil {
		code := domain.AuthCode(err)
		m.AuthFailed(code)
		audit.LogTarget(ctx, audit.ActionAuthFailed, "", c.ClientIP(), code)
		auth.Reject(c, err)
		return domain.Identity{}, false
	}
	return identity, true
}

// connContext derives the long-lived context of a connection from its
// handshake request. It outlives the request and carries the connection logger.
func connContext(c *gin.Context, client *hub.Client) (context.Context, context.CancelFunc) {
	c.Set(log.FieldConnID, client.ID)
	c.Set(log.FieldUserID, client.UserID())

	ctx := log.WithConn(context.WithoutCancel(c.Request.Context()), client.ID, client.UserID(), client.Transport)
	return context.WithCancel(ctx)
}
