package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/pkg/middleware"
	"github.com/jevah-app/jevahapp-backend-sub001/pkg/response"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
)

// RoleAdmin may read service-wide stats.
const RoleAdmin = "admin"

// PresenceReader answers live presence queries from the hub's tables.
type PresenceReader interface {
	StreamViewers(streamID string) int
	Presence(userID string) (online bool, connections int)
	Stats() hub.Stats
}

type ViewersResponse struct {
	StreamID          string `json:"streamId"`
	ConcurrentViewers int    `json:"concurrentViewers"`
}

type PresenceResponse struct {
	UserID      string `json:"userId"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}

// Handler handles the socket service's HTTP API.
type Handler struct {
	presence       PresenceReader
	authMiddleware *middleware.AuthMiddleware
}

func NewHandler(presence PresenceReader, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		presence:       presence,
		authMiddleware: authMiddleware,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/v1", h.authMiddleware.RequireAuth())
	{
		api.GET("/streams/:stream_id/viewers", h.GetViewers)
		api.GET("/presence/:user_id", h.GetPresence)
		api.GET("/stats", middleware.RequireRole(RoleAdmin), h.GetStats)
	}
}

// GetViewers handles GET /api/v1/streams/:stream_id/viewers
func (h *Handler) GetViewers(c *gin.Context) {
	streamID := c.Param("stream_id")
	if err := domain.ValidateID("stream_id", streamID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, ViewersResponse{
		StreamID:          streamID,
		ConcurrentViewers: h.presence.StreamViewers(streamID),
	})
}

// GetPresence handles GET /api/v1/presence/:user_id
func (h *Handler) GetPresence(c *gin.Context) {
	userID := c.Param("user_id")
	if err := domain.ValidateID("user_id", userID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	online, n := h.presence.Presence(userID)
	response.Success(c, PresenceResponse{UserID: userID, Online: online, Connections: n})
}

// GetStats handles GET /api/v1/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats := h.presence.Stats()

	l := log.Ctx(c.Request.Context())
	l.Debug().Int("connections", stats.Connections).Int("rooms", stats.Rooms).Msg("stats requested")

	response.Success(c, stats)
}
