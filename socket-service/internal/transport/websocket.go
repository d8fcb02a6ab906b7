package transport

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/auth"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/config"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/metrics"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/service"
)

const SocketPath = "/socket"

type WSHandler struct {
	gate     *auth.Gate
	service  service.SocketService
	metrics  *metrics.Metrics
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(gate *auth.Gate, svc service.SocketService, cfg config.WebSocketConfig, allowedOrigin string, m *metrics.Metrics) *WSHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.PongWait <= cfg.PingInterval {
		cfg.PongWait = cfg.PingInterval * 2
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	return &WSHandler{
		gate:    gate,
		service: svc,
		metrics: m,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     CheckOrigin(allowedOrigin),
		},
	}
}

// CheckOrigin admits requests from the allowed origin. Native clients send no
// Origin and are admitted; "*" admits everything.
func CheckOrigin(allowed string) func(r *http.Request) bool {
	allowed = strings.TrimRight(allowed, "/")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed == "*" {
			return true
		}
		return strings.EqualFold(strings.TrimRight(origin, "/"), allowed)
	}
}

func (h *WSHandler) RegisterRoutes(r gin.IRouter) {
	r.GET(SocketPath, h.HandleWebSocket)
}

// HandleWebSocket authenticates, upgrades and then serves the connection until
// it closes.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	identity, ok := admit(c, h.gate, h.metrics, auth.TokenFromRequest(c.Request))
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Str(log.FieldUserID, identity.UserID).Msg("websocket upgrade failed")
		return
	}

	client := h.service.NewClient(identity, hub.TransportWebSocket)
	ctx, cancel := connContext(c, client)
	defer cancel()

	h.service.Connect(ctx, client)

	ws := &wsConn{conn: conn, client: client, cfg: h.cfg}
	go ws.writePump()
	ws.readPump(ctx, h.service)
}

type wsConn struct {
	conn   *websocket.Conn
	client *hub.Client
	cfg    config.WebSocketConfig
}

// readPump handles inbound frames in arrival order and runs the disconnect
// cascade when the socket fails.
func (w *wsConn) readPump(ctx context.Context, svc service.SocketService) {
	defer func() {
		svc.Disconnect(ctx, w.client.ID)
		w.conn.Close()
	}()

	if w.cfg.MaxMessageSize > 0 {
		w.conn.SetReadLimit(w.cfg.MaxMessageSize)
	}
	w.conn.SetReadDeadline(time.Now().Add(w.cfg.PongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(w.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		svc.Handle(ctx, w.client, message)
	}
}

// writePump drains the client's send buffer and keeps the connection alive
// with pings. A closed buffer means the hub released the client.
func (w *wsConn) writePump() {
	ticker := time.NewTicker(w.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case message, ok := <-w.client.Send:
			w.conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteWait))
			if !ok {
				w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := w.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
