package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/pkg/response"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/auth"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/config"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/metrics"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/service"
)

const (
	PollPath = "/socket/poll"

	codeSessionNotFound = "SESSION_NOT_FOUND"
	codeSessionClosed   = "SESSION_CLOSED"
)

type OpenRequest struct {
	Auth struct {
		Token string `json:"token"`
	} `json:"auth"`
}

type OpenResponse struct {
	SID         string            `json:"sid"`
	User        domain.PublicUser `json:"user"`
	PollTimeout int64             `json:"pollTimeout"` // milliseconds
}

type PushRequest struct {
	Events []domain.Frame `json:"events"`
}

type PollResponse struct {
	Events []json.RawMessage `json:"events"`
}

// session is one long-polling connection.
type session struct {
	client *hub.Client
	ctx    context.Context
	cancel context.CancelFunc

	pollMu   sync.Mutex // one outstanding GET at a time
	pushMu   sync.Mutex // inbound batches in arrival order
	active   atomic.Int32
	lastSeen atomic.Int64
}

func (s *session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *session) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// PollingHandler serves the HTTP long-polling fallback transport.
type PollingHandler struct {
	gate    *auth.Gate
	service service.SocketService
	metrics *metrics.Metrics
	cfg     config.PollingConfig

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewPollingHandler(gate *auth.Gate, svc service.SocketService, cfg config.PollingConfig, m *metrics.Metrics) *PollingHandler {
	if cfg.Wait <= 0 {
		cfg.Wait = 25 * time.Second
	}
	if cfg.IdleTimeout <= cfg.Wait {
		cfg.IdleTimeout = cfg.Wait * 2
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 64
	}
	return &PollingHandler{
		gate:     gate,
		service:  svc,
		metrics:  m,
		cfg:      cfg,
		sessions: make(map[string]*session),
	}
}

func (h *PollingHandler) RegisterRoutes(r gin.IRouter) {
	r.POST(PollPath, h.Open)
	r.GET(PollPath+"/:sid", h.Poll)
	r.POST(PollPath+"/:sid", h.Push)
	r.DELETE(PollPath+"/:sid", h.Close)
}

// Open handles POST /socket/poll
func (h *PollingHandler) Open(c *gin.Context) {
	token := strings.TrimSpace(c.Query(auth.QueryTokenKey))
	if token == "" && c.Request.ContentLength != 0 {
		var req OpenRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			token = strings.TrimSpace(req.Auth.Token)
		}
	}
	if token == "" {
		token = auth.TokenFromRequest(c.Request)
	}

	identity, ok := admit(c, h.gate, h.metrics, token)
	if !ok {
		return
	}

	client := h.service.NewClient(identity, hub.TransportPolling)
	ctx, cancel := connContext(c, client)
	s := &session{client: client, ctx: ctx, cancel: cancel}
	s.touch()

	h.mu.Lock()
	h.sessions[client.ID] = s
	h.mu.Unlock()

	h.service.Connect(ctx, client)

	response.Success(c, OpenResponse{
		SID:         client.ID,
		User:        identity.Public(),
		PollTimeout: h.cfg.Wait.Milliseconds(),
	})
}

// owned resolves the session and checks the caller's token belongs to its user.
func (h *PollingHandler) owned(c *gin.Context) (*session, bool) {
	h.mu.RLock()
	s, ok := h.sessions[c.Param("sid")]
	h.mu.RUnlock()
	if !ok {
		response.Error(c, http.StatusNotFound, codeSessionNotFound, "Polling session not found")
		return nil, false
	}

	userID, err := h.gate.Verify(auth.TokenFromRequest(c.Request))
	if err != nil {
		h.metrics.AuthFailed(domain.AuthCode(err))
		auth.Reject(c, err)
		return nil, false
	}
	if userID != s.client.UserID() {
		response.Forbidden(c, "Session belongs to another user")
		return nil, false
	}

	c.Set(log.FieldConnID, s.client.ID)
	c.Set(log.FieldUserID, userID)
	return s, true
}

// Poll handles GET /socket/poll/:sid
func (h *PollingHandler) Poll(c *gin.Context) {
	s, ok := h.owned(c)
	if !ok {
		return
	}

	s.active.Add(1)
	s.pollMu.Lock()
	defer func() {
		s.pollMu.Unlock()
		s.touch()
		s.active.Add(-1)
	}()
	s.touch()

	events := make([]json.RawMessage, 0)
	timer := time.NewTimer(h.cfg.Wait)
	defer timer.Stop()

	select {
	case data, open := <-s.client.Send:
		if !open {
			h.drop(s)
			response.Error(c, http.StatusGone, codeSessionClosed, "Polling session closed")
			return
		}
		events = append(events, data)
	case <-timer.C:
		response.Success(c, PollResponse{Events: events})
		return
	case <-c.Request.Context().Done():
		return
	}

	closed := false
drain:
	for len(events) < h.cfg.MaxBatch {
		select {
		case data, open := <-s.client.Send:
			if !open {
				closed = true
				break drain
			}
			events = append(events, data)
		default:
			break drain
		}
	}
	if closed {
		h.drop(s)
	}
	response.Success(c, PollResponse{Events: events})
}

// Push handles POST /socket/poll/:sid
func (h *PollingHandler) Push(c *gin.Context) {
	s, ok := h.owned(c)
	if !ok {
		return
	}
	s.touch()

	var req PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid events payload")
		return
	}
	if len(req.Events) > h.cfg.MaxBatch {
		response.BadRequest(c, "Too many events in one batch")
		return
	}

	s.pushMu.Lock()
	for _, f := range req.Events {
		h.service.HandleFrame(s.ctx, s.client, f)
	}
	s.pushMu.Unlock()

	response.Success(c, gin.H{"accepted": len(req.Events)})
}

// Close handles DELETE /socket/poll/:sid
func (h *PollingHandler) Close(c *gin.Context) {
	s, ok := h.owned(c)
	if !ok {
		return
	}
	h.drop(s)
	c.Status(http.StatusNoContent)
}

// drop forgets the session and runs the disconnect cascade once.
func (h *PollingHandler) drop(s *session) {
	h.mu.Lock()
	_, ok := h.sessions[s.client.ID]
	delete(h.sessions, s.client.ID)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.service.Disconnect(s.ctx, s.client.ID)
	s.cancel()
}

// Sessions returns the number of open polling sessions.
func (h *PollingHandler) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sweep disconnects sessions that stopped polling or that the hub released.
func (h *PollingHandler) Sweep(now time.Time) int {
	h.mu.RLock()
	var stale []*session
	for _, s := range h.sessions {
		if s.active.Load() > 0 {
			continue
		}
		if s.client.Closed() || s.idleFor(now) > h.cfg.IdleTimeout {
			stale = append(stale, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range stale {
		l := log.Ctx(s.ctx)
		l.Info().Dur("idle", s.idleFor(now)).Msg("polling session expired")
		h.drop(s)
	}
	return len(stale)
}

// RunJanitor sweeps idle sessions until ctx is cancelled.
func (h *PollingHandler) RunJanitor(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			h.Sweep(now)
		}
	}
}
