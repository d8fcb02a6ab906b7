package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/audit"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/kafka"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/metrics"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/registry"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/store"
)

const (
	defaultTimeout = 10 * time.Second
	viewerStripes  = 64
)

// Outcome labels recorded per handled event.
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

var errPanic = errors.New("handler panicked")

// Deps are the router's collaborators. Producer, Mirror and Metrics are optional.
type Deps struct {
	Accounts     store.AccountStore
	Contents     store.ContentStore
	Interactions store.InteractionStore
	Messages     store.MessageStore
	Producer     kafka.EventProducer
	Mirror       registry.PresenceMirror
	Metrics      *metrics.Metrics
	Timeout      time.Duration
}

// Router decodes inbound events, runs their handlers and hands the resulting
// deliveries to the hub.
type Router struct {
	hub          *hub.Hub
	accounts     store.AccountStore
	contents     store.ContentStore
	interactions store.InteractionStore
	messages     store.MessageStore
	producer     kafka.EventProducer
	mirror       registry.PresenceMirror
	metrics      *metrics.Metrics
	timeout      time.Duration

	// viewerLocks serialize mirror writes per stream.
	viewerLocks [viewerStripes]sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewRouter wires the router and installs its eviction and viewer notice
// handlers on h, so it must be called before h.Run.
func NewRouter(h *hub.Hub, deps Deps) *Router {
	r := &Router{
		hub:          h,
		accounts:     deps.Accounts,
		contents:     deps.Contents,
		interactions: deps.Interactions,
		messages:     deps.Messages,
		producer:     deps.Producer,
		mirror:       deps.Mirror,
		metrics:      deps.Metrics,
		timeout:      deps.Timeout,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        func() string { return ulid.Make().String() },
	}
	if r.producer == nil {
		r.producer = kafka.NoopProducer{}
	}
	if r.mirror == nil {
		r.mirror = registry.Noop{}
	}
	if r.timeout <= 0 {
		r.timeout = defaultTimeout
	}

	h.OnViewerChange(r.viewerNotice)
	h.OnEvict(func(connID string) {
		r.metrics.Evicted()
		r.Disconnect(context.Background(), connID)
	})
	return r
}

var _ SocketService = (*Router)(nil)

func (r *Router) NewClient(identity domain.Identity, transport string) *hub.Client {
	return r.hub.NewClient(uuid.NewString(), identity, transport)
}

// callCtx bounds a collaborator call. It survives the connection going away so
// that in-flight writes complete.
func (r *Router) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
}

func (r *Router) Connect(ctx context.Context, c *hub.Client) {
	r.hub.Register(c)

	if err := r.hub.ToClient(c.ID, domain.EventConnected, domain.ConnectedPayload{
		ConnectionID: c.ID,
		User:         c.Identity.Public(),
	}); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to greet client")
	}

	if r.hub.UserConnections(c.UserID()) == 1 {
		mctx, cancel := r.callCtx(ctx)
		r.mirrorErr(ctx, r.mirror.UserOnline(mctx, c.UserID()))
		cancel()
	}

	r.metrics.Connected(c.Transport)
	audit.Log(ctx, audit.ActionConnect, c.UserID(), "socket connected")
}

func (r *Router) Disconnect(ctx context.Context, connID string) {
	c, leaves := r.hub.Disconnect(connID)
	if c == nil {
		return
	}

	for _, lv := range leaves {
		r.metrics.Delivered(domain.EventViewerLeft)
		r.syncViewers(ctx, lv.StreamID)
	}

	if r.hub.UserConnections(c.UserID()) == 0 {
		mctx, cancel := r.callCtx(ctx)
		r.mirrorErr(ctx, r.mirror.UserOffline(mctx, c.UserID()))
		cancel()
	}

	audit.LogTarget(ctx, audit.ActionDisconnect, c.UserID(), c.ID, c.Transport)
}

func (r *Router) Handle(ctx context.Context, c *hub.Client, raw []byte) {
	f, err := domain.ParseFrame(raw)
	if err != nil {
		r.fail(ctx, c, "", err)
		r.metrics.EventHandled("invalid", outcomeInvalid, 0)
		return
	}
	r.HandleFrame(ctx, c, f)
}

func (r *Router) HandleFrame(ctx context.Context, c *hub.Client, f domain.Frame) {
	start := time.Now()

	in, err := domain.DecodeFrame(f)
	if err != nil {
		label := f.Event
		var ve *domain.ValidationError
		if errors.As(err, &ve) && ve.Field == "event" {
			label = "unknown"
		}
		r.metrics.EventHandled(label, r.fail(ctx, c, f.Event, err), time.Since(start))
		return
	}

	ds, err := r.dispatch(ctx, c, in)
	outcome := outcomeOK
	if err != nil {
		outcome = r.fail(ctx, c, in.EventName(), err)
	} else {
		r.deliver(ctx, ds...)
	}
	r.metrics.EventHandled(in.EventName(), outcome, time.Since(start))
}

// dispatch runs the handler for in. A panic is reported as an error.
func (r *Router) dispatch(ctx context.Context, c *hub.Client, in domain.Inbound) (ds []hub.Delivery, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", errPanic, p)
		}
	}()

	switch e := in.(type) {
	case *domain.JoinMedia:
		return r.join(c, domain.MediaRoom(e.MediaID)), nil
	case *domain.LeaveMedia:
		return r.leave(c, domain.MediaRoom(e.MediaID)), nil
	case *domain.JoinContent:
		return r.join(c, domain.ContentRoom(e.ContentType, e.ContentID)), nil
	case *domain.LeaveContent:
		return r.leave(c, domain.ContentRoom(e.ContentType, e.ContentID)), nil
	case *domain.JoinStream:
		return r.joinStream(ctx, c, e)
	case *domain.LeaveStream:
		return r.leaveStream(ctx, c, e)
	case *domain.NewComment:
		return r.newComment(ctx, c, e)
	case *domain.CommentReaction:
		return r.commentReaction(ctx, c, e)
	case *domain.MediaReaction:
		return r.mediaReaction(ctx, c, e)
	case *domain.ContentReaction:
		return r.contentReaction(ctx, c, e)
	case *domain.ContentComment:
		return r.contentComment(ctx, c, e)
	case *domain.Typing:
		return r.typing(c, e), nil
	case *domain.UserPresence:
		return r.userPresence(ctx, c, e), nil
	case *domain.StreamChat:
		return r.streamChat(ctx, c, e), nil
	case *domain.StreamStatus:
		return r.streamStatus(ctx, c, e), nil
	case *domain.SendMessage:
		return r.sendMessage(ctx, c, e)
	case *domain.JoinChat:
		return r.join(c, domain.ChatRoom(c.UserID(), e.OtherUserID)), nil
	case *domain.LeaveChat:
		return r.leave(c, domain.ChatRoom(c.UserID(), e.OtherUserID)), nil
	case *domain.ChatTyping:
		return r.chatTyping(c, e), nil
	case *domain.Ping:
		return []hub.Delivery{hub.Direct(c.ID, domain.EventPong, domain.PongPayload{Timestamp: r.now()})}, nil
	default:
		return nil, fmt.Errorf("no handler for %s", in.EventName())
	}
}

// fail sends a scoped error to the originating connection and returns the
// outcome label.
func (r *Router) fail(ctx context.Context, c *hub.Client, event string, err error) string {
	payload := domain.ErrorPayload{Event: event}
	outcome := outcomeError

	var ve *domain.ValidationError
	var nf *domain.NotFoundError
	switch {
	case errors.As(err, &ve):
		payload.Code, payload.Message = domain.CodeValidation, ve.Error()
		outcome = outcomeInvalid
	case errors.Is(err, store.ErrInvalidID):
		payload.Code, payload.Message = domain.CodeValidation, "invalid id"
		outcome = outcomeInvalid
	case errors.As(err, &nf):
		payload.Code, payload.Message = domain.CodeNotFound, nf.Error()
		outcome = outcomeNotFound
	default:
		l := log.Ctx(ctx)
		l.Error().Err(err).
			Str(log.FieldConnID, c.ID).
			Str(log.FieldUserID, c.UserID()).
			Str(log.FieldEvent, event).
			Msg("failed to process event")
		payload.Code = domain.CodeInternal
		payload.Message = "Failed to process " + event
	}

	if derr := r.hub.ToClient(c.ID, domain.EventError, payload); derr != nil {
		l := log.Ctx(ctx)
		l.Error().Err(derr).Msg("failed to send error event")
	}
	return outcome
}

func (r *Router) deliver(ctx context.Context, ds ...hub.Delivery) {
	if len(ds) == 0 {
		return
	}
	if err := r.hub.Deliver(ds...); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to deliver events")
	}
	for _, d := range ds {
		r.metrics.Delivered(d.Event)
	}
}

// publish sends an interaction to the event sink. Failures are only logged.
func (r *Router) publish(ctx context.Context, eventType, room, userID string, payload interface{}) {
	err := r.producer.PublishInteraction(ctx, &domain.InteractionEvent{
		Type:      eventType,
		Room:      room,
		UserID:    userID,
		Payload:   payload,
		Timestamp: r.now(),
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldEvent, eventType).Str(log.FieldRoom, room).Msg("failed to publish interaction")
	}
}

// syncViewers writes the stream's current viewer count to the mirror. The count is
// read under the stream's lock, so the last write carries the latest value.
func (r *Router) syncViewers(ctx context.Context, streamID string) {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(streamID))
	mu := &r.viewerLocks[hash.Sum32()%viewerStripes]

	mu.Lock()
	defer mu.Unlock()

	mctx, cancel := r.callCtx(ctx)
	defer cancel()
	r.mirrorErr(ctx, r.mirror.SetViewers(mctx, streamID, r.hub.Viewers().Count(streamID)))
}

func (r *Router) mirrorErr(ctx context.Context, err error) {
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("presence mirror update failed")
	}
}

// HandleStreamEvent broadcasts a stream lifecycle change to the stream's viewers.
func (r *Router) HandleStreamEvent(ctx context.Context, ev *kafka.StreamEvent) error {
	status, ok := ev.Status()
	if !ok {
		return fmt.Errorf("unknown stream event type %q", ev.Type)
	}

	mctx, cancel := r.callCtx(ctx)
	r.mirrorErr(ctx, r.mirror.SetStreamStatus(mctx, ev.StreamID, status, ev.BroadcasterID))
	cancel()

	err := r.hub.ToRoom(domain.StreamRoom(ev.StreamID), domain.EventStreamStatus, domain.StreamStatusPayload{
		StreamID:  ev.StreamID,
		Status:    status,
		UpdatedBy: ev.BroadcasterID,
		Timestamp: r.now(),
	}, "")
	if err != nil {
		return fmt.Errorf("failed to broadcast stream status: %w", err)
	}
	r.metrics.Delivered(domain.EventStreamStatus)
	return nil
}

// StreamViewers returns the concurrent viewer count of a stream.
func (r *Router) StreamViewers(streamID string) int {
	return r.hub.Viewers().Count(streamID)
}

// Presence reports whether a user has any open connection here.
func (r *Router) Presence(userID string) (online bool, connections int) {
	n := r.hub.UserConnections(userID)
	return n > 0, n
}

func (r *Router) Stats() hub.Stats {
	return r.hub.Stats()
}
