package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/kafka"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/registry"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/store"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type recordingProducer struct {
	mu     sync.Mutex
	events []domain.InteractionEvent
}

func (p *recordingProducer) PublishInteraction(_ context.Context, ev *domain.InteractionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func (p *recordingProducer) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingMirror struct {
	mu      sync.Mutex
	viewers map[string]int
	status  map[string]string
	online  map[string]bool
}

func newRecordingMirror() *recordingMirror {
	return &recordingMirror{
		viewers: make(map[string]int),
		status:  make(map[string]string),
		online:  make(map[string]bool),
	}
}

func (m *recordingMirror) SetViewers(_ context.Context, streamID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewers[streamID] = count
	return nil
}

func (m *recordingMirror) SetStreamStatus(_ context.Context, streamID, status, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[streamID] = status
	return nil
}

func (m *recordingMirror) UserOnline(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[userID] = true
	return nil
}

func (m *recordingMirror) UserOffline(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[userID] = false
	return nil
}

func (m *recordingMirror) SetUserStatus(context.Context, string, string) error { return nil }
func (m *recordingMirror) StartHeartbeat(context.Context) error                { return nil }
func (m *recordingMirror) Close() error                                        { return nil }

func (m *recordingMirror) isOnline(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online[userID]
}

func (m *recordingMirror) viewerCount(streamID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewers[streamID]
}

// stallingMirror blocks the first viewer write of stallAt until release is closed.
type stallingMirror struct {
	*recordingMirror
	stallAt int
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (m *stallingMirror) SetViewers(ctx context.Context, streamID string, count int) error {
	if count == m.stallAt {
		m.once.Do(func() {
			close(m.entered)
			<-m.release
		})
	}
	return m.recordingMirror.SetViewers(ctx, streamID, count)
}

// panickingContents fails every content lookup with a panic.
type panickingContents struct{}

func (panickingContents) FindContent(context.Context, domain.ContentType, string) (*domain.Content, error) {
	panic("content store exploded")
}

type fixture struct {
	hub      *hub.Hub
	router   *Router
	store    *store.MemoryStore
	producer *recordingProducer
	mirror   *recordingMirror
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := newRecordingMirror()
	return newFixtureWith(t, rec, rec)
}

// newFixtureWith wires mirror into the router; rec is what tests inspect.
func newFixtureWith(t *testing.T, mirror registry.PresenceMirror, rec *recordingMirror) *fixture {
	t.Helper()

	st := store.NewMemoryStore()
	st.PutAccount(domain.Account{ID: "userA", FirstName: "Ada", LastName: "A", Role: "user", Email: "a@example.com"})
	st.PutAccount(domain.Account{ID: "userB", FirstName: "Ben", LastName: "B", Role: "user"})
	st.PutContent(domain.ContentMedia, "m1")
	st.PutContent(domain.ContentDevotional, "d1")

	f := &fixture{
		hub:      hub.NewHub(hub.Config{}),
		store:    st,
		producer: &recordingProducer{},
		mirror:   rec,
	}
	f.router = NewRouter(f.hub, Deps{
		Accounts:     st,
		Contents:     st,
		Interactions: st,
		Messages:     st,
		Producer:     f.producer,
		Mirror:       mirror,
		Timeout:      time.Second,
	})
	go f.hub.Run()
	t.Cleanup(f.hub.Stop)
	return f
}

func (f *fixture) connect(t *testing.T, userID string) *hub.Client {
	t.Helper()
	c := f.router.NewClient(domain.Identity{UserID: userID, FirstName: "First " + userID, Email: userID + "@example.com", Role: "user"}, hub.TransportWebSocket)
	f.router.Connect(context.Background(), c)
	fr := next(t, c)
	require.Equal(t, domain.EventConnected, fr.Event)
	return c
}

func (f *fixture) emit(c *hub.Client, event string, data interface{}) {
	raw, _ := json.Marshal(map[string]interface{}{"event": event, "data": data})
	f.router.Handle(context.Background(), c, raw)
}

func next(t *testing.T, c *hub.Client) frame {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var fr frame
		require.NoError(t, json.Unmarshal(data, &fr))
		return fr
	case <-time.After(time.Second):
		t.Fatalf("no frame for %s", c.ID)
		return frame{}
	}
}

func expectNone(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		if ok {
			t.Fatalf("unexpected frame for %s: %s", c.ID, data)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func decode[T any](t *testing.T, fr frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(fr.Data, &v))
	return v
}

// flush waits until everything queued before it has been fanned out to c.
func flush(t *testing.T, f *fixture, c *hub.Client) {
	t.Helper()
	f.emit(c, domain.EventPing, nil)
	require.Equal(t, domain.EventPong, next(t, c).Event)
}

func TestRouter_ConnectGreetsAndMarksOnline(t *testing.T) {
	f := newFixture(t)

	c := f.router.NewClient(domain.Identity{UserID: "userA", FirstName: "Ada", Email: "a@example.com", Role: "admin"}, hub.TransportPolling)
	f.router.Connect(context.Background(), c)

	fr := next(t, c)
	require.Equal(t, domain.EventConnected, fr.Event)
	p := decode[domain.ConnectedPayload](t, fr)
	assert.Equal(t, c.ID, p.ConnectionID)
	assert.Equal(t, "userA", p.User.ID)
	assert.NotContains(t, string(fr.Data), "admin")
	assert.NotContains(t, string(fr.Data), "a@example.com")

	assert.True(t, f.mirror.isOnline("userA"))
	online, n := f.router.Presence("userA")
	assert.True(t, online)
	assert.Equal(t, 1, n)
}

func TestRouter_OfflineAfterLastConnection(t *testing.T) {
	f := newFixture(t)
	a1 := f.connect(t, "userA")
	a2 := f.connect(t, "userA")

	f.router.Disconnect(context.Background(), a1.ID)
	assert.True(t, f.mirror.isOnline("userA"))

	f.router.Disconnect(context.Background(), a2.ID)
	assert.False(t, f.mirror.isOnline("userA"))

	online, _ := f.router.Presence("userA")
	assert.False(t, online)
}

func TestRouter_NewCommentReachesEveryTab(t *testing.T) {
	f := newFixture(t)
	a1 := f.connect(t, "userA")
	a2 := f.connect(t, "userA")
	b := f.connect(t, "userB")
	outsider := f.connect(t, "userB")

	for _, c := range []*hub.Client{a1, a2, b} {
		f.emit(c, domain.EventJoinMedia, map[string]string{"mediaId": "m1"})
	}

	f.emit(a1, domain.EventNewComment, map[string]string{"mediaId": "m1", "content": "  Amen  "})

	for _, c := range []*hub.Client{a1, a2, b} {
		fr := next(t, c)
		require.Equal(t, domain.EventNewComment, fr.Event)
		p := decode[domain.CommentPayload](t, fr)
		assert.Equal(t, "Amen", p.Content)
		assert.Equal(t, "m1", p.MediaID)
		assert.Equal(t, "userA", p.User.ID)
		assert.NotEmpty(t, p.CommentID)
	}
	expectNone(t, outsider)
	assert.Equal(t, []string{domain.EventNewComment}, f.producer.types())
}

func TestRouter_NewCommentUnknownMedia(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")

	f.emit(a, domain.EventNewComment, map[string]string{"mediaId": "missing", "content": "hi"})

	fr := next(t, a)
	require.Equal(t, domain.EventError, fr.Event)
	p := decode[domain.ErrorPayload](t, fr)
	assert.Equal(t, domain.CodeNotFound, p.Code)
	assert.Equal(t, domain.EventNewComment, p.Event)
	assert.Empty(t, f.producer.types())
}

func TestRouter_ReplyToMissingParent(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")

	f.emit(a, domain.EventNewComment, map[string]string{"mediaId": "m1", "content": "hi", "parentCommentId": "nope"})

	p := decode[domain.ErrorPayload](t, next(t, a))
	assert.Equal(t, domain.CodeNotFound, p.Code)
	assert.Contains(t, p.Message, "parent comment")
}

func TestRouter_ContentCommentAndReaction(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")
	b := f.connect(t, "userB")

	content := map[string]string{"contentType": "devotional", "contentId": "d1"}
	f.emit(b, domain.EventJoinContent, content)

	f.emit(a, domain.EventContentComment, map[string]string{"contentType": "devotional", "contentId": "d1", "content": "Blessed"})
	fr := next(t, b)
	require.Equal(t, domain.EventContentComment, fr.Event)
	cp := decode[domain.ContentCommentPayload](t, fr)
	assert.Equal(t, domain.ContentDevotional, cp.ContentType)
	assert.Equal(t, "Blessed", cp.Content)
	expectNone(t, a)

	f.emit(a, domain.EventContentReaction, map[string]string{"contentType": "devotional", "contentId": "d1", "actionType": "share"})
	fr = next(t, b)
	require.Equal(t, domain.EventContentReaction, fr.Event)
	rp := decode[domain.ContentReactionPayload](t, fr)
	assert.Equal(t, domain.ActionShare, rp.ActionType)
	assert.Nil(t, rp.Liked)
	assert.Equal(t, int64(1), rp.Count)

	f.emit(b, domain.EventLeaveContent, content)
	f.emit(a, domain.EventContentReaction, map[string]string{"contentType": "devotional", "contentId": "d1", "actionType": "favorite"})
	expectNone(t, b)
}

func TestRouter_MediaLikeToggles(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")
	f.emit(a, domain.EventJoinMedia, map[string]string{"mediaId": "m1"})

	like := map[string]string{"mediaId": "m1", "actionType": "like"}

	f.emit(a, domain.EventMediaReaction, like)
	p := decode[domain.MediaReactionPayload](t, next(t, a))
	require.NotNil(t, p.Liked)
	assert.True(t, *p.Liked)
	assert.Equal(t, int64(1), p.Count)

	f.emit(a, domain.EventMediaReaction, like)
	p = decode[domain.MediaReactionPayload](t, next(t, a))
	require.NotNil(t, p.Liked)
	assert.False(t, *p.Liked)
	assert.Equal(t, int64(0), p.Count)
}

func TestRouter_CommentReaction(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")
	b := f.connect(t, "userB")
	f.emit(b, domain.EventJoinMedia, map[string]string{"mediaId": "m1"})

	f.emit(a, domain.EventNewComment, map[string]string{"mediaId": "m1", "content": "Amen"})
	comment := decode[domain.CommentPayload](t, next(t, b))

	f.emit(a, domain.EventCommentReaction, map[string]string{"commentId": comment.CommentID, "reactionType": "heart"})
	fr := next(t, b)
	require.Equal(t, domain.EventCommentReaction, fr.Event)
	p := decode[domain.CommentReactionPayload](t, fr)
	assert.Equal(t, comment.CommentID, p.CommentID)
	assert.Equal(t, "m1", p.MediaID)
	assert.Equal(t, int64(1), p.Count)

	f.emit(a, domain.EventCommentReaction, map[string]string{"commentId": "ghost", "reactionType": "heart"})
	e := decode[domain.ErrorPayload](t, next(t, a))
	assert.Equal(t, domain.CodeNotFound, e.Code)
}

func TestRouter_RepeatedJoinStreamBroadcastsOnce(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")

	f.emit(a, domain.EventJoinStream, map[string]string{"streamId": "s1"})
	f.emit(a, domain.EventJoinStream, map[string]string{"streamId": "s1"})

	fr := next(t, a)
	require.Equal(t, domain.EventViewerJoined, fr.Event)
	assert.Equal(t, 1, decode[domain.ViewerPayload](t, fr).ConcurrentViewers)
	flush(t, f, a)

	f.emit(a, domain.EventLeaveStream, map[string]string{"streamId": "s1"})
	f.emit(a, domain.EventLeaveStream, map[string]string{"streamId": "s1"})
	expectNone(t, a)
	assert.Equal(t, 0, f.router.StreamViewers("s1"))
}

func TestRouter_StreamViewerScenario(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")
	b := f.connect(t, "userB")
	stream := map[string]string{"streamId": "s1"}

	f.emit(a, domain.EventJoinStream, stream)
	assert.Equal(t, 1, decode[domain.ViewerPayload](t, next(t, a)).ConcurrentViewers)

	f.emit(b, domain.EventJoinStream, stream)
	for _, c := range []*hub.Client{a, b} {
		fr := next(t, c)
		require.Equal(t, domain.EventViewerJoined, fr.Event)
		p := decode[domain.ViewerPayload](t, fr)
		assert.Equal(t, 2, p.ConcurrentViewers)
		assert.Equal(t, "userB", p.UserID)
	}

	f.router.Disconnect(context.Background(), a.ID)
	fr := next(t, b)
	require.Equal(t, domain.EventViewerLeft, fr.Event)
	p := decode[domain.ViewerPayload](t, fr)
	assert.Equal(t, 1, p.ConcurrentViewers)
	assert.Equal(t, "userA", p.UserID)

	f.emit(b, domain.EventLeaveStream, stream)
	assert.Equal(t, 0, f.router.StreamViewers("s1"))

	f.mirror.mu.Lock()
	assert.Equal(t, 0, f.mirror.viewers["s1"])
	f.mirror.mu.Unlock()
}

func TestRouter_SecondTabKeepsViewerCounted(t *testing.T) {
	f := newFixture(t)
	a1 := f.connect(t, "userA")
	a2 := f.connect(t, "userA")
	stream := map[string]string{"streamId": "s1"}

	f.emit(a1, domain.EventJoinStream, stream)
	next(t, a1)
	f.emit(a2, domain.EventJoinStream, stream)
	for _, c := range []*hub.Client{a1, a2} {
		assert.Equal(t, 1, decode[domain.ViewerPayload](t, next(t, c)).ConcurrentViewers)
	}

	f.emit(a1, domain.EventLeaveStream, stream)
	fr := next(t, a2)
	require.Equal(t, domain.EventViewerLeft, fr.Event)
	assert.Equal(t, 1, decode[domain.ViewerPayload](t, fr).ConcurrentViewers)
	assert.Equal(t, 1, f.router.StreamViewers("s1"))
}

func TestRouter_DisconnectLeavesEveryRoom(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")
	b := f.connect(t, "userB")

	for _, s := range []string{"s1", "s2"} {
		f.emit(a, domain.EventJoinStream, map[string]string{"streamId": s})
		next(t, a)
		f.emit(b, domain.EventJoinStream, map[string]string{"streamId": s})
		next(t, a)
		next(t, b)
	}
	f.emit(a, domain.EventJoinMedia, map[string]string{"mediaId": "m1"})
	f.emit(a, domain.EventJoinChat, map[string]string{"otherUserId": "userB"})

	f.router.Disconnect(context.Background(), a.ID)
	f.router.Disconnect(context.Background(), a.ID)

	seen := map[string]int{}
	for i := 0; i < 2; i++ {
		fr := next(t, b)
		require.Equal(t, domain.EventViewerLeft, fr.Event)
		seen[decode[domain.ViewerPayload](t, fr).StreamID]++
	}
	assert.Equal(t, map[string]int{"s1": 1, "s2": 1}, seen)
	expectNone(t, b)

	assert.Empty(t, f.hub.Rooms().RoomsOf(a.ID))
	assert.Nil(t, f.hub.Registry().Get(a.ID))
	assert.Equal(t, 1, f.router.Stats().Connections)
}

func TestRouter_SendMessage(t *testing.T) {
	f := newFixture(t)
	a1 := f.connect(t, "userA")
	a2 := f.connect(t, "userA")
	b1 := f.connect(t, "userB")
	b2 := f.connect(t, "userB")

	f.emit(a1, domain.EventSendMessage, map[string]string{"recipientId": "userB", "content": "Shalom"})

	for _, c := range []*hub.Client{b1, b2} {
		fr := next(t, c)
		require.Equal(t, domain.EventNewMessage, fr.Event)
		p := decode[domain.NewMessagePayload](t, fr)
		assert.Equal(t, "Shalom", p.Content)
		assert.Equal(t, domain.ChatID("userA", "userB"), p.ChatID)
		assert.Equal(t, domain.DefaultMessageType, p.MessageType)
		assert.Equal(t, "userA", p.Sender.ID)
	}

	fr := next(t, a1)
	require.Equal(t, domain.EventMessageSent, fr.Event)
	sent := decode[domain.MessageSentPayload](t, fr)
	assert.Equal(t, "userB", sent.RecipientID)
	assert.NotEmpty(t, sent.MessageID)
	expectNone(t, a2)

	assert.Len(t, f.store.Messages(), 1)
	assert.Equal(t, []string{domain.EventNewMessage}, f.producer.types())
}

func TestRouter_SendMessageMissingRecipient(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")
	b := f.connect(t, "userB")

	f.emit(a, domain.EventSendMessage, map[string]string{"recipientId": "ghost", "content": "hello"})

	fr := next(t, a)
	require.Equal(t, domain.EventError, fr.Event)
	p := decode[domain.ErrorPayload](t, fr)
	assert.Equal(t, domain.CodeNotFound, p.Code)
	assert.Equal(t, domain.EventSendMessage, p.Event)

	expectNone(t, b)
	assert.Empty(t, f.store.Messages())
}

func TestRouter_TypingNeverEchoes(t *testing.T) {
	f := newFixture(t)
	a1 := f.connect(t, "userA")
	a2 := f.connect(t, "userA")
	b := f.connect(t, "userB")
	for _, c := range []*hub.Client{a1, a2, b} {
		f.emit(c, domain.EventJoinMedia, map[string]string{"mediaId": "m1"})
	}

	f.emit(a1, domain.EventTypingStart, map[string]string{"mediaId": "m1"})

	for _, c := range []*hub.Client{a2, b} {
		fr := next(t, c)
		require.Equal(t, domain.EventUserTyping, fr.Event)
		p := decode[domain.TypingPayload](t, fr)
		assert.True(t, p.IsTyping)
		assert.Equal(t, "userA", p.UserID)
	}
	expectNone(t, a1)

	f.emit(a1, domain.EventTypingStop, map[string]string{"mediaId": "m1"})
	assert.False(t, decode[domain.TypingPayload](t, next(t, b)).IsTyping)
	expectNone(t, a1)
}

func TestRouter_ChatTyping(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")
	b := f.connect(t, "userB")

	f.emit(a, domain.EventChatTypingStart, map[string]string{"recipientId": "userB"})

	fr := next(t, b)
	require.Equal(t, domain.EventUserTypingChat, fr.Event)
	p := decode[domain.ChatTypingPayload](t, fr)
	assert.True(t, p.IsTyping)
	assert.Equal(t, domain.ChatID("userA", "userB"), p.ChatID)
	expectNone(t, a)
}

func TestRouter_UserPresenceSkipsSender(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")
	b := f.connect(t, "userB")

	f.emit(a, domain.EventUserPresence, map[string]string{"status": "away"})

	fr := next(t, b)
	require.Equal(t, domain.EventUserPresence, fr.Event)
	assert.Equal(t, "away", decode[domain.PresencePayload](t, fr).Status)
	expectNone(t, a)
}

func TestRouter_StreamChatAndStatus(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")
	b := f.connect(t, "userB")
	f.emit(b, domain.EventJoinStream, map[string]string{"streamId": "s1"})
	next(t, b)

	f.emit(a, domain.EventStreamChat, map[string]string{"streamId": "s1", "content": "Hallelujah"})
	fr := next(t, b)
	require.Equal(t, domain.EventStreamChat, fr.Event)
	chat := decode[domain.StreamChatPayload](t, fr)
	assert.Equal(t, "Hallelujah", chat.Content)
	assert.NotEmpty(t, chat.MessageID)

	f.emit(a, domain.EventStreamStatus, map[string]string{"streamId": "s1", "status": "paused"})
	fr = next(t, b)
	require.Equal(t, domain.EventStreamStatus, fr.Event)
	st := decode[domain.StreamStatusPayload](t, fr)
	assert.Equal(t, "paused", st.Status)
	assert.Equal(t, "userA", st.UpdatedBy)

	f.mirror.mu.Lock()
	assert.Equal(t, "paused", f.mirror.status["s1"])
	f.mirror.mu.Unlock()
	assert.Equal(t, []string{domain.EventStreamChat}, f.producer.types())
}

func TestRouter_HandleStreamEvent(t *testing.T) {
	f := newFixture(t)
	b := f.connect(t, "userB")
	f.emit(b, domain.EventJoinStream, map[string]string{"streamId": "s1"})
	next(t, b)

	require.NoError(t, f.router.HandleStreamEvent(context.Background(), &kafka.StreamEvent{
		Type: kafka.EventStreamEnded, StreamID: "s1", BroadcasterID: "userA",
	}))

	fr := next(t, b)
	require.Equal(t, domain.EventStreamStatus, fr.Event)
	p := decode[domain.StreamStatusPayload](t, fr)
	assert.Equal(t, domain.StreamStatusEnded, p.Status)
	assert.Equal(t, "userA", p.UpdatedBy)

	assert.Error(t, f.router.HandleStreamEvent(context.Background(), &kafka.StreamEvent{Type: "bogus", StreamID: "s1"}))
}

func TestRouter_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	a := f.connect(t, "userA")

	cases := []struct {
		name  string
		raw   string
		event string
	}{
		{"malformed", `{not json`, ""},
		{"unknown event", `{"event":"fly","data":{}}`, "fly"},
		{"missing id", `{"event":"join-media","data":{}}`, domain.EventJoinMedia},
		{"colon in id", `{"event":"join-stream","data":{"streamId":"a:b"}}`, domain.EventJoinStream},
		{"empty comment", `{"event":"new-comment","data":{"mediaId":"m1","content":"   "}}`, domain.EventNewComment},
		{"bad action", `{"event":"media-reaction","data":{"mediaId":"m1","actionType":"poke"}}`, domain.EventMediaReaction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.router.Handle(context.Background(), a, []byte(tc.raw))
			fr := next(t, a)
			require.Equal(t, domain.EventError, fr.Event)
			p := decode[domain.ErrorPayload](t, fr)
			assert.Equal(t, domain.CodeValidation, p.Code)
			assert.Equal(t, tc.event, p.Event)
		})
	}
}

func TestRouter_PanicBecomesScopedError(t *testing.T) {
	f := newFixture(t)
	f.router.contents = panickingContents{}
	a := f.connect(t, "userA")
	b := f.connect(t, "userB")

	f.emit(a, domain.EventNewComment, map[string]string{"mediaId": "m1", "content": "Amen"})

	fr := next(t, a)
	require.Equal(t, domain.EventError, fr.Event)
	p := decode[domain.ErrorPayload](t, fr)
	assert.Equal(t, domain.CodeInternal, p.Code)
	assert.Equal(t, "Failed to process new-comment", p.Message)
	expectNone(t, b)

	flush(t, f, a)
}

func TestRouter_EvictionRunsDisconnectCascade(t *testing.T) {
	st := store.NewMemoryStore()
	h := hub.NewHub(hub.Config{SendBuffer: 1})
	r := NewRouter(h, Deps{Accounts: st, Contents: st, Interactions: st, Messages: st})
	go h.Run()
	t.Cleanup(h.Stop)

	watcher := r.NewClient(domain.Identity{UserID: "userB"}, hub.TransportWebSocket)
	slow := r.NewClient(domain.Identity{UserID: "userA"}, hub.TransportWebSocket)
	r.Connect(context.Background(), watcher)
	r.Connect(context.Background(), slow)
	<-watcher.Send

	// slow never drains, so its single slot stays occupied by the greeting.
	for i := 0; i < 3; i++ {
		require.NoError(t, h.ToUser("userA", domain.EventPong, domain.PongPayload{}))
	}

	assert.Eventually(t, func() bool {
		return h.Registry().Get(slow.ID) == nil
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, slow.Closed, time.Second, 10*time.Millisecond)
}

func TestRouter_ViewerCountsStayOrderedWhileMirrorStalls(t *testing.T) {
	rec := newRecordingMirror()
	mirror := &stallingMirror{
		recordingMirror: rec,
		stallAt:         2,
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	f := newFixtureWith(t, mirror, rec)

	observer := f.connect(t, "userO")
	a := f.connect(t, "userA")
	b := f.connect(t, "userB")

	f.emit(observer, domain.EventJoinStream, map[string]string{"streamId": "s1"})
	require.Equal(t, 1, decode[domain.ViewerPayload](t, next(t, observer)).ConcurrentViewers)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.emit(a, domain.EventJoinStream, map[string]string{"streamId": "s1"})
	}()
	<-mirror.entered

	go func() {
		defer wg.Done()
		f.emit(b, domain.EventJoinStream, map[string]string{"streamId": "s1"})
	}()
	require.Eventually(t, func() bool { return f.router.StreamViewers("s1") == 3 }, time.Second, 5*time.Millisecond)

	close(mirror.release)
	wg.Wait()

	first := decode[domain.ViewerPayload](t, next(t, observer))
	assert.Equal(t, "userA", first.UserID)
	assert.Equal(t, 2, first.ConcurrentViewers)

	second := decode[domain.ViewerPayload](t, next(t, observer))
	assert.Equal(t, "userB", second.UserID)
	assert.Equal(t, 3, second.ConcurrentViewers)

	assert.Equal(t, 3, rec.viewerCount("s1"))
}
