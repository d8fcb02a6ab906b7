package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

// Config tunes buffer sizes.
type Config struct {
	SendBuffer     int `mapstructure:"send_buffer"`
	BroadcastQueue int `mapstructure:"broadcast_queue"`
}

// StreamLeave is one stream a disconnected connection was viewing.
type StreamLeave struct {
	StreamID string
	Count    int
}

// Stats is a point-in-time view of the hub's tables.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Streams     int `json:"streams"`
}

// Hub owns the connection registry, room membership and viewer counts, and fans
// out encoded frames from a single Run goroutine.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	viewers  *Viewers

	// mu serializes compound changes that touch more than one table.
	mu sync.Mutex

	broadcast chan *outbound
	quit      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once

	sendBuffer     int
	onEvict        func(connID string)
	onViewerChange ViewerNotice
}

// ViewerNotice builds the frame announcing that c's user joined or left a stream.
// It runs under the hub lock, so frames for one stream are queued in the order the
// counts changed.
type ViewerNotice func(c *Client, streamID string, joined bool, count int) Delivery

type outbound struct {
	target  Target
	key     string
	data    []byte
	exclude string
}

type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

func NewHub(cfg Config) *Hub {
	queue := cfg.BroadcastQueue
	if queue <= 0 {
		queue = 1024
	}
	h := &Hub{
		registry:   NewRegistry(),
		rooms:      NewRooms(),
		viewers:    NewViewers(),
		broadcast:  make(chan *outbound, queue),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		sendBuffer: cfg.SendBuffer,
	}
	h.onEvict = func(connID string) { h.Disconnect(connID) }
	return h
}

// OnEvict replaces the handler called when a client's buffer is full.
// Must be set before Run.
func (h *Hub) OnEvict(fn func(connID string)) {
	h.onEvict = fn
}

// OnViewerChange sets the notice queued on every viewer join and leave.
// Must be set before Run.
func (h *Hub) OnViewerChange(fn ViewerNotice) {
	h.onViewerChange = fn
}

func (h *Hub) Registry() *Registry { return h.registry }
func (h *Hub) Rooms() *Rooms       { return h.rooms }
func (h *Hub) Viewers() *Viewers   { return h.viewers }

// NewClient creates a client with the hub's configured send buffer.
func (h *Hub) NewClient(id string, identity domain.Identity, transport string) *Client {
	return NewClient(id, identity, transport, h.sendBuffer)
}

// Register adds the client and joins it to its personal room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.registry.Add(c)
	h.rooms.Join(c.ID, domain.UserRoom(c.UserID()))

	l := log.L()
	l.Debug().Str(log.FieldConnID, c.ID).Str(log.FieldUserID, c.UserID()).Msg("client registered")
}

// Join adds a live connection to room. False means unknown connection or already a member.
func (h *Hub) Join(connID, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.registry.Get(connID) == nil {
		return false
	}
	return h.rooms.Join(connID, room)
}

// Leave removes a connection from room. False means it was not a member.
func (h *Hub) Leave(connID, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms.Leave(connID, room)
}

// JoinStream joins the stream room and counts the connection's user as a viewer.
// A connection already in the stream changes nothing and reports joined=false.
func (h *Hub) JoinStream(connID, streamID string) (count int, joined bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.registry.Get(connID)
	if c == nil {
		return h.viewers.Count(streamID), false
	}
	if !h.rooms.Join(connID, domain.StreamRoom(streamID)) {
		return h.viewers.Count(streamID), false
	}
	count, _ = h.viewers.Join(streamID, c.UserID())
	h.noticeLocked(c, streamID, true, count)
	return count, true
}

// LeaveStream is the inverse of JoinStream.
func (h *Hub) LeaveStream(connID, streamID string) (count int, left bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.registry.Get(connID)
	if c == nil {
		return h.viewers.Count(streamID), false
	}
	if !h.rooms.Leave(connID, domain.StreamRoom(streamID)) {
		return h.viewers.Count(streamID), false
	}
	count, _ = h.viewers.Leave(streamID, c.UserID())
	h.noticeLocked(c, streamID, false, count)
	return count, true
}

// Disconnect unregisters the connection and removes it from every room. It returns
// the streams the connection was viewing with their updated counts. Calling it again
// for the same id returns nil.
func (h *Hub) Disconnect(connID string) (*Client, []StreamLeave) {
	h.mu.Lock()
	c, ok := h.registry.Remove(connID)
	if !ok {
		h.mu.Unlock()
		return nil, nil
	}

	var leaves []StreamLeave
	for _, room := range h.rooms.LeaveAll(connID) {
		streamID, ok := domain.StreamIDOf(room)
		if !ok {
			continue
		}
		count, _ := h.viewers.Leave(streamID, c.UserID())
		h.noticeLocked(c, streamID, false, count)
		leaves = append(leaves, StreamLeave{StreamID: streamID, Count: count})
	}
	h.mu.Unlock()

	c.closeSend()

	l := log.L()
	l.Debug().Str(log.FieldConnID, connID).Int("streams", len(leaves)).Msg("client unregistered")
	return c, leaves
}

// noticeLocked queues the viewer notice for a change made under h.mu. Run never
// takes h.mu, so a full queue only delays the caller.
func (h *Hub) noticeLocked(c *Client, streamID string, joined bool, count int) {
	if h.onViewerChange == nil {
		return
	}
	if err := h.queue(h.onViewerChange(c, streamID, joined, count)); err != nil && !errors.Is(err, errStopped) {
		l := log.L()
		l.Error().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to queue viewer notice")
	}
}

// UserConnections returns how many connections a user has open.
func (h *Hub) UserConnections(userID string) int {
	return len(h.registry.ByUser(userID))
}

func (h *Hub) Stats() Stats {
	return Stats{
		Connections: h.registry.Count(),
		Rooms:       h.rooms.RoomCount(),
		Streams:     len(h.viewers.Snapshot()),
	}
}

// ToRoom delivers to every member of room except the excluded connection.
func (h *Hub) ToRoom(room, event string, payload interface{}, exclude string) error {
	return h.Deliver(Room(room, event, payload).Except(exclude))
}

// ToUser delivers to every connection of userID.
func (h *Hub) ToUser(userID, event string, payload interface{}) error {
	return h.Deliver(User(userID, event, payload))
}

// ToAll delivers to every registered connection except the excluded one.
func (h *Hub) ToAll(event string, payload interface{}, exclude string) error {
	return h.Deliver(Everyone(event, payload).Except(exclude))
}

// ToClient delivers to a single connection.
func (h *Hub) ToClient(connID, event string, payload interface{}) error {
	return h.Deliver(Direct(connID, event, payload))
}

// Deliver encodes each delivery once and queues it for fan-out, in order.
// It does not wait for the frames to reach the clients.
func (h *Hub) Deliver(ds ...Delivery) error {
	var errs []error
	for _, d := range ds {
		if err := h.queue(d); err != nil {
			if errors.Is(err, errStopped) {
				break
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var errStopped = errors.New("hub stopped")

func (h *Hub) queue(d Delivery) error {
	data, err := Encode(d.Event, d.Payload)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- &outbound{target: d.Target, key: d.Key, data: data, exclude: d.Exclude}:
		return nil
	case <-h.quit:
		return errStopped
	}
}

// Encode builds a wire frame.
func Encode(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", event, err)
	}
	return data, nil
}

// Run fans out queued frames until Stop is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case msg := <-h.broadcast:
			h.fanOut(msg)

		case <-h.quit:
			for _, c := range h.registry.clientsSnapshot() {
				c.closeSend()
			}
			return
		}
	}
}

func (h *Hub) fanOut(msg *outbound) {
	var ids []string
	switch msg.target {
	case TargetRoom:
		ids = h.rooms.Members(msg.key)
	case TargetAll:
		ids = h.registry.All()
	case TargetClient:
		ids = []string{msg.key}
	}

	for _, id := range ids {
		if id == msg.exclude {
			continue
		}
		c := h.registry.Get(id)
		if c == nil {
			continue
		}
		if c.trySend(msg.data) {
			continue
		}
		if c.Closed() || !c.evicting.CompareAndSwap(false, true) {
			continue
		}
		l := log.L()
		l.Warn().Str(log.FieldConnID, id).Msg("send buffer full, evicting client")
		go h.onEvict(id)
	}
}

// Stop ends Run and closes every client's send channel. Run must have been started.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
	<-h.done
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
