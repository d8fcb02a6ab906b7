package hub

import "sync"

// Viewers counts distinct users per stream. Each user carries a refcount of the
// connections that joined the stream, so a second tab keeps the user counted.
type Viewers struct {
	mu      sync.Mutex
	streams map[string]map[string]int // stream id -> user id -> live connections
}

func NewViewers() *Viewers {
	return &Viewers{streams: make(map[string]map[string]int)}
}

// Join records one more connection of userID on streamID. firstForUser reports
// whether the user was not counted before.
func (v *Viewers) Join(streamID, userID string) (count int, firstForUser bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	users, ok := v.streams[streamID]
	if !ok {
		users = make(map[string]int)
		v.streams[streamID] = users
	}
	users[userID]++
	return len(users), users[userID] == 1
}

// Leave drops one connection of userID from streamID. removed reports whether the
// user left the viewer set (their last connection went away).
func (v *Viewers) Leave(streamID, userID string) (count int, removed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	users, ok := v.streams[streamID]
	if !ok {
		return 0, false
	}
	refs, ok := users[userID]
	if !ok {
		return len(users), false
	}

	if refs <= 1 {
		delete(users, userID)
		removed = true
	} else {
		users[userID] = refs - 1
	}

	count = len(users)
	if count == 0 {
		delete(v.streams, streamID)
	}
	return count, removed
}

func (v *Viewers) Count(streamID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.streams[streamID])
}

// Snapshot returns the viewer count of every stream with at least one viewer.
func (v *Viewers) Snapshot() map[string]int {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[string]int, len(v.streams))
	for id, users := range v.streams {
		out[id] = len(users)
	}
	return out
}
