package hub

import "sync"

// Rooms is the many-to-many membership table between connections and room keys.
// Empty rooms are dropped.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // room -> conn ids
	joined  map[string]map[string]struct{} // conn id -> rooms
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join adds connID to room. It returns false when the connection was already a member.
func (r *Rooms) Join(connID, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.members[room]
	if !ok {
		conns = make(map[string]struct{})
		r.members[room] = conns
	}
	if _, ok := conns[connID]; ok {
		return false
	}
	conns[connID] = struct{}{}

	rooms, ok := r.joined[connID]
	if !ok {
		rooms = make(map[string]struct{})
		r.joined[connID] = rooms
	}
	rooms[room] = struct{}{}
	return true
}

// Leave removes connID from room. It returns false when the connection was not a member.
func (r *Rooms) Leave(connID, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(connID, room)
}

func (r *Rooms) leaveLocked(connID, room string) bool {
	conns, ok := r.members[room]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.members, room)
	}

	if rooms, ok := r.joined[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.joined, connID)
		}
	}
	return true
}

// LeaveAll removes connID from every room and returns the rooms it was in.
func (r *Rooms) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := make([]string, 0, len(r.joined[connID]))
	for room := range r.joined[connID] {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		r.leaveLocked(connID, room)
	}
	return rooms
}

// Members returns a snapshot of the room's connection ids.
func (r *Rooms) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.members[room]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}

func (r *Rooms) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.joined[connID]))
	for room := range r.joined[connID] {
		rooms = append(rooms, room)
	}
	return rooms
}

func (r *Rooms) Has(connID, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[room][connID]
	return ok
}

func (r *Rooms) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Rooms) MemberCount(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}
