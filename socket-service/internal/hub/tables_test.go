package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Add(NewClient("c1", domain.Identity{UserID: "u1"}, TransportWebSocket, 1))
	r.Add(NewClient("c2", domain.Identity{UserID: "u1"}, TransportPolling, 1))

	assert.Equal(t, 2, r.Count())
	assert.ElementsMatch(t, []string{"c1", "c2"}, r.ByUser("u1"))
	assert.ElementsMatch(t, []string{"c1", "c2"}, r.All())

	c, ok := r.Remove("c1")
	assert.True(t, ok)
	assert.Equal(t, "c1", c.ID)

	_, ok = r.Remove("c1")
	assert.False(t, ok)

	r.Remove("c2")
	assert.Empty(t, r.ByUser("u1"))
	assert.Nil(t, r.Get("c2"))
}

func TestRooms_LastOperationWins(t *testing.T) {
	ops := [][]bool{
		{true},
		{true, true},
		{true, false},
		{false, true},
		{true, true, false, false},
		{false, false, true, true, true},
		{true, false, true, false, true},
	}

	for _, seq := range ops {
		r := NewRooms()
		for _, join := range seq {
			if join {
				r.Join("c1", "media:m1")
			} else {
				r.Leave("c1", "media:m1")
			}
		}
		assert.Equal(t, seq[len(seq)-1], r.Has("c1", "media:m1"), "sequence %v", seq)
		if !seq[len(seq)-1] {
			assert.Equal(t, 0, r.RoomCount(), "empty rooms are dropped")
		}
	}
}

func TestRooms_LeaveAll(t *testing.T) {
	r := NewRooms()
	r.Join("c1", "media:m1")
	r.Join("c1", "stream:s1")
	r.Join("c2", "media:m1")

	assert.ElementsMatch(t, []string{"media:m1", "stream:s1"}, r.RoomsOf("c1"))
	assert.ElementsMatch(t, []string{"media:m1", "stream:s1"}, r.LeaveAll("c1"))
	assert.Empty(t, r.RoomsOf("c1"))
	assert.Equal(t, []string{"c2"}, r.Members("media:m1"))
	assert.Equal(t, 1, r.RoomCount())
	assert.Empty(t, r.LeaveAll("c1"))
}

func TestViewers_RefCount(t *testing.T) {
	v := NewViewers()

	count, first := v.Join("s1", "u1")
	assert.Equal(t, 1, count)
	assert.True(t, first)

	count, first = v.Join("s1", "u1")
	assert.Equal(t, 1, count)
	assert.False(t, first)

	v.Join("s1", "u2")
	assert.Equal(t, map[string]int{"s1": 2}, v.Snapshot())

	count, removed := v.Leave("s1", "u1")
	assert.Equal(t, 2, count)
	assert.False(t, removed)

	count, removed = v.Leave("s1", "u1")
	assert.Equal(t, 1, count)
	assert.True(t, removed)

	count, removed = v.Leave("s1", "nobody")
	assert.Equal(t, 1, count)
	assert.False(t, removed)

	v.Leave("s1", "u2")
	assert.Equal(t, 0, v.Count("s1"))
	assert.Empty(t, v.Snapshot())

	count, removed = v.Leave("missing", "u1")
	assert.Equal(t, 0, count)
	assert.False(t, removed)
}
