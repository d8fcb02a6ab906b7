package hub

import "github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"

// Target selects how a delivery resolves its recipients.
type Target int

const (
	TargetRoom Target = iota
	TargetAll
	TargetClient
)

// Delivery is one outbound event addressed to a set of connections.
type Delivery struct {
	Target  Target
	Key     string // room key for TargetRoom, connection id for TargetClient
	Event   string
	Payload interface{}
	Exclude string
}

// Except returns a copy of d that skips the given connection.
func (d Delivery) Except(connID string) Delivery {
	d.Exclude = connID
	return d
}

// Room addresses every member of a room.
func Room(room, event string, payload interface{}) Delivery {
	return Delivery{Target: TargetRoom, Key: room, Event: event, Payload: payload}
}

// User addresses every connection of a user through their personal room.
func User(userID, event string, payload interface{}) Delivery {
	return Room(domain.UserRoom(userID), event, payload)
}

// Everyone addresses every registered connection.
func Everyone(event string, payload interface{}) Delivery {
	return Delivery{Target: TargetAll, Event: event, Payload: payload}
}

// Direct addresses a single connection.
func Direct(connID, event string, payload interface{}) Delivery {
	return Delivery{Target: TargetClient, Key: connID, Event: event, Payload: payload}
}
