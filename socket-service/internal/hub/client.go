package hub

import (
	"sync"
	"sync/atomic"

	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

// Transport kinds.
const (
	TransportWebSocket = "websocket"
	TransportPolling   = "polling"
)

// Client is one authenticated connection. The transport owns the network side;
// the hub only writes encoded frames into Send.
type Client struct {
	ID        string
	Identity  domain.Identity
	Transport string
	Send      chan []byte

	mu       sync.Mutex
	closed   bool
	evicting atomic.Bool
}

func NewClient(id string, identity domain.Identity, transport string, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Client{
		ID:        id,
		Identity:  identity,
		Transport: transport,
		Send:      make(chan []byte, bufferSize),
	}
}

// UserID is a shorthand for the identity's user id.
func (c *Client) UserID() string {
	return c.Identity.UserID
}

// trySend queues a frame without blocking. It reports false when the buffer is
// full or the client is already closed.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes Send once; transports drain it and then close the network side.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Closed reports whether the hub has released the client.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
