package domain

import "time"

// Outbound event names.
const (
	EventConnected      = "connected"
	EventViewerJoined   = "viewer-joined"
	EventViewerLeft     = "viewer-left"
	EventUserTyping     = "user-typing"
	EventNewMessage     = "new-message"
	EventMessageSent    = "message-sent"
	EventUserTypingChat = "user-typing-chat"
	EventPong           = "pong"
	EventError          = "error"
)

// Stream statuses set by the media pipeline.
const (
	StreamStatusLive  = "live"
	StreamStatusEnded = "ended"
)

type ConnectedPayload struct {
	ConnectionID string     `json:"connectionId"`
	User         PublicUser `json:"user"`
}

type ViewerPayload struct {
	StreamID          string     `json:"streamId"`
	UserID            string     `json:"userId"`
	User              PublicUser `json:"user"`
	ConcurrentViewers int        `json:"concurrentViewers"`
	Timestamp         time.Time  `json:"timestamp"`
}

type CommentPayload struct {
	CommentID       string     `json:"commentId"`
	MediaID         string     `json:"mediaId"`
	Content         string     `json:"content"`
	ParentCommentID string     `json:"parentCommentId,omitempty"`
	User            PublicUser `json:"user"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type ContentCommentPayload struct {
	CommentID       string      `json:"commentId"`
	ContentType     ContentType `json:"contentType"`
	ContentID       string      `json:"contentId"`
	Content         string      `json:"content"`
	ParentCommentID string      `json:"parentCommentId,omitempty"`
	User            PublicUser  `json:"user"`
	CreatedAt       time.Time   `json:"createdAt"`
}

type CommentReactionPayload struct {
	CommentID    string     `json:"commentId"`
	MediaID      string     `json:"mediaId"`
	ReactionType string     `json:"reactionType"`
	Count        int64      `json:"count"`
	User         PublicUser `json:"user"`
	Timestamp    time.Time  `json:"timestamp"`
}

// MediaReactionPayload carries Liked only for like toggles.
type MediaReactionPayload struct {
	MediaID    string     `json:"mediaId"`
	ActionType ActionType `json:"actionType"`
	Liked      *bool      `json:"liked,omitempty"`
	Count      int64      `json:"count"`
	User       PublicUser `json:"user"`
	Timestamp  time.Time  `json:"timestamp"`
}

type ContentReactionPayload struct {
	ContentType ContentType `json:"contentType"`
	ContentID   string      `json:"contentId"`
	ActionType  ActionType  `json:"actionType"`
	Liked       *bool       `json:"liked,omitempty"`
	Count       int64       `json:"count"`
	User        PublicUser  `json:"user"`
	Timestamp   time.Time   `json:"timestamp"`
}

type TypingPayload struct {
	MediaID  string     `json:"mediaId"`
	UserID   string     `json:"userId"`
	User     PublicUser `json:"user"`
	IsTyping bool       `json:"isTyping"`
}

type PresencePayload struct {
	UserID    string     `json:"userId"`
	User      PublicUser `json:"user"`
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

type StreamChatPayload struct {
	MessageID string     `json:"messageId"`
	StreamID  string     `json:"streamId"`
	Content   string     `json:"content"`
	User      PublicUser `json:"user"`
	Timestamp time.Time  `json:"timestamp"`
}

type StreamStatusPayload struct {
	StreamID  string    `json:"streamId"`
	Status    string    `json:"status"`
	UpdatedBy string    `json:"updatedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type NewMessagePayload struct {
	MessageID   string     `json:"messageId"`
	ChatID      string     `json:"chatId"`
	SenderID    string     `json:"senderId"`
	RecipientID string     `json:"recipientId"`
	Content     string     `json:"content"`
	MessageType string     `json:"messageType"`
	MediaURL    string     `json:"mediaUrl,omitempty"`
	ReplyTo     string     `json:"replyTo,omitempty"`
	Sender      PublicUser `json:"sender"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type MessageSentPayload struct {
	MessageID   string    `json:"messageId"`
	RecipientID string    `json:"recipientId"`
	ChatID      string    `json:"chatId"`
	Timestamp   time.Time `json:"timestamp"`
}

type ChatTypingPayload struct {
	UserID   string     `json:"userId"`
	User     PublicUser `json:"user"`
	IsTyping bool       `json:"isTyping"`
	ChatID   string     `json:"chatId"`
}

type PongPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload is the scoped error sent only to the originating connection.
type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// InteractionEvent is published to the event sink for downstream consumers.
type InteractionEvent struct {
	Type      string      `json:"type"`
	Room      string      `json:"room"`
	UserID    string      `json:"userId"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}
