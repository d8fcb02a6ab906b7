package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Inbound event names.
const (
	EventJoinMedia       = "join-media"
	EventLeaveMedia      = "leave-media"
	EventJoinContent     = "join-content"
	EventLeaveContent    = "leave-content"
	EventJoinStream      = "join-stream"
	EventLeaveStream     = "leave-stream"
	EventNewComment      = "new-comment"
	EventCommentReaction = "comment-reaction"
	EventMediaReaction   = "media-reaction"
	EventContentReaction = "content-reaction"
	EventContentComment  = "content-comment"
	EventTypingStart     = "typing-start"
	EventTypingStop      = "typing-stop"
	EventUserPresence    = "user-presence"
	EventStreamChat      = "stream-chat"
	EventStreamStatus    = "stream-status"
	EventSendMessage     = "send-message"
	EventJoinChat        = "join-chat"
	EventLeaveChat       = "leave-chat"
	EventChatTypingStart = "chat-typing-start"
	EventChatTypingStop  = "chat-typing-stop"
	EventPing            = "ping"
)

// ActionType is a reaction a user can apply to content.
type ActionType string

const (
	ActionLike     ActionType = "like"
	ActionShare    ActionType = "share"
	ActionFavorite ActionType = "favorite"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionLike, ActionShare, ActionFavorite:
		return true
	}
	return false
}

// Frame is the wire envelope shared by inbound and outbound events.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ParseFrame decodes the envelope without looking at the payload.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, NewValidationError("", "malformed frame")
	}
	if f.Event == "" {
		return Frame{}, NewValidationError("event", "is required")
	}
	return f, nil
}

// Inbound is implemented by every client event. The set is closed.
type Inbound interface {
	EventName() string
	validate() error
}

type JoinMedia struct {
	MediaID string `json:"mediaId"`
}

type LeaveMedia struct {
	MediaID string `json:"mediaId"`
}

type JoinContent struct {
	ContentType ContentType `json:"contentType"`
	ContentID   string      `json:"contentId"`
}

type LeaveContent struct {
	ContentType ContentType `json:"contentType"`
	ContentID   string      `json:"contentId"`
}

type JoinStream struct {
	StreamID string `json:"streamId"`
}

type LeaveStream struct {
	StreamID string `json:"streamId"`
}

type NewComment struct {
	MediaID         string `json:"mediaId"`
	Content         string `json:"content"`
	ParentCommentID string `json:"parentCommentId,omitempty"`
}

type CommentReaction struct {
	CommentID    string `json:"commentId"`
	ReactionType string `json:"reactionType"`
}

type MediaReaction struct {
	MediaID    string     `json:"mediaId"`
	ActionType ActionType `json:"actionType"`
}

type ContentReaction struct {
	ContentType ContentType `json:"contentType"`
	ContentID   string      `json:"contentId"`
	ActionType  ActionType  `json:"actionType"`
}

type ContentComment struct {
	ContentType     ContentType `json:"contentType"`
	ContentID       string      `json:"contentId"`
	Content         string      `json:"content"`
	ParentCommentID string      `json:"parentCommentId,omitempty"`
}

// Typing covers typing-start and typing-stop.
type Typing struct {
	MediaID string `json:"mediaId"`
	Start   bool   `json:"-"`
}

type UserPresence struct {
	Status string `json:"status"`
}

type StreamChat struct {
	StreamID string `json:"streamId"`
	Content  string `json:"content"`
}

type StreamStatus struct {
	StreamID string `json:"streamId"`
	Status   string `json:"status"`
}

type SendMessage struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType,omitempty"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	ReplyTo     string `json:"replyTo,omitempty"`
}

type JoinChat struct {
	OtherUserID string `json:"otherUserId"`
}

type LeaveChat struct {
	OtherUserID string `json:"otherUserId"`
}

// ChatTyping covers chat-typing-start and chat-typing-stop.
type ChatTyping struct {
	RecipientID string `json:"recipientId"`
	Start       bool   `json:"-"`
}

type Ping struct{}

func (*JoinMedia) EventName() string       { return EventJoinMedia }
func (*LeaveMedia) EventName() string      { return EventLeaveMedia }
func (*JoinContent) EventName() string     { return EventJoinContent }
func (*LeaveContent) EventName() string    { return EventLeaveContent }
func (*JoinStream) EventName() string      { return EventJoinStream }
func (*LeaveStream) EventName() string     { return EventLeaveStream }
func (*NewComment) EventName() string      { return EventNewComment }
func (*CommentReaction) EventName() string { return EventCommentReaction }
func (*MediaReaction) EventName() string   { return EventMediaReaction }
func (*ContentReaction) EventName() string { return EventContentReaction }
func (*ContentComment) EventName() string  { return EventContentComment }
func (*UserPresence) EventName() string    { return EventUserPresence }
func (*StreamChat) EventName() string      { return EventStreamChat }
func (*StreamStatus) EventName() string    { return EventStreamStatus }
func (*SendMessage) EventName() string     { return EventSendMessage }
func (*JoinChat) EventName() string        { return EventJoinChat }
func (*LeaveChat) EventName() string       { return EventLeaveChat }
func (*Ping) EventName() string            { return EventPing }

func (e *Typing) EventName() string {
	if e.Start {
		return EventTypingStart
	}
	return EventTypingStop
}

func (e *ChatTyping) EventName() string {
	if e.Start {
		return EventChatTypingStart
	}
	return EventChatTypingStop
}

func (e *JoinMedia) validate() error  { return ValidateID("mediaId", e.MediaID) }
func (e *LeaveMedia) validate() error { return ValidateID("mediaId", e.MediaID) }

func (e *JoinContent) validate() error {
	if err := validateContentType(e.ContentType); err != nil {
		return err
	}
	return ValidateID("contentId", e.ContentID)
}

func (e *LeaveContent) validate() error {
	if err := validateContentType(e.ContentType); err != nil {
		return err
	}
	return ValidateID("contentId", e.ContentID)
}

func (e *JoinStream) validate() error  { return ValidateID("streamId", e.StreamID) }
func (e *LeaveStream) validate() error { return ValidateID("streamId", e.StreamID) }

func (e *NewComment) validate() error {
	if err := ValidateID("mediaId", e.MediaID); err != nil {
		return err
	}
	if e.ParentCommentID != "" {
		if err := ValidateID("parentCommentId", e.ParentCommentID); err != nil {
			return err
		}
	}
	content, err := NormalizeText("content", e.Content, MaxContentLength)
	if err != nil {
		return err
	}
	e.Content = content
	return nil
}

func (e *CommentReaction) validate() error {
	if err := ValidateID("commentId", e.CommentID); err != nil {
		return err
	}
	return ValidateToken("reactionType", e.ReactionType)
}

func (e *MediaReaction) validate() error {
	if err := ValidateID("mediaId", e.MediaID); err != nil {
		return err
	}
	return validateAction(e.ActionType)
}

func (e *ContentReaction) validate() error {
	if err := validateContentType(e.ContentType); err != nil {
		return err
	}
	if err := ValidateID("contentId", e.ContentID); err != nil {
		return err
	}
	return validateAction(e.ActionType)
}

func (e *ContentComment) validate() error {
	if err := validateContentType(e.ContentType); err != nil {
		return err
	}
	if err := ValidateID("contentId", e.ContentID); err != nil {
		return err
	}
	if e.ParentCommentID != "" {
		if err := ValidateID("parentCommentId", e.ParentCommentID); err != nil {
			return err
		}
	}
	content, err := NormalizeText("content", e.Content, MaxContentLength)
	if err != nil {
		return err
	}
	e.Content = content
	return nil
}

func (e *Typing) validate() error       { return ValidateID("mediaId", e.MediaID) }
func (e *UserPresence) validate() error { return ValidateToken("status", e.Status) }

func (e *StreamChat) validate() error {
	if err := ValidateID("streamId", e.StreamID); err != nil {
		return err
	}
	content, err := NormalizeText("content", e.Content, MaxStreamChatLength)
	if err != nil {
		return err
	}
	e.Content = content
	return nil
}

func (e *StreamStatus) validate() error {
	if err := ValidateID("streamId", e.StreamID); err != nil {
		return err
	}
	return ValidateToken("status", e.Status)
}

func (e *SendMessage) validate() error {
	if err := ValidateID("recipientId", e.RecipientID); err != nil {
		return err
	}
	if e.MessageType == "" {
		e.MessageType = DefaultMessageType
	} else if err := ValidateToken("messageType", e.MessageType); err != nil {
		return err
	}
	if len(e.MediaURL) > MaxMediaURLLength {
		return NewValidationError("mediaUrl", "is too long")
	}
	if e.ReplyTo != "" {
		if err := ValidateID("replyTo", e.ReplyTo); err != nil {
			return err
		}
	}
	// Media messages may carry only an attachment.
	if e.MediaURL != "" && strings.TrimSpace(e.Content) == "" {
		e.Content = ""
		return nil
	}
	content, err := NormalizeText("content", e.Content, MaxContentLength)
	if err != nil {
		return err
	}
	e.Content = content
	return nil
}

func (e *JoinChat) validate() error   { return ValidateID("otherUserId", e.OtherUserID) }
func (e *LeaveChat) validate() error  { return ValidateID("otherUserId", e.OtherUserID) }
func (e *ChatTyping) validate() error { return ValidateID("recipientId", e.RecipientID) }
func (*Ping) validate() error         { return nil }

func validateAction(a ActionType) error {
	if a == "" {
		return NewValidationError("actionType", "is required")
	}
	if !a.Valid() {
		return NewValidationError("actionType", "is not supported")
	}
	return nil
}

// Decode parses a raw inbound frame into a typed, validated event.
func Decode(raw []byte) (Inbound, error) {
	f, err := ParseFrame(raw)
	if err != nil {
		return nil, err
	}
	return DecodeFrame(f)
}

// DecodeFrame decodes and validates the payload of an already parsed frame.
func DecodeFrame(f Frame) (Inbound, error) {
	var in Inbound
	switch f.Event {
	case EventJoinMedia:
		in = &JoinMedia{}
	case EventLeaveMedia:
		in = &LeaveMedia{}
	case EventJoinContent:
		in = &JoinContent{}
	case EventLeaveContent:
		in = &LeaveContent{}
	case EventJoinStream:
		in = &JoinStream{}
	case EventLeaveStream:
		in = &LeaveStream{}
	case EventNewComment:
		in = &NewComment{}
	case EventCommentReaction:
		in = &CommentReaction{}
	case EventMediaReaction:
		in = &MediaReaction{}
	case EventContentReaction:
		in = &ContentReaction{}
	case EventContentComment:
		in = &ContentComment{}
	case EventTypingStart:
		in = &Typing{Start: true}
	case EventTypingStop:
		in = &Typing{}
	case EventUserPresence:
		in = &UserPresence{}
	case EventStreamChat:
		in = &StreamChat{}
	case EventStreamStatus:
		in = &StreamStatus{}
	case EventSendMessage:
		in = &SendMessage{}
	case EventJoinChat:
		in = &JoinChat{}
	case EventLeaveChat:
		in = &LeaveChat{}
	case EventChatTypingStart:
		in = &ChatTyping{Start: true}
	case EventChatTypingStop:
		in = &ChatTyping{}
	case EventPing:
		in = &Ping{}
	default:
		return nil, NewValidationError("event", "unknown event "+f.Event)
	}

	if data := bytes.TrimSpace(f.Data); len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		if err := json.Unmarshal(data, in); err != nil {
			return nil, NewValidationError("data", "malformed payload")
		}
	}

	if err := in.validate(); err != nil {
		return nil, err
	}
	return in, nil
}
