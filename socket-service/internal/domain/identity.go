package domain

import "time"

// Identity is the authenticated user attached to a connection for its whole lifetime.
type Identity struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// PublicUser is the author object embedded in broadcast payloads.
// Role and email never leave the server.
type PublicUser struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Public returns the broadcast-safe view of the identity.
func (i Identity) Public() PublicUser {
	return PublicUser{ID: i.UserID, FirstName: i.FirstName, LastName: i.LastName}
}

// Account is the user-account collaborator's record.
type Account struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// Identity converts the account into a connection identity.
func (a *Account) Identity() Identity {
	return Identity{
		UserID:    a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
	}
}

// Content identifies a piece of content that can be commented on or reacted to.
type Content struct {
	Type ContentType
	ID   string
}

// Comment is a persisted comment on a piece of content.
type Comment struct {
	ID          string
	ContentType ContentType
	ContentID   string
	UserID      string
	Content     string
	ParentID    string
	CreatedAt   time.Time
}

// Room returns the room the comment's content broadcasts to.
func (c *Comment) Room() string {
	if c.ContentType == ContentMedia {
		return MediaRoom(c.ContentID)
	}
	return ContentRoom(c.ContentType, c.ContentID)
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked bool
	Count int64
}

// Message is a persisted private message.
type Message struct {
	ID          string
	ChatID      string
	SenderID    string
	RecipientID string
	Content     string
	MessageType string
	MediaURL    string
	ReplyTo     string
	CreatedAt   time.Time
}
