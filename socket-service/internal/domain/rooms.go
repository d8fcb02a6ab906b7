package domain

import "strings"

// Room kinds.
const (
	RoomMedia   = "media"
	RoomContent = "content"
	RoomStream  = "stream"
	RoomChat    = "chat"
	RoomUser    = "user"
)

// ContentType is the kind of content a generic content room is about.
type ContentType string

const (
	ContentMedia      ContentType = "media"
	ContentDevotional ContentType = "devotional"
	ContentArtist     ContentType = "artist"
	ContentMerch      ContentType = "merch"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentMedia, ContentDevotional, ContentArtist, ContentMerch:
		return true
	}
	return false
}

func MediaRoom(mediaID string) string { return RoomMedia + ":" + mediaID }

func ContentRoom(t ContentType, contentID string) string {
	return RoomContent + ":" + string(t) + ":" + contentID
}

func StreamRoom(streamID string) string { return RoomStream + ":" + streamID }

func UserRoom(userID string) string { return RoomUser + ":" + userID }

// ChatID is the order-independent identifier of the conversation between two users.
func ChatID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// ChatRoom returns the private chat room for a pair of users. ChatRoom(a, b) == ChatRoom(b, a).
func ChatRoom(a, b string) string { return RoomChat + ":" + ChatID(a, b) }

// ParseRoom splits a room key into its kind and target parts.
func ParseRoom(key string) (kind string, parts []string, ok bool) {
	fields := strings.Split(key, ":")
	if len(fields) < 2 {
		return "", nil, false
	}

	kind, parts = fields[0], fields[1:]
	for _, p := range parts {
		if p == "" {
			return "", nil, false
		}
	}

	switch kind {
	case RoomMedia, RoomStream, RoomUser:
		ok = len(parts) == 1
	case RoomContent:
		ok = len(parts) == 2 && ContentType(parts[0]).Valid()
	case RoomChat:
		ok = len(parts) == 2
	}
	if !ok {
		return "", nil, false
	}
	return kind, parts, true
}

// StreamIDOf returns the stream id when key is a stream room.
func StreamIDOf(key string) (string, bool) {
	kind, parts, ok := ParseRoom(key)
	if !ok || kind != RoomStream {
		return "", false
	}
	return parts[0], true
}
