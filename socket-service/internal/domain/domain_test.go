package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRoom_OrderIndependent(t *testing.T) {
	assert.Equal(t, ChatRoom("alice", "bob"), ChatRoom("bob", "alice"))
	assert.Equal(t, "chat:alice:bob", ChatRoom("bob", "alice"))
	assert.Equal(t, "chat:u1:u1", ChatRoom("u1", "u1"))
}

func TestRoomKeys(t *testing.T) {
	assert.Equal(t, "media:m1", MediaRoom("m1"))
	assert.Equal(t, "content:devotional:d1", ContentRoom(ContentDevotional, "d1"))
	assert.Equal(t, "stream:s1", StreamRoom("s1"))
	assert.Equal(t, "user:u1", UserRoom("u1"))
}

func TestParseRoom(t *testing.T) {
	tests := []struct {
		key   string
		kind  string
		parts []string
		ok    bool
	}{
		{"media:m1", RoomMedia, []string{"m1"}, true},
		{"content:artist:a1", RoomContent, []string{"artist", "a1"}, true},
		{"content:podcast:a1", "", nil, false},
		{"stream:s1", RoomStream, []string{"s1"}, true},
		{"chat:a:b", RoomChat, []string{"a", "b"}, true},
		{"user:u1", RoomUser, []string{"u1"}, true},
		{"user:", "", nil, false},
		{"media", "", nil, false},
		{"game:g1", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			kind, parts, ok := ParseRoom(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.parts, parts)
		})
	}

	id, ok := StreamIDOf("stream:s9")
	assert.True(t, ok)
	assert.Equal(t, "s9", id)
	_, ok = StreamIDOf("media:s9")
	assert.False(t, ok)
}

func TestDecode(t *testing.T) {
	in, err := Decode([]byte(`{"event":"new-comment","data":{"mediaId":"m1","content":"  Amen  "}}`))
	require.NoError(t, err)
	c, ok := in.(*NewComment)
	require.True(t, ok)
	assert.Equal(t, "m1", c.MediaID)
	assert.Equal(t, "Amen", c.Content)

	in, err = Decode([]byte(`{"event":"typing-start","data":{"mediaId":"m1"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventTypingStart, in.EventName())
	assert.True(t, in.(*Typing).Start)

	in, err = Decode([]byte(`{"event":"ping"}`))
	require.NoError(t, err)
	assert.IsType(t, &Ping{}, in)

	in, err = Decode([]byte(`{"event":"send-message","data":{"recipientId":"u2","content":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultMessageType, in.(*SendMessage).MessageType)
}

func TestDecode_MediaOnlyMessage(t *testing.T) {
	for _, content := range []string{"", "   ", `\n\t`} {
		raw := `{"event":"send-message","data":{"recipientId":"u2","messageType":"image","mediaUrl":"https://cdn.jevah.app/a.png","content":"` + content + `"}}`
		in, err := Decode([]byte(raw))
		require.NoError(t, err, "content %q", content)
		m := in.(*SendMessage)
		assert.Empty(t, m.Content)
		assert.Equal(t, "https://cdn.jevah.app/a.png", m.MediaURL)
	}

	_, err := Decode([]byte(`{"event":"send-message","data":{"recipientId":"u2","content":"   "}}`))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `nope`},
		{"missing event", `{"data":{}}`},
		{"unknown event", `{"event":"launch-rocket"}`},
		{"payload not object", `{"event":"join-media","data":"m1"}`},
		{"missing id", `{"event":"join-media","data":{}}`},
		{"colon in id", `{"event":"join-stream","data":{"streamId":"a:b"}}`},
		{"long id", `{"event":"join-stream","data":{"streamId":"` + strings.Repeat("x", MaxIDLength+1) + `"}}`},
		{"blank content", `{"event":"new-comment","data":{"mediaId":"m1","content":"   "}}`},
		{"long content", `{"event":"new-comment","data":{"mediaId":"m1","content":"` + strings.Repeat("a", MaxContentLength+1) + `"}}`},
		{"long stream chat", `{"event":"stream-chat","data":{"streamId":"s1","content":"` + strings.Repeat("a", MaxStreamChatLength+1) + `"}}`},
		{"bad content type", `{"event":"join-content","data":{"contentType":"podcast","contentId":"c1"}}`},
		{"bad action", `{"event":"media-reaction","data":{"mediaId":"m1","actionType":"dislike"}}`},
		{"missing status", `{"event":"user-presence","data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestNormalizeText_CountsCharacters(t *testing.T) {
	s, err := NormalizeText("content", strings.Repeat("é", MaxStreamChatLength), MaxStreamChatLength)
	require.NoError(t, err)
	assert.Len(t, []rune(s), MaxStreamChatLength)
}

func TestAuthCode(t *testing.T) {
	assert.Equal(t, CodeAuthenticationRequired, AuthCode(ErrAuthenticationRequired))
	assert.Equal(t, CodeAccountNotFound, AuthCode(ErrAccountNotFound))
	assert.Equal(t, CodeAuthenticationFailed, AuthCode(ErrAuthenticationFailed))
}

func TestIdentity_PublicOmitsPrivateFields(t *testing.T) {
	id := Identity{UserID: "u1", Email: "a@b.c", FirstName: "Ada", LastName: "L", Role: "admin"}
	assert.Equal(t, PublicUser{ID: "u1", FirstName: "Ada", LastName: "L"}, id.Public())
}
