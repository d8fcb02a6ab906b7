package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/database"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

// seeder inserts the fixtures a contract test needs.
type seeder struct {
	account func(t *testing.T, a domain.Account)
	content func(t *testing.T, ct domain.ContentType, id string)
}

func runContract(t *testing.T, s Store, seed seeder) {
	ctx := context.Background()

	seed.account(t, domain.Account{ID: "u1", Email: "u1@jevah.test", FirstName: "Grace", LastName: "Hopper", Role: "user"})
	seed.account(t, domain.Account{ID: "u2", FirstName: "Ada"})
	seed.content(t, domain.ContentMedia, "m1")
	seed.content(t, domain.ContentDevotional, "d1")

	t.Run("FindUserByID", func(t *testing.T) {
		a, err := s.FindUserByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Grace", a.FirstName)
		assert.Equal(t, "user", a.Role)

		_, err = s.FindUserByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("FindContent", func(t *testing.T) {
		c, err := s.FindContent(ctx, domain.ContentMedia, "m1")
		require.NoError(t, err)
		assert.Equal(t, "m1", c.ID)

		_, err = s.FindContent(ctx, domain.ContentArtist, "m1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ToggleLikeRoundTrip", func(t *testing.T) {
		first, err := s.ToggleLike(ctx, "u1", domain.ContentMedia, "m1")
		require.NoError(t, err)
		assert.True(t, first.Liked)
		assert.Equal(t, int64(1), first.Count)

		other, err := s.ToggleLike(ctx, "u2", domain.ContentMedia, "m1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), other.Count)

		second, err := s.ToggleLike(ctx, "u1", domain.ContentMedia, "m1")
		require.NoError(t, err)
		assert.False(t, second.Liked)
		assert.Equal(t, int64(1), second.Count)

		_, err = s.ToggleLike(ctx, "u1", domain.ContentMedia, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("RecordAction", func(t *testing.T) {
		n, err := s.RecordAction(ctx, "u1", domain.ContentDevotional, "d1", domain.ActionShare)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.RecordAction(ctx, "u1", domain.ContentDevotional, "d1", domain.ActionShare)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = s.RecordAction(ctx, "u2", domain.ContentDevotional, "d1", domain.ActionFavorite)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Comments", func(t *testing.T) {
		c, err := s.AddComment(ctx, CommentInput{UserID: "u1", ContentType: domain.ContentMedia, ContentID: "m1", Content: "Amen"})
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "Amen", c.Content)
		assert.False(t, c.CreatedAt.IsZero())

		reply, err := s.AddComment(ctx, CommentInput{UserID: "u2", ContentType: domain.ContentMedia, ContentID: "m1", Content: "Hallelujah", ParentID: c.ID})
		require.NoError(t, err)
		assert.Equal(t, c.ID, reply.ParentID)

		found, err := s.FindComment(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MediaRoom("m1"), found.Room())
		assert.Equal(t, "u1", found.UserID)

		n, err := s.AddCommentReaction(ctx, c.ID, "heart")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = s.AddCommentReaction(ctx, c.ID, "heart")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		n, err = s.AddCommentReaction(ctx, c.ID, "pray")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = s.AddCommentReaction(ctx, "missing", "heart")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.AddComment(ctx, CommentInput{UserID: "u1", ContentType: domain.ContentMedia, ContentID: "nope", Content: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SendMessage", func(t *testing.T) {
		m, err := s.SendMessage(ctx, MessageInput{SenderID: "u2", RecipientID: "u1", Content: "hello", MessageType: "text"})
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, domain.ChatID("u1", "u2"), m.ChatID)
		assert.False(t, m.CreatedAt.IsZero())
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	runContract(t, s, seeder{
		account: func(_ *testing.T, a domain.Account) { s.PutAccount(a) },
		content: func(_ *testing.T, ct domain.ContentType, id string) { s.PutContent(ct, id) },
	})

	_, err := s.SendMessage(context.Background(), MessageInput{SenderID: "u1", RecipientID: "ghost", Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, s.Messages(), 1)
}

func TestGormStore_SQLite(t *testing.T) {
	s, err := NewGormStore(&database.Config{Driver: "sqlite", FilePath: filepath.Join(t.TempDir(), "socket.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	ctx := context.Background()
	runContract(t, s, seeder{
		account: func(t *testing.T, a domain.Account) { require.NoError(t, s.CreateAccount(ctx, a)) },
		content: func(t *testing.T, ct domain.ContentType, id string) { require.NoError(t, s.CreateContent(ctx, ct, id)) },
	})
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(context.Background(), Config{
		Driver:   "sqlite",
		Database: database.Config{FilePath: filepath.Join(t.TempDir(), "open.db")},
	})
	require.NoError(t, err)
	assert.IsType(t, &GormStore{}, s)
	require.NoError(t, s.Close(context.Background()))

	_, err = Open(context.Background(), Config{Driver: "couchdb"})
	assert.Error(t, err)
}

func TestMongoHelpers(t *testing.T) {
	_, err := parseObjectID("not-hex")
	assert.ErrorIs(t, err, ErrInvalidID)

	oid, err := parseObjectID("507f1f77bcf86cd799439011")
	require.NoError(t, err)
	assert.Equal(t, "507f1f77bcf86cd799439011", oid.Hex())

	coll, err := contentCollection(domain.ContentMerch)
	require.NoError(t, err)
	assert.Equal(t, "merches", coll)

	_, err = contentCollection("podcast")
	assert.ErrorIs(t, err, ErrInvalidID)

	assert.Equal(t, "shareCount", counterKey(domain.ActionShare))
	assert.Equal(t, int64(3), toInt64(int32(3)))
	assert.Equal(t, int64(4), toInt64(float64(4)))
	assert.Equal(t, int64(0), toInt64("x"))
}

func TestMongoLikeRecordIsUnique(t *testing.T) {
	idx := interactionIndex()
	require.NotNil(t, idx.Options.Unique)
	assert.True(t, *idx.Options.Unique)
	assert.Equal(t, bson.D{
		{Key: "user", Value: 1},
		{Key: "contentType", Value: 1},
		{Key: "content", Value: 1},
		{Key: "action", Value: 1},
	}, idx.Keys)

	delta, err := likeDelta(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), delta)

	// A second tab's toggle losing the insert race leaves the counter alone.
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
	delta, err = likeDelta(dup)
	require.NoError(t, err)
	assert.Equal(t, int64(0), delta)

	_, err = likeDelta(errors.New("connection reset"))
	assert.Error(t, err)
}
