package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/database"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrInvalidID = errors.New("invalid id")
)

// AccountStore looks up user accounts.
type AccountStore interface {
	FindUserByID(ctx context.Context, userID string) (*domain.Account, error)
}

// ContentStore checks that content exists.
type ContentStore interface {
	FindContent(ctx context.Context, contentType domain.ContentType, contentID string) (*domain.Content, error)
}

// InteractionStore persists likes, actions, comments and comment reactions.
type InteractionStore interface {
	ToggleLike(ctx context.Context, userID string, contentType domain.ContentType, contentID string) (domain.LikeResult, error)
	RecordAction(ctx context.Context, userID string, contentType domain.ContentType, contentID string, action domain.ActionType) (int64, error)
	AddComment(ctx context.Context, in CommentInput) (*domain.Comment, error)
	FindComment(ctx context.Context, commentID string) (*domain.Comment, error)
	AddCommentReaction(ctx context.Context, commentID, reactionType string) (int64, error)
}

// MessageStore persists private messages.
type MessageStore interface {
	SendMessage(ctx context.Context, in MessageInput) (*domain.Message, error)
}

// Store is the full collaborator surface used by the socket service.
type Store interface {
	AccountStore
	ContentStore
	InteractionStore
	MessageStore
	Close(ctx context.Context) error
}

type CommentInput struct {
	UserID      string
	ContentType domain.ContentType
	ContentID   string
	Content     string
	ParentID    string
}

type MessageInput struct {
	SenderID    string
	RecipientID string
	Content     string
	MessageType string
	MediaURL    string
	ReplyTo     string
}

// Config selects and configures the driver.
type Config struct {
	Driver   string          `mapstructure:"driver"` // mongo, postgres, mysql, sqlite, memory
	Mongo    MongoConfig     `mapstructure:"mongo"`
	Database database.Config `mapstructure:"database"`
	Messages MessagesConfig  `mapstructure:"messages"`
}

// MessagesConfig optionally moves private messages to their own backend.
type MessagesConfig struct {
	Driver    string          `mapstructure:"driver"` // empty uses the primary store, cassandra
	Cassandra CassandraConfig `mapstructure:"cassandra"`
}

// Open connects the configured driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	primary, err := openPrimary(ctx, cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Messages.Driver {
	case "":
		return primary, nil
	case "cassandra":
		msgs, err := NewCassandraMessageStore(ctx, cfg.Messages.Cassandra)
		if err != nil {
			_ = primary.Close(ctx)
			return nil, err
		}
		return &splitStore{Store: primary, messages: msgs}, nil
	default:
		_ = primary.Close(ctx)
		return nil, fmt.Errorf("unsupported message store driver: %s", cfg.Messages.Driver)
	}
}

func openPrimary(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "mongo":
		return NewMongoStore(ctx, cfg.Mongo)
	case "postgres", "mysql", "sqlite":
		dbCfg := cfg.Database
		dbCfg.Driver = cfg.Driver
		return NewGormStore(&dbCfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// counterField names the per-content counter an action increments.
func counterField(action domain.ActionType) string {
	switch action {
	case domain.ActionLike:
		return "like_count"
	case domain.ActionShare:
		return "share_count"
	default:
		return "favorite_count"
	}
}
