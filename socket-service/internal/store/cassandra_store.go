package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

// CassandraConfig holds the message store cluster settings.
type CassandraConfig struct {
	Hosts          []string      `mapstructure:"hosts"`
	Keyspace       string        `mapstructure:"keyspace"`
	Consistency    string        `mapstructure:"consistency"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`
	CreateTable    bool          `mapstructure:"create_table"`
}

const createMessagesTable = `
	CREATE TABLE IF NOT EXISTS messages_by_chat (
		chat_id text,
		message_id timeuuid,
		sender_id text,
		recipient_id text,
		content text,
		message_type text,
		media_url text,
		reply_to text,
		created_at timestamp,
		PRIMARY KEY (chat_id, message_id)
	) WITH CLUSTERING ORDER BY (message_id DESC)`

const insertMessage = `
	INSERT INTO messages_by_chat (
		chat_id, message_id, sender_id, recipient_id, content, message_type, media_url, reply_to, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CassandraMessageStore persists private messages partitioned by chat.
type CassandraMessageStore struct {
	session *gocql.Session
	now     func() time.Time
}

func parseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(s) {
	case "ONE":
		return gocql.One
	case "QUORUM":
		return gocql.Quorum
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	default:
		return gocql.LocalOne
	}
}

func NewCassandraMessageStore(ctx context.Context, cfg CassandraConfig) (*CassandraMessageStore, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("cassandra message store needs at least one host")
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)
	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}

	if cfg.CreateTable {
		if err := session.Query(createMessagesTable).WithContext(ctx).Exec(); err != nil {
			session.Close()
			return nil, fmt.Errorf("failed to create messages table: %w", err)
		}
	}

	return &CassandraMessageStore{
		session: session,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// newMessage builds the record written for in. Recipient existence is checked by
// the caller against the account store.
func newMessage(in MessageInput, id gocql.UUID, at time.Time) *domain.Message {
	return &domain.Message{
		ID:          id.String(),
		ChatID:      domain.ChatID(in.SenderID, in.RecipientID),
		SenderID:    in.SenderID,
		RecipientID: in.RecipientID,
		Content:     in.Content,
		MessageType: in.MessageType,
		MediaURL:    in.MediaURL,
		ReplyTo:     in.ReplyTo,
		CreatedAt:   at,
	}
}

func (s *CassandraMessageStore) SendMessage(ctx context.Context, in MessageInput) (*domain.Message, error) {
	at := s.now()
	id := gocql.UUIDFromTime(at)
	m := newMessage(in, id, at)

	err := s.session.Query(insertMessage,
		m.ChatID,
		id,
		m.SenderID,
		m.RecipientID,
		m.Content,
		m.MessageType,
		m.MediaURL,
		m.ReplyTo,
		m.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return m, nil
}

func (s *CassandraMessageStore) Close(context.Context) error {
	s.session.Close()
	return nil
}

// messageBackend is a message store with its own connection.
type messageBackend interface {
	MessageStore
	Close(ctx context.Context) error
}

// splitStore serves messages from a dedicated backend and everything else from
// the primary store.
type splitStore struct {
	Store
	messages messageBackend
}

func (s *splitStore) SendMessage(ctx context.Context, in MessageInput) (*domain.Message, error) {
	return s.messages.SendMessage(ctx, in)
}

func (s *splitStore) Close(ctx context.Context) error {
	merr := s.messages.Close(ctx)
	if err := s.Store.Close(ctx); err != nil {
		return err
	}
	return merr
}
