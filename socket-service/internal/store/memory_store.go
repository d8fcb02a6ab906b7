package store

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

type contentKey struct {
	t  domain.ContentType
	id string
}

type contentRecord struct {
	counters map[domain.ActionType]int64
	likes    map[string]struct{}
	actions  map[domain.ActionType]map[string]struct{}
	comments int64
}

// MemoryStore keeps every collaborator record in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	accounts  map[string]*domain.Account
	contents  map[contentKey]*contentRecord
	comments  map[string]*domain.Comment
	reactions map[string]map[string]int64
	messages  []*domain.Message
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[string]*domain.Account),
		contents:  make(map[contentKey]*contentRecord),
		comments:  make(map[string]*domain.Comment),
		reactions: make(map[string]map[string]int64),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PutAccount seeds an account.
func (s *MemoryStore) PutAccount(a domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = &a
}

// PutContent seeds a piece of content.
func (s *MemoryStore) PutContent(t domain.ContentType, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents[contentKey{t, id}] = &contentRecord{
		counters: make(map[domain.ActionType]int64),
		likes:    make(map[string]struct{}),
		actions:  make(map[domain.ActionType]map[string]struct{}),
	}
}

// Messages returns a copy of every stored message.
func (s *MemoryStore) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, *m)
	}
	return out
}

func (s *MemoryStore) FindUserByID(_ context.Context, userID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) FindContent(_ context.Context, t domain.ContentType, id string) (*domain.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.contents[contentKey{t, id}]; !ok {
		return nil, ErrNotFound
	}
	return &domain.Content{Type: t, ID: id}, nil
}

func (s *MemoryStore) ToggleLike(_ context.Context, userID string, t domain.ContentType, id string) (domain.LikeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.contents[contentKey{t, id}]
	if !ok {
		return domain.LikeResult{}, ErrNotFound
	}

	if _, liked := rec.likes[userID]; liked {
		delete(rec.likes, userID)
		if rec.counters[domain.ActionLike] > 0 {
			rec.counters[domain.ActionLike]--
		}
		return domain.LikeResult{Liked: false, Count: rec.counters[domain.ActionLike]}, nil
	}

	rec.likes[userID] = struct{}{}
	rec.counters[domain.ActionLike]++
	return domain.LikeResult{Liked: true, Count: rec.counters[domain.ActionLike]}, nil
}

func (s *MemoryStore) RecordAction(_ context.Context, userID string, t domain.ContentType, id string, action domain.ActionType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.contents[contentKey{t, id}]
	if !ok {
		return 0, ErrNotFound
	}

	users, ok := rec.actions[action]
	if !ok {
		users = make(map[string]struct{})
		rec.actions[action] = users
	}
	users[userID] = struct{}{}
	rec.counters[action]++
	return rec.counters[action], nil
}

func (s *MemoryStore) AddComment(_ context.Context, in CommentInput) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.contents[contentKey{in.ContentType, in.ContentID}]
	if !ok {
		return nil, ErrNotFound
	}
	if in.ParentID != "" {
		if _, ok := s.comments[in.ParentID]; !ok {
			return nil, ErrNotFound
		}
	}

	c := &domain.Comment{
		ID:          ulid.Make().String(),
		ContentType: in.ContentType,
		ContentID:   in.ContentID,
		UserID:      in.UserID,
		Content:     in.Content,
		ParentID:    in.ParentID,
		CreatedAt:   s.now(),
	}
	s.comments[c.ID] = c
	rec.comments++

	cp := *c
	return &cp, nil
}

func (s *MemoryStore) FindComment(_ context.Context, commentID string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) AddCommentReaction(_ context.Context, commentID, reactionType string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[commentID]; !ok {
		return 0, ErrNotFound
	}
	counts, ok := s.reactions[commentID]
	if !ok {
		counts = make(map[string]int64)
		s.reactions[commentID] = counts
	}
	counts[reactionType]++
	return counts[reactionType], nil
}

func (s *MemoryStore) SendMessage(_ context.Context, in MessageInput) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[in.RecipientID]; !ok {
		return nil, ErrNotFound
	}

	m := &domain.Message{
		ID:          ulid.Make().String(),
		ChatID:      domain.ChatID(in.SenderID, in.RecipientID),
		SenderID:    in.SenderID,
		RecipientID: in.RecipientID,
		Content:     in.Content,
		MessageType: in.MessageType,
		MediaURL:    in.MediaURL,
		ReplyTo:     in.ReplyTo,
		CreatedAt:   s.now(),
	}
	s.messages = append(s.messages, m)

	cp := *m
	return &cp, nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }
