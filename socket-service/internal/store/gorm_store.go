package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/jevah-app/jevahapp-backend-sub001/pkg/database"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

type accountModel struct {
	ID        string `gorm:"primaryKey;size:128"`
	Email     string `gorm:"size:255"`
	FirstName string `gorm:"size:128"`
	LastName  string `gorm:"size:128"`
	Role      string `gorm:"size:32"`
}

func (accountModel) TableName() string { return "users" }

type contentModel struct {
	Type          string `gorm:"primaryKey;size:32"`
	ID            string `gorm:"primaryKey;size:128"`
	LikeCount     int64  `gorm:"not null;default:0"`
	ShareCount    int64  `gorm:"not null;default:0"`
	FavoriteCount int64  `gorm:"not null;default:0"`
	CommentCount  int64  `gorm:"not null;default:0"`
}

func (contentModel) TableName() string { return "contents" }

func (m *contentModel) counter(action domain.ActionType) int64 {
	switch action {
	case domain.ActionLike:
		return m.LikeCount
	case domain.ActionShare:
		return m.ShareCount
	default:
		return m.FavoriteCount
	}
}

type interactionModel struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      string `gorm:"size:128;uniqueIndex:idx_interaction"`
	ContentType string `gorm:"size:32;uniqueIndex:idx_interaction"`
	ContentID   string `gorm:"size:128;uniqueIndex:idx_interaction"`
	Action      string `gorm:"size:32;uniqueIndex:idx_interaction"`
	CreatedAt   time.Time
}

func (interactionModel) TableName() string { return "interactions" }

type commentModel struct {
	ID          string `gorm:"primaryKey;size:32"`
	ContentType string `gorm:"size:32;index:idx_comment_content"`
	ContentID   string `gorm:"size:128;index:idx_comment_content"`
	UserID      string `gorm:"size:128"`
	Content     string `gorm:"type:text"`
	ParentID    string `gorm:"size:128"`
	CreatedAt   time.Time
}

func (commentModel) TableName() string { return "comments" }

func (m *commentModel) toDomain() *domain.Comment {
	return &domain.Comment{
		ID:          m.ID,
		ContentType: domain.ContentType(m.ContentType),
		ContentID:   m.ContentID,
		UserID:      m.UserID,
		Content:     m.Content,
		ParentID:    m.ParentID,
		CreatedAt:   m.CreatedAt,
	}
}

type commentReactionModel struct {
	CommentID    string `gorm:"primaryKey;size:32"`
	ReactionType string `gorm:"primaryKey;size:32"`
	Count        int64  `gorm:"not null;default:0"`
}

func (commentReactionModel) TableName() string { return "comment_reactions" }

type messageModel struct {
	ID          string `gorm:"primaryKey;size:32"`
	ChatID      string `gorm:"size:255;index"`
	SenderID    string `gorm:"size:128"`
	RecipientID string `gorm:"size:128"`
	Content     string `gorm:"type:text"`
	MessageType string `gorm:"size:32"`
	MediaURL    string `gorm:"size:2048"`
	ReplyTo     string `gorm:"size:128"`
	CreatedAt   time.Time
}

func (messageModel) TableName() string { return "messages" }

// GormStore implements Store on a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore connects through pkg/database and migrates the schema.
func NewGormStore(cfg *database.Config) (*GormStore, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(db,
		&accountModel{},
		&contentModel{},
		&interactionModel{},
		&commentModel{},
		&commentReactionModel{},
		&messageModel{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &GormStore{db: db}, nil
}

// CreateAccount inserts an account. Used for seeding.
func (s *GormStore) CreateAccount(ctx context.Context, a domain.Account) error {
	return s.db.WithContext(ctx).Create(&accountModel{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
	}).Error
}

// CreateContent inserts a content row. Used for seeding.
func (s *GormStore) CreateContent(ctx context.Context, t domain.ContentType, id string) error {
	return s.db.WithContext(ctx).Create(&contentModel{Type: string(t), ID: id}).Error
}

func gormNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) FindUserByID(ctx context.Context, userID string) (*domain.Account, error) {
	var m accountModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", userID).Error; err != nil {
		return nil, gormNotFound(err)
	}
	return &domain.Account{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Role:      m.Role,
	}, nil
}

func (s *GormStore) FindContent(ctx context.Context, t domain.ContentType, contentID string) (*domain.Content, error) {
	var m contentModel
	if err := s.db.WithContext(ctx).First(&m, "type = ? AND id = ?", string(t), contentID).Error; err != nil {
		return nil, gormNotFound(err)
	}
	return &domain.Content{Type: t, ID: contentID}, nil
}

func (s *GormStore) bumpCounter(tx *gorm.DB, t domain.ContentType, contentID string, action domain.ActionType, delta int64) (int64, error) {
	field := counterField(action)
	err := tx.Model(&contentModel{}).
		Where("type = ? AND id = ?", string(t), contentID).
		Update(field, gorm.Expr(field+" + ?", delta)).Error
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", field, err)
	}

	var m contentModel
	if err := tx.First(&m, "type = ? AND id = ?", string(t), contentID).Error; err != nil {
		return 0, gormNotFound(err)
	}
	return m.counter(action), nil
}

func (s *GormStore) ToggleLike(ctx context.Context, userID string, t domain.ContentType, contentID string) (domain.LikeResult, error) {
	var result domain.LikeResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var content contentModel
		if err := tx.First(&content, "type = ? AND id = ?", string(t), contentID).Error; err != nil {
			return gormNotFound(err)
		}

		res := tx.Where("user_id = ? AND content_type = ? AND content_id = ? AND action = ?",
			userID, string(t), contentID, string(domain.ActionLike)).
			Delete(&interactionModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove like: %w", res.Error)
		}

		delta := int64(-1)
		result.Liked = false
		if res.RowsAffected == 0 {
			if err := tx.Create(&interactionModel{
				UserID:      userID,
				ContentType: string(t),
				ContentID:   contentID,
				Action:      string(domain.ActionLike),
			}).Error; err != nil {
				return fmt.Errorf("failed to record like: %w", err)
			}
			delta = 1
			result.Liked = true
		}

		count, err := s.bumpCounter(tx, t, contentID, domain.ActionLike, delta)
		if err != nil {
			return err
		}
		result.Count = count
		return nil
	})
	if err != nil {
		return domain.LikeResult{}, err
	}
	return result, nil
}

func (s *GormStore) RecordAction(ctx context.Context, userID string, t domain.ContentType, contentID string, action domain.ActionType) (int64, error) {
	var count int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var content contentModel
		if err := tx.First(&content, "type = ? AND id = ?", string(t), contentID).Error; err != nil {
			return gormNotFound(err)
		}

		record := interactionModel{
			UserID:      userID,
			ContentType: string(t),
			ContentID:   contentID,
			Action:      string(action),
		}
		if err := tx.Where(&record).FirstOrCreate(&record).Error; err != nil {
			return fmt.Errorf("failed to record %s: %w", action, err)
		}

		var err error
		count, err = s.bumpCounter(tx, t, contentID, action, 1)
		return err
	})
	return count, err
}

func (s *GormStore) AddComment(ctx context.Context, in CommentInput) (*domain.Comment, error) {
	m := commentModel{
		ID:          ulid.Make().String(),
		ContentType: string(in.ContentType),
		ContentID:   in.ContentID,
		UserID:      in.UserID,
		Content:     in.Content,
		ParentID:    in.ParentID,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var content contentModel
		if err := tx.First(&content, "type = ? AND id = ?", m.ContentType, m.ContentID).Error; err != nil {
			return gormNotFound(err)
		}
		if m.ParentID != "" {
			var parent commentModel
			if err := tx.First(&parent, "id = ?", m.ParentID).Error; err != nil {
				return gormNotFound(err)
			}
		}
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		return tx.Model(&contentModel{}).
			Where("type = ? AND id = ?", m.ContentType, m.ContentID).
			Update("comment_count", gorm.Expr("comment_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (s *GormStore) FindComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	var m commentModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", commentID).Error; err != nil {
		return nil, gormNotFound(err)
	}
	return m.toDomain(), nil
}

func (s *GormStore) AddCommentReaction(ctx context.Context, commentID, reactionType string) (int64, error) {
	var count int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment commentModel
		if err := tx.First(&comment, "id = ?", commentID).Error; err != nil {
			return gormNotFound(err)
		}

		res := tx.Model(&commentReactionModel{}).
			Where("comment_id = ? AND reaction_type = ?", commentID, reactionType).
			Update("count", gorm.Expr("count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(&commentReactionModel{CommentID: commentID, ReactionType: reactionType, Count: 1}).Error; err != nil {
				return err
			}
		}

		var reaction commentReactionModel
		if err := tx.First(&reaction, "comment_id = ? AND reaction_type = ?", commentID, reactionType).Error; err != nil {
			return err
		}
		count = reaction.Count
		return nil
	})
	return count, err
}

func (s *GormStore) SendMessage(ctx context.Context, in MessageInput) (*domain.Message, error) {
	m := messageModel{
		ID:          ulid.Make().String(),
		ChatID:      domain.ChatID(in.SenderID, in.RecipientID),
		SenderID:    in.SenderID,
		RecipientID: in.RecipientID,
		Content:     in.Content,
		MessageType: in.MessageType,
		MediaURL:    in.MediaURL,
		ReplyTo:     in.ReplyTo,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	return &domain.Message{
		ID:          m.ID,
		ChatID:      m.ChatID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		MessageType: m.MessageType,
		MediaURL:    m.MediaURL,
		ReplyTo:     m.ReplyTo,
		CreatedAt:   m.CreatedAt,
	}, nil
}

func (s *GormStore) Close(context.Context) error {
	return database.Close(s.db)
}
