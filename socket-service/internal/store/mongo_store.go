package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
)

// MongoConfig holds the document store connection settings.
type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

const (
	collUsers        = "users"
	collComments     = "comments"
	collInteractions = "interactions"
	collMessages     = "messages"
)

// contentCollections maps content types to the collections that hold them.
var contentCollections = map[domain.ContentType]string{
	domain.ContentMedia:      "media",
	domain.ContentDevotional: "devotionals",
	domain.ContentArtist:     "artists",
	domain.ContentMerch:      "merches",
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Email     string             `bson:"email"`
	FirstName string             `bson:"firstName"`
	LastName  string             `bson:"lastName"`
	Role      string             `bson:"role"`
}

type commentDoc struct {
	ID          primitive.ObjectID  `bson:"_id"`
	Content     string              `bson:"content"`
	ContentType string              `bson:"contentType"`
	ContentID   primitive.ObjectID  `bson:"contentId"`
	Author      primitive.ObjectID  `bson:"author"`
	Parent      *primitive.ObjectID `bson:"parentComment,omitempty"`
	Reactions   map[string]int64    `bson:"reactions"`
	CreatedAt   time.Time           `bson:"createdAt"`
}

func (d *commentDoc) toDomain() *domain.Comment {
	c := &domain.Comment{
		ID:          d.ID.Hex(),
		ContentType: domain.ContentType(d.ContentType),
		ContentID:   d.ContentID.Hex(),
		UserID:      d.Author.Hex(),
		Content:     d.Content,
		CreatedAt:   d.CreatedAt,
	}
	if d.Parent != nil {
		c.ParentID = d.Parent.Hex()
	}
	return c
}

type messageDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	ChatID      string             `bson:"chatId"`
	Sender      primitive.ObjectID `bson:"sender"`
	Recipient   primitive.ObjectID `bson:"recipient"`
	Content     string             `bson:"content"`
	MessageType string             `bson:"messageType"`
	MediaURL    string             `bson:"mediaUrl,omitempty"`
	ReplyTo     string             `bson:"replyTo,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

// MongoStore implements Store against the platform's document database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects and pings the server.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(cfg.Database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// interactionIndex keeps at most one record per user, content and action.
func interactionIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{
			{Key: "user", Value: 1},
			{Key: "contentType", Value: 1},
			{Key: "content", Value: 1},
			{Key: "action", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("user_content_action"),
	}
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	if _, err := s.db.Collection(collInteractions).Indexes().CreateOne(ctx, interactionIndex()); err != nil {
		return fmt.Errorf("failed to create interactions index: %w", err)
	}
	return nil
}

// likeDelta maps the outcome of inserting a like record to the counter change.
// A duplicate key means a concurrent toggle already recorded the like.
func likeDelta(insertErr error) (int64, error) {
	switch {
	case insertErr == nil:
		return 1, nil
	case mongo.IsDuplicateKeyError(insertErr):
		return 0, nil
	default:
		return 0, fmt.Errorf("failed to record like: %w", insertErr)
	}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

func contentCollection(t domain.ContentType) (string, error) {
	name, ok := contentCollections[t]
	if !ok {
		return "", fmt.Errorf("unknown content type %q: %w", t, ErrInvalidID)
	}
	return name, nil
}

// counterKey is the document field an action increments.
func counterKey(action domain.ActionType) string {
	switch action {
	case domain.ActionLike:
		return "likeCount"
	case domain.ActionShare:
		return "shareCount"
	default:
		return "favoriteCount"
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *MongoStore) FindUserByID(ctx context.Context, userID string) (*domain.Account, error) {
	oid, err := parseObjectID(userID)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	err = s.db.Collection(collUsers).FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"email": 1, "firstName": 1, "lastName": 1, "role": 1}),
	).Decode(&doc)
	if err != nil {
		return nil, notFound(err)
	}

	return &domain.Account{
		ID:        doc.ID.Hex(),
		Email:     doc.Email,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
		Role:      doc.Role,
	}, nil
}

func (s *MongoStore) FindContent(ctx context.Context, t domain.ContentType, contentID string) (*domain.Content, error) {
	if _, err := s.contentOID(ctx, t, contentID); err != nil {
		return nil, err
	}
	return &domain.Content{Type: t, ID: contentID}, nil
}

func (s *MongoStore) contentOID(ctx context.Context, t domain.ContentType, contentID string) (primitive.ObjectID, error) {
	coll, err := contentCollection(t)
	if err != nil {
		return primitive.NilObjectID, err
	}
	oid, err := parseObjectID(contentID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	n, err := s.db.Collection(coll).CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to look up %s: %w", t, err)
	}
	if n == 0 {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

// incCounter applies delta to a content counter and returns the new value.
func (s *MongoStore) incCounter(ctx context.Context, t domain.ContentType, oid primitive.ObjectID, field string, delta int64) (int64, error) {
	coll, err := contentCollection(t)
	if err != nil {
		return 0, err
	}

	var doc bson.M
	err = s.db.Collection(coll).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{field: delta}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{field: 1}),
	).Decode(&doc)
	if err != nil {
		return 0, notFound(err)
	}
	return toInt64(doc[field]), nil
}

func (s *MongoStore) ToggleLike(ctx context.Context, userID string, t domain.ContentType, contentID string) (domain.LikeResult, error) {
	uid, err := parseObjectID(userID)
	if err != nil {
		return domain.LikeResult{}, err
	}
	cid, err := s.contentOID(ctx, t, contentID)
	if err != nil {
		return domain.LikeResult{}, err
	}

	filter := bson.M{"user": uid, "contentType": string(t), "content": cid, "action": string(domain.ActionLike)}
	res, err := s.db.Collection(collInteractions).DeleteOne(ctx, filter)
	if err != nil {
		return domain.LikeResult{}, fmt.Errorf("failed to remove like: %w", err)
	}

	liked, delta := false, int64(-1)
	if res.DeletedCount == 0 {
		doc := bson.M{"createdAt": time.Now().UTC()}
		for k, v := range filter {
			doc[k] = v
		}
		_, insertErr := s.db.Collection(collInteractions).InsertOne(ctx, doc)
		if delta, err = likeDelta(insertErr); err != nil {
			return domain.LikeResult{}, err
		}
		liked = true
	}

	count, err := s.incCounter(ctx, t, cid, counterKey(domain.ActionLike), delta)
	if err != nil {
		return domain.LikeResult{}, err
	}
	if count < 0 {
		count = 0
	}
	return domain.LikeResult{Liked: liked, Count: count}, nil
}

func (s *MongoStore) RecordAction(ctx context.Context, userID string, t domain.ContentType, contentID string, action domain.ActionType) (int64, error) {
	uid, err := parseObjectID(userID)
	if err != nil {
		return 0, err
	}
	cid, err := s.contentOID(ctx, t, contentID)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	_, err = s.db.Collection(collInteractions).UpdateOne(ctx,
		bson.M{"user": uid, "contentType": string(t), "content": cid, "action": string(action)},
		bson.M{
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	// Two concurrent upserts can race on the unique index; the record exists either way.
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return 0, fmt.Errorf("failed to record %s: %w", action, err)
	}

	return s.incCounter(ctx, t, cid, counterKey(action), 1)
}

func (s *MongoStore) AddComment(ctx context.Context, in CommentInput) (*domain.Comment, error) {
	uid, err := parseObjectID(in.UserID)
	if err != nil {
		return nil, err
	}
	cid, err := s.contentOID(ctx, in.ContentType, in.ContentID)
	if err != nil {
		return nil, err
	}

	doc := commentDoc{
		ID:          primitive.NewObjectID(),
		Content:     in.Content,
		ContentType: string(in.ContentType),
		ContentID:   cid,
		Author:      uid,
		Reactions:   map[string]int64{},
		CreatedAt:   time.Now().UTC(),
	}

	if in.ParentID != "" {
		pid, err := parseObjectID(in.ParentID)
		if err != nil {
			return nil, err
		}
		n, err := s.db.Collection(collComments).CountDocuments(ctx, bson.M{"_id": pid}, options.Count().SetLimit(1))
		if err != nil {
			return nil, fmt.Errorf("failed to look up parent comment: %w", err)
		}
		if n == 0 {
			return nil, ErrNotFound
		}
		doc.Parent = &pid
	}

	if _, err := s.db.Collection(collComments).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	if _, err := s.incCounter(ctx, in.ContentType, cid, "commentCount", 1); err != nil {
		return nil, err
	}

	return doc.toDomain(), nil
}

func (s *MongoStore) FindComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	oid, err := parseObjectID(commentID)
	if err != nil {
		return nil, err
	}

	var doc commentDoc
	if err := s.db.Collection(collComments).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.toDomain(), nil
}

func (s *MongoStore) AddCommentReaction(ctx context.Context, commentID, reactionType string) (int64, error) {
	oid, err := parseObjectID(commentID)
	if err != nil {
		return 0, err
	}

	var doc commentDoc
	err = s.db.Collection(collComments).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"reactions." + reactionType: 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, notFound(err)
	}
	return doc.Reactions[reactionType], nil
}

func (s *MongoStore) SendMessage(ctx context.Context, in MessageInput) (*domain.Message, error) {
	sender, err := parseObjectID(in.SenderID)
	if err != nil {
		return nil, err
	}
	recipient, err := parseObjectID(in.RecipientID)
	if err != nil {
		return nil, err
	}

	doc := messageDoc{
		ID:          primitive.NewObjectID(),
		ChatID:      domain.ChatID(in.SenderID, in.RecipientID),
		Sender:      sender,
		Recipient:   recipient,
		Content:     in.Content,
		MessageType: in.MessageType,
		MediaURL:    in.MediaURL,
		ReplyTo:     in.ReplyTo,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.db.Collection(collMessages).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	return &domain.Message{
		ID:          doc.ID.Hex(),
		ChatID:      doc.ChatID,
		SenderID:    in.SenderID,
		RecipientID: in.RecipientID,
		Content:     doc.Content,
		MessageType: doc.MessageType,
		MediaURL:    doc.MediaURL,
		ReplyTo:     doc.ReplyTo,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
