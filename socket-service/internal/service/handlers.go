package service

import (
	"context"
	"errors"

	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/audit"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/domain"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/store"
)

// notFound turns a store miss into a client-facing not found error for resource.
func notFound(err error, resource string) error {
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewNotFoundError(resource)
	}
	return err
}

func (r *Router) join(c *hub.Client, room string) []hub.Delivery {
	r.hub.Join(c.ID, room)
	return nil
}

func (r *Router) leave(c *hub.Client, room string) []hub.Delivery {
	r.hub.Leave(c.ID, room)
	return nil
}

// viewerNotice is installed on the hub and runs under its lock.
func (r *Router) viewerNotice(c *hub.Client, streamID string, joined bool, count int) hub.Delivery {
	event := domain.EventViewerLeft
	if joined {
		event = domain.EventViewerJoined
	}
	return hub.Room(domain.StreamRoom(streamID), event, domain.ViewerPayload{
		StreamID:          streamID,
		UserID:            c.UserID(),
		User:              c.Identity.Public(),
		ConcurrentViewers: count,
		Timestamp:         r.now(),
	})
}

func (r *Router) joinStream(ctx context.Context, c *hub.Client, e *domain.JoinStream) ([]hub.Delivery, error) {
	// viewer-joined is queued by the hub itself.
	if _, joined := r.hub.JoinStream(c.ID, e.StreamID); joined {
		r.metrics.Delivered(domain.EventViewerJoined)
		r.syncViewers(ctx, e.StreamID)
	}
	return nil, nil
}

func (r *Router) leaveStream(ctx context.Context, c *hub.Client, e *domain.LeaveStream) ([]hub.Delivery, error) {
	if _, left := r.hub.LeaveStream(c.ID, e.StreamID); left {
		r.metrics.Delivered(domain.EventViewerLeft)
		r.syncViewers(ctx, e.StreamID)
	}
	return nil, nil
}

func (r *Router) newComment(ctx context.Context, c *hub.Client, e *domain.NewComment) ([]hub.Delivery, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()

	if _, err := r.contents.FindContent(cctx, domain.ContentMedia, e.MediaID); err != nil {
		return nil, notFound(err, "media")
	}

	comment, err := r.interactions.AddComment(cctx, store.CommentInput{
		UserID:      c.UserID(),
		ContentType: domain.ContentMedia,
		ContentID:   e.MediaID,
		Content:     e.Content,
		ParentID:    e.ParentCommentID,
	})
	if err != nil {
		return nil, notFound(err, "parent comment")
	}

	room := domain.MediaRoom(e.MediaID)
	payload := domain.CommentPayload{
		CommentID:       comment.ID,
		MediaID:         e.MediaID,
		Content:         comment.Content,
		ParentCommentID: comment.ParentID,
		User:            c.Identity.Public(),
		CreatedAt:       comment.CreatedAt,
	}

	audit.LogTarget(ctx, audit.ActionComment, c.UserID(), comment.ID, room)
	r.publish(cctx, domain.EventNewComment, room, c.UserID(), payload)
	return []hub.Delivery{hub.Room(room, domain.EventNewComment, payload)}, nil
}

func (r *Router) contentComment(ctx context.Context, c *hub.Client, e *domain.ContentComment) ([]hub.Delivery, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()

	if _, err := r.contents.FindContent(cctx, e.ContentType, e.ContentID); err != nil {
		return nil, notFound(err, string(e.ContentType))
	}

	comment, err := r.interactions.AddComment(cctx, store.CommentInput{
		UserID:      c.UserID(),
		ContentType: e.ContentType,
		ContentID:   e.ContentID,
		Content:     e.Content,
		ParentID:    e.ParentCommentID,
	})
	if err != nil {
		return nil, notFound(err, "parent comment")
	}

	room := domain.ContentRoom(e.ContentType, e.ContentID)
	payload := domain.ContentCommentPayload{
		CommentID:       comment.ID,
		ContentType:     e.ContentType,
		ContentID:       e.ContentID,
		Content:         comment.Content,
		ParentCommentID: comment.ParentID,
		User:            c.Identity.Public(),
		CreatedAt:       comment.CreatedAt,
	}

	audit.LogTarget(ctx, audit.ActionComment, c.UserID(), comment.ID, room)
	r.publish(cctx, domain.EventContentComment, room, c.UserID(), payload)
	return []hub.Delivery{hub.Room(room, domain.EventContentComment, payload)}, nil
}

func (r *Router) commentReaction(ctx context.Context, c *hub.Client, e *domain.CommentReaction) ([]hub.Delivery, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()

	comment, err := r.interactions.FindComment(cctx, e.CommentID)
	if err != nil {
		return nil, notFound(err, "comment")
	}

	count, err := r.interactions.AddCommentReaction(cctx, e.CommentID, e.ReactionType)
	if err != nil {
		return nil, notFound(err, "comment")
	}

	room := comment.Room()
	payload := domain.CommentReactionPayload{
		CommentID:    e.CommentID,
		MediaID:      comment.ContentID,
		ReactionType: e.ReactionType,
		Count:        count,
		User:         c.Identity.Public(),
		Timestamp:    r.now(),
	}

	audit.LogTarget(ctx, audit.ActionCommentReaction, c.UserID(), e.CommentID, e.ReactionType)
	r.publish(cctx, domain.EventCommentReaction, room, c.UserID(), payload)
	return []hub.Delivery{hub.Room(room, domain.EventCommentReaction, payload)}, nil
}

// react applies an action to content. Liked is set only for like toggles.
func (r *Router) react(ctx context.Context, userID string, t domain.ContentType, id string, action domain.ActionType) (*bool, int64, error) {
	if _, err := r.contents.FindContent(ctx, t, id); err != nil {
		return nil, 0, notFound(err, string(t))
	}

	if action == domain.ActionLike {
		res, err := r.interactions.ToggleLike(ctx, userID, t, id)
		if err != nil {
			return nil, 0, notFound(err, string(t))
		}
		liked := res.Liked
		return &liked, res.Count, nil
	}

	count, err := r.interactions.RecordAction(ctx, userID, t, id, action)
	if err != nil {
		return nil, 0, notFound(err, string(t))
	}
	return nil, count, nil
}

func (r *Router) mediaReaction(ctx context.Context, c *hub.Client, e *domain.MediaReaction) ([]hub.Delivery, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()

	liked, count, err := r.react(cctx, c.UserID(), domain.ContentMedia, e.MediaID, e.ActionType)
	if err != nil {
		return nil, err
	}

	room := domain.MediaRoom(e.MediaID)
	payload := domain.MediaReactionPayload{
		MediaID:    e.MediaID,
		ActionType: e.ActionType,
		Liked:      liked,
		Count:      count,
		User:       c.Identity.Public(),
		Timestamp:  r.now(),
	}

	audit.LogTarget(ctx, audit.ActionReaction, c.UserID(), e.MediaID, string(e.ActionType))
	r.publish(cctx, domain.EventMediaReaction, room, c.UserID(), payload)
	return []hub.Delivery{hub.Room(room, domain.EventMediaReaction, payload)}, nil
}

func (r *Router) contentReaction(ctx context.Context, c *hub.Client, e *domain.ContentReaction) ([]hub.Delivery, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()

	liked, count, err := r.react(cctx, c.UserID(), e.ContentType, e.ContentID, e.ActionType)
	if err != nil {
		return nil, err
	}

	room := domain.ContentRoom(e.ContentType, e.ContentID)
	payload := domain.ContentReactionPayload{
		ContentType: e.ContentType,
		ContentID:   e.ContentID,
		ActionType:  e.ActionType,
		Liked:       liked,
		Count:       count,
		User:        c.Identity.Public(),
		Timestamp:   r.now(),
	}

	audit.LogTarget(ctx, audit.ActionReaction, c.UserID(), e.ContentID, string(e.ActionType))
	r.publish(cctx, domain.EventContentReaction, room, c.UserID(), payload)
	return []hub.Delivery{hub.Room(room, domain.EventContentReaction, payload)}, nil
}

func (r *Router) typing(c *hub.Client, e *domain.Typing) []hub.Delivery {
	return []hub.Delivery{
		hub.Room(domain.MediaRoom(e.MediaID), domain.EventUserTyping, domain.TypingPayload{
			MediaID:  e.MediaID,
			UserID:   c.UserID(),
			User:     c.Identity.Public(),
			IsTyping: e.Start,
		}).Except(c.ID),
	}
}

func (r *Router) userPresence(ctx context.Context, c *hub.Client, e *domain.UserPresence) []hub.Delivery {
	mctx, cancel := r.callCtx(ctx)
	r.mirrorErr(ctx, r.mirror.SetUserStatus(mctx, c.UserID(), e.Status))
	cancel()

	return []hub.Delivery{
		hub.Everyone(domain.EventUserPresence, domain.PresencePayload{
			UserID:    c.UserID(),
			User:      c.Identity.Public(),
			Status:    e.Status,
			Timestamp: r.now(),
		}).Except(c.ID),
	}
}

func (r *Router) streamChat(ctx context.Context, c *hub.Client, e *domain.StreamChat) []hub.Delivery {
	room := domain.StreamRoom(e.StreamID)
	payload := domain.StreamChatPayload{
		MessageID: r.newID(),
		StreamID:  e.StreamID,
		Content:   e.Content,
		User:      c.Identity.Public(),
		Timestamp: r.now(),
	}

	pctx, cancel := r.callCtx(ctx)
	r.publish(pctx, domain.EventStreamChat, room, c.UserID(), payload)
	cancel()

	return []hub.Delivery{hub.Room(room, domain.EventStreamChat, payload)}
}

func (r *Router) streamStatus(ctx context.Context, c *hub.Client, e *domain.StreamStatus) []hub.Delivery {
	mctx, cancel := r.callCtx(ctx)
	r.mirrorErr(ctx, r.mirror.SetStreamStatus(mctx, e.StreamID, e.Status, c.UserID()))
	cancel()

	audit.LogTarget(ctx, audit.ActionStreamStatus, c.UserID(), e.StreamID, e.Status)
	return []hub.Delivery{
		hub.Room(domain.StreamRoom(e.StreamID), domain.EventStreamStatus, domain.StreamStatusPayload{
			StreamID:  e.StreamID,
			Status:    e.Status,
			UpdatedBy: c.UserID(),
			Timestamp: r.now(),
		}),
	}
}

func (r *Router) sendMessage(ctx context.Context, c *hub.Client, e *domain.SendMessage) ([]hub.Delivery, error) {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()

	if _, err := r.accounts.FindUserByID(cctx, e.RecipientID); err != nil {
		return nil, notFound(err, "recipient")
	}

	msg, err := r.messages.SendMessage(cctx, store.MessageInput{
		SenderID:    c.UserID(),
		RecipientID: e.RecipientID,
		Content:     e.Content,
		MessageType: e.MessageType,
		MediaURL:    e.MediaURL,
		ReplyTo:     e.ReplyTo,
	})
	if err != nil {
		return nil, notFound(err, "recipient")
	}

	payload := domain.NewMessagePayload{
		MessageID:   msg.ID,
		ChatID:      msg.ChatID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		MessageType: msg.MessageType,
		MediaURL:    msg.MediaURL,
		ReplyTo:     msg.ReplyTo,
		Sender:      c.Identity.Public(),
		CreatedAt:   msg.CreatedAt,
	}

	audit.LogTarget(ctx, audit.ActionSendMessage, c.UserID(), msg.ID, e.RecipientID)
	r.publish(cctx, domain.EventNewMessage, domain.ChatRoom(c.UserID(), e.RecipientID), c.UserID(), payload)

	return []hub.Delivery{
		hub.User(e.RecipientID, domain.EventNewMessage, payload),
		hub.Direct(c.ID, domain.EventMessageSent, domain.MessageSentPayload{
			MessageID:   msg.ID,
			RecipientID: e.RecipientID,
			ChatID:      msg.ChatID,
			Timestamp:   r.now(),
		}),
	}, nil
}

func (r *Router) chatTyping(c *hub.Client, e *domain.ChatTyping) []hub.Delivery {
	return []hub.Delivery{
		hub.User(e.RecipientID, domain.EventUserTypingChat, domain.ChatTypingPayload{
			UserID:   c.UserID(),
			User:     c.Identity.Public(),
			IsTyping: e.Start,
			ChatID:   domain.ChatID(c.UserID(), e.RecipientID),
		}).Except(c.ID),
	}
}
