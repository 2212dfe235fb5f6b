package chat

import (
	"context"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/rpc/chatrpc"
)

// Handler implements the ChatService gRPC API.
type Handler struct {
	svc *Service
}

// NewHandler creates a ChatService handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

var _ chatrpc.ChatServiceServer = (*Handler)(nil)

// SendMessage persists and relays a message.
//
// Example:
//
//	h.SendMessage(ctx, &chatrpc.SendMessageRequest{MatchID: 1, SenderID: 1, ReceiverID: 2, Content: "hi"})
func (h *Handler) SendMessage(ctx context.Context, req *chatrpc.SendMessageRequest) (*chatrpc.SendMessageResponse, error) {
	h.svc.logger.Debug("SendMessage called", "match", req.MatchID, "sender", req.SenderID, "receiver", req.ReceiverID)

	if req.MatchID == 0 || req.SenderID == 0 || req.ReceiverID == 0 {
		return nil, svcErr.InvalidArgument("match_id, sender_id and receiver_id are required")
	}

	msg, err := h.svc.Send(ctx, req.MatchID, req.SenderID, req.ReceiverID, req.Content)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &chatrpc.SendMessageResponse{Message: toMessage(msg)}, nil
}

// GetMessages returns one page of a conversation in chronological order.
func (h *Handler) GetMessages(ctx context.Context, req *chatrpc.GetMessagesRequest) (*chatrpc.GetMessagesResponse, error) {
	msgs, err := h.svc.store.GetMessages(ctx, req.MatchID, req.Page, req.PageSize)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &chatrpc.GetMessagesResponse{Messages: make([]chatrpc.Message, 0, len(msgs))}
	for i := range msgs {
		resp.Messages = append(resp.Messages, toMessage(&msgs[i]))
	}
	return resp, nil
}

// MarkRead marks one message read.
func (h *Handler) MarkRead(ctx context.Context, req *chatrpc.MarkReadRequest) (*chatrpc.MarkReadResponse, error) {
	msg, err := h.svc.MarkRead(ctx, req.MessageID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &chatrpc.MarkReadResponse{Message: toMessage(msg)}, nil
}

// MarkConversationRead marks every message the reader received in a match read.
func (h *Handler) MarkConversationRead(ctx context.Context, req *chatrpc.MarkConversationReadRequest) (*chatrpc.MarkConversationReadResponse, error) {
	if req.ReaderID == 0 {
		return nil, svcErr.InvalidArgument("reader_id is required")
	}
	n, err := h.svc.MarkConversationRead(ctx, req.MatchID, req.ReaderID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &chatrpc.MarkConversationReadResponse{Updated: n}, nil
}

// ListConversations returns the caller's inbox.
func (h *Handler) ListConversations(ctx context.Context, req *chatrpc.ListConversationsRequest) (*chatrpc.ListConversationsResponse, error) {
	convs, err := h.svc.store.ListConversations(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &chatrpc.ListConversationsResponse{Conversations: make([]chatrpc.Conversation, 0, len(convs))}
	for _, c := range convs {
		out := chatrpc.Conversation{
			MatchID:            c.Match.ID,
			OtherUserID:        c.OtherUserID,
			UnreadCount:        c.UnreadCount,
			ActiveAtUnixMillis: c.Match.ActiveAt().UnixMilli(),
		}
		if c.Other != nil {
			out.OtherName = c.Other.Name
			out.IsSynthetic = c.Other.IsSynthetic
		}
		if c.LastMessage != nil {
			m := toMessage(c.LastMessage)
			out.LastMessage = &m
		}
		resp.Conversations = append(resp.Conversations, out)
	}
	return resp, nil
}

// GetUnreadCount returns the caller's unread badge.
func (h *Handler) GetUnreadCount(ctx context.Context, req *chatrpc.GetUnreadCountRequest) (*chatrpc.GetUnreadCountResponse, error) {
	n, err := h.svc.store.UnreadCount(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &chatrpc.GetUnreadCountResponse{Count: n}, nil
}

func toMessage(m *db.Message) chatrpc.Message {
	return chatrpc.Message{
		ID:                  m.ID,
		MatchID:             m.MatchID,
		SenderID:            m.SenderID,
		ReceiverID:          m.ReceiverID,
		Content:             m.Content,
		Read:                m.Read,
		IsAIGenerated:       m.IsAIGenerated,
		CreatedAtUnixMillis: m.CreatedAt.UnixMilli(),
	}
}
