// Package chatrpc defines the muzz.chat.v1.ChatService wire types,
// server interface, service descriptor and client.
package chatrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/muzz-match/internal/rpc"
)

const ServiceName = "muzz.chat.v1.ChatService"

const (
	SendMessageMethod          = "/" + ServiceName + "/SendMessage"
	GetMessagesMethod          = "/" + ServiceName + "/GetMessages"
	MarkReadMethod             = "/" + ServiceName + "/MarkRead"
	MarkConversationReadMethod = "/" + ServiceName + "/MarkConversationRead"
	ListConversationsMethod    = "/" + ServiceName + "/ListConversations"
	GetUnreadCountMethod       = "/" + ServiceName + "/GetUnreadCount"
)

type Message struct {
	ID                  uint64 `json:"id"`
	MatchID             uint64 `json:"match_id"`
	SenderID            uint64 `json:"sender_id"`
	ReceiverID          uint64 `json:"receiver_id"`
	Content             string `json:"content"`
	Read                bool   `json:"read"`
	IsAIGenerated       bool   `json:"is_ai_generated"`
	CreatedAtUnixMillis int64  `json:"created_at_unix_millis"`
}

type SendMessageRequest struct {
	MatchID    uint64 `json:"match_id"`
	SenderID   uint64 `json:"sender_id"`
	ReceiverID uint64 `json:"receiver_id"`
	Content    string `json:"content"`
}

type SendMessageResponse struct {
	Message Message `json:"message"`
}

type GetMessagesRequest struct {
	MatchID uint64 `json:"match_id"`
	// Page 1 is the newest page.
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

type GetMessagesResponse struct {
	// Oldest to newest.
	Messages []Message `json:"messages"`
}

type MarkReadRequest struct {
	MessageID uint64 `json:"message_id"`
}

type MarkReadResponse struct {
	Message Message `json:"message"`
}

type MarkConversationReadRequest struct {
	MatchID  uint64 `json:"match_id"`
	ReaderID uint64 `json:"reader_id"`
}

type MarkConversationReadResponse struct {
	Updated int64 `json:"updated"`
}

type ListConversationsRequest struct {
	UserID uint64 `json:"user_id"`
}

type Conversation struct {
	MatchID     uint64   `json:"match_id"`
	OtherUserID uint64   `json:"other_user_id"`
	OtherName   string   `json:"other_name,omitempty"`
	IsSynthetic bool     `json:"is_synthetic,omitempty"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int64    `json:"unread_count"`
	// Last message time, or match creation time when there is none.
	ActiveAtUnixMillis int64 `json:"active_at_unix_millis"`
}

type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type GetUnreadCountRequest struct {
	UserID uint64 `json:"user_id"`
}

type GetUnreadCountResponse struct {
	Count int64 `json:"count"`
}

// ChatServiceServer is the server API for ChatService.
type ChatServiceServer interface {
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	GetMessages(context.Context, *GetMessagesRequest) (*GetMessagesResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	MarkConversationRead(context.Context, *MarkConversationReadRequest) (*MarkConversationReadResponse, error)
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	GetUnreadCount(context.Context, *GetUnreadCountRequest) (*GetUnreadCountResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendMessage", Handler: rpc.Unary(SendMessageMethod, ChatServiceServer.SendMessage)},
		{MethodName: "GetMessages", Handler: rpc.Unary(GetMessagesMethod, ChatServiceServer.GetMessages)},
		{MethodName: "MarkRead", Handler: rpc.Unary(MarkReadMethod, ChatServiceServer.MarkRead)},
		{MethodName: "MarkConversationRead", Handler: rpc.Unary(MarkConversationReadMethod, ChatServiceServer.MarkConversationRead)},
		{MethodName: "ListConversations", Handler: rpc.Unary(ListConversationsMethod, ChatServiceServer.ListConversations)},
		{MethodName: "GetUnreadCount", Handler: rpc.Unary(GetUnreadCountMethod, ChatServiceServer.GetUnreadCount)},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ChatServiceClient calls ChatService using the JSON codec.
type ChatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) *ChatServiceClient {
	return &ChatServiceClient{cc: cc}
}

func (c *ChatServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return rpc.Invoke[SendMessageResponse](ctx, c.cc, SendMessageMethod, in, opts...)
}

func (c *ChatServiceClient) GetMessages(ctx context.Context, in *GetMessagesRequest, opts ...grpc.CallOption) (*GetMessagesResponse, error) {
	return rpc.Invoke[GetMessagesResponse](ctx, c.cc, GetMessagesMethod, in, opts...)
}

func (c *ChatServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return rpc.Invoke[MarkReadResponse](ctx, c.cc, MarkReadMethod, in, opts...)
}

func (c *ChatServiceClient) MarkConversationRead(ctx context.Context, in *MarkConversationReadRequest, opts ...grpc.CallOption) (*MarkConversationReadResponse, error) {
	return rpc.Invoke[MarkConversationReadResponse](ctx, c.cc, MarkConversationReadMethod, in, opts...)
}

func (c *ChatServiceClient) ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return rpc.Invoke[ListConversationsResponse](ctx, c.cc, ListConversationsMethod, in, opts...)
}

func (c *ChatServiceClient) GetUnreadCount(ctx context.Context, in *GetUnreadCountRequest, opts ...grpc.CallOption) (*GetUnreadCountResponse, error) {
	return rpc.Invoke[GetUnreadCountResponse](ctx, c.cc, GetUnreadCountMethod, in, opts...)
}
