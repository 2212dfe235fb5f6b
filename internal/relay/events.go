package relay

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/oggyb/muzz-match/internal/db"
)

// Inbound events (client -> server).
const (
	EventRegister    = "register"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventMarkRead    = "mark_read"
)

// Outbound events (server -> client).
const (
	EventRegistered   = "registered"
	EventNewMessage   = "new_message"
	EventMessageSent  = "message_sent"
	EventMessageError = "message_error"
	EventUserTyping   = "user_typing"
	EventMessagesRead = "messages_read"
	EventMarkedRead   = "marked_read"
	EventError        = "error"
)

// Event is the envelope for both directions of the live channel.
// Data is left raw on the way in and decoded per event type.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an outbound envelope.
func NewEvent(name string, payload any) (Event, error) {
	if payload == nil {
		return Event{Event: name}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Event: name, Data: b}, nil
}

// inboundValidate checks decoded inbound payloads.
var inboundValidate *validator.Validate

func init() {
	inboundValidate = validator.New()
	_ = inboundValidate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

type RegisterData struct {
	UserID uint64 `json:"userId" validate:"required"`
}

type SendMessageData struct {
	MatchID    uint64 `json:"matchId" validate:"required"`
	SenderID   uint64 `json:"senderId" validate:"required"`
	ReceiverID uint64 `json:"receiverId" validate:"required,nefield=SenderID"`
	Content    string `json:"content" validate:"notblank"`
	// ClientID is echoed back so the sender can reconcile its optimistic copy.
	ClientID string `json:"clientId,omitempty" validate:"max=128"`
}

type TypingData struct {
	MatchID    uint64 `json:"matchId" validate:"required"`
	UserID     uint64 `json:"userId" validate:"required"`
	ReceiverID uint64 `json:"receiverId" validate:"required"`
}

type MarkReadData struct {
	MatchID uint64 `json:"matchId" validate:"required"`
	UserID  uint64 `json:"userId" validate:"required"`
}

func validate(v any) error { return inboundValidate.Struct(v) }

// MessagePayload is a stored message as pushed to clients.
type MessagePayload struct {
	ID            uint64 `json:"id"`
	MatchID       uint64 `json:"matchId"`
	SenderID      uint64 `json:"senderId"`
	ReceiverID    uint64 `json:"receiverId"`
	Content       string `json:"content"`
	Read          bool   `json:"read"`
	IsAIGenerated bool   `json:"isAIGenerated"`
	CreatedAt     int64  `json:"createdAt"`
	ClientID      string `json:"clientId,omitempty"`
}

// FromMessage converts a stored message to its wire form.
func FromMessage(m *db.Message) MessagePayload {
	return MessagePayload{
		ID:            m.ID,
		MatchID:       m.MatchID,
		SenderID:      m.SenderID,
		ReceiverID:    m.ReceiverID,
		Content:       m.Content,
		Read:          m.Read,
		IsAIGenerated: m.IsAIGenerated,
		CreatedAt:     m.CreatedAt.UnixMilli(),
	}
}

type TypingPayload struct {
	MatchID uint64 `json:"matchId"`
	UserID  uint64 `json:"userId"`
}

// ReadPayload tells the counterpart that the reader has caught up.
type ReadPayload struct {
	MatchID   uint64 `json:"matchId"`
	ReaderID  uint64 `json:"readerId"`
	MessageID uint64 `json:"messageId,omitempty"`
	Count     int64  `json:"count"`
}

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
	// ClientID is set on message_error when the send carried one.
	ClientID string `json:"clientId,omitempty"`
}
