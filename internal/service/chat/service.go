package chat

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/relay"
)

// Deliverer pushes events to online users. *relay.Relay implements it.
type Deliverer interface {
	Deliver(event string, userID uint64, payload any) bool
}

// MessageObserver is told about every human message after it is stored.
// Implementations must return quickly.
type MessageObserver interface {
	OnMessageStored(msg *db.Message)
}

// Service orchestrates the message path shared by gRPC and the live
// channel: persist first, then push live, then notify observers.
type Service struct {
	store     *Store
	deliverer Deliverer
	logger    *slog.Logger

	mu        sync.RWMutex
	observers []MessageObserver
}

// NewService creates the messaging service.
func NewService(store *Store, deliverer Deliverer, logger *slog.Logger) *Service {
	return &Service{store: store, deliverer: deliverer, logger: logger}
}

// Store exposes the underlying conversation store for read paths.
func (s *Service) Store() *Store {
	return s.store
}

// Observe registers o for stored human messages.
func (s *Service) Observe(o MessageObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Send persists a human message, pushes new_message to the receiver if
// online and notifies observers. Delivery never fails the send.
func (s *Service) Send(ctx context.Context, matchID, senderID, receiverID uint64, content string) (*db.Message, error) {
	msg, err := s.store.SendMessage(ctx, SendInput{
		MatchID:    matchID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	})
	if err != nil {
		return nil, err
	}

	s.deliverer.Deliver(relay.EventNewMessage, msg.ReceiverID, relay.FromMessage(msg))

	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()
	for _, o := range observers {
		o.OnMessageStored(msg)
	}
	return msg, nil
}

// PostReply persists a generated reply and pushes it like any other
// message. Observers are not notified, so replies never trigger replies.
func (s *Service) PostReply(ctx context.Context, matchID, senderID, receiverID uint64, content string) (*db.Message, error) {
	msg, err := s.store.SendMessage(ctx, SendInput{
		MatchID:     matchID,
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     content,
		AIGenerated: true,
	})
	if err != nil {
		return nil, err
	}
	s.deliverer.Deliver(relay.EventNewMessage, msg.ReceiverID, relay.FromMessage(msg))
	return msg, nil
}

// MarkRead marks one message read and tells its sender.
func (s *Service) MarkRead(ctx context.Context, messageID uint64) (*db.Message, error) {
	msg, err := s.store.MarkRead(ctx, messageID)
	if err != nil {
		return nil, err
	}
	s.deliverer.Deliver(relay.EventMessagesRead, msg.SenderID, relay.ReadPayload{
		MatchID:   msg.MatchID,
		ReaderID:  msg.ReceiverID,
		MessageID: msg.ID,
		Count:     1,
	})
	return msg, nil
}

// MarkConversationRead marks the reader's side of a match read and tells the
// other participant when anything changed.
func (s *Service) MarkConversationRead(ctx context.Context, matchID, readerID uint64) (int64, error) {
	n, err := s.store.MarkConversationRead(ctx, matchID, readerID)
	if err != nil || n == 0 {
		return n, err
	}

	m, err := s.store.Match(ctx, matchID)
	if err != nil {
		s.logger.Warn("read receipt skipped", "match", matchID, "err", err)
		return n, nil
	}
	if other, ok := m.Other(readerID); ok {
		s.deliverer.Deliver(relay.EventMessagesRead, other, relay.ReadPayload{
			MatchID:  matchID,
			ReaderID: readerID,
			Count:    n,
		})
	}
	return n, nil
}
