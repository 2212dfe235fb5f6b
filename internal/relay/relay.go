package relay

import (
	"context"
	"log/slog"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/metrics"
)

// Messenger is the persistence side the relay hands inbound writes to.
type Messenger interface {
	Send(ctx context.Context, matchID, senderID, receiverID uint64, content string) (*db.Message, error)
	MarkConversationRead(ctx context.Context, matchID, readerID uint64) (int64, error)
}

// Relay pushes events to live connections and dispatches inbound events.
// Offline recipients are the normal case: nothing is queued or retried.
type Relay struct {
	registry  *Registry
	messenger Messenger
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates a relay over registry. The messenger is bound later with
// SetMessenger, since the messenger usually delivers through this relay.
func New(registry *Registry, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{registry: registry, logger: logger, metrics: m}
}

// SetMessenger binds the persistence side. Call before serving connections.
func (r *Relay) SetMessenger(m Messenger) {
	r.messenger = m
}

// Registry returns the presence registry the relay delivers through.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// Deliver pushes event to userID if they are online. Returns whether the
// event was queued on a live connection.
func (r *Relay) Deliver(event string, userID uint64, payload any) bool {
	conn, ok := r.registry.Lookup(userID)
	if !ok {
		r.logger.Debug("recipient offline", "event", event, "user", userID)
		r.metrics.Delivery(event, metrics.OutcomeOffline)
		return false
	}
	return r.push(conn, event, payload, "user", userID)
}

// RelayTyping forwards an ephemeral typing signal to toUserID if online.
func (r *Relay) RelayTyping(matchID, fromUserID, toUserID uint64) bool {
	return r.Deliver(EventUserTyping, toUserID, TypingPayload{MatchID: matchID, UserID: fromUserID})
}

// AcknowledgeSender confirms a stored message back to the connection that
// sent it.
func (r *Relay) AcknowledgeSender(conn Conn, payload MessagePayload) bool {
	return r.push(conn, EventMessageSent, payload, "conn", conn.ID())
}

// reply sends event on the originating connection.
func (r *Relay) reply(conn Conn, event string, payload any) bool {
	return r.push(conn, event, payload, "conn", conn.ID())
}

func (r *Relay) push(conn Conn, event string, payload any, who string, id any) bool {
	ev, err := NewEvent(event, payload)
	if err != nil {
		r.logger.Warn("event encode failed", "event", event, who, id, "err", err)
		r.metrics.Delivery(event, metrics.OutcomeDropped)
		return false
	}
	if err := conn.Send(ev); err != nil {
		r.logger.Warn("live push dropped", "event", event, who, id, "err", err)
		r.metrics.Delivery(event, metrics.OutcomeDropped)
		return false
	}
	r.metrics.Delivery(event, metrics.OutcomeDelivered)
	return true
}
