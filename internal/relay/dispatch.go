package relay

import (
	"context"
	"encoding/json"
	"fmt"

	svcErr "github.com/oggyb/muzz-match/internal/errors"
)

// Handle dispatches one inbound event from conn.
//
// Behavior:
//   - register binds the announced user to conn and acks with registered.
//   - send_message persists through the Messenger, acks the sender with
//     message_sent or replies message_error.
//   - typing forwards user_typing to the receiver.
//   - mark_read marks the conversation read and acks with marked_read.
//   - Anything malformed is answered on conn only; a panic while handling is
//     recovered and reported the same way.
func (r *Relay) Handle(ctx context.Context, conn Conn, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("live event handler panicked", "event", ev.Event, "conn", conn.ID(), "panic", rec)
			r.reply(conn, EventError, ErrorPayload{Event: ev.Event, Message: "internal error"})
		}
	}()

	switch ev.Event {
	case EventRegister:
		r.handleRegister(conn, ev)
	case EventSendMessage:
		r.handleSendMessage(ctx, conn, ev)
	case EventTyping:
		r.handleTyping(conn, ev)
	case EventMarkRead:
		r.handleMarkRead(ctx, conn, ev)
	default:
		// label stays bounded whatever the client sends
		r.metrics.MalformedEvent("unknown")
		r.reply(conn, EventError, ErrorPayload{Event: ev.Event, Message: fmt.Sprintf("unknown event %q", ev.Event)})
	}
}

// Reject answers an inbound frame that could not be decoded at all.
func (r *Relay) Reject(conn Conn, reason string) {
	r.malformed(conn, EventError, "undecodable", reason, "")
}

// Disconnect drops every presence entry held by conn.
func (r *Relay) Disconnect(conn Conn) {
	removed := r.registry.Unregister(conn)
	if len(removed) > 0 {
		r.logger.Debug("connection unregistered", "conn", conn.ID(), "users", removed)
	}
}

func (r *Relay) handleRegister(conn Conn, ev Event) {
	var in RegisterData
	if err := decode(ev, &in); err != nil || validate(in) != nil {
		r.malformed(conn, EventError, ev.Event, "userId is required", "")
		return
	}
	r.registry.Register(in.UserID, conn)
	r.logger.Debug("connection registered", "conn", conn.ID(), "user", in.UserID)
	r.reply(conn, EventRegistered, in)
}

func (r *Relay) handleSendMessage(ctx context.Context, conn Conn, ev Event) {
	var in SendMessageData
	if err := decode(ev, &in); err != nil {
		r.malformed(conn, EventMessageError, ev.Event, "invalid payload", "")
		return
	}
	if err := validate(in); err != nil {
		r.malformed(conn, EventMessageError, ev.Event, "matchId, senderId, distinct receiverId and content are required", in.ClientID)
		return
	}
	if r.messenger == nil {
		r.reply(conn, EventMessageError, ErrorPayload{Event: ev.Event, Message: "messaging unavailable", ClientID: in.ClientID})
		return
	}

	msg, err := r.messenger.Send(ctx, in.MatchID, in.SenderID, in.ReceiverID, in.Content)
	if err != nil {
		r.logger.Warn("live send failed", "match", in.MatchID, "sender", in.SenderID, "err", err)
		r.reply(conn, EventMessageError, ErrorPayload{Event: ev.Event, Message: svcErr.Reason(err), ClientID: in.ClientID})
		return
	}

	payload := FromMessage(msg)
	payload.ClientID = in.ClientID
	r.AcknowledgeSender(conn, payload)
}

func (r *Relay) handleTyping(conn Conn, ev Event) {
	var in TypingData
	if err := decode(ev, &in); err != nil || validate(in) != nil {
		r.malformed(conn, EventError, ev.Event, "matchId, userId and receiverId are required", "")
		return
	}
	r.RelayTyping(in.MatchID, in.UserID, in.ReceiverID)
}

func (r *Relay) handleMarkRead(ctx context.Context, conn Conn, ev Event) {
	var in MarkReadData
	if err := decode(ev, &in); err != nil || validate(in) != nil {
		r.malformed(conn, EventError, ev.Event, "matchId and userId are required", "")
		return
	}
	if r.messenger == nil {
		r.reply(conn, EventError, ErrorPayload{Event: ev.Event, Message: "messaging unavailable"})
		return
	}

	n, err := r.messenger.MarkConversationRead(ctx, in.MatchID, in.UserID)
	if err != nil {
		r.logger.Warn("live mark read failed", "match", in.MatchID, "reader", in.UserID, "err", err)
		r.reply(conn, EventError, ErrorPayload{Event: ev.Event, Message: svcErr.Reason(err)})
		return
	}
	r.reply(conn, EventMarkedRead, ReadPayload{MatchID: in.MatchID, ReaderID: in.UserID, Count: n})
}

func (r *Relay) malformed(conn Conn, reply, event, msg, clientID string) {
	r.logger.Debug("malformed live event", "event", event, "conn", conn.ID(), "reason", msg)
	r.metrics.MalformedEvent(event)
	r.reply(conn, reply, ErrorPayload{Event: event, Message: msg, ClientID: clientID})
}

func decode(ev Event, v any) error {
	if len(ev.Data) == 0 {
		return fmt.Errorf("missing data")
	}
	return json.Unmarshal(ev.Data, v)
}
