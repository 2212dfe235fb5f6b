package chat_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/relay"
	"github.com/oggyb/muzz-match/internal/service/chat"
)

type delivery struct {
	event   string
	userID  uint64
	payload any
}

type fakeDeliverer struct {
	mu   sync.Mutex
	sent []delivery
}

func (f *fakeDeliverer) Deliver(event string, userID uint64, payload any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, delivery{event, userID, payload})
	return true
}

func (f *fakeDeliverer) deliveries() []delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delivery(nil), f.sent...)
}

type observerFunc func(msg *db.Message)

func (f observerFunc) OnMessageStored(msg *db.Message) { f(msg) }

func setupService(t *testing.T) (*chat.Service, *fakeDeliverer, *db.Match) {
	t.Helper()
	store, appCtx := setupStore(t)
	d := &fakeDeliverer{}
	svc := chat.NewService(store, d, logger.Nop())
	return svc, d, createMatch(t, appCtx, 1, 2)
}

func TestServiceSendDeliversAndNotifies(t *testing.T) {
	svc, d, m := setupService(t)

	var observed []*db.Message
	svc.Observe(observerFunc(func(msg *db.Message) { observed = append(observed, msg) }))

	msg, err := svc.Send(context.Background(), m.ID, 1, 2, "hi")
	require.NoError(t, err)

	got := d.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, relay.EventNewMessage, got[0].event)
	assert.Equal(t, uint64(2), got[0].userID)
	assert.Equal(t, msg.ID, got[0].payload.(relay.MessagePayload).ID)

	require.Len(t, observed, 1)
	assert.Equal(t, msg.ID, observed[0].ID)
}

func TestServiceSendFailureHasNoSideEffects(t *testing.T) {
	svc, d, _ := setupService(t)

	called := false
	svc.Observe(observerFunc(func(*db.Message) { called = true }))

	_, err := svc.Send(context.Background(), 999, 1, 2, "hi")
	require.Error(t, err)
	assert.Empty(t, d.deliveries())
	assert.False(t, called)
}

func TestServicePostReplySkipsObservers(t *testing.T) {
	svc, d, m := setupService(t)

	called := false
	svc.Observe(observerFunc(func(*db.Message) { called = true }))

	msg, err := svc.PostReply(context.Background(), m.ID, 2, 1, "hey there")
	require.NoError(t, err)
	assert.True(t, msg.IsAIGenerated)
	assert.False(t, called)

	got := d.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].userID)
}

func TestServiceReadReceipts(t *testing.T) {
	ctx := context.Background()
	svc, d, m := setupService(t)

	first, err := svc.Send(ctx, m.ID, 1, 2, "one")
	require.NoError(t, err)
	_, err = svc.Send(ctx, m.ID, 1, 2, "two")
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, first.ID)
	require.NoError(t, err)

	n, err := svc.MarkConversationRead(ctx, m.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// nothing left to read: no receipt
	n, err = svc.MarkConversationRead(ctx, m.ID, 2)
	require.NoError(t, err)
	assert.Zero(t, n)

	var receipts []relay.ReadPayload
	for _, dl := range d.deliveries() {
		if dl.event == relay.EventMessagesRead {
			assert.Equal(t, uint64(1), dl.userID)
			receipts = append(receipts, dl.payload.(relay.ReadPayload))
		}
	}
	require.Len(t, receipts, 2)
	assert.Equal(t, first.ID, receipts[0].MessageID)
	assert.Equal(t, int64(1), receipts[1].Count)
	assert.Equal(t, uint64(2), receipts[1].ReaderID)
}
