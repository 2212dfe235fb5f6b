package ws_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/app/apptest"
	"github.com/oggyb/muzz-match/internal/db/dbtest"
	"github.com/oggyb/muzz-match/internal/relay"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/service/chat"
	"github.com/oggyb/muzz-match/internal/transport/ws"
)

type liveStack struct {
	url   string
	relay *relay.Relay
	match uint64
}

func setupLive(t *testing.T) *liveStack {
	t.Helper()
	appCtx := apptest.New(t)
	dbtest.CreateUser(t, appCtx.DB, 1, "male")
	dbtest.CreateUser(t, appCtx.DB, 2, "female")
	m, _, err := repository.NewMatchRepository(appCtx.DB).CreateOrGet(context.Background(), 1, 2)
	require.NoError(t, err)

	r := relay.New(relay.NewRegistry(appCtx.Metrics.SetConnections), appCtx.Logger, appCtx.Metrics)
	svc := chat.NewService(chat.NewStore(appCtx, nil), r, appCtx.Logger)
	r.SetMessenger(svc)

	srv := httptest.NewServer(ws.NewHandler(r, appCtx.Logger, nil))
	t.Cleanup(func() {
		r.Registry().Close()
		srv.Close()
	})

	return &liveStack{url: "ws" + strings.TrimPrefix(srv.URL, "http"), relay: r, match: m.ID}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func write(t *testing.T, c *websocket.Conn, name string, data any) {
	t.Helper()
	ev, err := relay.NewEvent(name, data)
	require.NoError(t, err)
	require.NoError(t, c.WriteJSON(ev))
}

func read(t *testing.T, c *websocket.Conn) relay.Event {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev relay.Event
	require.NoError(t, c.ReadJSON(&ev))
	return ev
}

func register(t *testing.T, c *websocket.Conn, userID uint64) {
	t.Helper()
	write(t, c, relay.EventRegister, relay.RegisterData{UserID: userID})
	require.Equal(t, relay.EventRegistered, read(t, c).Event)
}

func TestLiveMessageFlow(t *testing.T) {
	live := setupLive(t)
	alice, bob := dial(t, live.url), dial(t, live.url)
	register(t, alice, 1)
	register(t, bob, 2)

	write(t, bob, relay.EventTyping, relay.TypingData{MatchID: live.match, UserID: 2, ReceiverID: 1})
	typing := read(t, alice)
	assert.Equal(t, relay.EventUserTyping, typing.Event)

	write(t, alice, relay.EventSendMessage, relay.SendMessageData{
		MatchID: live.match, SenderID: 1, ReceiverID: 2, Content: "hi bob", ClientID: "c-1",
	})

	incoming := read(t, bob)
	require.Equal(t, relay.EventNewMessage, incoming.Event)
	var msg relay.MessagePayload
	require.NoError(t, json.Unmarshal(incoming.Data, &msg))
	assert.Equal(t, "hi bob", msg.Content)
	assert.False(t, msg.Read)

	ack := read(t, alice)
	require.Equal(t, relay.EventMessageSent, ack.Event)
	var sent relay.MessagePayload
	require.NoError(t, json.Unmarshal(ack.Data, &sent))
	assert.Equal(t, msg.ID, sent.ID)
	assert.Equal(t, "c-1", sent.ClientID)

	write(t, bob, relay.EventMarkRead, relay.MarkReadData{MatchID: live.match, UserID: 2})
	assert.Equal(t, relay.EventMarkedRead, read(t, bob).Event)
	receipt := read(t, alice)
	assert.Equal(t, relay.EventMessagesRead, receipt.Event)
}

func TestLiveSendToUnknownMatch(t *testing.T) {
	live := setupLive(t)
	alice := dial(t, live.url)
	register(t, alice, 1)

	write(t, alice, relay.EventSendMessage, relay.SendMessageData{MatchID: 999, SenderID: 1, ReceiverID: 2, Content: "hi"})
	ev := read(t, alice)
	assert.Equal(t, relay.EventMessageError, ev.Event)
}

func TestLiveMalformedFrame(t *testing.T) {
	live := setupLive(t)
	c := dial(t, live.url)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, relay.EventError, read(t, c).Event)

	// the connection survives
	register(t, c, 1)
}

func TestLiveDisconnectUnregisters(t *testing.T) {
	live := setupLive(t)
	c := dial(t, live.url)
	register(t, c, 1)
	require.Equal(t, 1, live.relay.Registry().Len())

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool { return live.relay.Registry().Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
