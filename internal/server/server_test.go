package server_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oggyb/muzz-match/internal/app/apptest"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db/dbtest"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/metrics"
	"github.com/oggyb/muzz-match/internal/relay"
	"github.com/oggyb/muzz-match/internal/rpc/chatrpc"
	"github.com/oggyb/muzz-match/internal/rpc/matchrpc"
	"github.com/oggyb/muzz-match/internal/server"
	"github.com/oggyb/muzz-match/internal/service/chat"
	"github.com/oggyb/muzz-match/internal/service/match"
)

func startGRPC(t *testing.T) *grpc.ClientConn {
	t.Helper()
	appCtx := apptest.New(t)
	dbtest.CreateUser(t, appCtx.DB, 1, "male")
	dbtest.CreateUser(t, appCtx.DB, 2, "female")

	r := relay.New(relay.NewRegistry(nil), appCtx.Logger, appCtx.Metrics)
	svc := chat.NewService(chat.NewStore(appCtx, nil), r, appCtx.Logger)
	r.SetMessenger(svc)

	grpcServer, _ := server.NewGRPCServer(appCtx.Logger,
		match.NewRegistrar(match.NewEngine(appCtx, match.Options{})),
		chat.NewRegistrar(svc),
	)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGRPCSwipeToConversation(t *testing.T) {
	ctx := context.Background()
	conn := startGRPC(t)
	matches := matchrpc.NewMatchServiceClient(conn)
	chats := chatrpc.NewChatServiceClient(conn)

	first, err := matches.Swipe(ctx, &matchrpc.SwipeRequest{ActorUserID: 1, TargetUserID: 2, Decision: "like"})
	require.NoError(t, err)
	assert.False(t, first.Matched)

	second, err := matches.Swipe(ctx, &matchrpc.SwipeRequest{ActorUserID: 2, TargetUserID: 1, Decision: "like"})
	require.NoError(t, err)
	require.True(t, second.Matched)
	assert.True(t, second.Created)

	listed, err := matches.ListMatches(ctx, &matchrpc.ListMatchesRequest{UserID: 1})
	require.NoError(t, err)
	require.Len(t, listed.Matches, 1)
	assert.Equal(t, uint64(2), listed.Matches[0].With.UserID)

	sent, err := chats.SendMessage(ctx, &chatrpc.SendMessageRequest{MatchID: second.MatchID, SenderID: 1, ReceiverID: 2, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", sent.Message.Content)

	unread, err := chats.GetUnreadCount(ctx, &chatrpc.GetUnreadCountRequest{UserID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread.Count)

	convs, err := chats.ListConversations(ctx, &chatrpc.ListConversationsRequest{UserID: 2})
	require.NoError(t, err)
	require.Len(t, convs.Conversations, 1)
	require.NotNil(t, convs.Conversations[0].LastMessage)
	assert.Equal(t, sent.Message.ID, convs.Conversations[0].LastMessage.ID)

	marked, err := chats.MarkConversationRead(ctx, &chatrpc.MarkConversationReadRequest{MatchID: second.MatchID, ReaderID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked.Updated)
}

func TestGRPCErrorCodes(t *testing.T) {
	ctx := context.Background()
	conn := startGRPC(t)
	matches := matchrpc.NewMatchServiceClient(conn)
	chats := chatrpc.NewChatServiceClient(conn)

	_, err := matches.Swipe(ctx, &matchrpc.SwipeRequest{ActorUserID: 1, TargetUserID: 1, Decision: "like"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = matches.Swipe(ctx, &matchrpc.SwipeRequest{ActorUserID: 1, TargetUserID: 42, Decision: "like"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = chats.GetMessages(ctx, &chatrpc.GetMessagesRequest{MatchID: 999})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCHealth(t *testing.T) {
	conn := startGRPC(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func newHTTP(t *testing.T, checks map[string]server.HealthCheck, origins ...string) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	cfg := config.New()
	cfg.HTTP.AllowedOrigins = []string{"http://app.test"}
	if len(origins) > 0 {
		cfg.HTTP.AllowedOrigins = origins
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	live := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	srv := httptest.NewServer(server.NewHTTPServer(cfg, logger.Nop(), live, reg, checks).Handler)
	t.Cleanup(srv.Close)
	return srv, m
}

func get(t *testing.T, url string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHTTPHealth(t *testing.T) {
	appCtx := apptest.New(t)
	srv, _ := newHTTP(t, map[string]server.HealthCheck{
		"db": func(ctx context.Context) error {
			sqlDB, err := appCtx.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": appCtx.RedisCache.Ping,
	})

	resp, body := get(t, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy","checks":{"db":"ok","redis":"ok"}}`, body)
}

func TestHTTPHealthFailing(t *testing.T) {
	srv, _ := newHTTP(t, map[string]server.HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	resp, body := get(t, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, `"unhealthy"`)
	assert.Contains(t, body, "connection refused")
}

func TestHTTPMetricsAndRoutes(t *testing.T) {
	srv, m := newHTTP(t, nil)
	m.Swipe("like", "matched")

	resp, body := get(t, srv.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `muzz_match_swipes_total{decision="like",result="matched"} 1`)

	resp, _ = get(t, srv.URL+"/ws", nil)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/health", http.Header{"Origin": {"http://app.test"}})
	assert.Equal(t, "http://app.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	resp, _ = get(t, srv.URL+"/health", http.Header{"Origin": {"http://evil.test"}})
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHTTPWildcardOriginsWithoutCredentials(t *testing.T) {
	srv, _ := newHTTP(t, nil, "*")

	resp, _ := get(t, srv.URL+"/health", http.Header{"Origin": {"http://evil.test"}})
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}
