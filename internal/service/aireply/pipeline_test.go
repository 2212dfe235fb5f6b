package aireply_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/app/apptest"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/db/dbtest"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/metrics"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/service/aireply"
	"github.com/oggyb/muzz-match/internal/service/chat"
)

type nopDeliverer struct{}

func (nopDeliverer) Deliver(string, uint64, any) bool { return false }

// fakeGenerator replies with a fixed text and records every request.
type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	block bool
	reqs  []aireply.Request
}

func (g *fakeGenerator) Generate(ctx context.Context, req aireply.Request) (string, error) {
	g.mu.Lock()
	g.reqs = append(g.reqs, req)
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.reply, g.err
}

func (g *fakeGenerator) requests() []aireply.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]aireply.Request(nil), g.reqs...)
}

type fixture struct {
	appCtx   *app.AppContext
	svc      *chat.Service
	gen      *fakeGenerator
	pipeline *aireply.Pipeline
	match    *db.Match
}

var today = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

// setup creates human A (id 1) matched with synthetic X (id 2) and wires a
// pipeline with short delays.
func setup(t *testing.T, gen *fakeGenerator, opts aireply.Options) *fixture {
	t.Helper()
	appCtx := apptest.New(t)

	dbtest.CreateUser(t, appCtx.DB, 1, "male",
		dbtest.Born(1995, time.January, 10),
		dbtest.At(51.5, -0.12, "London"),
		dbtest.Bio("Coffee first", "climbing", "jazz"))
	dbtest.CreateUser(t, appCtx.DB, 2, "female",
		dbtest.Synthetic(),
		dbtest.Born(1997, time.August, 1),
		dbtest.Bio("Painter and part-time baker", "art", "baking"))
	dbtest.CreateUser(t, appCtx.DB, 3, "female")

	m, _, err := repository.NewMatchRepository(appCtx.DB).CreateOrGet(context.Background(), 1, 2)
	require.NoError(t, err)

	store := chat.NewStore(appCtx, nil)
	svc := chat.NewService(store, nopDeliverer{}, appCtx.Logger)

	if opts.MinDelay == 0 {
		opts.MinDelay = 10 * time.Millisecond
		opts.MaxDelay = 30 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return today }
	}
	p := aireply.NewPipeline(appCtx, gen, store, svc, opts)
	svc.Observe(p)
	t.Cleanup(p.Close)

	return &fixture{appCtx: appCtx, svc: svc, gen: gen, pipeline: p, match: m}
}

func (f *fixture) messages(t *testing.T) []db.Message {
	t.Helper()
	var msgs []db.Message
	require.NoError(t, f.appCtx.DB.Order("id").Find(&msgs).Error)
	return msgs
}

func (f *fixture) replies(outcome string) float64 {
	return testutil.ToFloat64(f.appCtx.Metrics.AIRepliesTotal.WithLabelValues(outcome))
}

func TestPipelineRepliesToHuman(t *testing.T) {
	ctx := context.Background()
	f := setup(t, &fakeGenerator{reply: "hey! how's your day going?"}, aireply.Options{})

	human, err := f.svc.Send(ctx, f.match.ID, 1, 2, "hi")
	require.NoError(t, err)

	// the human message is there right away, unread
	msgs := f.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, uint64(1), msgs[0].SenderID)
	assert.False(t, msgs[0].Read)
	assert.False(t, msgs[0].IsAIGenerated)

	require.Eventually(t, func() bool { return len(f.messages(t)) == 2 }, 2*time.Second, 10*time.Millisecond)

	reply := f.messages(t)[1]
	assert.Equal(t, uint64(2), reply.SenderID)
	assert.Equal(t, uint64(1), reply.ReceiverID)
	assert.Equal(t, f.match.ID, reply.MatchID)
	assert.True(t, reply.IsAIGenerated)
	assert.Equal(t, "hey! how's your day going?", reply.Content)
	assert.False(t, reply.CreatedAt.Before(human.CreatedAt))

	m, err := repository.NewMatchRepository(f.appCtx.DB).Get(ctx, f.match.ID)
	require.NoError(t, err)
	require.NotNil(t, m.LastMessageAt)
	assert.True(t, m.LastMessageAt.Equal(reply.CreatedAt))

	// give a stray second reply the chance to show up
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, f.messages(t), 2)
	assert.Equal(t, 1.0, f.replies(metrics.ReplySent))
}

func TestPipelineBuildsContext(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: "ok"}
	f := setup(t, gen, aireply.Options{HistoryWindow: 2})

	_, err := f.svc.Send(ctx, f.match.ID, 1, 2, "first")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(f.messages(t)) == 2 }, 2*time.Second, 10*time.Millisecond)

	_, err = f.svc.Send(ctx, f.match.ID, 1, 2, "second")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(gen.requests()) == 2 }, 2*time.Second, 10*time.Millisecond)

	req := gen.requests()[1]
	assert.Equal(t, "female", req.Self.Gender)
	assert.Equal(t, 27, req.Self.Age)
	assert.Equal(t, []string{"art", "baking"}, req.Self.Interests)
	assert.Equal(t, 30, req.Other.Age)
	assert.Equal(t, "London", req.Other.City)
	assert.Equal(t, "Coffee first", req.Other.Bio)

	assert.Equal(t, []aireply.Turn{
		{Role: aireply.RoleAssistant, Content: "ok"},
		{Role: aireply.RoleUser, Content: "second"},
	}, req.History)
}

func TestPipelineIgnoresHumanReceivers(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: "nope"}
	f := setup(t, gen, aireply.Options{})

	m, _, err := repository.NewMatchRepository(f.appCtx.DB).CreateOrGet(ctx, 1, 3)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, m.ID, 1, 3, "hello human")
	require.NoError(t, err)

	// replies from the synthetic profile itself never trigger anything either
	_, err = f.svc.PostReply(ctx, f.match.ID, 2, 1, "unprompted")
	require.NoError(t, err)

	f.pipeline.Close()
	assert.Empty(t, gen.requests())
	assert.Len(t, f.messages(t), 2)
}

func TestPipelineGenerationFailureIsContained(t *testing.T) {
	ctx := context.Background()
	f := setup(t, &fakeGenerator{err: errors.New("upstream 500")}, aireply.Options{})

	human, err := f.svc.Send(ctx, f.match.ID, 1, 2, "hi")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.replies(metrics.ReplyFailed) == 1 }, 2*time.Second, 10*time.Millisecond)
	f.pipeline.Close()

	msgs := f.messages(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, human.ID, msgs[0].ID)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestPipelineEmptyReplyIsAFailure(t *testing.T) {
	f := setup(t, &fakeGenerator{reply: "   "}, aireply.Options{})

	_, err := f.svc.Send(context.Background(), f.match.ID, 1, 2, "hi")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.replies(metrics.ReplyFailed) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, f.messages(t), 1)
}

func TestPipelineGenerationTimeout(t *testing.T) {
	f := setup(t, &fakeGenerator{block: true}, aireply.Options{GenerationTimeout: 20 * time.Millisecond})

	_, err := f.svc.Send(context.Background(), f.match.ID, 1, 2, "hi")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.replies(metrics.ReplyTimeout) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, f.messages(t), 1)
}

func TestPipelineCancelMatch(t *testing.T) {
	f := setup(t, &fakeGenerator{reply: "later"}, aireply.Options{MinDelay: time.Hour, MaxDelay: time.Hour})

	_, err := f.svc.Send(context.Background(), f.match.ID, 1, 2, "hi")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(f.gen.requests()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return f.pipeline.CancelMatch(f.match.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1.0, f.replies(metrics.ReplyCancelled))
	assert.Len(t, f.messages(t), 1)
}

func TestPipelineSwallowsMissingMatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t, &fakeGenerator{reply: "too late"}, aireply.Options{})

	_, err := f.svc.Send(ctx, f.match.ID, 1, 2, "hi")
	require.NoError(t, err)

	// match removed by an admin reset before the delay elapses
	require.NoError(t, f.appCtx.DB.Delete(&db.Match{}, f.match.ID).Error)

	require.Eventually(t, func() bool { return f.replies(metrics.ReplyDiscarded) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, f.messages(t), 1)
}

type failingPoster struct{}

func (failingPoster) PostReply(context.Context, uint64, uint64, uint64, string) (*db.Message, error) {
	return nil, svcErr.ErrNotFound
}

func TestPipelineCloseDropsPendingReplies(t *testing.T) {
	appCtx := apptest.New(t)
	dbtest.CreateUser(t, appCtx.DB, 1, "male")
	dbtest.CreateUser(t, appCtx.DB, 2, "female", dbtest.Synthetic())
	m, _, err := repository.NewMatchRepository(appCtx.DB).CreateOrGet(context.Background(), 1, 2)
	require.NoError(t, err)

	store := chat.NewStore(appCtx, nil)
	gen := &fakeGenerator{reply: "hi"}
	p := aireply.NewPipeline(appCtx, gen, store, failingPoster{}, aireply.Options{MinDelay: time.Hour, MaxDelay: time.Hour})

	msg, err := store.SendMessage(context.Background(), chat.SendInput{MatchID: m.ID, SenderID: 1, ReceiverID: 2, Content: "hey"})
	require.NoError(t, err)
	p.OnMessageStored(msg)

	require.Eventually(t, func() bool { return len(gen.requests()) == 1 }, 2*time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	// closed pipelines ignore new messages
	p.OnMessageStored(msg)
	assert.Len(t, gen.requests(), 1)
	assert.Zero(t, testutil.ToFloat64(appCtx.Metrics.AIRepliesTotal.WithLabelValues(metrics.ReplySent)))
}
