// Package aireply writes delayed replies on behalf of synthetic profiles.
//
// The pipeline observes stored human messages. When the receiver is a
// synthetic profile it gathers both personas and the recent history,
// asks a Generator for a reply and schedules it to be posted after a short
// random delay through the same path as any other message. Nothing in here
// can fail or roll back the message that triggered it.
package aireply

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/metrics"
	"github.com/oggyb/muzz-match/internal/repository"
)

// Poster persists and delivers a generated reply.
type Poster interface {
	PostReply(ctx context.Context, matchID, senderID, receiverID uint64, content string) (*db.Message, error)
}

// History returns the last n messages of a match, oldest first.
type History interface {
	RecentMessages(ctx context.Context, matchID uint64, n int) ([]db.Message, error)
}

type Options struct {
	GenerationTimeout time.Duration
	MinDelay          time.Duration
	MaxDelay          time.Duration
	HistoryWindow     int
	// Now is the clock used for ages. Defaults to time.Now.
	Now func() time.Time
}

const (
	defaultGenerationTimeout = 20 * time.Second
	defaultMinDelay          = time.Second
	defaultMaxDelay          = 3 * time.Second
	defaultHistoryWindow     = 10
)

type Pipeline struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	history History
	poster  Poster
	gen     Generator
	sched   *Scheduler
	opts    Options

	// ctx outlives any request; Close cancels it
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPipeline creates a reply pipeline.
func NewPipeline(appCtx *app.AppContext, gen Generator, history History, poster Poster, opts Options) *Pipeline {
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = defaultGenerationTimeout
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = defaultMinDelay
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = max(opts.MinDelay, defaultMaxDelay)
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		history: history,
		poster:  poster,
		gen:     gen,
		sched:   NewScheduler(),
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnMessageStored starts the pipeline for msg in the background and returns
// immediately. Generated messages are ignored.
func (p *Pipeline) OnMessageStored(msg *db.Message) {
	if msg.IsAIGenerated {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.wg.Add(1)
	go func(m db.Message) {
		defer p.wg.Done()
		p.run(&m)
	}(*msg)
}

// CancelMatch drops replies still waiting to be posted in matchID.
func (p *Pipeline) CancelMatch(matchID uint64) int {
	n := p.sched.CancelMatch(matchID)
	for i := 0; i < n; i++ {
		p.appCtx.Metrics.AIReply(metrics.ReplyCancelled)
	}
	if n > 0 {
		p.appCtx.Logger.Info("pending AI replies cancelled", "match", matchID, "count", n)
	}
	return n
}

// Close stops accepting messages, aborts in-flight generation, drops pending
// replies and waits for everything to return.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	p.sched.Close()
}

func (p *Pipeline) run(msg *db.Message) {
	log := p.appCtx.Logger.With("match", msg.MatchID, "message", msg.ID)

	receiver, err := p.users.GetUser(p.ctx, msg.ReceiverID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("AI reply skipped: receiver lookup failed", "err", err)
		}
		return
	}
	if !receiver.IsSynthetic {
		return
	}

	req, err := p.gather(p.ctx, msg, receiver)
	if err != nil {
		log.Warn("AI reply skipped: context unavailable", "err", err)
		p.appCtx.Metrics.AIReply(metrics.ReplyFailed)
		return
	}

	reply, err := p.generate(p.ctx, req)
	if err != nil {
		outcome := metrics.ReplyFailed
		if errors.Is(err, svcErr.ErrGenerationTimeout) {
			outcome = metrics.ReplyTimeout
		}
		log.Warn("AI reply not produced", "err", err)
		p.appCtx.Metrics.AIReply(outcome)
		return
	}

	key := Key{MatchID: msg.MatchID, MessageID: msg.ID}
	delay := p.delay()
	if !p.sched.Schedule(key, delay, func() { p.post(msg, receiver.ID, reply) }) {
		log.Debug("AI reply not scheduled")
		p.appCtx.Metrics.AIReply(metrics.ReplyDiscarded)
		return
	}
	log.Debug("AI reply scheduled", "delay", delay)
}

// gather loads the human's profile and the recent history concurrently.
func (p *Pipeline) gather(ctx context.Context, msg *db.Message, self *db.User) (Request, error) {
	var (
		other   *db.User
		history []db.Message
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := p.users.GetUser(gctx, msg.SenderID)
		if err != nil {
			return fmt.Errorf("load sender %d: %w", msg.SenderID, err)
		}
		other = u
		return nil
	})
	g.Go(func() error {
		h, err := p.history.RecentMessages(gctx, msg.MatchID, p.opts.HistoryWindow)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		history = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return Request{}, err
	}

	now := p.opts.Now()
	return Request{
		Self:    personaOf(self, now),
		Other:   personaOf(other, now),
		History: historyOf(history, self.ID),
	}, nil
}

// generate calls the Generator under GenerationTimeout. A timeout, an error
// and an empty reply are all reported as generation errors.
func (p *Pipeline) generate(ctx context.Context, req Request) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, p.opts.GenerationTimeout)
	defer cancel()

	start := time.Now()
	reply, err := p.gen.Generate(gctx, req)
	p.appCtx.Metrics.ObserveGeneration(time.Since(start).Seconds())

	switch {
	case errors.Is(gctx.Err(), context.DeadlineExceeded):
		return "", fmt.Errorf("%w after %s", svcErr.ErrGenerationTimeout, p.opts.GenerationTimeout)
	case err != nil:
		return "", fmt.Errorf("%w: %v", svcErr.ErrGenerationFailure, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", svcErr.ErrGenerationFailure)
	}
	return reply, nil
}

// post writes the reply addressed back to the human who triggered it.
func (p *Pipeline) post(trigger *db.Message, syntheticID uint64, reply string) {
	log := p.appCtx.Logger.With("match", trigger.MatchID, "message", trigger.ID)

	msg, err := p.poster.PostReply(p.ctx, trigger.MatchID, syntheticID, trigger.SenderID, reply)
	switch {
	case errors.Is(err, svcErr.ErrNotFound):
		log.Info("AI reply discarded: match no longer exists")
		p.appCtx.Metrics.AIReply(metrics.ReplyDiscarded)
	case err != nil:
		log.Warn("AI reply not posted", "err", err)
		p.appCtx.Metrics.AIReply(metrics.ReplyFailed)
	default:
		log.Debug("AI reply posted", "reply", msg.ID)
		p.appCtx.Metrics.AIReply(metrics.ReplySent)
	}
}

// delay is uniform in [MinDelay, MaxDelay].
func (p *Pipeline) delay() time.Duration {
	span := p.opts.MaxDelay - p.opts.MinDelay
	if span <= 0 {
		return p.opts.MinDelay
	}
	return p.opts.MinDelay + rand.N(span+1)
}
