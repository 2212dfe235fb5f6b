package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/utils/geo"
	"github.com/oggyb/muzz-match/internal/utils/pagination"
)

// Swipe results, used as the metrics "result" label.
const (
	resultRecorded = "recorded"
	resultMatched  = "matched"
	resultLimited  = "limited"
)

// Options tune the engine. Zero values fall back to the defaults below.
type Options struct {
	// LikeCap is the number of outgoing likes a free user may hold.
	LikeCap int
	// CandidateLimit bounds ListCandidates.
	CandidateLimit int
	// Now is the clock used for age filters. Defaults to time.Now.
	Now func() time.Time
}

const (
	defaultLikeCap        = 10
	defaultCandidateLimit = 20
	defaultLikersPageSize = 20
	maxLikersPageSize     = 100
)

// Engine owns the swipe/match state machine and candidate discovery.
// It is the only writer of the likes, dislikes and matchedWith sets.
type Engine struct {
	appCtx       *app.AppContext
	users        *repository.UserRepository
	interactions *repository.InteractionRepository
	matches      *repository.MatchRepository
	opts         Options
}

// NewEngine creates a match engine with dependencies from AppContext.
func NewEngine(appCtx *app.AppContext, opts Options) *Engine {
	if opts.LikeCap <= 0 {
		opts.LikeCap = defaultLikeCap
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = defaultCandidateLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		appCtx:       appCtx,
		users:        repository.NewUserRepository(appCtx.DB),
		interactions: repository.NewInteractionRepository(appCtx.DB),
		matches:      repository.NewMatchRepository(appCtx.DB),
		opts:         opts,
	}
}

// LikeResult is the outcome of RecordLike.
type LikeResult struct {
	// Matched is true when actor and target like each other.
	Matched bool
	// Created is true only for the call that wrote the Match row.
	Created bool
	Match   *db.Match
}

// RecordLike adds target to actor's likes and forms a match on mutual like.
//
// Behavior:
//   - A free actor already holding LikeCap likes gets ErrLikeLimitExceeded,
//     nothing is written.
//   - Re-liking is a no-op for the like set; the mutual check still runs.
//   - On mutual like the Match is created once per pair. A caller that loses
//     the race receives the existing Match with Created = false.
//
// Example:
//
//	res, err := engine.RecordLike(ctx, 1, 2)
//	if res.Matched { ... }
func (e *Engine) RecordLike(ctx context.Context, actorID, targetID uint64) (*LikeResult, error) {
	log := e.appCtx.Logger
	log.Debug("RecordLike called", "actor", actorID, "target", targetID)

	actor, _, err := e.pair(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	if !actor.IsPremium {
		count, err := e.likeCount(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if count >= int64(e.opts.LikeCap) {
			log.Debug("like cap reached", "actor", actorID, "likes", count)
			e.appCtx.Metrics.Swipe(db.KindLike, resultLimited)
			return nil, svcErr.ErrLikeLimitExceeded
		}
	}

	inserted, err := e.interactions.Add(ctx, actorID, targetID, db.KindLike)
	if err != nil {
		return nil, err
	}
	if inserted {
		e.invalidateLikeCount(ctx, actorID)
	}

	mutual, err := e.interactions.Has(ctx, targetID, actorID, db.KindLike)
	if err != nil {
		return nil, err
	}
	if !mutual {
		e.appCtx.Metrics.Swipe(db.KindLike, resultRecorded)
		return &LikeResult{}, nil
	}

	m, created, err := e.matches.CreateOrGet(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if created {
		log.Info("match created", "match", m.ID, "users", []uint64{m.UserLowID, m.UserHighID})
		e.appCtx.Metrics.MatchCreated()
	}
	e.appCtx.Metrics.Swipe(db.KindLike, resultMatched)

	return &LikeResult{Matched: true, Created: created, Match: m}, nil
}

// RecordDislike adds target to actor's dislikes. Idempotent, uncapped, and
// leaves any existing like in place.
func (e *Engine) RecordDislike(ctx context.Context, actorID, targetID uint64) error {
	e.appCtx.Logger.Debug("RecordDislike called", "actor", actorID, "target", targetID)

	if _, _, err := e.pair(ctx, actorID, targetID); err != nil {
		return err
	}
	if _, err := e.interactions.Add(ctx, actorID, targetID, db.KindDislike); err != nil {
		return err
	}
	e.appCtx.Metrics.Swipe(db.KindDislike, resultRecorded)
	return nil
}

// CandidateFilters are the optional narrowing inputs of ListCandidates.
// Zero means "not set" for every field.
type CandidateFilters struct {
	MinAge        int
	MaxAge        int
	MaxDistanceKm float64
}

// ListCandidates returns up to CandidateLimit profiles the user has not
// swiped on yet.
//
// Behavior:
//   - Excludes the user, their likes, dislikes and matches.
//   - Gender follows the user's seeking preference ("both" = any).
//   - Age bounds are computed from date of birth against the engine clock.
//   - The distance filter applies only when the user has a location and
//     MaxDistanceKm is set; the store returns those nearest first.
//   - The result is then stable-sorted by visibility, highest first.
func (e *Engine) ListCandidates(ctx context.Context, userID uint64, f CandidateFilters) ([]repository.Candidate, error) {
	e.appCtx.Logger.Debug("ListCandidates called", "user", userID, "filters", f)

	if f.MinAge < 0 || f.MaxAge < 0 || f.MaxDistanceKm < 0 || (f.MaxAge > 0 && f.MinAge > f.MaxAge) {
		return nil, fmt.Errorf("%w: bad candidate filters", svcErr.ErrInvalidArgument)
	}

	user, err := e.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	q := repository.CandidateQuery{UserID: userID, Limit: e.opts.CandidateLimit}
	if user.SeekingPreference != db.SeekingBoth && user.SeekingPreference != "" {
		q.Genders = []string{user.SeekingPreference}
	}

	today := truncateDay(e.opts.Now())
	if f.MinAge > 0 {
		// at least MinAge: born on or before today minus MinAge years
		before := today.AddDate(-f.MinAge, 0, 0)
		q.BornBefore = &before
	}
	if f.MaxAge > 0 {
		// at most MaxAge: born after today minus MaxAge+1 years
		after := today.AddDate(-(f.MaxAge + 1), 0, 1)
		q.BornAfter = &after
	}

	if f.MaxDistanceKm > 0 && user.HasLocation() {
		q.Near = &geo.Point{Lat: *user.Latitude, Lng: *user.Longitude}
		q.RadiusMeters = f.MaxDistanceKm * geo.MetersPerKm
	}

	candidates, err := e.users.FindCandidates(ctx, q)
	if err != nil {
		return nil, err
	}

	// visibility boost is a business rule applied on top of store order
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Visibility > candidates[j].Visibility
	})

	e.appCtx.Logger.Debug("ListCandidates result", "user", userID, "count", len(candidates))
	return candidates, nil
}

// MatchView is a match seen from one participant.
type MatchView struct {
	Match db.Match
	Other *db.User
}

// ListMatches returns the user's matches with the other participant
// resolved, most recently active first.
func (e *Engine) ListMatches(ctx context.Context, userID uint64) ([]MatchView, error) {
	if _, err := e.user(ctx, userID); err != nil {
		return nil, err
	}

	matches, err := e.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(matches))
	for i := range matches {
		other, _ := matches[i].Other(userID)
		ids = append(ids, other)
	}
	users, err := e.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]MatchView, 0, len(matches))
	for i, m := range matches {
		u, ok := users[ids[i]]
		if !ok {
			e.appCtx.Logger.Warn("match references missing user", "match", m.ID, "user", ids[i])
			continue
		}
		out = append(out, MatchView{Match: m, Other: u})
	}
	return out, nil
}

// Liker is a pending like pointing at the caller.
type Liker struct {
	UserID  uint64
	LikedAt time.Time
}

// ListLikers returns users who liked userID and are still waiting on a
// decision: actors the user disliked or already matched are excluded.
// Paged with an opaque cursor token.
func (e *Engine) ListLikers(ctx context.Context, userID uint64, token *string, limit int) ([]Liker, *string, error) {
	if token != nil {
		if _, err := pagination.Decode(*token); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", svcErr.ErrInvalidArgument, err)
		}
	}
	if limit <= 0 {
		limit = defaultLikersPageSize
	}
	if limit > maxLikersPageSize {
		limit = maxLikersPageSize
	}

	likes, next, err := e.interactions.GetLikers(ctx, userID, token, limit)
	if err != nil {
		return nil, nil, err
	}

	out := make([]Liker, len(likes))
	for i, l := range likes {
		out[i] = Liker{UserID: l.ActorID, LikedAt: l.CreatedAt}
	}
	return out, next, nil
}

// pair validates a swipe: distinct ids, both users exist.
func (e *Engine) pair(ctx context.Context, actorID, targetID uint64) (*db.User, *db.User, error) {
	if actorID == targetID {
		return nil, nil, fmt.Errorf("%w: cannot swipe on yourself", svcErr.ErrInvalidArgument)
	}
	actor, err := e.user(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	target, err := e.user(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	return actor, target, nil
}

func (e *Engine) user(ctx context.Context, id uint64) (*db.User, error) {
	u, err := e.users.GetUser(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %d", svcErr.ErrNotFound, id)
	}
	return u, err
}

// likeCount reads the outgoing like count.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:outgoing:userID).
//  2. On miss or Redis error, falls back to the DB.
//  3. On DB fetch, updates Redis with the default TTL.
func (e *Engine) likeCount(ctx context.Context, actorID uint64) (int64, error) {
	count := func(ctx context.Context) (int64, error) {
		return e.interactions.Count(ctx, actorID, db.KindLike)
	}
	rc := e.appCtx.RedisCache
	if rc == nil {
		return count(ctx)
	}
	return rc.LoadCount(ctx, rc.KeyForLikeCount(actorID), count)
}

func (e *Engine) invalidateLikeCount(ctx context.Context, actorID uint64) {
	rc := e.appCtx.RedisCache
	if rc == nil {
		return
	}
	if err := rc.Invalidate(ctx, rc.KeyForLikeCount(actorID)); err != nil {
		e.appCtx.Logger.Warn("like count cache invalidation failed", "actor", actorID, "err", err)
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
