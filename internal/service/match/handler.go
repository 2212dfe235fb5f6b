package match

import (
	"context"
	"time"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/rpc/matchrpc"
	"github.com/oggyb/muzz-match/internal/utils/geo"
)

// Handler implements the MatchService gRPC API on top of the Engine.
type Handler struct {
	engine *Engine
}

// NewHandler creates a MatchService handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

var _ matchrpc.MatchServiceServer = (*Handler)(nil)

// Swipe records a like or a dislike.
//
// Example:
//
//	h.Swipe(ctx, &matchrpc.SwipeRequest{ActorUserID: 1, TargetUserID: 2, Decision: "like"})
func (h *Handler) Swipe(ctx context.Context, req *matchrpc.SwipeRequest) (*matchrpc.SwipeResponse, error) {
	if req.ActorUserID == 0 || req.TargetUserID == 0 {
		return nil, svcErr.InvalidArgument("actor_user_id and target_user_id are required")
	}

	switch req.Decision {
	case matchrpc.DecisionLike:
		res, err := h.engine.RecordLike(ctx, req.ActorUserID, req.TargetUserID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		resp := &matchrpc.SwipeResponse{Matched: res.Matched, Created: res.Created}
		if res.Match != nil {
			resp.MatchID = res.Match.ID
		}
		return resp, nil

	case matchrpc.DecisionDislike:
		if err := h.engine.RecordDislike(ctx, req.ActorUserID, req.TargetUserID); err != nil {
			return nil, svcErr.Map(err)
		}
		return &matchrpc.SwipeResponse{}, nil

	default:
		return nil, svcErr.InvalidArgument("decision must be like or dislike")
	}
}

// ListMatches returns the caller's matches, most recently active first.
func (h *Handler) ListMatches(ctx context.Context, req *matchrpc.ListMatchesRequest) (*matchrpc.ListMatchesResponse, error) {
	views, err := h.engine.ListMatches(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	now := h.engine.opts.Now()
	resp := &matchrpc.ListMatchesResponse{Matches: make([]matchrpc.MatchEntry, 0, len(views))}
	for _, v := range views {
		entry := matchrpc.MatchEntry{
			MatchID:             v.Match.ID,
			With:                profileOf(v.Other, now),
			CreatedAtUnixMillis: v.Match.CreatedAt.UnixMilli(),
		}
		if v.Match.LastMessageAt != nil {
			entry.LastMessageAtUnixMillis = v.Match.LastMessageAt.UnixMilli()
		}
		resp.Matches = append(resp.Matches, entry)
	}
	return resp, nil
}

// ListCandidates returns potential matches for the caller.
func (h *Handler) ListCandidates(ctx context.Context, req *matchrpc.ListCandidatesRequest) (*matchrpc.ListCandidatesResponse, error) {
	candidates, err := h.engine.ListCandidates(ctx, req.UserID, CandidateFilters{
		MinAge:        req.MinAge,
		MaxAge:        req.MaxAge,
		MaxDistanceKm: req.MaxDistanceKm,
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	now := h.engine.opts.Now()
	resp := &matchrpc.ListCandidatesResponse{Candidates: make([]matchrpc.Candidate, 0, len(candidates))}
	for i := range candidates {
		c := candidates[i]
		out := matchrpc.Candidate{Profile: profileOf(&c.User, now), Visibility: c.Visibility}
		if c.DistanceMeters != nil {
			km := *c.DistanceMeters / geo.MetersPerKm
			out.DistanceKm = &km
		}
		resp.Candidates = append(resp.Candidates, out)
	}
	return resp, nil
}

// ListLikedYou returns users who liked the recipient and are still waiting.
// Supports cursor-based pagination with PaginationToken.
func (h *Handler) ListLikedYou(ctx context.Context, req *matchrpc.ListLikedYouRequest) (*matchrpc.ListLikedYouResponse, error) {
	if req.RecipientUserID == 0 {
		return nil, svcErr.InvalidArgument("recipient_user_id is required")
	}

	likers, next, err := h.engine.ListLikers(ctx, req.RecipientUserID, req.PaginationToken, req.PageSize)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &matchrpc.ListLikedYouResponse{Likers: make([]matchrpc.Liker, 0, len(likers)), NextPaginationToken: next}
	for _, l := range likers {
		resp.Likers = append(resp.Likers, matchrpc.Liker{ActorID: l.UserID, UnixTimestamp: l.LikedAt.UnixMilli()})
	}
	return resp, nil
}

func profileOf(u *db.User, now time.Time) matchrpc.Profile {
	return matchrpc.Profile{
		UserID:      u.ID,
		Name:        u.Name,
		Gender:      u.Gender,
		Age:         u.Age(now),
		Bio:         u.Bio,
		Interests:   u.Interests,
		City:        u.City,
		Country:     u.Country,
		IsPremium:   u.IsPremium,
		IsSynthetic: u.IsSynthetic,
	}
}
