// Package matchrpc defines the muzz.match.v1.MatchService wire types,
// server interface, service descriptor and client.
package matchrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/muzz-match/internal/rpc"
)

const ServiceName = "muzz.match.v1.MatchService"

const (
	SwipeMethod          = "/" + ServiceName + "/Swipe"
	ListMatchesMethod    = "/" + ServiceName + "/ListMatches"
	ListCandidatesMethod = "/" + ServiceName + "/ListCandidates"
	ListLikedYouMethod   = "/" + ServiceName + "/ListLikedYou"
)

// Swipe decisions.
const (
	DecisionLike    = "like"
	DecisionDislike = "dislike"
)

type SwipeRequest struct {
	ActorUserID  uint64 `json:"actor_user_id"`
	TargetUserID uint64 `json:"target_user_id"`
	// Decision is "like" or "dislike".
	Decision string `json:"decision"`
}

type SwipeResponse struct {
	Matched bool   `json:"matched"`
	Created bool   `json:"created,omitempty"`
	MatchID uint64 `json:"match_id,omitempty"`
}

type Profile struct {
	UserID      uint64   `json:"user_id"`
	Name        string   `json:"name"`
	Gender      string   `json:"gender"`
	Age         int      `json:"age,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	Interests   []string `json:"interests,omitempty"`
	City        string   `json:"city,omitempty"`
	Country     string   `json:"country,omitempty"`
	IsPremium   bool     `json:"is_premium,omitempty"`
	IsSynthetic bool     `json:"is_synthetic,omitempty"`
}

type ListMatchesRequest struct {
	UserID uint64 `json:"user_id"`
}

type MatchEntry struct {
	MatchID             uint64  `json:"match_id"`
	With                Profile `json:"with"`
	CreatedAtUnixMillis int64   `json:"created_at_unix_millis"`
	// Zero until the first message.
	LastMessageAtUnixMillis int64 `json:"last_message_at_unix_millis,omitempty"`
}

type ListMatchesResponse struct {
	Matches []MatchEntry `json:"matches"`
}

type ListCandidatesRequest struct {
	UserID        uint64  `json:"user_id"`
	MinAge        int     `json:"min_age,omitempty"`
	MaxAge        int     `json:"max_age,omitempty"`
	MaxDistanceKm float64 `json:"max_distance_km,omitempty"`
}

type Candidate struct {
	Profile
	Visibility float64 `json:"visibility"`
	// Set only when a distance filter was applied.
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type ListCandidatesResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type ListLikedYouRequest struct {
	RecipientUserID uint64  `json:"recipient_user_id"`
	PaginationToken *string `json:"pagination_token,omitempty"`
	PageSize        int     `json:"page_size,omitempty"`
}

type Liker struct {
	ActorID       uint64 `json:"actor_id"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

type ListLikedYouResponse struct {
	Likers              []Liker `json:"likers"`
	NextPaginationToken *string `json:"next_pagination_token,omitempty"`
}

// MatchServiceServer is the server API for MatchService.
type MatchServiceServer interface {
	Swipe(context.Context, *SwipeRequest) (*SwipeResponse, error)
	ListMatches(context.Context, *ListMatchesRequest) (*ListMatchesResponse, error)
	ListCandidates(context.Context, *ListCandidatesRequest) (*ListCandidatesResponse, error)
	ListLikedYou(context.Context, *ListLikedYouRequest) (*ListLikedYouResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Swipe", Handler: rpc.Unary(SwipeMethod, MatchServiceServer.Swipe)},
		{MethodName: "ListMatches", Handler: rpc.Unary(ListMatchesMethod, MatchServiceServer.ListMatches)},
		{MethodName: "ListCandidates", Handler: rpc.Unary(ListCandidatesMethod, MatchServiceServer.ListCandidates)},
		{MethodName: "ListLikedYou", Handler: rpc.Unary(ListLikedYouMethod, MatchServiceServer.ListLikedYou)},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterMatchServiceServer(s grpc.ServiceRegistrar, srv MatchServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// MatchServiceClient calls MatchService using the JSON codec.
type MatchServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMatchServiceClient(cc grpc.ClientConnInterface) *MatchServiceClient {
	return &MatchServiceClient{cc: cc}
}

func (c *MatchServiceClient) Swipe(ctx context.Context, in *SwipeRequest, opts ...grpc.CallOption) (*SwipeResponse, error) {
	return rpc.Invoke[SwipeResponse](ctx, c.cc, SwipeMethod, in, opts...)
}

func (c *MatchServiceClient) ListMatches(ctx context.Context, in *ListMatchesRequest, opts ...grpc.CallOption) (*ListMatchesResponse, error) {
	return rpc.Invoke[ListMatchesResponse](ctx, c.cc, ListMatchesMethod, in, opts...)
}

func (c *MatchServiceClient) ListCandidates(ctx context.Context, in *ListCandidatesRequest, opts ...grpc.CallOption) (*ListCandidatesResponse, error) {
	return rpc.Invoke[ListCandidatesResponse](ctx, c.cc, ListCandidatesMethod, in, opts...)
}

func (c *MatchServiceClient) ListLikedYou(ctx context.Context, in *ListLikedYouRequest, opts ...grpc.CallOption) (*ListLikedYouResponse, error) {
	return rpc.Invoke[ListLikedYouResponse](ctx, c.cc, ListLikedYouMethod, in, opts...)
}
