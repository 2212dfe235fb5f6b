package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/utils/pagination"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Store owns Message rows and the read/unread projection built from them.
// It is the only writer of Match.LastMessageAt.
type Store struct {
	appCtx   *app.AppContext
	matches  *repository.MatchRepository
	messages *repository.MessageRepository
	users    *repository.UserRepository
	now      func() time.Time

	// collapses concurrent unread badge fills for the same user
	unread singleflight.Group
}

// NewStore creates a conversation store with dependencies from AppContext.
// now may be nil, in which case time.Now is used.
func NewStore(appCtx *app.AppContext, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		appCtx:   appCtx,
		matches:  repository.NewMatchRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
		users:    repository.NewUserRepository(appCtx.DB),
		now:      now,
	}
}

// SendInput is one message to persist.
type SendInput struct {
	MatchID     uint64
	SenderID    uint64
	ReceiverID  uint64
	Content     string
	AIGenerated bool
}

// SendMessage persists a message and moves the match's lastMessageAt forward.
//
// Behavior:
//   - The match must exist (ErrNotFound).
//   - Sender and receiver must be the match's two participants and content
//     must be non-blank (ErrInvalidArgument).
//   - The row is written with read = false before anything else happens;
//     delivery is layered on top by the caller.
func (s *Store) SendMessage(ctx context.Context, in SendInput) (*db.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content must not be empty", svcErr.ErrInvalidArgument)
	}

	m, err := s.Match(ctx, in.MatchID)
	if err != nil {
		return nil, err
	}
	if in.SenderID == in.ReceiverID || !m.Involves(in.SenderID) || !m.Involves(in.ReceiverID) {
		return nil, fmt.Errorf("%w: sender and receiver must be the participants of match %d",
			svcErr.ErrInvalidArgument, in.MatchID)
	}

	msg := &db.Message{
		MatchID:       in.MatchID,
		SenderID:      in.SenderID,
		ReceiverID:    in.ReceiverID,
		Content:       content,
		IsAIGenerated: in.AIGenerated,
		CreatedAt:     s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.appCtx.Metrics.MessageStored(msg.IsAIGenerated)
	s.invalidateUnread(ctx, msg.ReceiverID)
	s.appCtx.Logger.Debug("message stored", "match", msg.MatchID, "message", msg.ID, "ai", msg.IsAIGenerated)
	return msg, nil
}

// GetMessages returns one page of a match, oldest to newest within the page.
//
// Page 1 holds the newest messages. Rows are fetched newest-first and
// reversed, so walking pages from the highest number down to 1 and
// concatenating reproduces creation order.
func (s *Store) GetMessages(ctx context.Context, matchID uint64, page, pageSize int) ([]db.Message, error) {
	if _, err := s.Match(ctx, matchID); err != nil {
		return nil, err
	}

	offset, limit := pagination.Page(page, pageSize, DefaultPageSize, MaxPageSize)
	msgs, err := s.messages.NewestFirst(ctx, matchID, offset, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// RecentMessages returns the last n messages of a match in chronological order.
func (s *Store) RecentMessages(ctx context.Context, matchID uint64, n int) ([]db.Message, error) {
	msgs, err := s.messages.NewestFirst(ctx, matchID, 0, n)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// MarkRead flips a single message to read and returns the updated message.
func (s *Store) MarkRead(ctx context.Context, messageID uint64) (*db.Message, error) {
	msg, err := s.messages.MarkRead(ctx, messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: message %d", svcErr.ErrNotFound, messageID)
	}
	if err != nil {
		return nil, err
	}
	s.invalidateUnread(ctx, msg.ReceiverID)
	return msg, nil
}

// MarkConversationRead flips every unread message the reader received in the
// match. Returns how many changed; zero is a valid result.
func (s *Store) MarkConversationRead(ctx context.Context, matchID, readerID uint64) (int64, error) {
	if _, err := s.Match(ctx, matchID); err != nil {
		return 0, err
	}
	n, err := s.messages.MarkMatchRead(ctx, matchID, readerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidateUnread(ctx, readerID)
	}
	return n, nil
}

// Conversation is one match as seen from a participant.
type Conversation struct {
	Match       db.Match
	OtherUserID uint64
	// Other is nil when the profile could not be loaded.
	Other       *db.User
	LastMessage *db.Message
	UnreadCount int64
}

// ListConversations returns the user's conversations, most recently active
// first, with at most one entry per other participant.
//
// Behavior:
//   - Matches are read in store order (most recently active first); when two
//     rows resolve to the same other participant the first wins.
//   - LastMessage is nil for a match without messages.
//   - UnreadCount counts messages the user received and has not read.
func (s *Store) ListConversations(ctx context.Context, userID uint64) ([]Conversation, error) {
	matches, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint64]struct{}, len(matches))
	out := make([]Conversation, 0, len(matches))
	for _, m := range matches {
		other, ok := m.Other(userID)
		if !ok {
			continue
		}
		if _, dup := seen[other]; dup {
			s.appCtx.Logger.Warn("duplicate match for pair skipped", "match", m.ID, "user", userID, "other", other)
			continue
		}
		seen[other] = struct{}{}

		last, err := s.messages.Latest(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		unread, err := s.messages.CountUnreadInMatch(ctx, m.ID, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, Conversation{Match: m, OtherUserID: other, LastMessage: last, UnreadCount: unread})
	}

	ids := make([]uint64, len(out))
	for i := range out {
		ids[i] = out[i].OtherUserID
	}
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Other = users[out[i].OtherUserID]
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Match.ActiveAt().After(out[j].Match.ActiveAt())
	})
	return out, nil
}

// UnreadCount is the user's total unread badge across all matches.
// Cache-first strategy:
//  1. Attempts to read from Redis (unread:count:userID).
//  2. On miss, one caller per user counts in the DB; concurrent callers share
//     that result.
//  3. The DB result is written back with the default TTL, unless a send or
//     read invalidated the badge while the count ran.
func (s *Store) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	rc := s.appCtx.RedisCache
	if rc == nil {
		return s.messages.CountUnread(ctx, userID)
	}

	key := rc.KeyForUnreadCount(userID)
	v, err, _ := s.unread.Do(key, func() (any, error) {
		// the flight is shared, so one caller's cancellation must not fail the rest
		return rc.LoadCount(context.WithoutCancel(ctx), key, func(ctx context.Context) (int64, error) {
			return s.messages.CountUnread(ctx, userID)
		})
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Match fetches a match, mapping a missing row to ErrNotFound.
func (s *Store) Match(ctx context.Context, matchID uint64) (*db.Match, error) {
	m, err := s.matches.Get(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: match %d", svcErr.ErrNotFound, matchID)
	}
	return m, err
}

func (s *Store) invalidateUnread(ctx context.Context, userID uint64) {
	rc := s.appCtx.RedisCache
	if rc == nil {
		return
	}
	if err := rc.Invalidate(ctx, rc.KeyForUnreadCount(userID)); err != nil {
		s.appCtx.Logger.Warn("unread cache invalidation failed", "user", userID, "err", err)
	}
}
