package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-match/internal/db"
)

// MatchRepository provides data access methods for the Match model.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateOrGet records a match between a and b.
//
// Behavior:
//   - Pair is stored canonically; the unique idx_match_pair allows one row per pair.
//   - A conflict on the pair is not an error: the existing row is fetched and
//     returned with created = false.
//   - Both matchedWith memberships are written in the same transaction, so the
//     sets stay symmetric even when two callers race on the same pair.
//
// Example:
//
//	m, created, err := repo.CreateOrGet(ctx, 7, 3) // -> Match{UserLowID: 3, UserHighID: 7}
func (r *MatchRepository) CreateOrGet(
	ctx context.Context,
	a, b uint64,
) (match *db.Match, created bool, err error) {
	low, high := db.CanonicalPair(a, b)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := db.Match{UserLowID: low, UserHighID: high}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0

		if !created {
			if err := tx.Where("user_low_id = ? AND user_high_id = ?", low, high).First(&m).Error; err != nil {
				return err
			}
		}

		for _, in := range []db.Interaction{
			{ActorID: low, TargetID: high, Kind: db.KindMatch},
			{ActorID: high, TargetID: low, Kind: db.KindMatch},
		} {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&in).Error; err != nil {
				return err
			}
		}

		match = &m
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return match, created, nil
}

// Get fetches a match by id. Returns gorm.ErrRecordNotFound when missing.
func (r *MatchRepository) Get(ctx context.Context, id uint64) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByPair fetches the match for an unordered pair.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b uint64) (*db.Match, error) {
	low, high := db.CanonicalPair(a, b)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user_low_id = ? AND user_high_id = ?", low, high).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForUser returns every match involving userID, most recently active first.
//
// Ordering: COALESCE(last_message_at, created_at) DESC, id DESC.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("COALESCE(last_message_at, created_at) DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// touchLastMessage moves last_message_at forward to at. Never moves it back.
func touchLastMessage(tx *gorm.DB, matchID uint64, at time.Time) error {
	return tx.Model(&db.Match{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at < ?)", matchID, at).
		Update("last_message_at", at).Error
}
