package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/utils/pagination"
)

// InteractionRepository provides data access methods for the Interaction model.
// It encapsulates all queries over a user's likes, dislikes and matchedWith sets.
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new repository bound to the given DB connection.
func NewInteractionRepository(database *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: database}
}

// Add inserts actor -> target into the actor's set of the given kind.
//
// Behavior:
//   - If the membership already exists the row is left untouched.
//   - inserted reports whether a new row was written.
//
// Example:
//
//	repo.Add(ctx, 1, 2, db.KindLike) // user 1 liked user 2
func (r *InteractionRepository) Add(
	ctx context.Context,
	actorID, targetID uint64,
	kind string,
) (inserted bool, err error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Interaction{ActorID: actorID, TargetID: targetID, Kind: kind})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Has checks whether actor -> target is in the actor's set of the given kind.
//
// Example:
//
//	repo.Has(ctx, 2, 1, db.KindLike) // -> true if user 2 liked user 1
func (r *InteractionRepository) Has(
	ctx context.Context,
	actorID, targetID uint64,
	kind string,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("actor_id = ? AND target_id = ? AND kind = ?", actorID, targetID, kind).
		Count(&count).Error
	return count > 0, err
}

// Count returns the size of the actor's set of the given kind.
func (r *InteractionRepository) Count(
	ctx context.Context,
	actorID uint64,
	kind string,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("actor_id = ? AND kind = ?", actorID, kind).
		Count(&count).Error
	return count, err
}

// Targets returns the members of the actor's set of the given kind.
func (r *InteractionRepository) Targets(
	ctx context.Context,
	actorID uint64,
	kind string,
) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("actor_id = ? AND kind = ?", actorID, kind).
		Order("target_id").
		Pluck("target_id", &ids).Error
	return ids, err
}

// GetLikers returns the likes pointing at the recipient that are still open.
//
// Behavior:
//   - Only rows where target_id = X and kind = like are considered.
//   - Excludes actors the recipient disliked.
//   - Excludes actors the recipient is already matched with.
//   - Ordered by created_at DESC, actor_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.GetLikers(ctx, 42, nil, 20) // first 20 people waiting on user 42
func (r *InteractionRepository) GetLikers(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Interaction, *string, error) {
	var likes []db.Interaction

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("interactions i").
		Where("i.target_id = ? AND i.kind = ?", recipientID, db.KindLike).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM interactions i2
				WHERE i2.actor_id = ?
				  AND i2.target_id = i.actor_id
				  AND i2.kind IN (?, ?)
			)`, recipientID, db.KindDislike, db.KindMatch).
		Order("i.created_at DESC, i.actor_id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(i.created_at < ? OR (i.created_at = ? AND i.actor_id < ?))",
			ts, ts, cursor.ActorID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ActorID:     last.ActorID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
