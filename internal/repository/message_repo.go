package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
)

// MessageRepository provides data access methods for the Message model.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create persists msg and moves the match's last_message_at forward to the
// message timestamp, in one transaction.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return touchLastMessage(tx, msg.MatchID, msg.CreatedAt)
	})
}

// Get fetches a message by id. Returns gorm.ErrRecordNotFound when missing.
func (r *MessageRepository) Get(ctx context.Context, id uint64) (*db.Message, error) {
	var m db.Message
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// NewestFirst returns one page of a match's messages, newest first.
//
// Ordering: created_at DESC, id DESC (id breaks ties between messages
// stored in the same millisecond).
func (r *MessageRepository) NewestFirst(
	ctx context.Context,
	matchID uint64,
	offset, limit int,
) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// Latest returns the newest message of a match, or nil if there is none.
func (r *MessageRepository) Latest(ctx context.Context, matchID uint64) (*db.Message, error) {
	var m db.Message
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at DESC, id DESC").
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkRead flips a single message to read and returns the updated row.
func (r *MessageRepository) MarkRead(ctx context.Context, id uint64) (*db.Message, error) {
	var m db.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return err
		}
		if m.Read {
			return nil
		}
		m.Read = true
		return tx.Model(&db.Message{}).Where("id = ?", id).Update("read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkMatchRead flips every unread message received by readerID in the
// match. Returns the number of rows changed.
func (r *MessageRepository) MarkMatchRead(ctx context.Context, matchID, readerID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND receiver_id = ? AND `read` = ?", matchID, readerID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// CountUnread counts unread messages received by userID across all matches.
func (r *MessageRepository) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("receiver_id = ? AND `read` = ?", userID, false).
		Count(&count).Error
	return count, err
}

// CountUnreadInMatch counts unread messages received by userID in one match.
func (r *MessageRepository) CountUnreadInMatch(ctx context.Context, matchID, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND receiver_id = ? AND `read` = ?", matchID, userID, false).
		Count(&count).Error
	return count, err
}
