package db

import (
	"time"
)

// Seeking preferences.
const (
	SeekingMale   = "male"
	SeekingFemale = "female"
	SeekingBoth   = "both"
)

// User table. The match core reads it; profile CRUD lives elsewhere.
type User struct {
	ID                uint64     `gorm:"primaryKey;autoIncrement"`
	Username          string     `gorm:"uniqueIndex;size:64;not null"`
	Email             string     `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash      string     `gorm:"size:255;not null"`
	Name              string     `gorm:"size:128"`
	Active            bool       `gorm:"default:true"`
	LastLoginAt       time.Time
	Gender            string     `gorm:"size:16;not null;index"`
	SeekingPreference string     `gorm:"size:16;not null;default:both"`
	DateOfBirth       *time.Time `gorm:"index"`
	Bio               string     `gorm:"type:text"`
	Interests         []string   `gorm:"serializer:json;type:text"`
	Latitude          *float64   `gorm:"index:idx_users_location,priority:1"`
	Longitude         *float64   `gorm:"index:idx_users_location,priority:2"`
	City              string     `gorm:"size:128"`
	Country           string     `gorm:"size:128"`
	Visibility        float64    `gorm:"not null;default:0"`
	IsPremium         bool       `gorm:"not null;default:false"`
	IsSynthetic       bool       `gorm:"not null;default:false;index"`
	CreatedAt         time.Time  `gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime"`
}

// HasLocation reports whether both coordinates are set.
func (u *User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// Age in whole years as of now. Zero when the date of birth is unknown.
func (u *User) Age(now time.Time) int {
	if u.DateOfBirth == nil {
		return 0
	}
	return AgeAt(*u.DateOfBirth, now)
}

// AgeAt computes whole years between dob and now.
func AgeAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// VisibilityFor is the default candidate boost for a profile.
// Premium members are surfaced ahead of free members.
func VisibilityFor(premium bool) float64 {
	if premium {
		return 10
	}
	return 1
}

// Interaction kinds. Each kind is one of the user's interaction sets.
const (
	KindLike    = "like"
	KindDislike = "dislike"
	KindMatch   = "match"
)

// Interaction is one membership of an actor's likes, dislikes or matchedWith set.
//
// Composite PK: (ActorID, TargetID, Kind)
//   - Set semantics: inserting the same membership twice is a no-op.
//
// Indexes:
//   - idx_target_kind_created(target_id, kind, created_at DESC, actor_id)
//     Optimizes "who liked me" listings with cursor pagination.
type Interaction struct {
	ActorID   uint64    `gorm:"primaryKey;autoIncrement:false"`
	TargetID  uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_target_kind_created,priority:1"`
	Kind      string    `gorm:"primaryKey;size:16;index:idx_target_kind_created,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_target_kind_created,priority:3,sort:desc"`
}

// Match is a mutual like between two users.
//
// The pair is stored canonically (UserLowID < UserHighID) under a unique
// index so that at most one Match exists per unordered pair.
type Match struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"`
	UserLowID     uint64     `gorm:"not null;uniqueIndex:idx_match_pair,priority:1"`
	UserHighID    uint64     `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	LastMessageAt *time.Time `gorm:"index"`
}

// CanonicalPair orders two user ids the way Match stores them.
func CanonicalPair(a, b uint64) (low, high uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Involves reports whether userID is one of the two participants.
func (m *Match) Involves(userID uint64) bool {
	return m.UserLowID == userID || m.UserHighID == userID
}

// Other returns the participant that is not userID.
func (m *Match) Other(userID uint64) (uint64, bool) {
	switch userID {
	case m.UserLowID:
		return m.UserHighID, true
	case m.UserHighID:
		return m.UserLowID, true
	}
	return 0, false
}

// ActiveAt is lastMessageAt when set, otherwise createdAt.
func (m *Match) ActiveAt() time.Time {
	if m.LastMessageAt != nil {
		return *m.LastMessageAt
	}
	return m.CreatedAt
}

// Message exchanged inside a match.
//
// Indexes:
//   - idx_match_created(match_id, created_at DESC, id DESC) for paging a conversation.
//   - idx_receiver_read(receiver_id, read) for unread badges.
type Message struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement;index:idx_match_created,priority:3,sort:desc"`
	MatchID       uint64    `gorm:"not null;index:idx_match_created,priority:1"`
	SenderID      uint64    `gorm:"not null"`
	ReceiverID    uint64    `gorm:"not null;index:idx_receiver_read,priority:1"`
	Content       string    `gorm:"type:text;not null"`
	Read          bool      `gorm:"not null;default:false;index:idx_receiver_read,priority:2"`
	IsAIGenerated bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"index:idx_match_created,priority:2,sort:desc"`
}
