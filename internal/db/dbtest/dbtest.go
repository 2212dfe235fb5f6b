// Package dbtest opens isolated in-memory SQLite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/muzz-match/internal/db"
)

// Open spins up an in-memory SQLite DB named after the test, applies
// migrations and closes it on cleanup.
//
// The pool is capped at one connection so goroutines spawned by the code
// under test (AI replies, concurrent likes) serialize on SQLite instead of
// failing with "database table is locked".
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

// UserOpt tweaks a user before insert.
type UserOpt func(u *db.User)

func Premium() UserOpt {
	return func(u *db.User) {
		u.IsPremium = true
		u.Visibility = db.VisibilityFor(true)
	}
}

func Synthetic() UserOpt {
	return func(u *db.User) { u.IsSynthetic = true }
}

func Seeking(p string) UserOpt {
	return func(u *db.User) { u.SeekingPreference = p }
}

func Visibility(v float64) UserOpt {
	return func(u *db.User) { u.Visibility = v }
}

func Born(year int, month time.Month, day int) UserOpt {
	return func(u *db.User) {
		dob := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		u.DateOfBirth = &dob
	}
}

func At(lat, lng float64, city string) UserOpt {
	return func(u *db.User) {
		u.Latitude = &lat
		u.Longitude = &lng
		u.City = city
	}
}

func Bio(bio string, interests ...string) UserOpt {
	return func(u *db.User) {
		u.Bio = bio
		u.Interests = interests
	}
}

// CreateUser inserts a user with the given id and gender.
func CreateUser(t *testing.T, gdb *gorm.DB, id uint64, gender string, opts ...UserOpt) *db.User {
	t.Helper()

	u := &db.User{
		ID:                id,
		Username:          fmt.Sprintf("user%d", id),
		Email:             fmt.Sprintf("u%d@test.com", id),
		PasswordHash:      "x",
		Name:              fmt.Sprintf("User %d", id),
		Gender:            gender,
		SeekingPreference: db.SeekingBoth,
		Active:            true,
		Visibility:        db.VisibilityFor(false),
	}
	for _, opt := range opts {
		opt(u)
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}
