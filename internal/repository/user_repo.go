package repository

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/utils/geo"
)

// UserRepository is the read side of the profile store used by the match core.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetUser fetches a user by id. Returns gorm.ErrRecordNotFound when missing.
func (r *UserRepository) GetUser(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUsers fetches several users keyed by id. Missing ids are absent from the map.
func (r *UserRepository) GetUsers(ctx context.Context, ids []uint64) (map[uint64]*db.User, error) {
	out := make(map[uint64]*db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

// CandidateQuery describes the base candidate search.
type CandidateQuery struct {
	UserID uint64
	// Genders restricts candidates; empty means any gender.
	Genders []string
	// BornAfter/BornBefore bound the date of birth (inclusive).
	BornAfter  *time.Time
	BornBefore *time.Time
	// Near enables the geo filter, RadiusMeters in the store's native unit.
	Near         *geo.Point
	RadiusMeters float64
	Limit        int
}

// Candidate is a user returned by FindCandidates. DistanceMeters is set only
// when the geo filter was applied.
type Candidate struct {
	db.User
	DistanceMeters *float64
}

// FindCandidates runs the base candidate query.
//
// Behavior:
//   - Excludes the user and every target in the user's likes, dislikes and
//     matchedWith sets.
//   - Applies gender and date-of-birth bounds in SQL.
//   - With Near set: prefilters on a bounding box in SQL, then keeps users
//     within RadiusMeters ordered nearest first.
//   - Without Near: ordered by id.
//   - At most Limit rows.
func (r *UserRepository) FindCandidates(ctx context.Context, in CandidateQuery) ([]Candidate, error) {
	excluded := r.db.
		Table("interactions").
		Select("target_id").
		Where("actor_id = ?", in.UserID)

	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("users.id <> ?", in.UserID).
		Where("users.active = ?", true).
		Where("users.id NOT IN (?)", excluded)

	if len(in.Genders) > 0 {
		query = query.Where("users.gender IN ?", in.Genders)
	}
	if in.BornAfter != nil {
		query = query.Where("users.date_of_birth >= ?", *in.BornAfter)
	}
	if in.BornBefore != nil {
		query = query.Where("users.date_of_birth <= ?", *in.BornBefore)
	}

	if in.Near == nil {
		var users []db.User
		if err := query.Order("users.id ASC").Limit(in.Limit).Find(&users).Error; err != nil {
			return nil, err
		}
		out := make([]Candidate, len(users))
		for i := range users {
			out[i] = Candidate{User: users[i]}
		}
		return out, nil
	}

	box := geo.BoundingBox(*in.Near, in.RadiusMeters)
	lng := r.db.Where("users.longitude BETWEEN ? AND ?", box.Lng[0].Min, box.Lng[0].Max)
	for _, rng := range box.Lng[1:] {
		lng = lng.Or("users.longitude BETWEEN ? AND ?", rng.Min, rng.Max)
	}
	var users []db.User
	err := query.
		Where("users.latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where(lng).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(users))
	for i := range users {
		u := users[i]
		d := geo.DistanceMeters(*in.Near, geo.Point{Lat: *u.Latitude, Lng: *u.Longitude})
		if d > in.RadiusMeters {
			continue
		}
		out = append(out, Candidate{User: u, DistanceMeters: &d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].DistanceMeters < *out[j].DistanceMeters
	})
	if len(out) > in.Limit {
		out = out[:in.Limit]
	}
	return out, nil
}
