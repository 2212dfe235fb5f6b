package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedCity struct {
	Name, Country string
	Lat, Lng      float64
}

var seedCities = []seedCity{
	{"London", "UK", 51.5072, -0.1276},
	{"Manchester", "UK", 53.4808, -2.2426},
	{"Birmingham", "UK", 52.4862, -1.8904},
}

var seedInterests = []string{"hiking", "coffee", "travel", "cooking", "films", "football", "reading", "music"}

var seedPersonas = []struct {
	Name, Gender, Bio string
	Interests         []string
}{
	{"Amira", "female", "Architect who sketches cafes on weekends. Ask me about my favourite bridge.", []string{"design", "coffee", "travel"}},
	{"Yusuf", "male", "Software engineer, amateur chef, terrible at karaoke but enthusiastic.", []string{"cooking", "music", "tech"}},
}

// SeedTestData resets the database and populates it with demo users,
// synthetic AI profiles, interactions and matches.
//
// Behavior:
//  1. Clears existing data in messages, matches, interactions and users.
//  2. Creates 20 human users (10 male, 10 female) with hashed passwords,
//     dates of birth, locations and a few premium accounts.
//  3. Creates synthetic AI profiles and matches each of them with a human.
//  4. Generates likes/dislikes; every 3rd pair is made mutual and matched.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "matches", "interactions", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE messages AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE matches AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('messages', 'matches', 'users')")
	}

	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// --- Seed humans (10 male, 10 female) ---
	var humans []User
	for i := 1; i <= 20; i++ {
		gender, seeking := "male", SeekingFemale
		if i > 10 {
			gender, seeking = "female", SeekingMale
		}
		if i%7 == 0 {
			seeking = SeekingBoth
		}

		city := seedCities[r.Intn(len(seedCities))]
		lat := city.Lat + (r.Float64()-0.5)/10
		lng := city.Lng + (r.Float64()-0.5)/10
		dob := time.Date(1985+r.Intn(18), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC)
		premium := i%5 == 0

		user := User{
			Username:          fmt.Sprintf("user%d", i),
			Email:             fmt.Sprintf("user%d@example.com", i),
			PasswordHash:      string(hash),
			Name:              fmt.Sprintf("User %d", i),
			Gender:            gender,
			SeekingPreference: seeking,
			DateOfBirth:       &dob,
			Bio:               "Here for good conversation.",
			Interests:         pickInterests(r, 3),
			Latitude:          &lat,
			Longitude:         &lng,
			City:              city.Name,
			Country:           city.Country,
			IsPremium:         premium,
			Visibility:        VisibilityFor(premium),
			Active:            true,
			LastLoginAt:       time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		humans = append(humans, user)
	}
	log.Println("Seeded 20 users.")

	// --- Seed synthetic profiles, each matched with one human ---
	for i, p := range seedPersonas {
		dob := time.Date(1994+i, time.March, 14, 0, 0, 0, 0, time.UTC)
		bot := User{
			Username:          fmt.Sprintf("ai_%d", i+1),
			Email:             fmt.Sprintf("ai%d@example.com", i+1),
			PasswordHash:      string(hash),
			Name:              p.Name,
			Gender:            p.Gender,
			SeekingPreference: SeekingBoth,
			DateOfBirth:       &dob,
			Bio:               p.Bio,
			Interests:         p.Interests,
			City:              seedCities[0].Name,
			Country:           seedCities[0].Country,
			Visibility:        VisibilityFor(false),
			IsSynthetic:       true,
			Active:            true,
		}
		if err := db.Create(&bot).Error; err != nil {
			return fmt.Errorf("failed to seed synthetic user: %w", err)
		}
		if err := seedMatch(db, humans[i].ID, bot.ID); err != nil {
			return err
		}
	}
	log.Printf("Seeded %d synthetic profiles.", len(seedPersonas))

	// --- Seed interactions ---
	counter := 0
	for _, actor := range humans {
		for j := 0; j < 8; j++ {
			target := humans[r.Intn(len(humans))]
			if actor.ID == target.ID || actor.Gender == target.Gender {
				continue
			}

			kind := KindDislike
			if r.Intn(100) < 70 {
				kind = KindLike
			}

			// guarantee a mutual like every 3rd pair
			if counter%3 == 0 {
				if err := seedMatch(db, actor.ID, target.ID); err != nil {
					return err
				}
				counter++
				continue
			}

			if err := insertInteraction(db, actor.ID, target.ID, kind); err != nil {
				return fmt.Errorf("failed to seed interaction: %w", err)
			}
			counter++
		}
	}

	return nil
}

// seedMatch writes both likes, the match row and both matchedWith memberships.
func seedMatch(db *gorm.DB, a, b uint64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, in := range []Interaction{
			{ActorID: a, TargetID: b, Kind: KindLike},
			{ActorID: b, TargetID: a, Kind: KindLike},
			{ActorID: a, TargetID: b, Kind: KindMatch},
			{ActorID: b, TargetID: a, Kind: KindMatch},
		} {
			if err := insertInteraction(tx, in.ActorID, in.TargetID, in.Kind); err != nil {
				return err
			}
		}
		low, high := CanonicalPair(a, b)
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Match{UserLowID: low, UserHighID: high}).Error
	})
}

func insertInteraction(db *gorm.DB, actor, target uint64, kind string) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Interaction{ActorID: actor, TargetID: target, Kind: kind}).Error
}

func pickInterests(r *rand.Rand, n int) []string {
	out := make([]string, 0, n)
	for _, i := range r.Perm(len(seedInterests))[:n] {
		out = append(out, seedInterests[i])
	}
	return out
}
