package db

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedPassword is the plain-text password of every seeded user.
const SeedPassword = "password"

var seedNames = []string{
	"Alex", "Sam", "Jordan", "Taylor", "Casey", "Riley", "Jamie", "Morgan", "Avery", "Quinn",
	"Rowan", "Skyler", "Emerson", "Finley", "Harper", "Kendall", "Logan", "Parker", "Reese", "Sage",
}

// SeedTestData resets the database and populates it with demo users, likes,
// passes, matches and messages.
//
// Behavior:
//  1. Clears messages, matches, passes, likes, profiles and users.
//  2. Creates 20 users with profiles (10 "man", 10 "woman") and hashed passwords.
//  3. Each user likes or passes ~8 others (~70% likes); every 3rd like is
//     answered, and every mutual pair becomes a match with a greeting message.
//
// Compatible with MySQL, Postgres and SQLite.
func SeedTestData(db *gorm.DB, log *slog.Logger) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := clearAll(db); err != nil {
		return err
	}
	log.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ids := make([]uint64, 0, len(seedNames))
	for i, name := range seedNames {
		gender := "man"
		if i >= len(seedNames)/2 {
			gender = "woman"
		}
		user := User{
			Email:        fmt.Sprintf("user%d@example.com", i+1),
			PasswordHash: string(hash),
			Active:       true,
			Profile: &Profile{
				Name:   name,
				Age:    18 + r.Intn(25),
				Gender: gender,
				Bio:    fmt.Sprintf("Hi, I'm %s.", name),
			},
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		ids = append(ids, user.ID)
	}
	log.Info("seeded users", "count", len(ids))

	likes, matches := 0, 0
	for _, from := range ids {
		for j := 0; j < 8; j++ {
			to := ids[r.Intn(len(ids))]
			if to == from {
				continue
			}

			if r.Intn(100) >= 70 {
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&Pass{FromID: from, ToID: to})
				continue
			}

			res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&Like{FromID: from, ToID: to})
			if res.Error != nil {
				return fmt.Errorf("failed to seed like: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				continue
			}
			likes++

			// every 3rd like is answered right away
			if likes%3 == 0 {
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&Like{FromID: to, ToID: from})
			}

			var reciprocal int64
			db.Model(&Like{}).Where("from_id = ? AND to_id = ?", to, from).Count(&reciprocal)
			if reciprocal == 0 {
				continue
			}

			m := NewMatch(from, to)
			res = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
			if res.Error != nil {
				return fmt.Errorf("failed to seed match: %w", res.Error)
			}
			if res.RowsAffected == 0 || m.ID == 0 {
				continue
			}
			matches++
			db.Create(&Message{MatchID: m.ID, SenderID: from, Content: "Hey, we matched!"})
		}
	}
	log.Info("seeded relationships", "likes", likes, "matches", matches)

	return nil
}

func clearAll(db *gorm.DB) error {
	for _, table := range []string{"messages", "matches", "passes", "likes", "profiles", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE profiles AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE matches AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE messages AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('users','profiles','matches','messages')")
	}
	return nil
}
