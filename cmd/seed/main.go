package main

import (
	"github.com/joho/godotenv"

	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.New()

	logger.InitFromConfig(cfg)
	log := logger.L()

	// NewDB migrates before returning
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	if err := db.SeedTestData(database); err != nil {
		log.Error("failed to seed", "err", err)
		return
	}

	log.Info("seeding completed")
}
