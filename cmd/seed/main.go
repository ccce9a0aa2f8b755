package main

import (
	"context"
	"flag"
	"time"

	"github.com/amanora/mall-navigator-backend/internal/config"
	"github.com/amanora/mall-navigator-backend/internal/logging"
	mongorepo "github.com/amanora/mall-navigator-backend/internal/repositories/mongodb"
	"github.com/amanora/mall-navigator-backend/internal/seed"
	"github.com/amanora/mall-navigator-backend/pkg/mongodb"
	"github.com/rs/zerolog/log"
)

func main() {
	path := flag.String("file", "fixtures/mall.yaml", "YAML fixture to load")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", true)
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.LogLevel, true)

	// The memory driver loads STORAGE_SEEDFILE when the API starts
	if cfg.Storage.Driver != config.StorageMongoDB {
		log.Fatal().Str("driver", cfg.Storage.Driver).Msg("cmd/seed writes to mongodb; set STORAGE_SEEDFILE to seed the memory driver")
	}

	client, err := mongodb.NewClient(cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())
	db := client.Database(cfg.MongoDB.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	res, err := seed.LoadFile(ctx, *path,
		mongorepo.NewStoreRepository(db),
		mongorepo.NewOfferRepository(db),
		mongorepo.NewUserRepository(db),
	)
	log.Info().Int("stores", res.Stores).Int("offers", res.Offers).Int("admins", res.Admins).Msg("fixture applied")
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("seeding stopped")
	}
}
