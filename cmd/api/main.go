package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/amanora/mall-navigator-backend/api/routes"
	"github.com/amanora/mall-navigator-backend/internal/analytics"
	"github.com/amanora/mall-navigator-backend/internal/config"
	"github.com/amanora/mall-navigator-backend/internal/debounce"
	"github.com/amanora/mall-navigator-backend/internal/handlers"
	"github.com/amanora/mall-navigator-backend/internal/logging"
	"github.com/amanora/mall-navigator-backend/internal/repositories"
	"github.com/amanora/mall-navigator-backend/internal/repositories/memory"
	mongorepo "github.com/amanora/mall-navigator-backend/internal/repositories/mongodb"
	"github.com/amanora/mall-navigator-backend/internal/seed"
	"github.com/amanora/mall-navigator-backend/internal/services"
	"github.com/amanora/mall-navigator-backend/internal/tracing"
	"github.com/amanora/mall-navigator-backend/pkg/jwt"
	"github.com/amanora/mall-navigator-backend/pkg/mongodb"
	"github.com/amanora/mall-navigator-backend/pkg/redis"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const guardCleanupInterval = time.Minute

type repositorySet struct {
	stores    repositories.StoreRepository
	offers    repositories.OfferRepository
	users     repositories.UserRepository
	analytics repositories.AnalyticsRepository
	ping      func(context.Context) error
	close     func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", false)
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracerProvider(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise tracing")
	}

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open storage")
	}

	guard := newGuard(ctx, cfg)

	var publishers []analytics.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publishers = append(publishers, analytics.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing analytics to Kafka")
	}
	sink := analytics.NewSink(repos.analytics, analytics.Options{
		QueueSize:    cfg.Analytics.QueueSize,
		WriteTimeout: cfg.Analytics.WriteTimeout,
		Guard:        guard,
	}, publishers...)
	sink.Start()

	tokens := jwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	authService := services.NewAuthService(repos.users, tokens)
	storeService := services.NewStoreService(repos.stores)
	offerService := services.NewOfferService(repos.offers, repos.stores, repos.users, sink)
	proximityService := services.NewProximityService(repos.stores, repos.offers, sink, services.ProximityOptions{
		UnlockDebounce: cfg.Proximity.UnlockDebounce,
	})
	adminService := services.NewAdminService(repos.users, repos.analytics, sink)

	handlerDeps := routes.HandlerDependencies{
		AuthHandler:      handlers.NewAuthHandler(authService),
		StoreHandler:     handlers.NewStoreHandler(storeService),
		OfferHandler:     handlers.NewOfferHandler(offerService),
		ProximityHandler: handlers.NewProximityHandler(proximityService),
		AdminHandler:     handlers.NewAdminHandler(adminService),
	}
	router := routes.SetupRouter(routes.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Tokens:         tokens,
		Ready:          repos.ping,
	}, handlerDeps)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("storage", cfg.Storage.Driver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := sink.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("analytics sink did not drain")
	}
	if err := repos.close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error closing storage")
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down tracer provider")
	}
	log.Info().Msg("server exiting")
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositorySet, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		return openMemoryRepositories(ctx, cfg.Storage.SeedFile)
	}

	client, err := mongodb.NewClient(cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB.Database)

	indexCtx, cancel := context.WithTimeout(ctx, cfg.MongoDB.Timeout)
	defer cancel()
	if err := mongorepo.EnsureIndexes(indexCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &repositorySet{
		stores:    mongorepo.NewStoreRepository(db),
		offers:    mongorepo.NewOfferRepository(db),
		users:     mongorepo.NewUserRepository(db),
		analytics: mongorepo.NewAnalyticsRepository(db),
		ping:      client.Ping,
		close:     client.Disconnect,
	}, nil
}

func openMemoryRepositories(ctx context.Context, seedFile string) (*repositorySet, error) {
	log.Warn().Msg("using in-memory storage; data is lost on restart")
	repos := &repositorySet{
		stores:    memory.NewStoreRepository(),
		offers:    memory.NewOfferRepository(),
		users:     memory.NewUserRepository(),
		analytics: memory.NewAnalyticsRepository(),
		close:     func(context.Context) error { return nil },
	}
	if seedFile == "" {
		return repos, nil
	}
	res, err := seed.LoadFile(ctx, seedFile, repos.stores, repos.offers, repos.users)
	if err != nil {
		return nil, err
	}
	log.Info().Str("file", seedFile).Int("stores", res.Stores).Int("offers", res.Offers).Int("admins", res.Admins).Msg("memory storage seeded")
	return repos, nil
}

// newGuard uses Redis when configured and reachable, otherwise an in-process guard
func newGuard(ctx context.Context, cfg *config.Config) debounce.Guard {
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err == nil {
			go func() {
				<-ctx.Done()
				_ = client.Close()
			}()
			return debounce.NewRedisGuard(client, "mall:debounce:")
		}
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, falling back to in-process debounce")
	}
	guard := debounce.NewMemoryGuard()
	go guard.RunCleanup(ctx, guardCleanupInterval)
	return guard
}
