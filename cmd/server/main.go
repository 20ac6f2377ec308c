package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohits-web03/estately/internal/api"
	"github.com/rohits-web03/estately/internal/api/handlers"
	"github.com/rohits-web03/estately/internal/api/middleware"
	apiservices "github.com/rohits-web03/estately/internal/api/services"
	"github.com/rohits-web03/estately/internal/classifier"
	"github.com/rohits-web03/estately/internal/config"
	"github.com/rohits-web03/estately/internal/logger"
	"github.com/rohits-web03/estately/internal/metrics"
	"github.com/rohits-web03/estately/internal/purge"
	"github.com/rohits-web03/estately/internal/repositories"
	"github.com/rohits-web03/estately/internal/services"
	"github.com/rohits-web03/estately/internal/worker"
)

func openStore(ctx context.Context, cfg config.Config) (repositories.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := repositories.ConnectDatabase(cfg.DB_URL)
		if err != nil {
			return nil, err
		}
		return repositories.NewGormStore(db), nil
	case "mongo":
		client, err := repositories.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		store, err := repositories.NewMongoStore(ctx, client, cfg.MongoDB)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return store, nil
	case "memory":
		slog.Warn("using in-memory store, data is lost on restart")
		return repositories.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}

func main() {
	cfg := config.Load()
	slog.SetDefault(logger.New(cfg.Environment))
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}

	storage, err := repositories.NewObjectStorage(cfg.R2)
	if err != nil {
		slog.Error("failed to configure object storage", "err", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	cls := classifier.New(cfg.Classifier, rdb)

	pool := worker.NewPool(cfg.Purge.Workers)
	var purger purge.Purger = purge.NewInlinePurger(pool, storage, cfg.R2.Timeout)
	if cfg.Purge.Mode == "queue" {
		queue := purge.NewQueuePurger(cfg.Purge.RabbitMQURL, purger)
		defer queue.Close()
		purger = queue
		go purge.RunConsumer(ctx, cfg.Purge.RabbitMQURL, storage)
	}

	cache := middleware.NewResponseCache(cfg.Cache, rdb)
	tokens := services.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	var verifier services.IdentityVerifier
	if cfg.Google.FirebaseCredentials != "" {
		v, err := apiservices.NewFirebaseVerifier(ctx, cfg.Google.FirebaseCredentials)
		if err != nil {
			slog.Warn("firebase unavailable, provider profiles are trusted as sent", "err", err)
		} else {
			verifier = v
		}
	}

	authSvc := services.NewAuthService(store, tokens, verifier)
	listingSvc := services.NewListingService(store, storage, purger, cache)
	userSvc := services.NewUserService(store, store, storage, purger, cache)
	imageSvc := services.NewImageService(storage, cls, purger, cfg.R2.Timeout)

	cookies := handlers.Cookies{Production: cfg.IsProduction()}
	router := api.SetupRouter(api.Deps{
		Tokens: tokens,
		Auth: handlers.NewAuthHandler(authSvc, cookies,
			apiservices.NewGoogleOAuthConfig(cfg.Google),
			handlers.NewStateSigner(cfg.JWTSecret, 10*time.Minute),
			cfg.ClientURL),
		Listings:       handlers.NewListingHandler(listingSvc),
		Users:          handlers.NewUserHandler(userSvc, cookies),
		Images:         handlers.NewImageHandler(imageSvc, cfg.R2.MaxImageBytes),
		ImageValidator: imageSvc,
		Cache:          cache,
		RateLimit:      middleware.RateLimit(cfg.RateLimit, rdb),
		Cors:           cfg.CorsConfig,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting estately server", "port", cfg.Port, "env", cfg.Environment, "driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("could not listen", "port", cfg.Port, "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
	}
	pool.Stop()
	if err := store.Close(shutdownCtx); err != nil {
		slog.Warn("closing store", "err", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
