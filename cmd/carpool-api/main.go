// README: Entry point; loads config, wires services and serves the HTTP API until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"carpool/internal/config"
	httptransport "carpool/internal/http"
	"carpool/internal/http/handlers"
	"carpool/internal/infra"
	"carpool/internal/logging"
	"carpool/internal/maps"
	"carpool/internal/modules/matching"
	"carpool/internal/modules/preference"
	"carpool/internal/modules/profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log.Level)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.DB.AutoMigrate {
		if err := infra.Migrate(cfg.DB.DSN, log); err != nil {
			return err
		}
	}
	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	var locker matching.Locker = matching.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		var redisClient *redis.Client
		redisClient, err = infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locker = matching.NewRedisLocker(redisClient, cfg.Matching.LockTTL)
	} else {
		log.Warn("CARPOOL_REDIS_ADDR not set; match computations are serialized per process only")
	}

	// A nil *GeocodeService must not reach the interface.
	var geocoder profile.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		geocoder = g
	} else {
		log.Warn("GOOGLE_MAPS_API_KEY not set; addresses need client-supplied coordinates")
	}

	profileSvc := profile.NewService(profile.NewStore(dbPool), geocoder, log)
	preferenceSvc := preference.NewService(preference.NewStore(dbPool))
	matchingSvc := matching.NewService(
		matching.NewStore(dbPool),
		profileSvc,
		preferenceSvc,
		locker,
		cfg.Matching,
		log,
	)

	browserKey := cfg.Maps.BrowserKey
	if browserKey == "" {
		browserKey = cfg.Maps.APIKey
	}
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Log:         log,
		Verifier:    verifier,
		CookieName:  cfg.Auth.CookieName,
		Profiles:    profileSvc,
		Preferences: preferenceSvc,
		Matches:     matchingSvc,
		Public: handlers.PublicConfig{
			MapsAPIKey:       browserKey,
			WorkplaceName:    cfg.Workplace.Name,
			WorkplaceAddress: cfg.Workplace.Address,
		},
		Ready: dbPool.Ping,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr, "auth_mode", cfg.Auth.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.HTTP.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newVerifier(ctx context.Context, cfg config.Config) (infra.TokenVerifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeJWT:
		return infra.NewJWTVerifier(cfg.Auth.JWTSecret), nil
	default:
		return infra.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentialsFile)
	}
}
