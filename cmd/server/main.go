// Command server runs the Beast Forums HTTP service.
//
//	@title			Beast Forums API
//	@version		1.0
//	@description	Messageboards, topics and Textile posts, with legacy topic URL redirects.
//	@BasePath		/
package main

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/beast-forums/internal/config"
	httpapi "github.com/tbourn/beast-forums/internal/http"
	"github.com/tbourn/beast-forums/internal/observability"
	"github.com/tbourn/beast-forums/internal/repo"
	"github.com/tbourn/beast-forums/internal/search"
	"github.com/tbourn/beast-forums/internal/seed"
	"github.com/tbourn/beast-forums/internal/services"
	"github.com/tbourn/beast-forums/internal/sysutil"
)

// version may be set at build time with -ldflags "-X main.version=...".
var version string

const purgeInterval = time.Hour

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	appVersion := sysutil.Version(cmp.Or(os.Getenv("APP_VERSION"), version))

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	idx := search.NewTopicIndex(nil, search.WithStopwords(search.DefaultStopwords))
	svc := httpapi.NewServices(db, idx, cfg)
	n, err := svc.Forum.ReindexTopics(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("topics", n).Msg("search index loaded")

	r := gin.New()
	if _, err := httpapi.RegisterRoutes(r, svc, cfg); err != nil {
		return err
	}

	go purgeExpired(ctx, svc.Auth, svc.Forum)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("mount", cfg.ForumMountPath).
			Str("version", appVersion).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// openDB connects, instruments, migrates and seeds the database.
func openDB(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.OTEL.Enabled {
		if err := observability.InstrumentDB(db, cfg.DB.Driver); err != nil {
			return nil, err
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}

	if cfg.SeedPath != "" {
		f, err := seed.LoadFile(cfg.SeedPath)
		if err != nil {
			return nil, err
		}
		n, err := seed.Apply(ctx, db, f)
		if err != nil {
			return nil, err
		}
		log.Info().Int("messageboards", n).Str("path", cfg.SeedPath).Msg("seeded")
	}
	return db, nil
}

// purgeExpired drops expired sessions and reply keys until ctx is done.
func purgeExpired(ctx context.Context, auth *services.AuthService, forum *services.ForumService) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		for what, purge := range map[string]func(context.Context) (int64, error){
			"sessions":   auth.PurgeExpired,
			"reply_keys": forum.PurgeExpiredReplies,
		} {
			n, err := purge(ctx)
			if err != nil {
				log.Warn().Err(err).Str("kind", what).Msg("purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Str("kind", what).Msg("expired rows purged")
			}
		}
	}
}
