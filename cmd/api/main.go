package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-records/internal/adapters/auth/jwt"
	blobfs "clinic-records/internal/adapters/blob/fs"
	blobs3 "clinic-records/internal/adapters/blob/s3"
	"clinic-records/internal/adapters/storage/postgres"
	"clinic-records/internal/adapters/storage/sqlite"
	"clinic-records/internal/adapters/storage/sqlstore"
	"clinic-records/internal/platform/config"
	"clinic-records/internal/platform/logger"
	"clinic-records/internal/platform/metrics"
	"clinic-records/internal/ports/blob"
	"clinic-records/internal/router"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

// @title Clinic Records API
// @version 1.0
// @description Historia clínica, turnos, recetas y reportes de una veterinaria.
// @BasePath /
func main() {
	// .env es opcional
	_ = godotenv.Load()

	log := logger.NewFromEnv()
	cfg := config.Load()
	for _, w := range cfg.Warnings {
		log.Warn("config", map[string]any{"warning": w})
	}

	ctx := context.Background()

	db, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("open store", map[string]any{"driver": string(cfg.Storage), "error": err})
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		log.Error("open blob store", map[string]any{"driver": string(cfg.Blob.Driver), "error": err})
		os.Exit(1)
	}

	opts := router.Options{
		Logger:        log,
		Metrics:       metrics.New(),
		DB:            db,
		Blobs:         blobs,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	}
	if cfg.DevMode() {
		log.Warn("AUTH_JWT_SECRET not set: dev mode, X-Debug-User-ID accepted", nil)
	} else {
		signer, err := jwt.New(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			log.Error("jwt signer", map[string]any{"error": err})
			os.Exit(1)
		}
		opts.AuthVerifier = signer
		opts.TokenIssuer = signer
	}

	r, err := router.NewRouter(ctx, opts)
	if err != nil {
		log.Error("router", map[string]any{"error": err})
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second, // subida de fotos
	}

	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "storage": string(cfg.Storage), "blob": string(cfg.Blob.Driver)})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", map[string]any{"error": err})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", map[string]any{"error": err})
	}
	log.Info("server stopped", nil)
}

// openStore devuelve nil para el driver in-memory.
func openStore(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		if cfg.DBDSN == "" {
			return nil, errors.New("DB_DSN required for postgres")
		}
		db, err = postgres.Open(cfg.DBDSN)
	case config.StorageSQLite:
		db, err = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := sqlstore.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openBlobs(ctx context.Context, cfg config.Config) (blob.Store, error) {
	if cfg.Blob.Driver == config.BlobS3 {
		return blobs3.New(ctx, blobs3.Config{
			Bucket:    cfg.Blob.S3Bucket,
			Region:    cfg.Blob.S3Region,
			Endpoint:  cfg.Blob.S3Endpoint,
			PathStyle: cfg.Blob.S3PathStyle,
		})
	}
	return blobfs.New(cfg.Blob.FSRoot)
}
