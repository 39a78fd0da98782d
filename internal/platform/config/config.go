package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StoragePostgres StorageDriver = "postgres"
	StorageSQLite   StorageDriver = "sqlite"
)

type BlobDriver string

const (
	BlobFilesystem BlobDriver = "fs"
	BlobS3         BlobDriver = "s3"
)

// Config agrupa toda la configuración del proceso. Se lee de env
// (main llama a godotenv.Load() antes, así un .env local también sirve).
type Config struct {
	Port string

	Storage    StorageDriver
	DBDSN      string
	SQLitePath string

	// JWTSecret vacío => modo dev (X-Debug-User-ID).
	JWTSecret string
	TokenTTL  time.Duration

	Blob BlobConfig

	AdminUsername string
	AdminPassword string

	// Warnings acumula valores de env inválidos que se reemplazaron por defaults.
	Warnings []string
}

type BlobConfig struct {
	Driver      BlobDriver
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// Load lee la configuración desde variables de entorno con defaults razonables.
func Load() Config {
	cfg := Config{
		Port:          envOr("PORT", "8080"),
		DBDSN:         strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath:    envOr("SQLITE_PATH", "clinic.db"),
		JWTSecret:     strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")),
		TokenTTL:      24 * time.Hour,
		AdminUsername: envOr("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		Blob: BlobConfig{
			Driver:      BlobDriver(strings.ToLower(envOr("BLOB_DRIVER", string(BlobFilesystem)))),
			FSRoot:      envOr("BLOB_FS_ROOT", "./uploads"),
			S3Bucket:    strings.TrimSpace(os.Getenv("BLOB_S3_BUCKET")),
			S3Region:    envOr("BLOB_S3_REGION", "us-east-1"),
			S3Endpoint:  strings.TrimSpace(os.Getenv("BLOB_S3_ENDPOINT")),
			S3PathStyle: strings.EqualFold(strings.TrimSpace(os.Getenv("BLOB_S3_PATH_STYLE")), "true"),
		},
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		cfg.Warnings = append(cfg.Warnings, "invalid PORT "+strconv.Quote(cfg.Port)+", using 8080")
		cfg.Port = "8080"
	}

	if v := strings.TrimSpace(os.Getenv("AUTH_TOKEN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			cfg.Warnings = append(cfg.Warnings, "invalid AUTH_TOKEN_TTL "+strconv.Quote(v)+", using 24h")
		} else {
			cfg.TokenTTL = d
		}
	}

	switch d := StorageDriver(strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_DRIVER")))); d {
	case StorageMemory, StoragePostgres, StorageSQLite:
		cfg.Storage = d
	case "":
		// Compat: si viene DB_DSN sin driver explícito, asumimos Postgres.
		if cfg.DBDSN != "" {
			cfg.Storage = StoragePostgres
		} else {
			cfg.Storage = StorageMemory
		}
	default:
		cfg.Warnings = append(cfg.Warnings, "unknown STORAGE_DRIVER "+strconv.Quote(string(d))+", using memory")
		cfg.Storage = StorageMemory
	}

	if cfg.Blob.Driver != BlobFilesystem && cfg.Blob.Driver != BlobS3 {
		cfg.Warnings = append(cfg.Warnings, "unknown BLOB_DRIVER "+strconv.Quote(string(cfg.Blob.Driver))+", using fs")
		cfg.Blob.Driver = BlobFilesystem
	}

	return cfg
}

// DevMode indica que no hay secreto JWT configurado.
func (c Config) DevMode() bool {
	return c.JWTSecret == ""
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
