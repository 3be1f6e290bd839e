package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel          string `env:"LOG_LEVEL"`
	Postgres          Postgres
	Redis             Redis
	HTTP              HTTP
	API               API
	Cache             Cache
	Catalog           Catalog
	Jobs              Jobs
	Backup            Backup
	GoogleDrive       GoogleDrive
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type HTTP struct {
	Host            string        `env:"HTTP_HOST"`
	Port            int           `env:"HTTP_PORT"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"`
}

type API struct {
	Debug        bool          `env:"API_DEBUG"`
	Timeout      time.Duration `env:"API_TIMEOUT"`
	CoingeckoApi CoingeckoApi
}

type CoingeckoApi struct {
	Url            string  `env:"COINGECKO_API_URL"`
	VsCurrency     string  `env:"COINGECKO_VS_CURRENCY" envDefault:"brl"`
	PerPage        int     `env:"COINGECKO_PER_PAGE" envDefault:"250"`
	MaxPages       int     `env:"COINGECKO_MAX_PAGES" envDefault:"4"`
	RequestsPerSec float64 `env:"COINGECKO_REQUESTS_PER_SEC" envDefault:"0.5"`
}

type Cache struct {
	CryptosExpiration  time.Duration `env:"CACHE_CRYPTOS_EXPIRATION"`
	SnapshotExpiration time.Duration `env:"CACHE_SNAPSHOT_EXPIRATION"`
}

type Catalog struct {
	SnapshotFile string `env:"CATALOG_SNAPSHOT_FILE" envDefault:"cryptos.json"`
}

type Jobs struct {
	RefreshCatalogInterval time.Duration `env:"REFRESH_CATALOG_JOB_INTERVAL"`
	BackupCrontab          string        `env:"BACKUP_JOB_CRONTAB" envDefault:"0 3 * * *"`
}

type Backup struct {
	Enabled bool `env:"BACKUP_ENABLED" envDefault:"false"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"720h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
