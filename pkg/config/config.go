package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable consumed by the service.
	EnvPrefix = "FULFILL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Sync         SyncConfig
	Assignment   AssignmentConfig
	EcoManager   EcoManagerConfig
	Maystro      MaystroConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FULFILL_APP_ENV" required:"true"`
	Port         string `envconfig:"FULFILL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FULFILL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FULFILL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"FULFILL_DB_DSN"`

	Host     string `envconfig:"FULFILL_DB_HOST"`
	Port     int    `envconfig:"FULFILL_DB_PORT" default:"5432"`
	User     string `envconfig:"FULFILL_DB_USER"`
	Password string `envconfig:"FULFILL_DB_PASSWORD"`
	Name     string `envconfig:"FULFILL_DB_NAME"`
	SSLMode  string `envconfig:"FULFILL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FULFILL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FULFILL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FULFILL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FULFILL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host/user/name settings are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"FULFILL_REDIS_URL"`
	Address      string        `envconfig:"FULFILL_REDIS_ADDR"`
	Password     string        `envconfig:"FULFILL_REDIS_PASSWORD"`
	DB           int           `envconfig:"FULFILL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FULFILL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FULFILL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FULFILL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FULFILL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FULFILL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SyncConfig controls incremental feed ingestion and position durability.
type SyncConfig struct {
	OrdersPerPage   int           `envconfig:"FULFILL_SYNC_ORDERS_PER_PAGE" default:"20"`
	BatchPause      time.Duration `envconfig:"FULFILL_SYNC_BATCH_PAUSE" default:"2s"`
	PositionTTL     time.Duration `envconfig:"FULFILL_SYNC_POSITION_TTL" default:"720h"`
	BackupPath      string        `envconfig:"FULFILL_SYNC_BACKUP_PATH" default:"data/sync_positions.json"`
	ActiveStores    []string      `envconfig:"FULFILL_SYNC_ACTIVE_STORES"`
	RequestTimeout  time.Duration `envconfig:"FULFILL_SYNC_REQUEST_TIMEOUT" default:"30s"`
	MaxPagesPerRun  int           `envconfig:"FULFILL_SYNC_MAX_PAGES_PER_RUN" default:"10"`
	ShippingRefresh int           `envconfig:"FULFILL_SYNC_SHIPPING_REFRESH_LIMIT" default:"200"`
}

// AssignmentConfig controls the distribution engine's batching and windows.
type AssignmentConfig struct {
	BatchSize       int           `envconfig:"FULFILL_ASSIGN_BATCH_SIZE" default:"10"`
	ItemPause       time.Duration `envconfig:"FULFILL_ASSIGN_ITEM_PAUSE" default:"100ms"`
	ChunkPause      time.Duration `envconfig:"FULFILL_ASSIGN_CHUNK_PAUSE" default:"1s"`
	AutoAssignLimit int           `envconfig:"FULFILL_ASSIGN_AUTO_LIMIT" default:"200"`
	AutoAssignDays  int           `envconfig:"FULFILL_ASSIGN_AUTO_WINDOW_DAYS" default:"7"`
	TxTimeout       time.Duration `envconfig:"FULFILL_ASSIGN_TX_TIMEOUT" default:"60s"`
	CursorLockTTL   time.Duration `envconfig:"FULFILL_ASSIGN_CURSOR_LOCK_TTL" default:"5s"`
	NotifyDebounce  time.Duration `envconfig:"FULFILL_ASSIGN_NOTIFY_DEBOUNCE" default:"5s"`
}

type EcoManagerConfig struct {
	BaseURL string        `envconfig:"FULFILL_ECOMANAGER_BASE_URL"`
	Token   string        `envconfig:"FULFILL_ECOMANAGER_TOKEN"`
	Timeout time.Duration `envconfig:"FULFILL_ECOMANAGER_TIMEOUT" default:"30s"`
	Retries int           `envconfig:"FULFILL_ECOMANAGER_RETRIES" default:"2"`
}

type MaystroConfig struct {
	BaseURL string        `envconfig:"FULFILL_MAYSTRO_BASE_URL"`
	Token   string        `envconfig:"FULFILL_MAYSTRO_TOKEN"`
	Timeout time.Duration `envconfig:"FULFILL_MAYSTRO_TIMEOUT" default:"30s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"FULFILL_CRON_INTERVAL" default:"5m"`
	LockKey  string        `envconfig:"FULFILL_CRON_LOCK_KEY" default:"ff:lock:cron"`
	LockTTL  time.Duration `envconfig:"FULFILL_CRON_LOCK_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FULFILL_FEATURE_AUTO_MIGRATE" default:"false"`
}
