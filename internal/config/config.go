package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server     Server
	Source     Source
	Table      Table
	Store      Store
	NATS       NATS
	ClickHouse ClickHouse
	Telegram   Telegram
}

type Server struct {
	Port     string `envconfig:"PORT" default:"3000"`
	GRPCPort string `envconfig:"GRPC_PORT" default:"50051"`
}

type Source struct {
	// Kind is "file" or "remote"
	Kind            string        `envconfig:"SOURCE_KIND" default:"remote"`
	File            string        `envconfig:"SOURCE_FILE" default:"seal_data.json"`
	URL             string        `envconfig:"SOURCE_URL" default:"https://raw.githubusercontent.com/random989/seal-sorare/main/seal_data.json"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	MinInterval     time.Duration `envconfig:"FETCH_MIN_INTERVAL" default:"30s"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"1h"`
	// WatchFile reloads a file source as soon as it changes on disk
	WatchFile bool `envconfig:"SOURCE_WATCH" default:"true"`
}

type Table struct {
	PrecomputeRatios bool `envconfig:"PRECOMPUTE_RATIOS" default:"true"`
	DefaultPageSize  int  `envconfig:"DEFAULT_PAGE_SIZE" default:"50"`
	MaxPageSize      int  `envconfig:"MAX_PAGE_SIZE" default:"500"`
}

type Store struct {
	// Driver is "memory", "sqlite" or "postgres"
	Driver      string `envconfig:"DB_DRIVER" default:"memory"`
	SQLiteFile  string `envconfig:"SQLITE_FILE" default:"dev.sqlite"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
}

type NATS struct {
	URL     string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	Subject string `envconfig:"NATS_SUBJECT" default:"seal.events"`
	Stream  string `envconfig:"NATS_STREAM" default:"SEAL_EVENTS"`
}

type ClickHouse struct {
	Addr     string `envconfig:"CLICKHOUSE_ADDR"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"default"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
}

type Telegram struct {
	Token  string `envconfig:"TELEGRAM_TOKEN"`
	ChatID int64  `envconfig:"CHAT_ID"`
}

func New() (*Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// IsDevelopment reports whether in-process stand-ins should replace external
// infrastructure (embedded NATS, mock archive).
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}
