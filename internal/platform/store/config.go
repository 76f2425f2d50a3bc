package store

import (
	"time"

	"playreviews/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG     PGConfig
	SQLite SQLiteConfig
	CH     CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// SQLiteConfig configures the embedded database file
type SQLiteConfig struct {
	Enabled     bool
	Path        string
	LogSQL      bool
	SlowQueryMs int
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
	Role    string
	LogSQL  bool
}

// ConfigFromEnv reads SERVICE_PGSQL_*, SERVICE_SQLITE_* and SERVICE_CLICKHOUSE_*.
// A backend is enabled when its URL or path is set
func ConfigFromEnv(cfg config.Conf, appName string) Config {
	pg := cfg.Prefix("SERVICE_PGSQL_")
	lite := cfg.Prefix("SERVICE_SQLITE_")
	ch := cfg.Prefix("SERVICE_CLICKHOUSE_")

	out := Config{
		AppName: appName,
		PG: PGConfig{
			URL:            pg.MayString("DBURL", ""),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 4)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQueryMs:    pg.MayInt("SLOW_MS", 500),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		SQLite: SQLiteConfig{
			Path:        lite.MayString("PATH", ""),
			LogSQL:      lite.MayBool("LOG_SQL", false),
			SlowQueryMs: lite.MayInt("SLOW_MS", 500),
		},
		CH: CHConfig{
			URL:    ch.MayString("DBURL", ""),
			Role:   appName,
			LogSQL: ch.MayBool("LOG_SQL", false),
		},
	}
	out.PG.Enabled = out.PG.URL != ""
	out.SQLite.Enabled = out.SQLite.Path != ""
	out.CH.Enabled = out.CH.URL != ""
	return out
}
