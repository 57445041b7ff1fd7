package config

import "time"

// DBConfig contains PostgreSQL database configuration.
// Used by the postgres data mode and by ticketflow-admin migrate.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"ticketflow"`
	Password string `env:"PASSWORD" envDefault:"ticketflow"`
	Name     string `env:"NAME"     envDefault:"ticketflow"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the postgres data mode applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for persisted sessions.
type RedisConfig struct {
	// Enabled turns on session persistence; without it sessions live only in process.
	Enabled            bool          `env:"ENABLED"              envDefault:"false"`
	URI                string        `env:"URI"                  envDefault:"localhost:6379"`
	Password           string        `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string      `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string        `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string        `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool          `env:"USE_SENTINEL"         envDefault:"false"`
	SessionTTL         time.Duration `env:"SESSION_TTL"          envDefault:"720h"`
}
