package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"socialconnect/internal/storage"

	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	SeedSample = "sample"
	SeedFake   = "fake"
	SeedNone   = "none"
)

type Config struct {
	// Backend for the durable store: memory, sqlite, postgres or redis.
	Store         string `yaml:"store"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	CapacityBytes int64  `yaml:"capacity_bytes"`

	// Simulated pauses. The browser build used 1s, 1.5s and 0.5s.
	RestoreDelay time.Duration `yaml:"restore_delay"`
	LoginDelay   time.Duration `yaml:"login_delay"`
	SeedDelay    time.Duration `yaml:"seed_delay"`

	// First-load dataset: sample, fake or none.
	Seed      string `yaml:"seed"`
	SeedCount int    `yaml:"seed_count"`
	SeedValue int64  `yaml:"seed_value"`

	Debug     bool          `yaml:"debug"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Store:         StoreSQLite,
		DatabaseURL:   "./socialconnect.db",
		RedisAddr:     "localhost:6379",
		CapacityBytes: storage.DefaultCapacity,
		Seed:          SeedSample,
		SeedCount:     20,
		SeedValue:     1,
		OpTimeout:     5 * time.Second,
	}
}

// LoadConfig layers the YAML file at path (or $SOCIALCONNECT_CONFIG) and
// then the environment over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("SOCIALCONNECT_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.Store = getenv("SOCIALCONNECT_STORE", cfg.Store)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getenv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getenvInt("REDIS_DB", cfg.RedisDB)
	cfg.CapacityBytes = int64(getenvInt("SOCIALCONNECT_CAPACITY_BYTES", int(cfg.CapacityBytes)))
	cfg.RestoreDelay = getenvDuration("SOCIALCONNECT_RESTORE_DELAY", cfg.RestoreDelay)
	cfg.LoginDelay = getenvDuration("SOCIALCONNECT_LOGIN_DELAY", cfg.LoginDelay)
	cfg.SeedDelay = getenvDuration("SOCIALCONNECT_SEED_DELAY", cfg.SeedDelay)
	cfg.Seed = getenv("SOCIALCONNECT_SEED", cfg.Seed)
	cfg.SeedCount = getenvInt("SOCIALCONNECT_SEED_COUNT", cfg.SeedCount)
	cfg.SeedValue = int64(getenvInt("SOCIALCONNECT_SEED_VALUE", int(cfg.SeedValue)))
	cfg.Debug = getenvBool("SOCIALCONNECT_DEBUG", cfg.Debug)
	cfg.OpTimeout = getenvDuration("SOCIALCONNECT_OP_TIMEOUT", cfg.OpTimeout)

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite, StorePostgres, StoreRedis:
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	switch c.Seed {
	case SeedSample, SeedFake, SeedNone:
	default:
		return fmt.Errorf("config: unknown seed %q", c.Seed)
	}
	if c.CapacityBytes <= 0 {
		return fmt.Errorf("config: capacity_bytes must be positive")
	}
	if c.RestoreDelay < 0 || c.LoginDelay < 0 || c.SeedDelay < 0 {
		return fmt.Errorf("config: delays must not be negative")
	}
	return nil
}

// Unparseable values keep the previous setting.

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return d
}
