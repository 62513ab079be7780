package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends
const (
	StoreMemory    = "memory"
	StoreRedis     = "redis"
	StoreCassandra = "cassandra"
)

// Config holds all configuration for the application
type Config struct {
	Host   string       `mapstructure:"host"`
	Port   string       `mapstructure:"port"`
	Log    LogConfig    `mapstructure:"log"`
	Store  string       `mapstructure:"store"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Search SearchConfig `mapstructure:"search"`
	World  WorldConfig  `mapstructure:"world"`

	Cassandra CassandraConfig `mapstructure:"cassandra"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// CassandraConfig holds Cassandra-specific configuration
type CassandraConfig struct {
	Hosts       []string      `mapstructure:"hosts"`
	Keyspace    string        `mapstructure:"keyspace"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Consistency string        `mapstructure:"consistency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SearchConfig tunes the search driver
type SearchConfig struct {
	ProgressInterval  uint64 `mapstructure:"progress_interval"`
	CompressKeyFrames bool   `mapstructure:"compress_keyframes"`
}

// WorldConfig selects the reference simulation
type WorldConfig struct {
	Seed int64 `mapstructure:"seed"`
}

// env maps config keys to the environment variables that override them.
var env = map[string]string{
	"host":                      "HOST",
	"port":                      "PORT",
	"log.level":                 "LOG_LEVEL",
	"log.format":                "LOG_FORMAT",
	"store":                     "STORE_BACKEND",
	"redis.addr":                "REDIS_ADDR",
	"redis.password":            "REDIS_PASSWORD",
	"redis.db":                  "REDIS_DB",
	"redis.ttl":                 "REDIS_TTL",
	"cassandra.hosts":           "CASSANDRA_HOSTS",
	"cassandra.keyspace":        "CASSANDRA_KEYSPACE",
	"cassandra.username":        "CASSANDRA_USERNAME",
	"cassandra.password":        "CASSANDRA_PASSWORD",
	"cassandra.consistency":     "CASSANDRA_CONSISTENCY",
	"cassandra.timeout":         "CASSANDRA_TIMEOUT",
	"search.progress_interval":  "SEARCH_PROGRESS_INTERVAL",
	"search.compress_keyframes": "SEARCH_COMPRESS_KEYFRAMES",
	"world.seed":                "WORLD_SEED",
}

// Load reads configuration from defaults, an optional config file named by
// BRUTEFORCE_CONFIG, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	if err := v.BindEnv("config", "BRUTEFORCE_CONFIG"); err != nil {
		return nil, fmt.Errorf("bind BRUTEFORCE_CONFIG: %w", err)
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Cassandra.Hosts = trimHosts(cfg.Cassandra.Hosts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("store", StoreMemory)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("cassandra.hosts", []string{"localhost:9042"})
	v.SetDefault("cassandra.keyspace", "bruteforce")
	v.SetDefault("cassandra.username", "")
	v.SetDefault("cassandra.password", "")
	v.SetDefault("cassandra.consistency", "QUORUM")
	v.SetDefault("cassandra.timeout", 5*time.Second)

	v.SetDefault("search.progress_interval", 10000)
	v.SetDefault("search.compress_keyframes", false)

	v.SetDefault("world.seed", 0)
}

// Validate checks values viper cannot.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis, StoreCassandra:
	default:
		return fmt.Errorf("invalid STORE_BACKEND value: %q", c.Store)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid REDIS_DB value: %d", c.Redis.DB)
	}
	if c.Store == StoreCassandra && len(c.Cassandra.Hosts) == 0 {
		return fmt.Errorf("CASSANDRA_HOSTS is required when STORE_BACKEND=cassandra")
	}
	return nil
}

// Address returns the full address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// trimHosts drops blanks from a comma-separated host list.
func trimHosts(in []string) []string {
	hosts := make([]string, 0, len(in))
	for _, part := range in {
		host := strings.TrimSpace(part)
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}
