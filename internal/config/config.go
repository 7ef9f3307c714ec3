package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	State    StateConfig    `mapstructure:"state"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Invite   InviteConfig   `mapstructure:"invite"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	Mode                    string        `mapstructure:"mode"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              string        `mapstructure:"db"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	Enabled         bool          `mapstructure:"enabled"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type StateConfig struct {
	Backend string `mapstructure:"backend"` // "redis" | "memory"
}

// RemoteConfig describes the managed function endpoint used as the first
// persistence tier. When disabled the service starts at the database tier.
type RemoteConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type InviteConfig struct {
	CodeLength           int    `mapstructure:"code_length"`
	ExpirationDays       int    `mapstructure:"expiration_days"`
	MaxGenerateAttempts  int    `mapstructure:"max_generate_attempts"`
	TestCodeEnabled      bool   `mapstructure:"test_code_enabled"`
	TestCode             string `mapstructure:"test_code"`
	TestPropertyID       string `mapstructure:"test_property_id"`
	TestPropertyName     string `mapstructure:"test_property_name"`
	LegacyRedeemFallback bool   `mapstructure:"legacy_redeem_fallback"`
}

type JWTConfig struct {
	SigningKey      string        `mapstructure:"signing_key"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// AuthConfig carries the refresh retry policy. The delays are configuration
// rather than literals so tests can run with zero waits.
type AuthConfig struct {
	MaxRefreshAttempts int           `mapstructure:"max_refresh_attempts"`
	RefreshBaseDelay   time.Duration `mapstructure:"refresh_base_delay"`
	RefreshMaxDelay    time.Duration `mapstructure:"refresh_max_delay"`
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	DefaultCodeLength          = 8
	DefaultExpirationDays      = 7
	DefaultMaxGenerateAttempts = 10
	DefaultMaxRefreshAttempts  = 3
	DefaultRefreshBaseDelay    = time.Second
	DefaultRefreshMaxDelay     = 5 * time.Second
)

// Load reads config.yaml, overlays environment variables, and returns Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("invite.code_length", DefaultCodeLength)
	v.SetDefault("invite.expiration_days", DefaultExpirationDays)
	v.SetDefault("invite.max_generate_attempts", DefaultMaxGenerateAttempts)
	v.SetDefault("auth.max_refresh_attempts", DefaultMaxRefreshAttempts)
	v.SetDefault("auth.refresh_base_delay", DefaultRefreshBaseDelay)
	v.SetDefault("auth.refresh_max_delay", DefaultRefreshMaxDelay)
	v.SetDefault("remote.timeout", 5*time.Second)
	v.SetDefault("state.backend", "memory")

	// Environment variable override: DATABASE_POSTGRES_HOST -> database.postgres.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
