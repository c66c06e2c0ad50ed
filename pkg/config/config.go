package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // LICENSE_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	NodeID     int64  `mapstructure:"APP_NODE_ID"` // snowflake node, unique per instance
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr     string `mapstructure:"ADDR"`
		Protocol string `mapstructure:"PROTOCOL"` // http or grpc
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Consul struct {
		Addr        string `mapstructure:"ADDR"`
		ServiceHost string `mapstructure:"SERVICE_HOST"` // defaults to the hostname
	} `mapstructure:"CONSUL"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`

		// TrustedProxies lists the CIDRs or IPs allowed to set X-Forwarded-For.
		// Empty means the peer address is always the client.
		TrustedProxies []string `mapstructure:"TRUSTED_PROXIES"`
	} `mapstructure:"HTTP_SERVER"`
	Grpc struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"GRPC_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBName         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`
		Metrics        bool   `mapstructure:"METRICS"`
		ConnectionPool struct {
			MaxIdleConns    int           `mapstructure:"MAX_IDLE_CONNS"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Admin struct {
		Secret     string `mapstructure:"SECRET"`
		SecretHash string `mapstructure:"SECRET_HASH"` // bcrypt, takes precedence over SECRET
	} `mapstructure:"ADMIN"`
	License struct {
		KeyPrefix   string `mapstructure:"KEY_PREFIX"`
		Locale      string `mapstructure:"LOCALE"`
		Timezone    string `mapstructure:"TIMEZONE"`
		KeyAttempts int    `mapstructure:"KEY_ATTEMPTS"`
	} `mapstructure:"LICENSE"`
	Audit struct {
		Retention time.Duration `mapstructure:"RETENTION"` // 0 keeps entries forever
		PurgeHour int           `mapstructure:"PURGE_HOUR"`
	} `mapstructure:"AUDIT"`
	RateLimit struct {
		Enable bool          `mapstructure:"ENABLE"`
		Limit  int           `mapstructure:"LIMIT"`
		Window time.Duration `mapstructure:"WINDOW"`
	} `mapstructure:"RATE_LIMIT"`
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

var keyPrefixPattern = regexp.MustCompile(`^[A-Za-z0-9]*$`)

var defaults = map[string]any{
	"APP_ENV":     "development",
	"APP_NAME":    "license",
	"APP_VERSION": "dev",
	"APP_NODE_ID": 1,

	"TLS.ENABLE":    false,
	"TLS.CERT_PATH": "",
	"TLS.KEY_PATH":  "",

	"OTEL.ADDR":     "",
	"OTEL.PROTOCOL": "http",

	"PYROSCOPE.ADDR": "",

	"CONSUL.ADDR":         "",
	"CONSUL.SERVICE_HOST": "",

	"HTTP_SERVER.ADDR":            "8080",
	"HTTP_SERVER.READ_TIMEOUT":    15 * time.Second,
	"HTTP_SERVER.WRITE_TIMEOUT":   15 * time.Second,
	"HTTP_SERVER.IDLE_TIMEOUT":    60 * time.Second,
	"HTTP_SERVER.TRUSTED_PROXIES": []string{},

	"GRPC_SERVER.ADDR": "",

	"DATABASE.TYPE":                               "sqlite",
	"DATABASE.HOST":                               "127.0.0.1",
	"DATABASE.PORT":                               "5432",
	"DATABASE.DBNAME":                             "license.db",
	"DATABASE.USER":                               "",
	"DATABASE.PASSWORD":                           "",
	"DATABASE.SSLMODE":                            "disable",
	"DATABASE.TIMEZONE":                           "UTC",
	"DATABASE.AUTO_MIGRATE":                       true,
	"DATABASE.METRICS":                            false,
	"DATABASE.CONNECTION_POOL.MAX_IDLE_CONNS":     5,
	"DATABASE.CONNECTION_POOL.MAX_OPEN_CONNS":     20,
	"DATABASE.CONNECTION_POOL.CONN_MAX_LIFETIME":  30 * time.Minute,
	"DATABASE.CONNECTION_POOL.CONN_MAX_IDLE_TIME": 5 * time.Minute,

	"REDIS.ADDR":         "",
	"REDIS.PASSWORD":     "",
	"REDIS.DB":           0,
	"REDIS.POOL_SIZE":    10,
	"REDIS.POOL_TIMEOUT": 4 * time.Second,

	"ADMIN.SECRET":      "",
	"ADMIN.SECRET_HASH": "",

	"LICENSE.KEY_PREFIX":   "MOULIN",
	"LICENSE.LOCALE":       "fr",
	"LICENSE.TIMEZONE":     "Europe/Paris",
	"LICENSE.KEY_ATTEMPTS": 5,

	"AUDIT.RETENTION":  time.Duration(0),
	"AUDIT.PURGE_HOUR": 3,

	"RATE_LIMIT.ENABLE": false,
	"RATE_LIMIT.LIMIT":  30,
	"RATE_LIMIT.WINDOW": time.Minute,
}

// New reads config.yaml (or CONFIG_FILE) and the environment into a Config.
// The file is optional, every key has a default so env overrides always apply.
func New() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path, ok := os.LookupEnv("CONFIG_FILE"); ok && path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TLS.Enable && (c.TLS.CertPath == "" || c.TLS.KeyPath == "") {
		return fmt.Errorf("tls enabled but TLS_CERT_PATH or TLS_KEY_PATH not provided")
	}

	switch c.Database.Type {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE %q", c.Database.Type)
	}

	if _, err := time.LoadLocation(c.License.Timezone); err != nil {
		return fmt.Errorf("invalid LICENSE_TIMEZONE %q: %w", c.License.Timezone, err)
	}

	if !keyPrefixPattern.MatchString(strings.TrimSpace(c.License.KeyPrefix)) {
		return fmt.Errorf("LICENSE_KEY_PREFIX %q must contain only letters and digits", c.License.KeyPrefix)
	}

	if c.Audit.PurgeHour < 0 || c.Audit.PurgeHour > 23 {
		return fmt.Errorf("AUDIT_PURGE_HOUR must be between 0 and 23")
	}

	return nil
}

func LoadConfig(p Params) (*Config, error) {
	cfg, err := New()
	if err != nil {
		return nil, err
	}

	if p.Vault != nil {
		if err := applyVaultSecrets(context.Background(), p.Vault, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func applyVaultSecrets(ctx context.Context, client *vault.Client, cfg *Config) error {
	zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
	secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
	if err != nil {
		zap.L().Error("failed get secret from vault", zap.Error(err))
		return fmt.Errorf("read vault secrets: %w", err)
	}
	zap.L().Info("Success Get Secret")

	get := func(key, fallback string) string {
		if val, ok := secret.Data.Data[key].(string); ok && val != "" {
			return val
		}
		return fallback
	}

	cfg.Admin.Secret = get("admin_secret", cfg.Admin.Secret)
	cfg.Admin.SecretHash = get("admin_secret_hash", cfg.Admin.SecretHash)
	cfg.Database.User = get("postgres_user", cfg.Database.User)
	cfg.Database.Password = get("postgres_password", cfg.Database.Password)
	cfg.Redis.Password = get("redis_password", cfg.Redis.Password)

	return nil
}
