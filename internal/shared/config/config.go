package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	Paynow     PaynowConfig     `mapstructure:"paynow"`
	Email      EmailConfig      `mapstructure:"email"`
	Messaging  MessagingConfig  `mapstructure:"messaging"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`
	Locks      LocksConfig      `mapstructure:"locks"`
	Membership MembershipConfig `mapstructure:"membership"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the database connection string in URL form, as expected by pgxpool.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	Issuer            string        `mapstructure:"issuer"`
	AccessTokenExpiry time.Duration `mapstructure:"access_token_expiry"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPClientConfig holds outbound HTTP client configuration.
type HTTPClientConfig struct {
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	KeepAlive           time.Duration `mapstructure:"keep_alive"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`
}

// PaynowConfig holds mobile-money gateway configuration.
type PaynowConfig struct {
	IntegrationID   string        `mapstructure:"integration_id"`
	IntegrationKey  string        `mapstructure:"integration_key"`
	InitiateURL     string        `mapstructure:"initiate_url"`
	ReturnURL       string        `mapstructure:"return_url"`
	ResultURL       string        `mapstructure:"result_url"`
	Method          string        `mapstructure:"method"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// EmailConfig holds email configuration.
type EmailConfig struct {
	Provider    string        `mapstructure:"provider"` // smtp, noop
	FromAddress string        `mapstructure:"from_address"`
	FromName    string        `mapstructure:"from_name"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SMTP        SMTPConfig    `mapstructure:"smtp"`
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// MessagingConfig holds RabbitMQ configuration for notification fan-out.
type MessagingConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

// OutboxConfig holds the outbox relay configuration.
type OutboxConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	BatchSize      int           `mapstructure:"batch_size"`
	Interval       time.Duration `mapstructure:"interval"`
	MetricsAddress string        `mapstructure:"metrics_address"`
}

// LocksConfig holds per-resource lock configuration.
type LocksConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Wait time.Duration `mapstructure:"wait"`
}

// MembershipConfig holds membership fee configuration.
type MembershipConfig struct {
	Fees map[string]string `mapstructure:"fees"` // membership type -> decimal amount
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/sportsclub")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("SPORTSCLUB")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Secrets
	if secret := os.Getenv("SPORTSCLUB_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("SPORTSCLUB_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("SPORTSCLUB_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("SPORTSCLUB_PAYNOW_KEY"); key != "" {
		cfg.Paynow.IntegrationKey = key
	}
	if id := os.Getenv("SPORTSCLUB_PAYNOW_ID"); id != "" {
		cfg.Paynow.IntegrationID = id
	}
	if password := os.Getenv("SPORTSCLUB_SMTP_PASSWORD"); password != "" {
		cfg.Email.SMTP.Password = password
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "sportsclub")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.issuer", "sportsclub")
	v.SetDefault("auth.access_token_expiry", 15*time.Minute)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// HTTP client defaults
	v.SetDefault("http_client.dial_timeout", 5*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)
	v.SetDefault("http_client.max_idle_conns", 50)
	v.SetDefault("http_client.max_idle_conns_per_host", 10)
	v.SetDefault("http_client.max_conns_per_host", 20)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 5*time.Second)
	v.SetDefault("http_client.response_timeout", 30*time.Second)

	// Paynow defaults
	v.SetDefault("paynow.initiate_url", "https://www.paynow.co.zw/interface/remotetransaction")
	v.SetDefault("paynow.method", "ecocash")
	v.SetDefault("paynow.timeout", 20*time.Second)
	v.SetDefault("paynow.breaker_failures", 5)
	v.SetDefault("paynow.breaker_timeout", 30*time.Second)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.from_name", "Sports Club")
	v.SetDefault("email.timeout", 10*time.Second)
	v.SetDefault("email.smtp.port", 587)

	// Messaging defaults
	v.SetDefault("messaging.exchange", "sportsclub.notifications")

	// Outbox defaults
	v.SetDefault("outbox.enabled", true)
	v.SetDefault("outbox.brokers", []string{"localhost:9092"})
	v.SetDefault("outbox.topic", "sportsclub.payments")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.interval", time.Second)
	v.SetDefault("outbox.metrics_address", ":9102")

	// Lock defaults
	v.SetDefault("locks.ttl", 60*time.Second)
	v.SetDefault("locks.wait", 5*time.Second)

	// Membership defaults
	v.SetDefault("membership.fees", map[string]string{
		"athlete":  "20.00",
		"coach":    "35.00",
		"official": "25.00",
	})
}
