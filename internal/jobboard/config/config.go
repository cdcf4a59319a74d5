// Package config loads service configuration from a YAML file, the
// environment (JOBBOARD_*) and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/db"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/mailer"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "JOBBOARD"

// Notification sinks.
const (
	SinkKafka = "kafka"
	SinkSMTP  = "smtp"
	SinkLog   = "log"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
}

type ServerConfig struct {
	GRPCPort        int           `mapstructure:"grpc_port"`
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	LoginRateLimit float64       `mapstructure:"login_rate_limit"`
	LoginBurst     int           `mapstructure:"login_burst"`
}

type NotifierConfig struct {
	Sink    string        `mapstructure:"sink"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	GroupID           string   `mapstructure:"group_id"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
}

type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	From          string `mapstructure:"from"`
	TemplatesPath string `mapstructure:"templates_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.development", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "jobboard")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "jobboard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "jobboard.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "jobboard")
	v.SetDefault("auth.bcrypt_cost", 0)
	v.SetDefault("auth.login_rate_limit", 1.0)
	v.SetDefault("auth.login_burst", 5)

	v.SetDefault("notifier.sink", SinkLog)
	v.SetDefault("notifier.timeout", 5*time.Second)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "application-status")
	v.SetDefault("kafka.group_id", "jobboard-notifier")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.templates_path", "")
}

// Load reads configuration. path names an explicit config file; when empty,
// config.yaml is searched in the working directory, ./config and
// internal/jobboard/config, and a missing file leaves the defaults in place.
// Environment variables such as JOBBOARD_DATABASE_HOST override both.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("internal/jobboard/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch {
	case c.Auth.JWTSecret == "":
		return fmt.Errorf("%w: auth.jwt_secret is required", e.ErrInvalidInput)
	case c.Server.HTTPPort <= 0 || c.Server.GRPCPort <= 0:
		return fmt.Errorf("%w: server ports must be positive", e.ErrInvalidInput)
	}

	switch c.Notifier.Sink {
	case SinkLog:
	case SinkKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("%w: kafka sink needs brokers and a topic", e.ErrInvalidInput)
		}
	case SinkSMTP:
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return fmt.Errorf("%w: smtp sink needs smtp.host and smtp.from", e.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown notifier sink %q", e.ErrInvalidInput, c.Notifier.Sink)
	}
	return nil
}

// DB returns the repository settings.
func (c *Config) DB() *db.Config {
	return &db.Config{
		Driver:   c.Database.Driver,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		DBName:   c.Database.Name,
		SSLMode:  c.Database.SSLMode,
		Path:     c.Database.Path,
	}
}

// Mailer returns the SMTP sink settings.
func (c *Config) Mailer() mailer.Config {
	return mailer.Config{
		Host:          c.SMTP.Host,
		Port:          c.SMTP.Port,
		Username:      c.SMTP.Username,
		Password:      c.SMTP.Password,
		From:          c.SMTP.From,
		TemplatesPath: c.SMTP.TemplatesPath,
	}
}
