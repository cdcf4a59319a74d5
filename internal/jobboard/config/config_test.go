package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "auth:\n  jwt_secret: s3cret\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9090, cfg.Server.GRPCPort)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, SinkLog, cfg.Notifier.Sink)
	assert.Equal(t, 5*time.Second, cfg.Notifier.Timeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8081
database:
  driver: mysql
  host: db.internal
  port: 3306
auth:
  jwt_secret: from-file
  token_ttl: 2h
notifier:
  sink: kafka
kafka:
  brokers: [k1:9092]
`)
	t.Setenv("JOBBOARD_DATABASE_HOST", "db.override")
	t.Setenv("JOBBOARD_AUTH_JWT_SECRET", "from-env")
	t.Setenv("JOBBOARD_KAFKA_BROKERS", "k2:9092,k3:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.HTTPPort)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"k2:9092", "k3:9092"}, cfg.Kafka.Brokers)

	dbCfg := cfg.DB()
	assert.Equal(t, "mysql", dbCfg.Driver)
	assert.Equal(t, "jobboard", dbCfg.DBName)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [unterminated\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "log:\n  level: info\n"))
	assert.ErrorIs(t, err, e.ErrInvalidInput, "jwt secret is mandatory")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{HTTPPort: 1, GRPCPort: 2},
			Auth:     AuthConfig{JWTSecret: "x"},
			Notifier: NotifierConfig{Sink: SinkLog},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "log sink", mutate: func(*Config) {}},
		{name: "kafka sink", mutate: func(c *Config) {
			c.Notifier.Sink = SinkKafka
			c.Kafka = KafkaConfig{Brokers: []string{"k:9092"}, Topic: "t"}
		}},
		{name: "kafka sink without brokers", mutate: func(c *Config) { c.Notifier.Sink = SinkKafka }, wantErr: true},
		{name: "smtp sink", mutate: func(c *Config) {
			c.Notifier.Sink = SinkSMTP
			c.SMTP = SMTPConfig{Host: "smtp", From: "a@b"}
		}},
		{name: "smtp sink without host", mutate: func(c *Config) { c.Notifier.Sink = SinkSMTP }, wantErr: true},
		{name: "unknown sink", mutate: func(c *Config) { c.Notifier.Sink = "pigeon" }, wantErr: true},
		{name: "missing port", mutate: func(c *Config) { c.Server.HTTPPort = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, e.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMailerConfig(t *testing.T) {
	cfg := &Config{SMTP: SMTPConfig{Host: "smtp", Port: 25, From: "a@b", TemplatesPath: "t.yaml"}}
	m := cfg.Mailer()
	assert.Equal(t, "smtp", m.Host)
	assert.Equal(t, 25, m.Port)
	assert.Equal(t, "t.yaml", m.TemplatesPath)
}
