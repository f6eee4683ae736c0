/*-------------------------------------------------------------------------
 *
 * config.go
 *    Configuration for NeuronApprovals
 *
 * Configuration is layered: built-in defaults, then an optional YAML file,
 * then APPROVALS_* environment variables.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/config/config.go
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

/* EnvPrefix is the prefix for environment overrides */
const EnvPrefix = "APPROVALS"

/* Config holds application configuration */
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Logging       LoggingConfig       `yaml:"logging"`
	Admin         AdminConfig         `yaml:"admin"`
	Tables        TablesConfig        `yaml:"tables"`
	Users         UsersConfig         `yaml:"users"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Events        EventsConfig        `yaml:"events"`
	Auth          AuthConfig          `yaml:"auth"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

/* ServerConfig holds HTTP server configuration */
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true"`
}

/* DatabaseConfig holds database configuration */
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"ssl_mode" split_words:"true"`
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true"`
	AutoMigrate     bool          `yaml:"auto_migrate" split_words:"true"`
}

/* LoggingConfig holds logging configuration; Output is the log channel */
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Output  string `yaml:"output"`
}

/* AdminConfig holds admin interface configuration */
type AdminConfig struct {
	Route      string   `yaml:"route"`
	Middleware []string `yaml:"middleware"`
	PerPage    int      `yaml:"per_page" split_words:"true"`
	Brand      string   `yaml:"brand"`
}

/* TablesConfig holds table name overrides */
type TablesConfig struct {
	Contacts        string `yaml:"contacts"`
	ContactUser     string `yaml:"contact_user" split_words:"true"`
	Approvals       string `yaml:"approvals"`
	ApprovalRecords string `yaml:"approval_records" split_words:"true"`
	Notifications   string `yaml:"notifications"`
}

/* UsersConfig describes the host user table */
type UsersConfig struct {
	Table       string `yaml:"table"`
	IDType      string `yaml:"id_type" split_words:"true"`
	NameColumn  string `yaml:"name_column" split_words:"true"`
	EmailColumn string `yaml:"email_column" split_words:"true"`
}

/* NotificationsConfig holds notification dispatch configuration */
type NotificationsConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Channels  []string      `yaml:"channels"`
	Queue     bool          `yaml:"queue"`
	QueueName string        `yaml:"queue_name" split_words:"true"`
	Workers   int           `yaml:"workers"`
	BaseURL   string        `yaml:"base_url" split_words:"true"`
	SMTP      SMTPConfig    `yaml:"smtp"`
	Webhook   WebhookConfig `yaml:"webhook"`
}

/* SMTPConfig holds mail channel configuration */
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

/* WebhookConfig holds webhook channel configuration */
type WebhookConfig struct {
	URL     string        `yaml:"url"`
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"`
}

/* EventsConfig holds event dispatch gating */
type EventsConfig struct {
	Enabled  bool            `yaml:"enabled"`
	Dispatch map[string]bool `yaml:"dispatch"`
	Backends []string        `yaml:"backends"`
	Channel  string          `yaml:"channel"`
}

/* AuthConfig holds authentication configuration */
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" split_words:"true"`
}

/* MetricsConfig holds Prometheus exposition configuration */
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

/* Default returns the built-in configuration */
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8090,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "pgx",
			Host:            "localhost",
			Port:            5432,
			User:            "neurondb",
			Password:        "neurondb",
			Name:            "neurondb",
			SSLMode:         "disable",
			Path:            "approvals.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Format:  "json",
			Output:  "stdout",
		},
		Admin: AdminConfig{
			Route:      "/contact-approvable",
			Middleware: []string{"requestid", "recovery", "logging"},
			PerPage:    15,
			Brand:      "Contact Approvable",
		},
		Tables: TablesConfig{
			Contacts:        "contacts",
			ContactUser:     "contact_user",
			Approvals:       "approvals",
			ApprovalRecords: "approval_records",
			Notifications:   "approval_notifications",
		},
		Users: UsersConfig{
			Table:       "users",
			IDType:      "TEXT",
			NameColumn:  "name",
			EmailColumn: "email",
		},
		Notifications: NotificationsConfig{
			Enabled:   true,
			Channels:  []string{"mail", "database"},
			Queue:     false,
			QueueName: "default",
			Workers:   2,
			BaseURL:   "http://localhost:8090",
			SMTP: SMTPConfig{
				Port: 587,
				From: "approvals@localhost",
			},
			Webhook: WebhookConfig{
				Timeout: 10 * time.Second,
			},
		},
		Events: EventsConfig{
			Enabled: true,
			Dispatch: map[string]bool{
				"approval.requested": true,
				"approval.approved":  true,
				"approval.rejected":  true,
				"contact.created":    true,
				"contact.updated":    true,
				"contact.deleted":    true,
			},
			Backends: []string{"log"},
			Channel:  "approval_events",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

/* Load loads configuration from defaults, an optional YAML file and the environment */
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: path='%s', error=%w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: path='%s', error=%w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

/* DSN returns the connection string for the configured driver */
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", c.Path)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

/* Address returns the listen address */
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

/* EventEnabled reports whether an event type passes both the global and per-type switch */
func (e *EventsConfig) EventEnabled(eventType string) bool {
	if !e.Enabled {
		return false
	}
	enabled, ok := e.Dispatch[eventType]
	if !ok {
		return true
	}
	return enabled
}
