// Package config loads application settings from an optional YAML file,
// environment variables and built-in defaults, in that order of precedence
// from lowest to highest.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Scylla  ScyllaConfig  `mapstructure:"scylla"`
	Log     LogConfig     `mapstructure:"log"`
	Web     WebConfig     `mapstructure:"web"`
	Writer  WriterConfig  `mapstructure:"writer"`
}

type ServerConfig struct {
	Port        int           `mapstructure:"port"`
	TriggerMode int           `mapstructure:"trigger_mode"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Workers     int           `mapstructure:"workers"`
	WorkerQueue int           `mapstructure:"worker_queue"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Issuer   string        `mapstructure:"issuer"`
}

type MySQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	PoolSize int    `mapstructure:"pool_size"`
}

func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

type ScyllaConfig struct {
	Hosts    []string `mapstructure:"hosts"`
	Keyspace string   `mapstructure:"keyspace"`
}

type LogConfig struct {
	Dir       string `mapstructure:"dir"`
	Suffix    string `mapstructure:"suffix"`
	Level     string `mapstructure:"level"`
	QueueSize int    `mapstructure:"queue_size"`
	MaxLines  int    `mapstructure:"max_lines"`
}

type WebConfig struct {
	StaticDir string `mapstructure:"static_dir"`
}

type WriterConfig struct {
	BatchSize  int           `mapstructure:"batch_size"`
	RetryBase  time.Duration `mapstructure:"retry_base"`
	RetryCap   time.Duration `mapstructure:"retry_cap"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// LoadConfig reads configFile when non-empty, otherwise relies on env vars
// and defaults alone.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 1316)
	v.SetDefault("server.trigger_mode", 3)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.workers", 40)
	v.SetDefault("server.worker_queue", 1024)

	v.SetDefault("auth.secret", "termchat-dev-secret")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "termchat")

	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.database", "im")
	v.SetDefault("mysql.pool_size", 50)

	v.SetDefault("scylla.hosts", []string{"127.0.0.1"})
	v.SetDefault("scylla.keyspace", "im")

	v.SetDefault("log.dir", "./log")
	v.SetDefault("log.suffix", ".log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.queue_size", 1024)
	v.SetDefault("log.max_lines", 50000)

	v.SetDefault("web.static_dir", "./web")

	v.SetDefault("writer.batch_size", 100)
	v.SetDefault("writer.retry_base", 50*time.Millisecond)
	v.SetDefault("writer.retry_cap", time.Second)
	v.SetDefault("writer.max_retries", 3)

	// Container deployments point at the databases through env vars.
	v.BindEnv("mysql.host", "MYSQL_HOST")
	v.BindEnv("mysql.password", "MYSQL_PASSWORD")
	v.BindEnv("scylla.hosts", "SCYLLA_HOSTS")
	v.BindEnv("auth.secret", "TERMCHAT_SECRET")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
