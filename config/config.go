package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"server"`

	Redis struct {
		// Addr empty means the in-memory queue backend is used
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Kafka struct {
		// Enabled controls whether terminal outcomes are published at all
		Enabled    bool   `yaml:"enabled"`
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
		// Driver selects the producer implementation: sarama or segmentio
		Driver string `yaml:"driver"`
	} `yaml:"kafka"`

	Store struct {
		// SQLitePath empty disables the audit store
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"store"`

	Queue struct {
		MaxAttempts int           `yaml:"max_attempts"`
		BaseBackoff time.Duration `yaml:"base_backoff"`
		MaxBackoff  time.Duration `yaml:"max_backoff"`
	} `yaml:"queue"`

	Worker struct {
		Concurrency  int           `yaml:"concurrency"`
		StagePacing  time.Duration `yaml:"stage_pacing"`
		AttachGrace  time.Duration `yaml:"attach_grace"`
		StageTimeout time.Duration `yaml:"stage_timeout"`
	} `yaml:"worker"`
}

// Default configuration values
var (
	configFile  = flag.String("config", "", "Path to config file (YAML)")
	logLevel    = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat   = flag.String("log_format", "pretty", "Log format: json, pretty")
	redisAddr   = flag.String("redis_addr", "", "Redis address for the durable queue backend (empty = in-memory)")
	concurrency = flag.Int("concurrency", 10, "Number of execution workers")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	flag.Parse()

	config := Defaults()
	config.Server.LogLevel = *logLevel
	config.Server.LogFormat = *logFormat
	config.Redis.Addr = *redisAddr
	config.Worker.Concurrency = *concurrency

	// Load configuration from file if specified
	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// Defaults returns a configuration with the stock pipeline parameters
func Defaults() *Config {
	config := &Config{}
	config.Server.LogLevel = "info"
	config.Server.LogFormat = "pretty"
	config.Redis.Prefix = "routingo"
	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.Topic = "order-outcomes"
	config.Kafka.Driver = "sarama"
	config.Queue.MaxAttempts = 3
	config.Queue.BaseBackoff = 500 * time.Millisecond
	config.Queue.MaxBackoff = 60 * time.Second
	config.Worker.Concurrency = 10
	config.Worker.StagePacing = 800 * time.Millisecond
	config.Worker.AttachGrace = 2 * time.Second
	config.Worker.StageTimeout = 30 * time.Second
	return config
}
