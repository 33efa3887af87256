package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/velostrade/bookcore/pkg/db/queue"
)

// Config represents the application configuration
type Config struct {
	Feed struct {
		LogLevel     string `yaml:"log_level"`
		LogFormat    string `yaml:"log_format"`
		OtelEndpoint string `yaml:"otel_endpoint"`
		OtelEnabled  bool   `yaml:"otel_enabled"`
	} `yaml:"feed"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Kafka struct {
		BrokerAddr    string `yaml:"broker_addr"`
		FeedTopic     string `yaml:"feed_topic"`
		EventTopic    string `yaml:"event_topic"`
		ConsumerGroup string `yaml:"consumer_group"`
	} `yaml:"kafka"`

	Book struct {
		PxStep           float64       `yaml:"px_step"`
		NumLevels        int           `yaml:"num_levels"`
		MaxDepth         int           `yaml:"max_depth"`
		MaxOrders        int           `yaml:"max_orders"`
		Sparse           bool          `yaml:"sparse"`
		Relaxed          bool          `yaml:"relaxed"`
		OrdersLog        bool          `yaml:"orders_log"`
		SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	} `yaml:"book"`

	Instruments []string `yaml:"instruments"`
}

// Default configuration values
var (
	configFile = flag.String("config", "", "Path to config file (YAML)")
	logLevel   = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat  = flag.String("log_format", "pretty", "Log format: json, pretty")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	// Parse command line flags
	flag.Parse()

	// Create default configuration
	config := &Config{}
	config.Feed.LogLevel = *logLevel
	config.Feed.LogFormat = *logFormat
	config.Feed.OtelEndpoint = "localhost:4317"
	config.Redis.Addr = "localhost:6379"
	config.Redis.Prefix = "bookcore"
	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.FeedTopic = "md-feed"
	config.Kafka.EventTopic = "book-events"
	config.Kafka.ConsumerGroup = "feedd"
	config.Book.PxStep = 0.01
	config.Book.NumLevels = 1001
	config.Book.MaxOrders = 1 << 16
	config.Book.OrdersLog = true
	config.Book.SnapshotInterval = 30 * time.Second

	// Load configuration from file if specified
	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse YAML configuration
		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// Override Kafka configuration in package variables
		queue.SetBrokerList(config.Kafka.BrokerAddr)
		queue.SetTopic(config.Kafka.EventTopic)

		// Log loaded configuration
		log.Printf("Loaded configuration from %s", *configFile)
	}

	return config, nil
}
