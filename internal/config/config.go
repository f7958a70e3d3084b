package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the full agent configuration. Every environment variable
// carries an SW_ prefix so the agent never collides with the host
// application's environment.
type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	Carrier    CarrierConfig    `yaml:"carrier"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Reporter   ReporterConfig   `yaml:"reporter"`
	Logging    LogConfig        `yaml:"logging"`
}

// AgentConfig identifies the instrumented application.
type AgentConfig struct {
	// Service is the application code registered with the collector; it is
	// the dictionary scope for every operation name this agent interns.
	Service      string `envconfig:"SW_AGENT_SERVICE" yaml:"service"`
	InstanceID   string `envconfig:"SW_AGENT_INSTANCE_ID" yaml:"instance_id"`
	CollectorURL string `envconfig:"SW_COLLECTOR_URL" yaml:"collector_url"`
}

// CarrierConfig shapes the buffered segment pipeline.
type CarrierConfig struct {
	Lanes         int           `envconfig:"SW_CARRIER_LANES" yaml:"lanes"`
	LaneCapacity  int           `envconfig:"SW_CARRIER_LANE_CAPACITY" yaml:"lane_capacity"`
	Policy        string        `envconfig:"SW_CARRIER_POLICY" yaml:"policy"`
	Partitioner   string        `envconfig:"SW_CARRIER_PARTITIONER" yaml:"partitioner"`
	Consumers     int           `envconfig:"SW_CARRIER_CONSUMERS" yaml:"consumers"`
	BatchSize     int           `envconfig:"SW_CARRIER_BATCH_SIZE" yaml:"batch_size"`
	ConsumeCycle  time.Duration `envconfig:"SW_CARRIER_CONSUME_CYCLE" yaml:"consume_cycle"`
	SinkRetries   int           `envconfig:"SW_CARRIER_SINK_RETRIES" yaml:"sink_retries"`
	ShutdownGrace time.Duration `envconfig:"SW_CARRIER_SHUTDOWN_GRACE" yaml:"shutdown_grace"`
}

// DictionaryConfig bounds the operation-name cache.
type DictionaryConfig struct {
	Capacity     int           `envconfig:"SW_DICTIONARY_CAPACITY" yaml:"capacity"`
	SyncInterval time.Duration `envconfig:"SW_DICTIONARY_SYNC_INTERVAL" yaml:"sync_interval"`
}

// ReporterConfig shapes the HTTP reporter talking to the collector.
type ReporterConfig struct {
	Timeout    time.Duration `envconfig:"SW_REPORTER_TIMEOUT" yaml:"timeout"`
	MaxRetries int           `envconfig:"SW_REPORTER_MAX_RETRIES" yaml:"max_retries"`
	Compress   bool          `envconfig:"SW_REPORTER_COMPRESS" yaml:"compress"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"SW_LOG_LEVEL" yaml:"level"`
	Development bool   `envconfig:"SW_LOG_DEV" yaml:"development"`
}

// Default returns the baseline configuration. Every loader starts from this,
// so an empty environment still yields a runnable agent.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Service: "unnamed-service",
		},
		Carrier: CarrierConfig{
			Lanes:         4,
			LaneCapacity:  256,
			Policy:        "if_possible",
			Partitioner:   "round_robin",
			Consumers:     2,
			BatchSize:     50,
			ConsumeCycle:  20 * time.Millisecond,
			SinkRetries:   2,
			ShutdownGrace: 2 * time.Second,
		},
		Dictionary: DictionaryConfig{
			Capacity:     4096,
			SyncInterval: 10 * time.Second,
		},
		Reporter: ReporterConfig{
			Timeout:    5 * time.Second,
			MaxRetries: 2,
			Compress:   true,
		},
		Logging: LogConfig{
			Level:       "warn",
			Development: false,
		},
	}
}

// Load builds configuration from defaults plus environment overrides.
func Load() (*Config, error) {
	cfg := Default()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// LoadFile builds configuration from defaults, a YAML file, then environment
// overrides, in that precedence order. A missing file is an error; pass an
// empty path to skip the file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = Default()
		cfg.Normalize()
	}
	return cfg
}

// Normalize clamps out-of-range values and fills generated fields. The agent
// prefers running with corrected values over refusing to start inside the
// host application.
func (c *Config) Normalize() {
	def := Default()

	if c.Agent.Service == "" {
		c.Agent.Service = def.Agent.Service
	}
	if c.Agent.InstanceID == "" {
		c.Agent.InstanceID = uuid.NewString()
	}

	if c.Carrier.Lanes < 1 {
		c.Carrier.Lanes = def.Carrier.Lanes
	}
	if c.Carrier.LaneCapacity < 1 {
		c.Carrier.LaneCapacity = def.Carrier.LaneCapacity
	}
	if c.Carrier.Consumers < 1 {
		c.Carrier.Consumers = def.Carrier.Consumers
	}
	if c.Carrier.Consumers > c.Carrier.Lanes {
		// One drainer per lane keeps per-lane FIFO trivially true.
		c.Carrier.Consumers = c.Carrier.Lanes
	}
	if c.Carrier.BatchSize < 1 {
		c.Carrier.BatchSize = def.Carrier.BatchSize
	}
	if c.Carrier.ConsumeCycle <= 0 {
		c.Carrier.ConsumeCycle = def.Carrier.ConsumeCycle
	}
	if c.Carrier.SinkRetries < 0 {
		c.Carrier.SinkRetries = 0
	}
	if c.Carrier.ShutdownGrace <= 0 {
		c.Carrier.ShutdownGrace = def.Carrier.ShutdownGrace
	}

	if c.Dictionary.Capacity < 1 {
		c.Dictionary.Capacity = def.Dictionary.Capacity
	}
	if c.Dictionary.SyncInterval <= 0 {
		c.Dictionary.SyncInterval = def.Dictionary.SyncInterval
	}

	if c.Reporter.Timeout <= 0 {
		c.Reporter.Timeout = def.Reporter.Timeout
	}
	if c.Reporter.MaxRetries < 0 {
		c.Reporter.MaxRetries = 0
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Standalone reports whether the agent runs without a collector, using the
// local resolver and the logging reporter instead of HTTP.
func (c *Config) Standalone() bool {
	return c.Agent.CollectorURL == ""
}
