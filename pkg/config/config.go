package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"Booster/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultInstruments is the liquid perpetual-swap set processed when neither
// the config nor discovery supplies one.
var DefaultInstruments = []string{
	"BTC-USDT-SWAP", "ETH-USDT-SWAP", "SOL-USDT-SWAP", "DOGE-USDT-SWAP", "XRP-USDT-SWAP",
	"PEPE-USDT-SWAP", "SUI-USDT-SWAP", "ADA-USDT-SWAP", "TRUMP-USDT-SWAP", "AVAX-USDT-SWAP",
	"LINK-USDT-SWAP", "LTC-USDT-SWAP", "BNB-USDT-SWAP", "WIF-USDT-SWAP", "TON-USDT-SWAP",
	"TRX-USDT-SWAP", "DOT-USDT-SWAP", "UNI-USDT-SWAP", "AAVE-USDT-SWAP", "NEAR-USDT-SWAP",
	"ATOM-USDT-SWAP", "OP-USDT-SWAP", "ARB-USDT-SWAP", "FIL-USDT-SWAP", "APT-USDT-SWAP",
	"ETC-USDT-SWAP", "BCH-USDT-SWAP", "CRV-USDT-SWAP", "INJ-USDT-SWAP", "HBAR-USDT-SWAP",
	"ORDI-USDT-SWAP", "WLD-USDT-SWAP", "SHIB-USDT-SWAP", "TIA-USDT-SWAP", "LDO-USDT-SWAP",
	"ENA-USDT-SWAP", "ONDO-USDT-SWAP", "JUP-USDT-SWAP", "BONK-USDT-SWAP", "FLOKI-USDT-SWAP",
	"STX-USDT-SWAP", "ICP-USDT-SWAP", "SAND-USDT-SWAP", "MKR-USDT-SWAP", "ETHFI-USDT-SWAP",
	"PNUT-USDT-SWAP", "POPCAT-USDT-SWAP", "NOT-USDT-SWAP",
}

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
		Collector  struct {
			Enabled        bool          `yaml:"enabled"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
			IncludeWarn    bool          `yaml:"include_warn"`
		} `yaml:"collector"`
	} `yaml:"log"`

	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Pipeline PipelineConfig `yaml:"pipeline"`
	OKX      OKXConfig      `yaml:"okx"`
	Storage  StorageConfig  `yaml:"storage"`

	Heatmap struct {
		Source      string        `yaml:"source" default:"xlsx" validate:"oneof=xlsx csv"`
		Path        string        `yaml:"path" default:"RESULT_HEAT_MAP.xlsx"`
		SheetSuffix string        `yaml:"sheet_suffix" default:"_H1"`
		Cache       string        `yaml:"cache" default:"memory" validate:"oneof=none memory redis layered"`
		CacheTTL    time.Duration `yaml:"cache_ttl" default:"1h"`
	} `yaml:"heatmap"`

	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"booster"`
	} `yaml:"redis"`

	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"booster"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		MaxConnections   int           `yaml:"max_connections" default:"10"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"10s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"60s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"60s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`

	Postgres struct {
		DSN      string `yaml:"dsn"`
		MaxConns int32  `yaml:"max_conns" default:"8"`
	} `yaml:"postgres"`

	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"booster.tables"`
		LogTopic     string   `yaml:"log_topic" default:"booster.logs"`
		RunTopic     string   `yaml:"run_topic" default:"booster.runs"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"booster"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"1s"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"30s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

// PipelineConfig drives the orchestrator.
type PipelineConfig struct {
	Instruments []string      `yaml:"instruments"`
	Timezone    string        `yaml:"timezone" default:"Europe/Moscow"`
	DailyAnchor time.Duration `yaml:"daily_anchor" default:"3h"`
	Target      int           `yaml:"target" default:"3360" validate:"min=1"`
	Interval    time.Duration `yaml:"interval"`
	Stages      []string      `yaml:"stages" validate:"dive,oneof=download enrich density"`
	Concurrency struct {
		Fetch   int `yaml:"fetch" default:"5" validate:"min=1,max=64"`
		Enrich  int `yaml:"enrich" default:"6" validate:"min=1,max=64"`
		Density int `yaml:"density" default:"6" validate:"min=1,max=64"`
	} `yaml:"concurrency"`
	Density struct {
		Window3m int `yaml:"window_3m" default:"20" validate:"min=1"`
		Window1h int `yaml:"window_1h" default:"24" validate:"min=1"`
	} `yaml:"density"`
	Discover struct {
		Enabled      bool    `yaml:"enabled"`
		MinVolumeUSD float64 `yaml:"min_volume_musd" default:"30"`
	} `yaml:"discover"`
}

// OKXConfig configures the market-data client.
type OKXConfig struct {
	BaseURL     string        `yaml:"base_url" default:"https://www.okx.com" validate:"url"`
	PageLimit   int           `yaml:"page_limit" default:"100" validate:"min=1,max=300"`
	VolumeIndex int           `yaml:"volume_index" default:"7" validate:"min=5,max=7"`
	UserAgent   string        `yaml:"user_agent" default:"booster/1.0"`
	Timeout     time.Duration `yaml:"timeout" default:"15s"`
	Pacing      time.Duration `yaml:"pacing" default:"250ms"`
	Retry       struct {
		MaxAttempts int           `yaml:"max_attempts" default:"2" validate:"min=1"`
		Delay       time.Duration `yaml:"delay" default:"5s"`
		ErrorDelay  time.Duration `yaml:"error_delay" default:"10s"`
	} `yaml:"retry"`
	RateLimit struct {
		Delay    time.Duration `yaml:"delay" default:"2s"`
		MaxWaits int           `yaml:"max_waits" default:"30" validate:"min=0"`
	} `yaml:"rate_limit"`
}

// StorageConfig selects the table store and its filesystem layout.
type StorageConfig struct {
	Backend string            `yaml:"backend" default:"file" validate:"oneof=file postgres clickhouse memory"`
	Root    string            `yaml:"root" default:"./data"`
	Folders map[string]string `yaml:"folders"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadWithEnv loads an optional .env file, the YAML config, then overrides
// fields with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyEnv()

	if err := c.finish(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BOOSTER_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("INSTRUMENTS"); v != "" {
		c.Pipeline.Instruments = util.SplitList(v)
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("STORAGE_ROOT"); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("HEATMAP_PATH"); v != "" {
		c.Heatmap.Path = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

func (c *Config) finish() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	if c.Storage.Folders == nil {
		c.Storage.Folders = map[string]string{"3m": "3mtf", "1h": "1htf", "1d": "1dtf"}
	}
	if len(c.Pipeline.Instruments) == 0 && !c.Pipeline.Discover.Enabled {
		c.Pipeline.Instruments = append([]string(nil), DefaultInstruments...)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("pipeline.timezone: %w", err)
	}
	if c.Pipeline.DailyAnchor < 0 || c.Pipeline.DailyAnchor >= 24*time.Hour {
		return fmt.Errorf("pipeline.daily_anchor must be within [0, 24h), got %s", c.Pipeline.DailyAnchor)
	}
	for _, tf := range []string{"3m", "1h", "1d"} {
		if strings.TrimSpace(c.Storage.Folders[tf]) == "" {
			return fmt.Errorf("storage.folders.%s is required", tf)
		}
	}
	switch c.Storage.Backend {
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for storage.backend=postgres")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for storage.backend=clickhouse")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.collector requires kafka.enabled")
	}
	if (c.Heatmap.Cache == "redis" || c.Heatmap.Cache == "layered") && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for heatmap.cache=%s", c.Heatmap.Cache)
	}
	if len(c.Pipeline.Instruments) == 0 && !c.Pipeline.Discover.Enabled {
		return fmt.Errorf("pipeline.instruments cannot be empty")
	}
	return nil
}

// Location resolves pipeline.timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Pipeline.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
