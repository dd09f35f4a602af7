package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ConsumerModeContinuous = "continuous"
	ConsumerModeScheduled  = "scheduled"
)

const (
	defaultJobTimeoutSec = 30
	defaultDedupMaxItems = 10000
)

type HTTPServer struct {
	Port string `mapstructure:"port"`
}

type DbServer struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (config *DbServer) GetConnectionStr() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		config.User, config.Pass, config.Host, config.Port, config.Name,
	)
}

// Enabled reports whether the processed-rates journal should be used.
func (config *DbServer) Enabled() bool {
	return config.Host != ""
}

type Rabbit struct {
	URL                      string `mapstructure:"url"`
	Queue                    string `mapstructure:"queue"`
	ReconnectIntervalSeconds int    `mapstructure:"reconnect_interval_seconds"`
	PublishTimeoutSeconds    int    `mapstructure:"publish_timeout_seconds"`
	Prefetch                 int    `mapstructure:"prefetch"`
}

func (r Rabbit) ReconnectInterval() time.Duration {
	return time.Duration(r.ReconnectIntervalSeconds) * time.Second
}

func (r Rabbit) PublishTimeout() time.Duration {
	return time.Duration(r.PublishTimeoutSeconds) * time.Second
}

type RatesAPI struct {
	URL string `mapstructure:"url"`
}

type HTTPClient struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type Producer struct {
	PublishSchedule string `mapstructure:"publish_schedule"`
	StaticDir       string `mapstructure:"static_dir"`
	JobTimeoutSec   int    `mapstructure:"job_timeout_seconds"`
}

type Consumer struct {
	Mode            string `mapstructure:"mode"`
	PollSchedule    string `mapstructure:"poll_schedule"`
	JobTimeoutSec   int    `mapstructure:"job_timeout_seconds"`
	LogFile         string `mapstructure:"log_file"`
	DedupTTLSeconds int    `mapstructure:"dedup_ttl_seconds"`
	DedupMaxItems   int64  `mapstructure:"dedup_max_items"`
}

type Logging struct {
	Level string `mapstructure:"level"`
}

type AppConfig struct {
	HTTPServer HTTPServer `mapstructure:"http_server"`
	DbServer   DbServer   `mapstructure:"db_server"`
	HTTPClient HTTPClient `mapstructure:"http_client"`
	Rabbit     Rabbit     `mapstructure:"rabbit"`
	RatesAPI   RatesAPI   `mapstructure:"rates_api"`
	Producer   Producer   `mapstructure:"producer"`
	Consumer   Consumer   `mapstructure:"consumer"`
	Logging    Logging    `mapstructure:"logging"`
}

// Init loads .env and config.yaml from the working directory when present,
// then applies environment overrides.
func Init() (*AppConfig, error) {
	return load(".")
}

func load(dir string) (*AppConfig, error) {
	var cfg AppConfig

	if err := godotenv.Load(dir + "/.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetDefault("http_server.port", "3000")
	v.SetDefault("db_server.port", "5432")
	v.SetDefault("db_server.max_conns", 10)
	v.SetDefault("http_client.timeout_seconds", 10)
	v.SetDefault("rabbit.reconnect_interval_seconds", 5)
	v.SetDefault("rabbit.publish_timeout_seconds", 5)
	v.SetDefault("rabbit.prefetch", 1)
	v.SetDefault("rates_api.url", "https://api.exchangerate-api.com/v4/latest/USD")
	v.SetDefault("producer.static_dir", "public")
	v.SetDefault("producer.job_timeout_seconds", defaultJobTimeoutSec)
	v.SetDefault("consumer.mode", ConsumerModeContinuous)
	v.SetDefault("consumer.poll_schedule", "*/1 * * * *")
	v.SetDefault("consumer.job_timeout_seconds", defaultJobTimeoutSec)
	v.SetDefault("consumer.dedup_ttl_seconds", 600)
	v.SetDefault("consumer.dedup_max_items", defaultDedupMaxItems)
	v.SetDefault("logging.level", "info")

	// http server env vars
	_ = v.BindEnv("http_server.port", "HTTP_PORT")

	// broker env vars
	_ = v.BindEnv("rabbit.url", "RABBIT_URL")
	_ = v.BindEnv("rabbit.queue", "QUEUE_NAME")
	_ = v.BindEnv("rabbit.reconnect_interval_seconds", "RABBIT_RECONNECT_SECONDS")
	_ = v.BindEnv("rabbit.publish_timeout_seconds", "RABBIT_PUBLISH_TIMEOUT_SECONDS")
	_ = v.BindEnv("rabbit.prefetch", "RABBIT_PREFETCH")

	// rates source env vars
	_ = v.BindEnv("rates_api.url", "API_URL")
	_ = v.BindEnv("http_client.timeout_seconds", "HTTP_CLIENT_TIMEOUT_SECONDS")

	// producer / consumer env vars
	_ = v.BindEnv("producer.publish_schedule", "PUBLISH_SCHEDULE")
	_ = v.BindEnv("producer.static_dir", "STATIC_DIR")
	_ = v.BindEnv("producer.job_timeout_seconds", "PRODUCER_JOB_TIMEOUT_SECONDS")
	_ = v.BindEnv("consumer.mode", "CONSUMER_MODE")
	_ = v.BindEnv("consumer.poll_schedule", "POLL_SCHEDULE")
	_ = v.BindEnv("consumer.log_file", "CONSUMER_LOG_FILE")
	_ = v.BindEnv("consumer.dedup_ttl_seconds", "CONSUMER_DEDUP_TTL_SECONDS")
	_ = v.BindEnv("consumer.dedup_max_items", "CONSUMER_DEDUP_MAX_ITEMS")
	_ = v.BindEnv("consumer.job_timeout_seconds", "CONSUMER_JOB_TIMEOUT_SECONDS")

	// db server env vars
	_ = v.BindEnv("db_server.host", "DB_HOST")
	_ = v.BindEnv("db_server.port", "DB_PORT")
	_ = v.BindEnv("db_server.user", "DB_USER")
	_ = v.BindEnv("db_server.pass", "DB_PASS")
	_ = v.BindEnv("db_server.name", "DB_NAME")
	_ = v.BindEnv("db_server.max_conns", "DB_MAX_CONNS")

	_ = v.BindEnv("logging.level", "LOG_LEVEL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if cfg.Producer.JobTimeoutSec <= 0 {
		cfg.Producer.JobTimeoutSec = defaultJobTimeoutSec
	}
	if cfg.Consumer.JobTimeoutSec <= 0 {
		cfg.Consumer.JobTimeoutSec = defaultJobTimeoutSec
	}
	if cfg.Consumer.DedupMaxItems <= 0 {
		cfg.Consumer.DedupMaxItems = defaultDedupMaxItems
	}

	switch cfg.Consumer.Mode {
	case ConsumerModeContinuous, ConsumerModeScheduled:
	default:
		return nil, fmt.Errorf("unknown consumer mode %q", cfg.Consumer.Mode)
	}

	return &cfg, nil
}
