package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	TelegramToken   string `env:"TELEGRAM_BOT_TOKEN"`
	BaseAdminChatID int64  `env:"BASE_ADMIN_CHAT_ID" env-default:"0"`

	DatabaseDriver string `env:"DATABASE_DRIVER" env-default:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" env-default:"timebank.db"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`

	Timezone          string `env:"TIMEZONE" env-default:"UTC"`
	DailyGoalMinutes  int    `env:"DAILY_GOAL_MINUTES" env-default:"480"`
	BankedHoursWindow int    `env:"BANKED_HOURS_WINDOW" env-default:"6"`
	StrictClockOut    bool   `env:"STRICT_CLOCK_OUT" env-default:"false"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	LockTTL       time.Duration `env:"LOCK_TTL" env-default:"10s"`

	AMQPURL        string   `env:"AMQP_URL"`
	AMQPExchange   string   `env:"AMQP_EXCHANGE" env-default:"timebank"`
	AMQPRoutingKey string   `env:"AMQP_ROUTING_KEY" env-default:"clock.record.updated"`
	KafkaBrokers   []string `env:"KAFKA_BROKERS" env-separator:","`
	KafkaTopic     string   `env:"KAFKA_TOPIC" env-default:"timebank.clock-records"`

	MetricsAddr        string        `env:"METRICS_ADDR" env-default:":9090"`
	HolidaysFile       string        `env:"HOLIDAYS_FILE"`
	NotifyQueueSize    int           `env:"NOTIFY_QUEUE_SIZE" env-default:"256"`
	MonthCloseInterval time.Duration `env:"MONTH_CLOSE_INTERVAL" env-default:"1h"`

	location *time.Location
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.DailyGoalMinutes <= 0 || c.DailyGoalMinutes > 24*60 {
		return fmt.Errorf("DAILY_GOAL_MINUTES out of range: %d", c.DailyGoalMinutes)
	}
	if c.BankedHoursWindow <= 0 {
		return fmt.Errorf("BANKED_HOURS_WINDOW must be positive: %d", c.BankedHoursWindow)
	}
	if c.MonthCloseInterval <= 0 {
		return errors.New("MONTH_CLOSE_INTERVAL must be positive")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	c.location = loc
	return nil
}

// Location is the zone clock timestamps are dated in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

var instance *Config
var once sync.Once

// GetConfig loads the process configuration once and exits on error.
func GetConfig() *Config {
	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			logrus.Fatalf("error loading config: %s", err.Error())
		}
		instance = cfg
	})

	return instance
}
