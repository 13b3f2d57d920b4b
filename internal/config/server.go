package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	EvictionNoticeDays int    `env:"EVICTION_NOTICE_DAYS" envDefault:"14"`
	ConfirmTTLSecs     int    `env:"CONFIRM_TOKEN_TTL_SECONDS" envDefault:"60"`
	ReminderTickMS     int    `env:"REMINDER_TICK_MS" envDefault:"1000"`
	CurrencyName       string `env:"CURRENCY_NAME" envDefault:"cr"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c ServerConfig) NoticePeriod() time.Duration {
	return time.Duration(c.EvictionNoticeDays) * 24 * time.Hour
}

func (c ServerConfig) ConfirmTTL() time.Duration {
	return time.Duration(c.ConfirmTTLSecs) * time.Second
}

func (c ServerConfig) ReminderTick() time.Duration {
	return time.Duration(c.ReminderTickMS) * time.Millisecond
}
