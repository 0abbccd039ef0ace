package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"production"`
	PostgresDSN   string `env:"POSTGRES_DSN,notEmpty"`
	RedisAddr     string `env:"REDIS_ADDR,notEmpty"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	ProgressPollInterval time.Duration `env:"PROGRESS_POLL_INTERVAL" envDefault:"1s"`
	ModelRegistryTTL     time.Duration `env:"MODEL_REGISTRY_CACHE_TTL" envDefault:"1m"`
	CacheSweepInterval   time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"24h"`
	CacheMaxAge          time.Duration `env:"CACHE_MAX_AGE" envDefault:"720h"`
}

func Load() Config {
	var c Config
	if err := env.Parse(&c); err != nil {
		log.Fatal(err)
	}
	return c
}
