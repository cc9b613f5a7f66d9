package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
)

const localEnvFile = ".env.local"

type Config struct {
	LoggingLevel string `env:"DVRK_LOGGING_LEVEL,default=info"`
	LoggingPath  string `env:"DVRK_LOGGING_PATH"`

	BarrierTimeout time.Duration `env:"DVRK_BARRIER_TIMEOUT,default=2s"`

	NatsURL     string `env:"DVRK_NATS_URL"`
	HealthAddr  string `env:"DVRK_HEALTH_ADDR"`
	JournalPath string `env:"DVRK_JOURNAL_PATH"`
}

// LoadConfig reads .env.local when present and then the process environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(localEnvFile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "loading %s", localEnvFile)
	}
	return process(ctx, envconfig.OsLookuper())
}

func process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}
	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, errors.Wrap(err, "processing environment")
	}
	if config.BarrierTimeout <= 0 {
		return nil, errors.Errorf("DVRK_BARRIER_TIMEOUT must be positive, got %s", config.BarrierTimeout)
	}
	return &config, nil
}
