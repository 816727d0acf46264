package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// WorkerEnv overrides the worker cadence from the environment, which is how
// the worker binary is tuned in deployment without shipping a config file.
type WorkerEnv struct {
	TickInterval       time.Duration `envconfig:"TICK_INTERVAL"`
	RedeliveryInterval time.Duration `envconfig:"REDELIVERY_INTERVAL"`
	RedeliveryBatch    int           `envconfig:"REDELIVERY_BATCH"`
}

// ApplyWorkerEnv layers MOODENGINE_* environment overrides onto the
// file-loaded worker config.
func ApplyWorkerEnv(cfg *WorkerConfig) error {
	var env WorkerEnv
	if err := envconfig.Process("MOODENGINE", &env); err != nil {
		return err
	}

	if env.TickInterval > 0 {
		cfg.TickInterval = env.TickInterval
	}
	if env.RedeliveryInterval > 0 {
		cfg.RedeliveryInterval = env.RedeliveryInterval
	}
	if env.RedeliveryBatch > 0 {
		cfg.RedeliveryBatch = env.RedeliveryBatch
	}
	return nil
}
