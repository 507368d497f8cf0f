package scheduler

import (
	"time"

	"github.com/smallbiznis/ledgercraft/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	JobTimeout  time.Duration
	BatchSize   int
	LockTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: 5 * time.Minute,
		JobTimeout:  time.Minute,
		BatchSize:   200,
		LockTTL:     2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

func ProvideConfig(cfg config.Config, finance *config.FinanceConfigHolder) Config {
	out := Config{
		Enabled:     cfg.Scheduler.Enabled,
		RunInterval: time.Duration(cfg.Scheduler.RunIntervalSeconds) * time.Second,
		JobTimeout:  time.Duration(cfg.Scheduler.JobTimeoutSeconds) * time.Second,
	}
	if finance != nil {
		out.BatchSize = finance.Get().Reminders.OverdueBatchSize
	}
	out.LockTTL = 2 * out.JobTimeout
	return out.withDefaults()
}
