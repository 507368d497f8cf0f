package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FinanceConfig holds the tunable invoicing and payment policy.
type FinanceConfig struct {
	Invoices  InvoiceSettings  `mapstructure:"invoices"`
	Payments  PaymentSettings  `mapstructure:"payments"`
	Reminders ReminderSettings `mapstructure:"reminders"`
}

type InvoiceSettings struct {
	NumberTemplate   string `mapstructure:"numberTemplate"`
	PaymentTermsDays int    `mapstructure:"paymentTermsDays"`
}

type PaymentSettings struct {
	// Maximum accepted payment as a percentage of the balance due.
	OverpaymentTolerancePercent float64 `mapstructure:"overpaymentTolerancePercent"`
}

type ReminderSettings struct {
	OverdueBatchSize int `mapstructure:"overdueBatchSize"`
}

func DefaultFinanceConfig() FinanceConfig {
	return FinanceConfig{
		Invoices: InvoiceSettings{
			NumberTemplate:   "INV-{YYYY}{MM}-{SEQ4}",
			PaymentTermsDays: 30,
		},
		Payments: PaymentSettings{
			OverpaymentTolerancePercent: 110,
		},
		Reminders: ReminderSettings{
			OverdueBatchSize: 200,
		},
	}
}

type FinanceConfigHolder struct {
	current atomic.Value // holds FinanceConfig
}

// NewStaticFinanceConfigHolder returns a holder that never reloads.
func NewStaticFinanceConfigHolder(cfg FinanceConfig) *FinanceConfigHolder {
	holder := &FinanceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewFinanceConfigHolder(appCfg Config) (*FinanceConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("finance")
	v.SetConfigType("yml")
	if dir := strings.TrimSpace(appCfg.FinanceConfigDir); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("/etc/ledgercraft")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEDGERCRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFinanceConfig()
	v.SetDefault("finance.invoices.numberTemplate", defaults.Invoices.NumberTemplate)
	v.SetDefault("finance.invoices.paymentTermsDays", defaults.Invoices.PaymentTermsDays)
	v.SetDefault("finance.payments.overpaymentTolerancePercent", defaults.Payments.OverpaymentTolerancePercent)
	v.SetDefault("finance.reminders.overdueBatchSize", defaults.Reminders.OverdueBatchSize)

	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		found = false
	}

	cfg, err := decodeFinanceConfig(v)
	if err != nil {
		return nil, err
	}
	if err := validateFinanceConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticFinanceConfigHolder(cfg)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeFinanceConfig(v)
		if err != nil {
			log.Printf("[finance-config] reload failed: %v", err)
			return
		}
		if err := validateFinanceConfig(updated); err != nil {
			log.Printf("[finance-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[finance-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *FinanceConfigHolder) Get() FinanceConfig {
	if h == nil {
		return DefaultFinanceConfig()
	}
	cfg, ok := h.current.Load().(FinanceConfig)
	if !ok {
		return DefaultFinanceConfig()
	}
	return cfg
}

// decodeFinanceConfig unmarshals the merged settings so keys missing from the
// file keep their defaults.
func decodeFinanceConfig(v *viper.Viper) (FinanceConfig, error) {
	var root struct {
		Finance FinanceConfig `mapstructure:"finance"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return FinanceConfig{}, err
	}
	return root.Finance, nil
}

func validateFinanceConfig(cfg FinanceConfig) error {
	if strings.TrimSpace(cfg.Invoices.NumberTemplate) == "" {
		return errors.New("finance.invoices.numberTemplate cannot be empty")
	}
	if cfg.Invoices.PaymentTermsDays < 0 {
		return errors.New("finance.invoices.paymentTermsDays cannot be negative")
	}
	if cfg.Payments.OverpaymentTolerancePercent < 100 {
		return errors.New("finance.payments.overpaymentTolerancePercent must be at least 100")
	}
	if cfg.Reminders.OverdueBatchSize <= 0 {
		return errors.New("finance.reminders.overdueBatchSize must be positive")
	}
	return nil
}
