package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgercraft/internal/clock"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/ledgercraft/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/ledgercraft/internal/payment/domain"
	"github.com/smallbiznis/ledgercraft/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	jobOverdueSweep = "overdue_sweep"
	lockKeyPrefix   = "ledgercraft:scheduler"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// Locker serializes jobs across replicas. A disabled locker lets every
// replica run.
type Locker interface {
	Enabled() bool
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	InvoiceRepo invoicedomain.Repository
	PaymentSvc  paymentdomain.Service
	Locker      Locker `optional:"true"`
	Config      Config `optional:"true"`
}

type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	genID       *snowflake.Node
	clock       clock.Clock
	invoiceRepo invoicedomain.Repository
	paymentSvc  paymentdomain.Service
	locker      Locker
	metrics     *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.InvoiceRepo == nil || p.PaymentSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         p.Config.withDefaults(),
		genID:       p.GenID,
		clock:       p.Clock,
		invoiceRepo: p.InvoiceRepo,
		paymentSvc:  p.PaymentSvc,
		locker:      p.Locker,
		metrics:     obsmetrics.NewSchedulerMetrics(),
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	run := &jobRun{
		job:       name,
		runID:     s.genID.Generate().String(),
		batchSize: s.cfg.BatchSize,
		startedAt: start,
	}
	s.logJobStart(ctx, run)

	var err error
	if s.locker != nil && s.locker.Enabled() {
		err = s.locker.WithLock(ctx, lockKeyPrefix+":"+name, s.cfg.LockTTL, func(ctx context.Context) error {
			return fn(ctx, run)
		})
	} else {
		err = fn(ctx, run)
	}

	if errors.Is(err, ratelimit.ErrLockHeld) {
		s.metrics.ObserveJob(name, obsmetrics.SchedulerStatusSkipped, s.clock.Now().Sub(start))
		s.logger(ctx).Debug("job skipped, lock held elsewhere", zap.String("job", name))
		return nil
	}
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)

	if err == nil {
		s.metrics.ObserveJob(name, obsmetrics.SchedulerStatusSuccess, s.clock.Now().Sub(start))
		return nil
	}
	s.metrics.ObserveJob(name, obsmetrics.SchedulerStatusFailed, s.clock.Now().Sub(start))

	// deadline is a soft timeout; the next tick picks up the remainder
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, jobOverdueSweep, s.cfg.JobTimeout, s.sweepOverdue)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOverdue re-reconciles one batch of sent, unpaid invoices whose due
// date has passed, so their payment status flips to overdue without a read.
func (s *Scheduler) SweepOverdue(ctx context.Context) (int, error) {
	run := &jobRun{job: jobOverdueSweep, batchSize: s.cfg.BatchSize, startedAt: s.clock.Now()}
	err := s.sweepOverdue(ctx, run)
	return run.processedCount, err
}

func (s *Scheduler) sweepOverdue(ctx context.Context, run *jobRun) error {
	now := s.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	candidates, err := s.invoiceRepo.ListPastDue(ctx, s.db, today, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	var errs error
	for _, inv := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		status, err := s.paymentSvc.SweepInvoice(ctx, *inv)
		if err != nil {
			run.IncError()
			s.logger(ctx).Error("overdue sweep failed",
				zap.String("invoice_id", inv.ID.String()),
				zap.String("org_id", inv.OrgID.String()),
				zap.Error(err),
			)
			errs = errors.Join(errs, err)
			continue
		}
		run.AddProcessed(1)
		s.metrics.ObserveSwept(string(status))
	}
	return errs
}
