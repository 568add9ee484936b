package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tometh04/vibook-accounting/internal/config"
	paymentdomain "github.com/tometh04/vibook-accounting/internal/payment/domain"
)

// Scheduler runs the periodic maintenance jobs. Today that is the overdue
// payment sweep; jobs must stay idempotent because restarts can re-run a
// window that already completed.
type Scheduler struct {
	cfg        config.Config
	log        *zap.Logger
	cron       *cron.Cron
	paymentSvc paymentdomain.Service
}

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	PaymentSvc paymentdomain.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		cfg:        p.Config,
		log:        p.Log.Named("scheduler"),
		cron:       cron.New(),
		paymentSvc: p.PaymentSvc,
	}
}

// SweepOverdue runs one sweep pass and logs the outcome.
func (s *Scheduler) SweepOverdue(ctx context.Context) {
	count, err := s.paymentSvc.SweepOverdue(ctx)
	if err != nil {
		s.log.Error("overdue sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		s.log.Info("overdue sweep completed", zap.Int("payments_marked", count))
	}
}

func (s *Scheduler) register() error {
	_, err := s.cron.AddFunc(s.cfg.SweepSchedule, func() {
		s.SweepOverdue(context.Background())
	})
	return err
}

// Run wires the scheduler into the fx lifecycle.
func Run(lc fx.Lifecycle, s *Scheduler) error {
	if err := s.register(); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.cron.Start()
			s.log.Info("scheduler started", zap.String("sweep_schedule", s.cfg.SweepSchedule))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := s.cron.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
			s.log.Info("scheduler stopped")
			return nil
		},
	})
	return nil
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Run),
)
