package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tometh04/vibook-accounting/internal/clock"
	"github.com/tometh04/vibook-accounting/internal/config"
	"github.com/tometh04/vibook-accounting/internal/events"
	"github.com/tometh04/vibook-accounting/internal/exchangerate/domain"
	"github.com/tometh04/vibook-accounting/internal/observability/metrics"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Cfg    config.Config
	Outbox *events.Outbox
	Clock  clock.Clock
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	outbox *events.Outbox
	clock  clock.Clock

	fallbackRate decimal.Decimal
}

func NewService(p Params) domain.Resolver {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("exchangerate.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		outbox:       p.Outbox,
		clock:        p.Clock,
		fallbackRate: p.Cfg.FallbackRate,
	}
}

func (s *Service) Resolve(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID, date time.Time) (domain.Resolution, error) {
	if agencyID == 0 {
		return domain.Resolution{}, domain.ErrInvalidAgency
	}
	date = truncateToDate(date)

	rate, err := s.repo.FindOnOrBefore(ctx, tx, agencyID, date)
	if err != nil {
		return domain.Resolution{}, err
	}
	if rate != nil {
		tier := domain.TierExactDate
		if !sameDate(rate.RateDate, date) {
			tier = domain.TierPriorDate
			metrics.Accounting().IncExchangeFallback(string(tier))
		}
		return domain.Resolution{Rate: rate.Rate, Tier: tier}, nil
	}

	global, err := s.repo.FindLatestGlobal(ctx, tx)
	if err != nil {
		return domain.Resolution{}, err
	}
	if global != nil {
		metrics.Accounting().IncExchangeFallback(string(domain.TierGlobalLatest))
		return domain.Resolution{Rate: global.Rate, Tier: domain.TierGlobalLatest}, nil
	}

	return s.constantFallback(ctx, tx, agencyID, date)
}

func (s *Service) Latest(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID) (domain.Resolution, error) {
	if agencyID == 0 {
		return domain.Resolution{}, domain.ErrInvalidAgency
	}

	rate, err := s.repo.FindLatest(ctx, tx, agencyID)
	if err != nil {
		return domain.Resolution{}, err
	}
	if rate != nil {
		return domain.Resolution{Rate: rate.Rate, Tier: domain.TierExactDate}, nil
	}

	global, err := s.repo.FindLatestGlobal(ctx, tx)
	if err != nil {
		return domain.Resolution{}, err
	}
	if global != nil {
		metrics.Accounting().IncExchangeFallback(string(domain.TierGlobalLatest))
		return domain.Resolution{Rate: global.Rate, Tier: domain.TierGlobalLatest}, nil
	}

	return s.constantFallback(ctx, tx, agencyID, s.clock.Now())
}

func (s *Service) Put(ctx context.Context, agencyID snowflake.ID, date time.Time, rate decimal.Decimal) (*domain.ExchangeRate, error) {
	if agencyID == 0 {
		return nil, domain.ErrInvalidAgency
	}
	if !rate.IsPositive() {
		return nil, domain.ErrInvalidRate
	}

	record := &domain.ExchangeRate{
		ID:        s.genID.Generate(),
		AgencyID:  agencyID,
		RateDate:  truncateToDate(date),
		Rate:      rate,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Upsert(ctx, nil, record); err != nil {
		return nil, err
	}
	return record, nil
}

// constantFallback is the documented soft spot: when no rate exists anywhere
// it produces the configured constant instead of failing. The warning log,
// metric and outbox event exist so the condition cannot pass silently.
func (s *Service) constantFallback(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID, date time.Time) (domain.Resolution, error) {
	if !s.fallbackRate.IsPositive() {
		return domain.Resolution{}, domain.ErrRateMissing
	}

	s.log.Warn("no exchange rate resolvable, using constant fallback",
		zap.String("agency_id", agencyID.String()),
		zap.String("date", date.Format("2006-01-02")),
		zap.String("rate", s.fallbackRate.String()),
	)
	metrics.Accounting().IncExchangeFallback(string(domain.TierConstant))
	if s.outbox != nil {
		event := events.Event{
			AgencyID: agencyID,
			Type:     events.EventExchangeFallbackUsed,
			Payload: map[string]any{
				"date": date.Format("2006-01-02"),
				"rate": s.fallbackRate.String(),
			},
		}
		// Callers inside a transaction share its connection; publishing on
		// the root handle there would block behind the caller's own lock.
		if tx != nil {
			_ = s.outbox.PublishTx(ctx, tx, event)
		} else {
			_ = s.outbox.Publish(ctx, event)
		}
	}
	return domain.Resolution{Rate: s.fallbackRate, Tier: domain.TierConstant}, nil
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
