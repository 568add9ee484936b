package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tometh04/vibook-accounting/internal/account/domain"
	"github.com/tometh04/vibook-accounting/internal/cache"
	"github.com/tometh04/vibook-accounting/internal/clock"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	"github.com/tometh04/vibook-accounting/internal/money"
)

const defaultCacheTTL = 5 * time.Minute

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock

	// defaultIDs short-circuits the default-account index lookup. Entries
	// hold ids only; the row is always re-read so deactivation is seen.
	defaultIDs *cache.TTLCache[string, snowflake.ID]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("account.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      p.Clock,
		defaultIDs: cache.NewTTLCache[string, snowflake.ID](),
	}
}

func (s *Service) GetOrCreateDefault(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID, kind domain.AccountKind, currency money.Currency) (*domain.FinancialAccount, error) {
	if agencyID == 0 {
		return nil, domain.ErrInvalidAgency
	}
	if !domain.ValidKind(kind) {
		return nil, domain.ErrInvalidKind
	}

	key := defaultKey(agencyID, kind, currency)
	if id, ok := s.defaultIDs.Get(key); ok {
		account, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if account != nil {
			if !account.Active {
				return nil, domain.ErrInactiveResource
			}
			return account, nil
		}
		s.defaultIDs.Delete(key)
	}

	account, err := s.repo.FindDefault(ctx, tx, agencyID, kind, currency)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account, err = s.createDefault(ctx, tx, agencyID, kind, currency)
		if err != nil {
			return nil, err
		}
	}
	if !account.Active {
		return nil, domain.ErrInactiveResource
	}

	s.defaultIDs.Set(key, account.ID, defaultCacheTTL)
	return account, nil
}

func (s *Service) createDefault(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID, kind domain.AccountKind, currency money.Currency) (*domain.FinancialAccount, error) {
	account := &domain.FinancialAccount{
		ID:             s.genID.Generate(),
		AgencyID:       agencyID,
		Name:           fmt.Sprintf("Default %s account (%s)", kind, currency),
		Kind:           kind,
		Currency:       currency,
		InitialBalance: decimal.Zero,
		IsDefault:      true,
		Active:         true,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, tx, account); err != nil {
		// A concurrent caller may have won the unique default index; the
		// existing row is the idempotent answer.
		existing, findErr := s.repo.FindDefault(ctx, tx, agencyID, kind, currency)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		s.log.Error("default account creation failed",
			zap.String("agency_id", agencyID.String()),
			zap.String("kind", string(kind)),
			zap.String("currency", string(currency)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrAccountResolution, err)
	}
	return account, nil
}

func (s *Service) Get(ctx context.Context, tx *gorm.DB, accountID snowflake.ID) (*domain.FinancialAccount, error) {
	account, err := s.repo.FindByID(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) Deactivate(ctx context.Context, accountID snowflake.ID) error {
	account, err := s.repo.FindByID(ctx, nil, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound
	}
	if err := s.repo.SetActive(ctx, nil, accountID, false); err != nil {
		return err
	}
	s.defaultIDs.Delete(defaultKey(account.AgencyID, account.Kind, account.Currency))
	return nil
}

func (s *Service) Balance(ctx context.Context, accountID snowflake.ID) (decimal.Decimal, error) {
	balances, err := s.Balances(ctx, []snowflake.ID{accountID})
	if err != nil {
		return decimal.Zero, err
	}
	balance, ok := balances[accountID]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	return balance, nil
}

func (s *Service) Balances(ctx context.Context, accountIDs []snowflake.ID) (map[snowflake.ID]decimal.Decimal, error) {
	accounts, err := s.repo.FindByIDs(ctx, nil, accountIDs)
	if err != nil {
		return nil, err
	}

	balances := make(map[snowflake.ID]decimal.Decimal, len(accounts))
	currencies := make(map[snowflake.ID]money.Currency, len(accounts))
	for _, account := range accounts {
		balances[account.ID] = account.InitialBalance
		currencies[account.ID] = account.Currency
	}

	// One bulk fetch; aggregation happens in memory so the batch form costs
	// a single round trip regardless of len(accountIDs).
	var movements []ledgerdomain.LedgerMovement
	if err := s.db.WithContext(ctx).
		Where("account_id IN ?", accountIDs).
		Find(&movements).Error; err != nil {
		return nil, err
	}

	for _, movement := range movements {
		currency, ok := currencies[movement.AccountID]
		if !ok {
			continue
		}
		balances[movement.AccountID] = balances[movement.AccountID].Add(movement.Contribution(currency))
	}
	return balances, nil
}

func defaultKey(agencyID snowflake.ID, kind domain.AccountKind, currency money.Currency) string {
	return fmt.Sprintf("%d/%s/%s", agencyID, kind, currency)
}
