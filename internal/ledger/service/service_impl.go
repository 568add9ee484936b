package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	"github.com/tometh04/vibook-accounting/internal/clock"
	"github.com/tometh04/vibook-accounting/internal/events"
	exchangeratedomain "github.com/tometh04/vibook-accounting/internal/exchangerate/domain"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	"github.com/tometh04/vibook-accounting/internal/money"
	"github.com/tometh04/vibook-accounting/internal/observability/metrics"
	pkgdb "github.com/tometh04/vibook-accounting/pkg/db"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	AccountSvc accountdomain.Service
	Resolver   exchangeratedomain.Resolver
	Outbox     *events.Outbox
	Clock      clock.Clock
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	accountSvc accountdomain.Service
	resolver   exchangeratedomain.Resolver
	outbox     *events.Outbox
	clock      clock.Clock
}

func NewService(p Params) ledgerdomain.Recorder {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		accountSvc: p.AccountSvc,
		resolver:   p.Resolver,
		outbox:     p.Outbox,
		clock:      p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, params ledgerdomain.RecordParams) (snowflake.ID, error) {
	var movementID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		movementID, err = s.RecordTx(ctx, tx, params)
		return err
	})
	if err != nil {
		return 0, err
	}
	return movementID, nil
}

func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, params ledgerdomain.RecordParams) (snowflake.ID, error) {
	if err := ledgerdomain.ValidateRecord(params); err != nil {
		return 0, err
	}

	account, err := s.resolveAccount(ctx, tx, params)
	if err != nil {
		return 0, err
	}

	// Serialize postings against this account. Concurrent recorders queue
	// here instead of interleaving with cached-balance updates.
	if err := lockAccountRow(ctx, tx, account.ID); err != nil {
		return 0, err
	}

	eventDate := params.EventDate
	if eventDate.IsZero() {
		eventDate = s.clock.Now()
	}

	movement := &ledgerdomain.LedgerMovement{
		ID:                s.genID.Generate(),
		AgencyID:          params.AgencyID,
		Type:              params.Type,
		Currency:          params.Currency,
		AmountOriginal:    params.Amount,
		AmountPrimary:     params.Amount,
		AccountID:         account.ID,
		OperationID:       params.OperationID,
		LeadID:            params.LeadID,
		SellerID:          params.SellerID,
		OperatorID:        params.OperatorID,
		CommissionID:      params.CommissionID,
		TransferDirection: params.TransferDirection,
		ReceiptNumber:     params.ReceiptNumber,
		Notes:             params.Notes,
		CreatedBy:         params.CreatedBy,
		CreatedAt:         s.clock.Now(),
	}

	if params.Currency != money.ARS {
		// Resolution must ride the open transaction: the pool may hold a
		// single connection and a second checkout would block behind it.
		resolution, err := s.resolver.Resolve(ctx, tx, params.AgencyID, eventDate)
		if err != nil {
			return 0, err
		}
		rate := resolution.Rate
		movement.ExchangeRate = &rate
		movement.AmountPrimary = money.Round2(params.Amount.Mul(rate))
	}

	if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
		return 0, err
	}

	if params.Type == ledgerdomain.TypeCommission && params.CommissionID != nil {
		if err := s.markCommissionPaid(ctx, tx, *params.CommissionID, movement.ID); err != nil {
			return 0, err
		}
	}

	if err := s.outbox.PublishTx(ctx, tx, events.Event{
		AgencyID: params.AgencyID,
		Type:     events.EventMovementPosted,
		Payload: events.MovementPayload{
			MovementID: movement.ID.String(),
			Type:       string(movement.Type),
			AccountID:  account.ID.String(),
			Currency:   string(movement.Currency),
		}.ToMap(),
	}); err != nil {
		return 0, err
	}

	metrics.Accounting().IncMovementPosted(string(movement.Type))
	return movement.ID, nil
}

func (s *Service) resolveAccount(ctx context.Context, tx *gorm.DB, params ledgerdomain.RecordParams) (*accountdomain.FinancialAccount, error) {
	if params.AccountID != 0 {
		account, err := s.accountSvc.Get(ctx, tx, params.AccountID)
		if err != nil {
			return nil, err
		}
		if account.AgencyID != params.AgencyID {
			return nil, fmt.Errorf("%w: account belongs to another agency", accountdomain.ErrAccountResolution)
		}
		if !account.Active {
			return nil, accountdomain.ErrInactiveResource
		}
		return account, nil
	}

	kind := params.AccountKind
	if kind == "" {
		return nil, fmt.Errorf("%w: no account id or kind given", accountdomain.ErrAccountResolution)
	}
	return s.accountSvc.GetOrCreateDefault(ctx, tx, params.AgencyID, kind, params.Currency)
}

func (s *Service) markCommissionPaid(ctx context.Context, tx *gorm.DB, commissionID, movementID snowflake.ID) error {
	result := tx.WithContext(ctx).Exec(
		`UPDATE commissions
		 SET status = 'PAID', ledger_movement_id = ?, updated_at = ?
		 WHERE id = ? AND status = 'PENDING'`,
		movementID,
		s.clock.Now(),
		commissionID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledgerdomain.ErrCommissionState
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, tx *gorm.DB, movementID snowflake.ID) error {
	run := func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Exec(
			`DELETE FROM cash_movements WHERE ledger_movement_id = ?`, movementID,
		).Error; err != nil {
			return err
		}
		result := tx.WithContext(ctx).Exec(
			`DELETE FROM ledger_movements WHERE id = ?`, movementID,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ledgerdomain.ErrMovementNotFound
		}
		return nil
	}
	if tx != nil {
		return run(tx)
	}
	return s.db.WithContext(ctx).Transaction(run)
}

func (s *Service) Movements(ctx context.Context, accountID snowflake.ID) ([]ledgerdomain.LedgerMovement, error) {
	var movements []ledgerdomain.LedgerMovement
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC, id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func lockAccountRow(ctx context.Context, tx *gorm.DB, accountID snowflake.ID) error {
	var locked accountdomain.FinancialAccount
	return pkgdb.LockForUpdate(tx.WithContext(ctx)).
		Select("id").
		First(&locked, "id = ?", accountID).Error
}
