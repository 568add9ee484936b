package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	"github.com/tometh04/vibook-accounting/internal/clock"
	commissiondomain "github.com/tometh04/vibook-accounting/internal/commission/domain"
	"github.com/tometh04/vibook-accounting/internal/events"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	pkgdb "github.com/tometh04/vibook-accounting/pkg/db"
	"github.com/tometh04/vibook-accounting/pkg/repository"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Recorder ledgerdomain.Recorder
	Outbox   *events.Outbox
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	recorder ledgerdomain.Recorder
	outbox   *events.Outbox
	clock    clock.Clock

	schemeRepo     repository.Repository[commissiondomain.Scheme]
	commissionRepo repository.Repository[commissiondomain.Commission]
}

func NewService(p Params) commissiondomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("commission.service"),
		genID:    p.GenID,
		recorder: p.Recorder,
		outbox:   p.Outbox,
		clock:    p.Clock,

		schemeRepo:     repository.ProvideStore[commissiondomain.Scheme](p.DB),
		commissionRepo: repository.ProvideStore[commissiondomain.Commission](p.DB),
	}
}

func (s *Service) CreateScheme(ctx context.Context, scheme *commissiondomain.Scheme) error {
	if err := commissiondomain.ValidateScheme(*scheme); err != nil {
		return err
	}
	if scheme.ID == 0 {
		scheme.ID = s.genID.Generate()
	}
	if scheme.CreatedAt.IsZero() {
		scheme.CreatedAt = s.clock.Now()
	}
	return s.schemeRepo.Create(ctx, nil, scheme)
}

func (s *Service) GetScheme(ctx context.Context, schemeID snowflake.ID) (*commissiondomain.Scheme, error) {
	scheme, err := s.schemeRepo.FindByID(ctx, nil, schemeID)
	if err != nil {
		return nil, err
	}
	if scheme == nil {
		return nil, commissiondomain.ErrSchemeNotFound
	}
	return scheme, nil
}

func (s *Service) ComputeForScheme(ctx context.Context, schemeID snowflake.ID, baseAmount decimal.Decimal, hasSecondarySeller bool) (commissiondomain.Breakdown, error) {
	scheme, err := s.GetScheme(ctx, schemeID)
	if err != nil {
		return commissiondomain.Breakdown{}, err
	}
	return commissiondomain.Compute(*scheme, baseAmount, hasSecondarySeller), nil
}

func (s *Service) CreateCommission(ctx context.Context, commission *commissiondomain.Commission) error {
	if !commission.Amount.IsPositive() {
		return commissiondomain.ErrInvalidAmount
	}
	if commission.ID == 0 {
		commission.ID = s.genID.Generate()
	}
	commission.Status = commissiondomain.StatusPending
	now := s.clock.Now()
	if commission.CreatedAt.IsZero() {
		commission.CreatedAt = now
	}
	commission.UpdatedAt = now
	return s.commissionRepo.Create(ctx, nil, commission)
}

func (s *Service) GetCommission(ctx context.Context, commissionID snowflake.ID) (*commissiondomain.Commission, error) {
	commission, err := s.commissionRepo.FindByID(ctx, nil, commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, commissiondomain.ErrCommissionNotFound
	}
	return commission, nil
}

func (s *Service) Pay(ctx context.Context, commissionID, accountID, actingUser snowflake.ID) (snowflake.ID, error) {
	var movementID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commission commissiondomain.Commission
		if err := pkgdb.LockForUpdate(tx.WithContext(ctx)).
			First(&commission, "id = ?", commissionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return commissiondomain.ErrCommissionNotFound
			}
			return err
		}
		if commission.Status == commissiondomain.StatusPaid {
			return commissiondomain.ErrAlreadyPaid
		}

		id := commission.ID
		sellerID := commission.SellerID
		operationID := commission.OperationID
		var err error
		movementID, err = s.recorder.RecordTx(ctx, tx, ledgerdomain.RecordParams{
			AgencyID:     commission.AgencyID,
			Type:         ledgerdomain.TypeCommission,
			Currency:     commission.Currency,
			Amount:       commission.Amount,
			AccountID:    accountID,
			AccountKind:  accountdomain.KindAsset,
			OperationID:  &operationID,
			SellerID:     &sellerID,
			CommissionID: &id,
			CreatedBy:    actingUser,
		})
		if err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			AgencyID: commission.AgencyID,
			Type:     events.EventCommissionPaid,
			Payload: map[string]any{
				"commission_id": commission.ID.String(),
				"movement_id":   movementID.String(),
			},
		})
	})
	if err != nil {
		return 0, err
	}
	return movementID, nil
}

func (s *Service) Revert(ctx context.Context, commissionID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commission commissiondomain.Commission
		if err := pkgdb.LockForUpdate(tx.WithContext(ctx)).
			First(&commission, "id = ?", commissionID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return commissiondomain.ErrCommissionNotFound
			}
			return err
		}
		if commission.Status != commissiondomain.StatusPaid || commission.LedgerMovementID == nil {
			return commissiondomain.ErrNotPaid
		}

		if err := s.recorder.Delete(ctx, tx, *commission.LedgerMovementID); err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE commissions
			 SET status = 'PENDING', ledger_movement_id = NULL, updated_at = ?
			 WHERE id = ?`,
			s.clock.Now(),
			commissionID,
		).Error; err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			AgencyID: commission.AgencyID,
			Type:     events.EventCommissionReverted,
			Payload:  map[string]any{"commission_id": commissionID.String()},
		})
	})
}
