package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	cashboxdomain "github.com/tometh04/vibook-accounting/internal/cashbox/domain"
	"github.com/tometh04/vibook-accounting/internal/clock"
	"github.com/tometh04/vibook-accounting/internal/events"
	exchangeratedomain "github.com/tometh04/vibook-accounting/internal/exchangerate/domain"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	"github.com/tometh04/vibook-accounting/internal/money"
	pkgdb "github.com/tometh04/vibook-accounting/pkg/db"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Recorder ledgerdomain.Recorder
	Resolver exchangeratedomain.Resolver
	Outbox   *events.Outbox
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	recorder ledgerdomain.Recorder
	resolver exchangeratedomain.Resolver
	outbox   *events.Outbox
	clock    clock.Clock
}

func NewService(p Params) cashboxdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("cashbox.service"),
		genID:    p.GenID,
		recorder: p.Recorder,
		resolver: p.Resolver,
		outbox:   p.Outbox,
		clock:    p.Clock,
	}
}

func (s *Service) GetOrCreateDefault(ctx context.Context, agencyID snowflake.ID, currency money.Currency) (*cashboxdomain.CashBox, error) {
	if agencyID == 0 {
		return nil, cashboxdomain.ErrInvalidAgency
	}

	var box cashboxdomain.CashBox
	err := s.db.WithContext(ctx).
		Where("agency_id = ? AND currency = ? AND is_default", agencyID, currency).
		First(&box).Error
	if err == nil {
		return &box, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	box = cashboxdomain.CashBox{
		ID:             s.genID.Generate(),
		AgencyID:       agencyID,
		Name:           fmt.Sprintf("Main cash box (%s)", currency),
		Currency:       currency,
		InitialBalance: decimal.Zero,
		CurrentBalance: decimal.Zero,
		IsDefault:      true,
		Active:         true,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&box).Error; err != nil {
		// Concurrent creation lost to the unique default index.
		var existing cashboxdomain.CashBox
		findErr := s.db.WithContext(ctx).
			Where("agency_id = ? AND currency = ? AND is_default", agencyID, currency).
			First(&existing).Error
		if findErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &box, nil
}

func (s *Service) Get(ctx context.Context, boxID snowflake.ID) (*cashboxdomain.CashBox, error) {
	var box cashboxdomain.CashBox
	err := s.db.WithContext(ctx).First(&box, "id = ?", boxID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, cashboxdomain.ErrBoxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &box, nil
}

func (s *Service) Deactivate(ctx context.Context, boxID snowflake.ID) error {
	result := s.db.WithContext(ctx).
		Model(&cashboxdomain.CashBox{}).
		Where("id = ?", boxID).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return cashboxdomain.ErrBoxNotFound
	}
	return nil
}

func (s *Service) Transfer(ctx context.Context, params cashboxdomain.TransferParams) (*cashboxdomain.CashTransfer, error) {
	if params.AgencyID == 0 {
		return nil, cashboxdomain.ErrInvalidAgency
	}
	if !params.Amount.IsPositive() {
		return nil, cashboxdomain.ErrInvalidAmount
	}
	if params.FromBoxID == params.ToBoxID {
		return nil, cashboxdomain.ErrSameBox
	}
	if params.Rate != nil && !params.Rate.IsPositive() {
		return nil, exchangeratedomain.ErrInvalidRate
	}

	var transfer *cashboxdomain.CashTransfer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		from, to, err := s.lockBoxes(ctx, tx, params.FromBoxID, params.ToBoxID)
		if err != nil {
			return err
		}
		if !from.Active || !to.Active {
			return cashboxdomain.ErrInactiveResource
		}
		if from.AgencyID != params.AgencyID || to.AgencyID != params.AgencyID {
			return cashboxdomain.ErrBoxNotFound
		}
		if params.Currency != from.Currency {
			return cashboxdomain.ErrCurrencyMismatch
		}

		sameCurrency := from.Currency == to.Currency
		if sameCurrency && from.CurrentBalance.LessThan(params.Amount) {
			return cashboxdomain.ErrInsufficientBalance
		}

		credit := params.Amount
		var rate *decimal.Decimal
		if !sameCurrency {
			rate = params.Rate
			if rate == nil {
				resolution, err := s.resolver.Latest(ctx, tx, params.AgencyID)
				if err != nil {
					return err
				}
				resolved := resolution.Rate
				rate = &resolved
			}
			credit = convert(params.Amount, from.Currency, to.Currency, *rate)
		}

		date := params.Date
		if date.IsZero() {
			date = s.clock.Now()
		}

		transfer = &cashboxdomain.CashTransfer{
			ID:           s.genID.Generate(),
			AgencyID:     params.AgencyID,
			FromBoxID:    from.ID,
			ToBoxID:      to.ID,
			Amount:       params.Amount,
			Currency:     params.Currency,
			ExchangeRate: rate,
			Status:       cashboxdomain.StatusCompleted,
			TransferDate: date,
			CreatedBy:    params.CreatedBy,
			CreatedAt:    s.clock.Now(),
		}
		if err := tx.WithContext(ctx).Create(transfer).Error; err != nil {
			return err
		}

		outDirection := ledgerdomain.TransferOut
		outMovementID, err := s.recorder.RecordTx(ctx, tx, ledgerdomain.RecordParams{
			AgencyID:          params.AgencyID,
			Type:              ledgerdomain.TypeTransfer,
			Currency:          from.Currency,
			Amount:            params.Amount,
			AccountKind:       accountdomain.KindAsset,
			EventDate:         date,
			TransferDirection: &outDirection,
			Notes:             fmt.Sprintf("transfer %s to %s", transfer.ID, to.Name),
			CreatedBy:         params.CreatedBy,
		})
		if err != nil {
			return err
		}

		inDirection := ledgerdomain.TransferIn
		inMovementID, err := s.recorder.RecordTx(ctx, tx, ledgerdomain.RecordParams{
			AgencyID:          params.AgencyID,
			Type:              ledgerdomain.TypeTransfer,
			Currency:          to.Currency,
			Amount:            credit,
			AccountKind:       accountdomain.KindAsset,
			EventDate:         date,
			TransferDirection: &inDirection,
			Notes:             fmt.Sprintf("transfer %s from %s", transfer.ID, from.Name),
			CreatedBy:         params.CreatedBy,
		})
		if err != nil {
			return err
		}

		if err := s.writeCashMovement(ctx, tx, from.ID, outMovementID, "out", params.Amount); err != nil {
			return err
		}
		if err := s.writeCashMovement(ctx, tx, to.ID, inMovementID, "in", credit); err != nil {
			return err
		}

		// Both rows are locked, so the new balances are computed here in
		// decimal and written as values. SQL-side addition would run in the
		// database's float domain and drift from the movement replay.
		if err := s.setBalance(ctx, tx, from.ID, from.CurrentBalance.Sub(params.Amount)); err != nil {
			return err
		}
		if err := s.setBalance(ctx, tx, to.ID, to.CurrentBalance.Add(credit)); err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			AgencyID: params.AgencyID,
			Type:     events.EventTransferCompleted,
			Payload: map[string]any{
				"transfer_id": transfer.ID.String(),
				"from_box_id": from.ID.String(),
				"to_box_id":   to.ID.String(),
				"amount":      params.Amount.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// lockBoxes locks both rows in id order so two opposing transfers cannot
// deadlock on each other.
func (s *Service) lockBoxes(ctx context.Context, tx *gorm.DB, fromID, toID snowflake.ID) (*cashboxdomain.CashBox, *cashboxdomain.CashBox, error) {
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}

	boxes := make(map[snowflake.ID]*cashboxdomain.CashBox, 2)
	for _, id := range []snowflake.ID{first, second} {
		var box cashboxdomain.CashBox
		err := pkgdb.LockForUpdate(tx.WithContext(ctx)).
			First(&box, "id = ?", id).Error
		if err == gorm.ErrRecordNotFound {
			return nil, nil, cashboxdomain.ErrBoxNotFound
		}
		if err != nil {
			return nil, nil, err
		}
		boxes[id] = &box
	}
	return boxes[fromID], boxes[toID], nil
}

func (s *Service) writeCashMovement(ctx context.Context, tx *gorm.DB, boxID, movementID snowflake.ID, direction string, amount decimal.Decimal) error {
	return tx.WithContext(ctx).Create(&cashboxdomain.CashMovement{
		ID:               s.genID.Generate(),
		BoxID:            boxID,
		LedgerMovementID: &movementID,
		Direction:        direction,
		Amount:           amount,
		CreatedAt:        s.clock.Now(),
	}).Error
}

func (s *Service) setBalance(ctx context.Context, tx *gorm.DB, boxID snowflake.ID, balance decimal.Decimal) error {
	result := tx.WithContext(ctx).Exec(
		`UPDATE cash_boxes SET current_balance = ? WHERE id = ?`,
		balance,
		boxID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return cashboxdomain.ErrBoxNotFound
	}
	return nil
}

// convert applies an ARS-per-USD rate in the direction the box pair needs.
func convert(amount decimal.Decimal, from, to money.Currency, rate decimal.Decimal) decimal.Decimal {
	if from == money.USD && to == money.ARS {
		return money.Round2(amount.Mul(rate))
	}
	if from == money.ARS && to == money.USD {
		return money.Round2(amount.Div(rate))
	}
	return amount
}
