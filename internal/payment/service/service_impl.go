package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	"github.com/tometh04/vibook-accounting/internal/clock"
	"github.com/tometh04/vibook-accounting/internal/events"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	paymentdomain "github.com/tometh04/vibook-accounting/internal/payment/domain"
	"github.com/tometh04/vibook-accounting/internal/tenantcontext"
	pkgdb "github.com/tometh04/vibook-accounting/pkg/db"
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
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		recorder: p.Recorder,
		outbox:   p.Outbox,
		clock:    p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, payment *paymentdomain.Payment) error {
	if payment.AgencyID == 0 {
		return paymentdomain.ErrInvalidAgency
	}
	if !payment.Amount.IsPositive() {
		return paymentdomain.ErrInvalidAmount
	}
	if payment.ID == 0 {
		payment.ID = s.genID.Generate()
	}
	payment.Status = paymentdomain.StatusPending
	now := s.clock.Now()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *Service) Get(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := s.db.WithContext(ctx).First(&payment, "id = ?", paymentID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *Service) MarkPaid(ctx context.Context, paymentID snowflake.ID, datePaid time.Time, accountID snowflake.ID, reference string) (snowflake.ID, error) {
	if datePaid.IsZero() {
		return 0, paymentdomain.ErrMissingDatePaid
	}

	var movementID snowflake.ID
	var agencyID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := lockPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment.LedgerMovementID != nil {
			return paymentdomain.ErrDuplicatePosting
		}
		agencyID = payment.AgencyID

		movementID, err = s.postPaymentMovement(ctx, tx, payment, datePaid, accountID, reference)
		if err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE payments
			 SET status = 'PAID', date_paid = ?, ledger_movement_id = ?,
			     account_id = COALESCE(?, account_id), reference = ?, updated_at = ?
			 WHERE id = ?`,
			datePaid,
			movementID,
			nullableID(accountID),
			reference,
			s.clock.Now(),
			paymentID,
		).Error; err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			AgencyID: payment.AgencyID,
			Type:     events.EventPaymentMarkedPaid,
			Payload: map[string]any{
				"payment_id":  paymentID.String(),
				"movement_id": movementID.String(),
			},
		})
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("payment marked paid",
		zap.String("payment_id", paymentID.String()),
		zap.String("movement_id", movementID.String()),
		zap.String("agency_id", agencyID.String()),
	)
	return movementID, nil
}

func (s *Service) postPaymentMovement(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment, datePaid time.Time, accountID snowflake.ID, reference string) (snowflake.ID, error) {
	if accountID == 0 && payment.AccountID != nil {
		accountID = *payment.AccountID
	}
	return s.recorder.RecordTx(ctx, tx, ledgerdomain.RecordParams{
		AgencyID:      payment.AgencyID,
		Type:          ledgerdomain.TypeIncome,
		Currency:      payment.Currency,
		Amount:        payment.Amount,
		AccountID:     accountID,
		AccountKind:   accountdomain.KindIncome,
		EventDate:     datePaid,
		OperationID:   payment.OperationID,
		ReceiptNumber: reference,
		CreatedBy:     tenantcontext.ActingUserFromContext(ctx),
	})
}

func (s *Service) RevertPaid(ctx context.Context, paymentID snowflake.ID) error {
	var agencyID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := lockPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != paymentdomain.StatusPaid || payment.LedgerMovementID == nil {
			return paymentdomain.ErrNotPaid
		}
		agencyID = payment.AgencyID

		if err := s.recorder.Delete(ctx, tx, *payment.LedgerMovementID); err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Exec(
			`UPDATE payments
			 SET status = 'PENDING', date_paid = NULL, ledger_movement_id = NULL, updated_at = ?
			 WHERE id = ?`,
			s.clock.Now(),
			paymentID,
		).Error; err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			AgencyID: payment.AgencyID,
			Type:     events.EventPaymentReverted,
			Payload:  map[string]any{"payment_id": paymentID.String()},
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("payment reverted",
		zap.String("payment_id", paymentID.String()),
		zap.String("agency_id", agencyID.String()),
	)
	return nil
}

func (s *Service) SweepOverdue(ctx context.Context) (int, error) {
	today := truncateToDate(s.clock.Now())
	result := s.db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = 'OVERDUE', updated_at = ?
		 WHERE status = 'PENDING' AND date_due IS NOT NULL AND date_due < ?`,
		s.clock.Now(),
		today,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("overdue sweep", zap.Int64("flipped", result.RowsAffected))
	}
	return int(result.RowsAffected), nil
}

// RepairUnlinked is a maintenance pass for rows written by a pre-transactional
// version of this state machine. Each payment repairs in its own transaction
// so one failure does not abort the rest.
func (s *Service) RepairUnlinked(ctx context.Context) ([]paymentdomain.RepairResult, error) {
	var candidates []paymentdomain.Payment
	if err := s.db.WithContext(ctx).
		Where("status = 'PAID' AND ledger_movement_id IS NULL").
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	results := make([]paymentdomain.RepairResult, 0, len(candidates))
	for _, candidate := range candidates {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			payment, err := lockPayment(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			if payment.Status != paymentdomain.StatusPaid || payment.LedgerMovementID != nil {
				return nil
			}

			datePaid := s.clock.Now()
			if payment.DatePaid != nil {
				datePaid = *payment.DatePaid
			}
			movementID, err := s.postPaymentMovement(ctx, tx, payment, datePaid, 0, payment.Reference)
			if err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Exec(
				`UPDATE payments SET ledger_movement_id = ?, updated_at = ? WHERE id = ?`,
				movementID,
				s.clock.Now(),
				payment.ID,
			).Error; err != nil {
				return err
			}
			results = append(results, paymentdomain.RepairResult{
				PaymentID:  payment.ID,
				MovementID: movementID,
			})
			return nil
		})
		if err != nil {
			s.log.Warn("payment repair failed",
				zap.String("payment_id", candidate.ID.String()),
				zap.Error(err),
			)
		}
	}
	return results, nil
}

func lockPayment(ctx context.Context, tx *gorm.DB, paymentID snowflake.ID) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := pkgdb.LockForUpdate(tx.WithContext(ctx)).
		First(&payment, "id = ?", paymentID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func nullableID(id snowflake.ID) any {
	if id == 0 {
		return nil
	}
	return id
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
