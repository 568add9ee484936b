package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	"github.com/tometh04/vibook-accounting/internal/money"
)

// RecordParams describes one movement to post. AccountID may be zero, in
// which case the recorder resolves the agency's default account for
// (AccountKind, Currency).
type RecordParams struct {
	AgencyID snowflake.ID
	Type     MovementType
	Currency money.Currency
	Amount   decimal.Decimal

	AccountID   snowflake.ID
	AccountKind accountdomain.AccountKind

	// EventDate drives exchange-rate resolution; zero means now.
	EventDate time.Time

	OperationID       *snowflake.ID
	LeadID            *snowflake.ID
	SellerID          *snowflake.ID
	OperatorID        *snowflake.ID
	CommissionID      *snowflake.ID
	TransferDirection *TransferDirection

	ReceiptNumber string
	Notes         string
	CreatedBy     snowflake.ID
}

// Recorder is the single writer of ledger movements.
type Recorder interface {
	// Record posts exactly one immutable movement in its own transaction.
	// When Type is COMMISSION and CommissionID is set, the linked
	// commission's status flips to PAID in the same transaction.
	Record(ctx context.Context, params RecordParams) (snowflake.ID, error)
	// RecordTx is Record inside a caller-owned transaction. Payment
	// reconciliation and cash transfers use it so the movement commits or
	// rolls back with the caller's own writes.
	RecordTx(ctx context.Context, tx *gorm.DB, params RecordParams) (snowflake.ID, error)
	// Delete removes a movement and its dependent cash movements. Used only
	// by the compensating reversal flows.
	Delete(ctx context.Context, tx *gorm.DB, movementID snowflake.ID) error
	Movements(ctx context.Context, accountID snowflake.ID) ([]LedgerMovement, error)
}

// Service is the package alias for Recorder.
type Service = Recorder

var (
	ErrInvalidType      = errors.New("invalid_movement_type")
	ErrInvalidAmount    = errors.New("invalid_movement_amount")
	ErrInvalidAgency    = errors.New("invalid_agency")
	ErrMovementNotFound = errors.New("movement_not_found")
	ErrCommissionState  = errors.New("commission_not_pending")
)
