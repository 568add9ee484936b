package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/tometh04/vibook-accounting/internal/money"
)

// TransferParams describes one box-to-box transfer. Rate may be nil for
// cross-currency transfers; the latest known rate is resolved instead.
type TransferParams struct {
	AgencyID  snowflake.ID
	FromBoxID snowflake.ID
	ToBoxID   snowflake.ID
	Amount    decimal.Decimal
	Currency  money.Currency
	Rate      *decimal.Decimal
	Date      time.Time
	CreatedBy snowflake.ID
}

// Service manages cash boxes and transfers between them.
type Service interface {
	GetOrCreateDefault(ctx context.Context, agencyID snowflake.ID, currency money.Currency) (*CashBox, error)
	Get(ctx context.Context, boxID snowflake.ID) (*CashBox, error)
	Deactivate(ctx context.Context, boxID snowflake.ID) error

	// Transfer always completes or fails whole: the transfer record, both
	// TRANSFER ledger movements, both cash movements and both cached
	// balances commit in one transaction.
	Transfer(ctx context.Context, params TransferParams) (*CashTransfer, error)
}

var (
	ErrBoxNotFound         = errors.New("cash_box_not_found")
	ErrSameBox             = errors.New("same_box_transfer")
	ErrInactiveResource    = errors.New("inactive_resource")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrInvalidAmount       = errors.New("invalid_transfer_amount")
	ErrInvalidAgency       = errors.New("invalid_agency")
	ErrCurrencyMismatch    = errors.New("transfer_currency_mismatch")
)
