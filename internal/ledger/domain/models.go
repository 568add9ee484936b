package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/tometh04/vibook-accounting/internal/money"
)

// MovementType carries the direction of a movement; amounts are always
// positive magnitudes.
type MovementType string

const (
	TypeIncome          MovementType = "INCOME"
	TypeExpense         MovementType = "EXPENSE"
	TypeFXGain          MovementType = "FX_GAIN"
	TypeFXLoss          MovementType = "FX_LOSS"
	TypeCommission      MovementType = "COMMISSION"
	TypeOperatorPayment MovementType = "OPERATOR_PAYMENT"
	TypeTransfer        MovementType = "TRANSFER"
)

// TransferDirection disambiguates the two sides of a cash transfer. Set only
// on TRANSFER movements.
type TransferDirection string

const (
	TransferIn  TransferDirection = "in"
	TransferOut TransferDirection = "out"
)

// LedgerMovement is the atomic, immutable unit of financial truth. Once
// written it is never mutated; corrections insert an offsetting movement or,
// for the explicit compensating flows, delete the row outright.
type LedgerMovement struct {
	ID       snowflake.ID   `gorm:"primaryKey"`
	AgencyID snowflake.ID   `gorm:"not null;index"`
	Type     MovementType   `gorm:"type:text;not null"`
	Currency money.Currency `gorm:"type:text;not null"`

	// AmountOriginal is the positive magnitude in the movement's currency.
	AmountOriginal decimal.Decimal `gorm:"type:numeric;not null"`
	// ExchangeRate is set only when the currency is not ARS.
	ExchangeRate *decimal.Decimal `gorm:"type:numeric"`
	// AmountPrimary is the ARS equivalent computed at post time. It is the
	// value balance replay uses for cross-currency movements and is never
	// recomputed after the fact.
	AmountPrimary decimal.Decimal `gorm:"type:numeric;not null"`

	AccountID         snowflake.ID `gorm:"not null;index"`
	OperationID       *snowflake.ID
	LeadID            *snowflake.ID
	SellerID          *snowflake.ID
	OperatorID        *snowflake.ID
	CommissionID      *snowflake.ID
	TransferDirection *TransferDirection `gorm:"type:text"`

	ReceiptNumber string `gorm:"type:text"`
	Notes         string `gorm:"type:text"`
	CreatedBy     snowflake.ID
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerMovement) TableName() string { return "ledger_movements" }

// ValidType reports whether t is a known movement type.
func ValidType(t MovementType) bool {
	switch t {
	case TypeIncome, TypeExpense, TypeFXGain, TypeFXLoss,
		TypeCommission, TypeOperatorPayment, TypeTransfer:
		return true
	default:
		return false
	}
}

// Sign returns +1 or -1 for the movement's balance contribution.
func (m LedgerMovement) Sign() int {
	switch m.Type {
	case TypeIncome, TypeFXGain:
		return 1
	case TypeTransfer:
		if m.TransferDirection != nil && *m.TransferDirection == TransferIn {
			return 1
		}
		return -1
	default:
		return -1
	}
}

// Contribution is the signed amount the movement adds to an account held in
// accountCurrency: the original magnitude when currencies match, otherwise
// the ARS equivalent stored at post time.
func (m LedgerMovement) Contribution(accountCurrency money.Currency) decimal.Decimal {
	magnitude := m.AmountOriginal
	if m.Currency != accountCurrency {
		magnitude = m.AmountPrimary
	}
	if m.Sign() < 0 {
		return magnitude.Neg()
	}
	return magnitude
}
