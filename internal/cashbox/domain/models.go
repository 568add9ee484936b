package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/tometh04/vibook-accounting/internal/money"
)

// CashBox is an agency-scoped money container for day-to-day cash tracking.
// CurrentBalance is the one cached balance in the system; every mutator
// updates it inside the same transaction as the movement that explains it.
type CashBox struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	AgencyID       snowflake.ID    `gorm:"not null;index"`
	Name           string          `gorm:"type:text;not null"`
	Currency       money.Currency  `gorm:"type:text;not null"`
	InitialBalance decimal.Decimal `gorm:"type:numeric;not null"`
	CurrentBalance decimal.Decimal `gorm:"type:numeric;not null"`
	IsDefault      bool            `gorm:"not null;default:false"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CashBox) TableName() string { return "cash_boxes" }

// TransferStatus exists for the record only; transfers have no pending or
// partial state in this model.
type TransferStatus string

const StatusCompleted TransferStatus = "COMPLETED"

// CashTransfer moves funds between two boxes, possibly cross-currency.
type CashTransfer struct {
	ID           snowflake.ID     `gorm:"primaryKey"`
	AgencyID     snowflake.ID     `gorm:"not null;index"`
	FromBoxID    snowflake.ID     `gorm:"not null"`
	ToBoxID      snowflake.ID     `gorm:"not null"`
	Amount       decimal.Decimal  `gorm:"type:numeric;not null"`
	Currency     money.Currency   `gorm:"type:text;not null"`
	ExchangeRate *decimal.Decimal `gorm:"type:numeric"`
	Status       TransferStatus   `gorm:"type:text;not null;default:COMPLETED"`
	TransferDate time.Time        `gorm:"type:date;not null"`
	CreatedBy    snowflake.ID
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CashTransfer) TableName() string { return "cash_transfers" }

// CashMovement ties one box balance change to the ledger movement that
// documents it, so the cached balance can always be checked against a replay.
type CashMovement struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	BoxID            snowflake.ID `gorm:"not null;index"`
	LedgerMovementID *snowflake.ID
	Direction        string          `gorm:"type:text;not null"`
	Amount           decimal.Decimal `gorm:"type:numeric;not null"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CashMovement) TableName() string { return "cash_movements" }
