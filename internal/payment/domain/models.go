package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/tometh04/vibook-accounting/internal/money"
)

// PaymentStatus is the reconciliation state. OVERDUE is not terminal; an
// overdue payment still transitions to PAID.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusPaid    PaymentStatus = "PAID"
	StatusOverdue PaymentStatus = "OVERDUE"
)

// Payment is an expected receipt for an operation. LedgerMovementID links to
// the single INCOME movement written when the payment was reconciled; its
// presence is the authoritative duplicate-posting check.
type Payment struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	AgencyID         snowflake.ID    `gorm:"not null;index"`
	OperationID      *snowflake.ID   `gorm:"index"`
	Amount           decimal.Decimal `gorm:"type:numeric;not null"`
	Currency         money.Currency  `gorm:"type:text;not null"`
	Status           PaymentStatus   `gorm:"type:text;not null;default:PENDING"`
	DateDue          *time.Time      `gorm:"type:date"`
	DatePaid         *time.Time      `gorm:"type:date"`
	AccountID        *snowflake.ID
	LedgerMovementID *snowflake.ID
	Reference        string `gorm:"type:text"`
	CreatedBy        snowflake.ID
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// RepairResult reports one payment fixed by the maintenance repair pass.
type RepairResult struct {
	PaymentID  snowflake.ID
	MovementID snowflake.ID
}
