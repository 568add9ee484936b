package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/tometh04/vibook-accounting/internal/money"
)

// AccountKind is the chart-of-accounts category. Used for reporting only;
// balance math never inspects it.
type AccountKind string

const (
	KindAsset     AccountKind = "asset"
	KindLiability AccountKind = "liability"
	KindEquity    AccountKind = "equity"
	KindIncome    AccountKind = "income"
)

// FinancialAccount is a named bucket of money with a fixed currency.
// Accounts are created lazily per agency and deactivated, never deleted.
type FinancialAccount struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	AgencyID       snowflake.ID    `gorm:"not null;index"`
	Name           string          `gorm:"type:text;not null"`
	Kind           AccountKind     `gorm:"type:text;not null"`
	Currency       money.Currency  `gorm:"type:text;not null"`
	InitialBalance decimal.Decimal `gorm:"type:numeric;not null"`
	IsDefault      bool            `gorm:"not null;default:false"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedBy      snowflake.ID
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FinancialAccount) TableName() string { return "financial_accounts" }

// ValidKind reports whether the kind is part of the chart of accounts.
func ValidKind(kind AccountKind) bool {
	switch kind {
	case KindAsset, KindLiability, KindEquity, KindIncome:
		return true
	default:
		return false
	}
}
