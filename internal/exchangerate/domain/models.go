package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ExchangeRate is a dated ARS-per-USD conversion factor for one agency.
type ExchangeRate struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	AgencyID  snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_exchange_rates_agency_date,priority:1"`
	RateDate  time.Time       `gorm:"type:date;not null;uniqueIndex:ux_exchange_rates_agency_date,priority:2"`
	Rate      decimal.Decimal `gorm:"type:numeric;not null"`
	CreatedBy snowflake.ID
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ExchangeRate) TableName() string { return "exchange_rates" }

// FallbackTier names the lookup tier that produced a resolved rate.
type FallbackTier string

const (
	TierExactDate    FallbackTier = "exact_date"
	TierPriorDate    FallbackTier = "prior_date"
	TierGlobalLatest FallbackTier = "global_latest"
	TierConstant     FallbackTier = "constant"
)

// Resolution is the outcome of a rate lookup. The tier tells callers how far
// down the fallback chain the resolver had to go.
type Resolution struct {
	Rate decimal.Decimal
	Tier FallbackTier
}
