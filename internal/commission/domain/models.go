package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/tometh04/vibook-accounting/internal/money"
)

// SchemeType selects the commission formula.
type SchemeType string

const (
	SchemePercentage SchemeType = "percentage"
	SchemeFixed      SchemeType = "fixed"
	SchemeTiered     SchemeType = "tiered"
	SchemeHybrid     SchemeType = "hybrid"
)

// Tier is one band of a tiered scheme. The band applies when the base amount
// falls in [Min, Max); a nil Max marks the unbounded upper tier.
type Tier struct {
	Min        decimal.Decimal  `json:"min"`
	Max        *decimal.Decimal `json:"max"`
	Percentage decimal.Decimal  `json:"percentage"`
}

// Scheme is a configurable commission rule set. Tiers are stored as JSON and
// validated at creation time, so computing against a stored scheme is total.
type Scheme struct {
	ID           snowflake.ID     `gorm:"primaryKey"`
	AgencyID     snowflake.ID     `gorm:"not null;index"`
	Name         string           `gorm:"type:text;not null"`
	Type         SchemeType       `gorm:"type:text;not null"`
	Percentage   *decimal.Decimal `gorm:"type:numeric"`
	FixedAmount  *decimal.Decimal `gorm:"type:numeric"`
	Tiers        datatypes.JSON
	MinThreshold *decimal.Decimal `gorm:"type:numeric"`
	MaxCap       *decimal.Decimal `gorm:"type:numeric"`
	CreatedAt    time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Scheme) TableName() string { return "commission_schemes" }

// TierList decodes the stored tier bands.
func (s Scheme) TierList() ([]Tier, error) {
	if len(s.Tiers) == 0 {
		return nil, nil
	}
	var tiers []Tier
	if err := json.Unmarshal(s.Tiers, &tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}

// SetTierList encodes tier bands onto the scheme.
func (s *Scheme) SetTierList(tiers []Tier) error {
	raw, err := json.Marshal(tiers)
	if err != nil {
		return err
	}
	s.Tiers = datatypes.JSON(raw)
	return nil
}

// CommissionStatus is the payout lifecycle state.
type CommissionStatus string

const (
	StatusPending CommissionStatus = "PENDING"
	StatusPaid    CommissionStatus = "PAID"
)

// Commission is one seller's earned commission on one operation. Once paid it
// links 1:1 to the COMMISSION ledger movement that documents the payout.
type Commission struct {
	ID               snowflake.ID     `gorm:"primaryKey"`
	AgencyID         snowflake.ID     `gorm:"not null;index"`
	OperationID      snowflake.ID     `gorm:"not null;index"`
	SellerID         snowflake.ID     `gorm:"not null"`
	Status           CommissionStatus `gorm:"type:text;not null;default:PENDING"`
	Amount           decimal.Decimal  `gorm:"type:numeric;not null"`
	Currency         money.Currency   `gorm:"type:text;not null"`
	LedgerMovementID *snowflake.ID
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Commission) TableName() string { return "commissions" }

// Breakdown is the result of computing a scheme against a base amount.
// Secondary is nil when there is no secondary seller.
type Breakdown struct {
	Total     decimal.Decimal
	Primary   decimal.Decimal
	Secondary *decimal.Decimal
}
