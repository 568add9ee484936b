package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Resolver resolves a conversion factor for a calendar date. Resolution is
// deterministic for a fixed data snapshot and has no side effects beyond
// telemetry; callers persist the result on the movement they write so a later
// rate change never alters posted history.
type Resolver interface {
	// Resolve walks the fallback chain: exact date, most recent prior date
	// for the agency, globally latest rate, configured constant. A nil tx
	// reads outside any transaction; callers already inside one must pass
	// theirs so the lookup shares its connection.
	Resolve(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID, date time.Time) (Resolution, error)
	// Latest returns the most recent rate known for the agency, falling back
	// to the chain's remaining tiers.
	Latest(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID) (Resolution, error)
	Put(ctx context.Context, agencyID snowflake.ID, date time.Time, rate decimal.Decimal) (*ExchangeRate, error)
}

// Service is the package alias for Resolver.
type Service = Resolver

var (
	ErrRateMissing   = errors.New("exchange_rate_missing")
	ErrInvalidRate   = errors.New("invalid_exchange_rate")
	ErrInvalidAgency = errors.New("invalid_agency")
)
