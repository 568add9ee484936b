package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tometh04/vibook-accounting/internal/money"
)

// Service resolves financial accounts and answers balance queries.
type Service interface {
	// GetOrCreateDefault returns the default account for the (kind, currency)
	// pair scoped to the agency, creating it on first use. Idempotent: two
	// calls with the same arguments return the same account id.
	GetOrCreateDefault(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID, kind AccountKind, currency money.Currency) (*FinancialAccount, error)
	// Get reads through the caller's transaction when one is given; a nil tx
	// reads the root connection.
	Get(ctx context.Context, tx *gorm.DB, accountID snowflake.ID) (*FinancialAccount, error)
	Deactivate(ctx context.Context, accountID snowflake.ID) error

	// Balance replays the account's movements: initial_balance plus the
	// signed contribution of every movement referencing the account. Pure
	// read; stored conversions are never recomputed.
	Balance(ctx context.Context, accountID snowflake.ID) (decimal.Decimal, error)
	// Balances is the batch form: one bulk fetch plus in-memory aggregation,
	// with results identical to N single calls.
	Balances(ctx context.Context, accountIDs []snowflake.ID) (map[snowflake.ID]decimal.Decimal, error)
}

var (
	ErrAccountResolution = errors.New("account_resolution_failed")
	ErrAccountNotFound   = errors.New("account_not_found")
	ErrInactiveResource  = errors.New("inactive_resource")
	ErrInvalidAgency     = errors.New("invalid_agency")
	ErrInvalidKind       = errors.New("invalid_account_kind")
)
