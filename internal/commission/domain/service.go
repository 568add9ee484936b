package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Service manages commission schemes and the payout lifecycle.
type Service interface {
	CreateScheme(ctx context.Context, scheme *Scheme) error
	GetScheme(ctx context.Context, schemeID snowflake.ID) (*Scheme, error)
	// ComputeForScheme loads a stored scheme and applies it. Compute itself
	// is total; only the load can fail.
	ComputeForScheme(ctx context.Context, schemeID snowflake.ID, baseAmount decimal.Decimal, hasSecondarySeller bool) (Breakdown, error)

	CreateCommission(ctx context.Context, commission *Commission) error
	GetCommission(ctx context.Context, commissionID snowflake.ID) (*Commission, error)
	// Pay posts the COMMISSION ledger movement; the status flip to PAID
	// rides the same transaction as the movement write.
	Pay(ctx context.Context, commissionID, accountID, actingUser snowflake.ID) (snowflake.ID, error)
	// Revert deletes the linked movement and resets status to PENDING. A
	// compensating action, not a balance adjustment.
	Revert(ctx context.Context, commissionID snowflake.ID) error
}

var (
	ErrInvalidScheme      = errors.New("invalid_commission_scheme")
	ErrSchemeNotFound     = errors.New("commission_scheme_not_found")
	ErrCommissionNotFound = errors.New("commission_not_found")
	ErrNotPaid            = errors.New("commission_not_paid")
	ErrAlreadyPaid        = errors.New("commission_already_paid")
	ErrInvalidAmount      = errors.New("invalid_commission_amount")
)
