package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service drives a payment through PENDING → PAID/OVERDUE and back.
type Service interface {
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, paymentID snowflake.ID) (*Payment, error)

	// MarkPaid reconciles the payment: it posts exactly one INCOME ledger
	// movement and stores the movement id on the payment, all in one
	// transaction. accountID may be zero to use the agency's default
	// income account for the payment's currency.
	MarkPaid(ctx context.Context, paymentID snowflake.ID, datePaid time.Time, accountID snowflake.ID, reference string) (snowflake.ID, error)

	// RevertPaid is the compensating transaction: it deletes the linked
	// movement (and dependent cash movements), clears the link and the paid
	// date, and returns the payment to PENDING.
	RevertPaid(ctx context.Context, paymentID snowflake.ID) error

	// SweepOverdue flips PENDING payments past their due date to OVERDUE.
	// Pure status change; the ledger is never touched.
	SweepOverdue(ctx context.Context) (int, error)

	// RepairUnlinked replays the ledger-posting step for PAID payments with
	// no linked movement, skipping business validation. Data created by an
	// earlier non-transactional writer is the only input this should ever
	// see; the normal transition cannot produce it.
	RepairUnlinked(ctx context.Context) ([]RepairResult, error)
}

var (
	ErrPaymentNotFound  = errors.New("payment_not_found")
	ErrDuplicatePosting = errors.New("duplicate_ledger_posting")
	ErrMissingDatePaid  = errors.New("missing_date_paid")
	ErrNotPaid          = errors.New("payment_not_paid")
	ErrInvalidAmount    = errors.New("invalid_payment_amount")
	ErrInvalidAgency    = errors.New("invalid_agency")
)
