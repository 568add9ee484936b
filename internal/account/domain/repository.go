package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/tometh04/vibook-accounting/internal/money"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FinancialAccount, error)
	FindDefault(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, kind AccountKind, currency money.Currency) (*FinancialAccount, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]FinancialAccount, error)
	Insert(ctx context.Context, db *gorm.DB, account *FinancialAccount) error
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error
}
