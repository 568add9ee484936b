package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindOnOrBefore(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, date time.Time) (*ExchangeRate, error)
	FindLatest(ctx context.Context, db *gorm.DB, agencyID snowflake.ID) (*ExchangeRate, error)
	FindLatestGlobal(ctx context.Context, db *gorm.DB) (*ExchangeRate, error)
	Upsert(ctx context.Context, db *gorm.DB, rate *ExchangeRate) error
}
