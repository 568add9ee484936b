package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/tometh04/vibook-accounting/internal/exchangerate/domain"
)

type gormRepository struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) conn(db *gorm.DB) *gorm.DB {
	if db != nil {
		return db
	}
	return r.db
}

func (r *gormRepository) FindOnOrBefore(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, date time.Time) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	err := r.conn(db).WithContext(ctx).
		Where("agency_id = ? AND rate_date <= ?", agencyID, date).
		Order("rate_date DESC").
		First(&rate).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *gormRepository) FindLatest(ctx context.Context, db *gorm.DB, agencyID snowflake.ID) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	err := r.conn(db).WithContext(ctx).
		Where("agency_id = ?", agencyID).
		Order("rate_date DESC").
		First(&rate).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *gormRepository) FindLatestGlobal(ctx context.Context, db *gorm.DB) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	err := r.conn(db).WithContext(ctx).
		Order("rate_date DESC").
		First(&rate).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *gormRepository) Upsert(ctx context.Context, db *gorm.DB, rate *domain.ExchangeRate) error {
	return r.conn(db).WithContext(ctx).Exec(
		`INSERT INTO exchange_rates (id, agency_id, rate_date, rate, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (agency_id, rate_date) DO UPDATE SET rate = excluded.rate`,
		rate.ID,
		rate.AgencyID,
		rate.RateDate,
		rate.Rate,
		rate.CreatedBy,
		rate.CreatedAt,
	).Error
}
