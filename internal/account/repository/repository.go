package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/tometh04/vibook-accounting/internal/account/domain"
	"github.com/tometh04/vibook-accounting/internal/money"
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

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FinancialAccount, error) {
	var account domain.FinancialAccount
	err := r.conn(db).WithContext(ctx).First(&account, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) FindDefault(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, kind domain.AccountKind, currency money.Currency) (*domain.FinancialAccount, error) {
	var account domain.FinancialAccount
	err := r.conn(db).WithContext(ctx).
		Where("agency_id = ? AND kind = ? AND currency = ? AND is_default", agencyID, kind, currency).
		First(&account).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.FinancialAccount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var accounts []domain.FinancialAccount
	if err := r.conn(db).WithContext(ctx).Where("id IN ?", ids).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *gormRepository) Insert(ctx context.Context, db *gorm.DB, account *domain.FinancialAccount) error {
	return r.conn(db).WithContext(ctx).Create(account).Error
}

func (r *gormRepository) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) error {
	result := r.conn(db).WithContext(ctx).
		Model(&domain.FinancialAccount{}).
		Where("id = ?", id).
		Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
