package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	cashboxdomain "github.com/tometh04/vibook-accounting/internal/cashbox/domain"
	exchangeratedomain "github.com/tometh04/vibook-accounting/internal/exchangerate/domain"
	"github.com/tometh04/vibook-accounting/internal/money"
)

// DevAgencyID is the fixed tenant id used by local development and smoke
// tests. Production never seeds.
const DevAgencyID snowflake.ID = 1

var devSeedRate = decimal.RequireFromString("1000")

// EnsureDevAgency bootstraps the development tenant: default ARS and USD
// asset accounts and cash boxes, plus a starting exchange rate for today.
// Safe to run on every startup.
func EnsureDevAgency(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRate(ctx, tx, node); err != nil {
			return err
		}
		for _, currency := range []money.Currency{money.ARS, money.USD} {
			if err := ensureDefaultAccount(ctx, tx, node, currency); err != nil {
				return err
			}
			if err := ensureDefaultBox(ctx, tx, node, currency); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureRate(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&exchangeratedomain.ExchangeRate{}).
		Where("agency_id = ?", DevAgencyID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	return tx.WithContext(ctx).Create(&exchangeratedomain.ExchangeRate{
		ID:       node.Generate(),
		AgencyID: DevAgencyID,
		RateDate: today,
		Rate:     devSeedRate,
	}).Error
}

func ensureDefaultAccount(ctx context.Context, tx *gorm.DB, node *snowflake.Node, currency money.Currency) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&accountdomain.FinancialAccount{}).
		Where("agency_id = ? AND kind = ? AND currency = ? AND is_default", DevAgencyID, accountdomain.KindAsset, currency).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return tx.WithContext(ctx).Create(&accountdomain.FinancialAccount{
		ID:        node.Generate(),
		AgencyID:  DevAgencyID,
		Name:      "Default asset " + string(currency),
		Kind:      accountdomain.KindAsset,
		Currency:  currency,
		IsDefault: true,
		Active:    true,
	}).Error
}

func ensureDefaultBox(ctx context.Context, tx *gorm.DB, node *snowflake.Node, currency money.Currency) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&cashboxdomain.CashBox{}).
		Where("agency_id = ? AND currency = ? AND is_default", DevAgencyID, currency).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return tx.WithContext(ctx).Create(&cashboxdomain.CashBox{
		ID:        node.Generate(),
		AgencyID:  DevAgencyID,
		Name:      "Default cash box " + string(currency),
		Currency:  currency,
		IsDefault: true,
		Active:    true,
	}).Error
}
