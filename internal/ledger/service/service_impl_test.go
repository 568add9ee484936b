package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	accountrepo "github.com/tometh04/vibook-accounting/internal/account/repository"
	accountservice "github.com/tometh04/vibook-accounting/internal/account/service"
	cashboxdomain "github.com/tometh04/vibook-accounting/internal/cashbox/domain"
	"github.com/tometh04/vibook-accounting/internal/clock"
	commissiondomain "github.com/tometh04/vibook-accounting/internal/commission/domain"
	"github.com/tometh04/vibook-accounting/internal/config"
	"github.com/tometh04/vibook-accounting/internal/events"
	exchangeraterepo "github.com/tometh04/vibook-accounting/internal/exchangerate/repository"
	exchangerateservice "github.com/tometh04/vibook-accounting/internal/exchangerate/service"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	"github.com/tometh04/vibook-accounting/internal/migration"
	"github.com/tometh04/vibook-accounting/internal/money"
)

const testAgency snowflake.ID = 9

var testInstant = time.Date(2025, time.April, 2, 10, 0, 0, 0, time.UTC)

func setupFixture(t *testing.T) (*gorm.DB, *snowflake.Node, ledgerdomain.Recorder) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := migration.RunMigrations(sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	log := zap.NewNop()
	clk := clock.FixedClock{Instant: testInstant}
	outbox := events.NewOutbox(db, node)

	resolver := exchangerateservice.NewService(exchangerateservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Repo:   exchangeraterepo.Provide(db),
		Cfg:    config.Config{FallbackRate: decimal.RequireFromString("1000")},
		Outbox: outbox,
		Clock:  clk,
	})
	accountSvc := accountservice.NewService(accountservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  accountrepo.Provide(db),
		Clock: clk,
	})
	recorder := NewService(Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		AccountSvc: accountSvc,
		Resolver:   resolver,
		Outbox:     outbox,
		Clock:      clk,
	})
	return db, node, recorder
}

func putRate(t *testing.T, db *gorm.DB, node *snowflake.Node, date string, rate string) {
	t.Helper()
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if err := db.Exec(
		`INSERT INTO exchange_rates (id, agency_id, rate_date, rate) VALUES (?, ?, ?, ?)`,
		node.Generate(), testAgency, day, rate,
	).Error; err != nil {
		t.Fatalf("insert rate: %v", err)
	}
}

func loadMovement(t *testing.T, db *gorm.DB, id snowflake.ID) ledgerdomain.LedgerMovement {
	t.Helper()
	var movement ledgerdomain.LedgerMovement
	if err := db.First(&movement, "id = ?", id).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	return movement
}

func TestRecordPostsPrimaryCurrencyMovement(t *testing.T) {
	db, _, recorder := setupFixture(t)
	ctx := context.Background()

	movementID, err := recorder.Record(ctx, ledgerdomain.RecordParams{
		AgencyID:    testAgency,
		Type:        ledgerdomain.TypeIncome,
		Currency:    money.ARS,
		Amount:      decimal.RequireFromString("1500.50"),
		AccountKind: accountdomain.KindAsset,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	movement := loadMovement(t, db, movementID)
	if movement.ExchangeRate != nil {
		t.Fatalf("exchange rate = %s, want nil for ARS", movement.ExchangeRate)
	}
	if !movement.AmountPrimary.Equal(movement.AmountOriginal) {
		t.Fatalf("primary %s != original %s", movement.AmountPrimary, movement.AmountOriginal)
	}

	var eventCount int64
	if err := db.Table("accounting_events").
		Where("event_type = ?", events.EventMovementPosted).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("posted events = %d, want 1", eventCount)
	}
}

func TestRecordConvertsSecondaryCurrencyAtEventDate(t *testing.T) {
	db, node, recorder := setupFixture(t)
	ctx := context.Background()
	putRate(t, db, node, "2025-04-01", "1150")

	movementID, err := recorder.Record(ctx, ledgerdomain.RecordParams{
		AgencyID:    testAgency,
		Type:        ledgerdomain.TypeIncome,
		Currency:    money.USD,
		Amount:      decimal.RequireFromString("100"),
		AccountKind: accountdomain.KindAsset,
		EventDate:   time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	movement := loadMovement(t, db, movementID)
	if movement.ExchangeRate == nil || !movement.ExchangeRate.Equal(decimal.RequireFromString("1150")) {
		t.Fatalf("exchange rate = %v, want 1150", movement.ExchangeRate)
	}
	if want := decimal.RequireFromString("115000"); !movement.AmountPrimary.Equal(want) {
		t.Fatalf("primary = %s, want %s", movement.AmountPrimary, want)
	}
}

func TestRecordValidation(t *testing.T) {
	_, _, recorder := setupFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params ledgerdomain.RecordParams
		want   error
	}{
		{
			name: "unknown type",
			params: ledgerdomain.RecordParams{
				AgencyID: testAgency, Type: "DIVIDEND",
				Currency: money.ARS, Amount: decimal.NewFromInt(10),
				AccountKind: accountdomain.KindAsset,
			},
			want: ledgerdomain.ErrInvalidType,
		},
		{
			name: "zero amount",
			params: ledgerdomain.RecordParams{
				AgencyID: testAgency, Type: ledgerdomain.TypeIncome,
				Currency: money.ARS, Amount: decimal.Zero,
				AccountKind: accountdomain.KindAsset,
			},
			want: ledgerdomain.ErrInvalidAmount,
		},
		{
			name: "negative amount",
			params: ledgerdomain.RecordParams{
				AgencyID: testAgency, Type: ledgerdomain.TypeIncome,
				Currency: money.ARS, Amount: decimal.NewFromInt(-5),
				AccountKind: accountdomain.KindAsset,
			},
			want: ledgerdomain.ErrInvalidAmount,
		},
		{
			name: "missing agency",
			params: ledgerdomain.RecordParams{
				Type: ledgerdomain.TypeIncome, Currency: money.ARS,
				Amount: decimal.NewFromInt(10), AccountKind: accountdomain.KindAsset,
			},
			want: ledgerdomain.ErrInvalidAgency,
		},
	}
	for _, tc := range cases {
		if _, err := recorder.Record(ctx, tc.params); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestRecordRejectsForeignAccount(t *testing.T) {
	db, node, recorder := setupFixture(t)
	ctx := context.Background()

	foreign := accountdomain.FinancialAccount{
		ID:       node.Generate(),
		AgencyID: testAgency + 1,
		Name:     "other tenant account",
		Kind:     accountdomain.KindAsset,
		Currency: money.ARS,
		Active:   true,
	}
	if err := db.Create(&foreign).Error; err != nil {
		t.Fatalf("insert account: %v", err)
	}

	_, err := recorder.Record(ctx, ledgerdomain.RecordParams{
		AgencyID:  testAgency,
		Type:      ledgerdomain.TypeIncome,
		Currency:  money.ARS,
		Amount:    decimal.NewFromInt(100),
		AccountID: foreign.ID,
	})
	if !errors.Is(err, accountdomain.ErrAccountResolution) {
		t.Fatalf("err = %v, want ErrAccountResolution", err)
	}
}

func TestRecordCommissionFlipsPendingToPaid(t *testing.T) {
	db, node, recorder := setupFixture(t)
	ctx := context.Background()

	commission := commissiondomain.Commission{
		ID:          node.Generate(),
		AgencyID:    testAgency,
		OperationID: node.Generate(),
		SellerID:    node.Generate(),
		Status:      commissiondomain.StatusPending,
		Amount:      decimal.RequireFromString("800"),
		Currency:    money.ARS,
	}
	if err := db.Create(&commission).Error; err != nil {
		t.Fatalf("insert commission: %v", err)
	}

	commissionID := commission.ID
	movementID, err := recorder.Record(ctx, ledgerdomain.RecordParams{
		AgencyID:     testAgency,
		Type:         ledgerdomain.TypeCommission,
		Currency:     money.ARS,
		Amount:       commission.Amount,
		AccountKind:  accountdomain.KindAsset,
		CommissionID: &commissionID,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var stored commissiondomain.Commission
	if err := db.First(&stored, "id = ?", commissionID).Error; err != nil {
		t.Fatalf("load commission: %v", err)
	}
	if stored.Status != commissiondomain.StatusPaid {
		t.Fatalf("status = %s, want PAID", stored.Status)
	}
	if stored.LedgerMovementID == nil || *stored.LedgerMovementID != movementID {
		t.Fatalf("movement link = %v, want %s", stored.LedgerMovementID, movementID)
	}

	// A second payout attempt must fail and leave no extra movement behind.
	var before int64
	db.Table("ledger_movements").Count(&before)
	if _, err := recorder.Record(ctx, ledgerdomain.RecordParams{
		AgencyID:     testAgency,
		Type:         ledgerdomain.TypeCommission,
		Currency:     money.ARS,
		Amount:       commission.Amount,
		AccountKind:  accountdomain.KindAsset,
		CommissionID: &commissionID,
	}); !errors.Is(err, ledgerdomain.ErrCommissionState) {
		t.Fatalf("err = %v, want ErrCommissionState", err)
	}
	var after int64
	db.Table("ledger_movements").Count(&after)
	if before != after {
		t.Fatalf("movement count changed %d -> %d on failed posting", before, after)
	}
}

func TestDeleteRemovesMovementAndCashRows(t *testing.T) {
	db, node, recorder := setupFixture(t)
	ctx := context.Background()

	movementID, err := recorder.Record(ctx, ledgerdomain.RecordParams{
		AgencyID:    testAgency,
		Type:        ledgerdomain.TypeIncome,
		Currency:    money.ARS,
		Amount:      decimal.NewFromInt(200),
		AccountKind: accountdomain.KindAsset,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	linked := movementID
	cash := cashboxdomain.CashMovement{
		ID:               node.Generate(),
		BoxID:            node.Generate(),
		LedgerMovementID: &linked,
		Direction:        "in",
		Amount:           decimal.NewFromInt(200),
	}
	if err := db.Create(&cash).Error; err != nil {
		t.Fatalf("insert cash movement: %v", err)
	}

	if err := recorder.Delete(ctx, nil, movementID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var movements, cashRows int64
	db.Table("ledger_movements").Where("id = ?", movementID).Count(&movements)
	db.Table("cash_movements").Where("ledger_movement_id = ?", movementID).Count(&cashRows)
	if movements != 0 || cashRows != 0 {
		t.Fatalf("rows remain after delete: movements=%d cash=%d", movements, cashRows)
	}

	if err := recorder.Delete(ctx, nil, movementID); !errors.Is(err, ledgerdomain.ErrMovementNotFound) {
		t.Fatalf("second delete err = %v, want ErrMovementNotFound", err)
	}
}

func TestMovementsReturnsPostingOrder(t *testing.T) {
	db, _, recorder := setupFixture(t)
	ctx := context.Background()

	var ids []snowflake.ID
	for _, amount := range []string{"10", "20", "30"} {
		id, err := recorder.Record(ctx, ledgerdomain.RecordParams{
			AgencyID:    testAgency,
			Type:        ledgerdomain.TypeIncome,
			Currency:    money.ARS,
			Amount:      decimal.RequireFromString(amount),
			AccountKind: accountdomain.KindAsset,
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		ids = append(ids, id)
	}

	var account accountdomain.FinancialAccount
	if err := db.First(&account, "agency_id = ?", testAgency).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	movements, err := recorder.Movements(ctx, account.ID)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(movements) != len(ids) {
		t.Fatalf("movement count = %d, want %d", len(movements), len(ids))
	}
	for i, movement := range movements {
		if movement.ID != ids[i] {
			t.Fatalf("position %d: id = %s, want %s", i, movement.ID, ids[i])
		}
	}
}
