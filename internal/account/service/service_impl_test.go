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

	"github.com/tometh04/vibook-accounting/internal/account/domain"
	"github.com/tometh04/vibook-accounting/internal/account/repository"
	"github.com/tometh04/vibook-accounting/internal/cache"
	"github.com/tometh04/vibook-accounting/internal/clock"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	"github.com/tometh04/vibook-accounting/internal/migration"
	"github.com/tometh04/vibook-accounting/internal/money"
)

const testAgency snowflake.ID = 42

var testInstant = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:         db,
		log:        zap.NewNop(),
		genID:      node,
		repo:       repository.Provide(db),
		clock:      clock.FixedClock{Instant: testInstant},
		defaultIDs: cache.NewTTLCache[string, snowflake.ID](),
	}
}

var movementNode = func() *snowflake.Node {
	node, err := snowflake.NewNode(4)
	if err != nil {
		panic(err)
	}
	return node
}()

func insertMovement(t *testing.T, db *gorm.DB, accountID snowflake.ID, movementType ledgerdomain.MovementType, currency money.Currency, original, primary string) {
	t.Helper()
	movement := ledgerdomain.LedgerMovement{
		ID:             movementNode.Generate(),
		AgencyID:       testAgency,
		Type:           movementType,
		Currency:       currency,
		AmountOriginal: decimal.RequireFromString(original),
		AmountPrimary:  decimal.RequireFromString(primary),
		AccountID:      accountID,
		CreatedAt:      testInstant,
	}
	if err := db.Create(&movement).Error; err != nil {
		t.Fatalf("insert movement: %v", err)
	}
}

func TestGetOrCreateDefaultIsIdempotent(t *testing.T) {
	svc := newTestService(t, setupTestDB(t))
	ctx := context.Background()

	first, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindAsset, money.ARS)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindAsset, money.ARS)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %s vs %s", first.ID, second.ID)
	}

	// Cold cache must land on the same stored row.
	svc.defaultIDs.Purge()
	third, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindAsset, money.ARS)
	if err != nil {
		t.Fatalf("third call: %v", err)
	}
	if third.ID != first.ID {
		t.Fatalf("cold lookup id %s, want %s", third.ID, first.ID)
	}
}

func TestGetOrCreateDefaultSeparatesKindAndCurrency(t *testing.T) {
	svc := newTestService(t, setupTestDB(t))
	ctx := context.Background()

	ars, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindAsset, money.ARS)
	if err != nil {
		t.Fatalf("ars default: %v", err)
	}
	usd, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindAsset, money.USD)
	if err != nil {
		t.Fatalf("usd default: %v", err)
	}
	income, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindIncome, money.ARS)
	if err != nil {
		t.Fatalf("income default: %v", err)
	}
	if ars.ID == usd.ID || ars.ID == income.ID {
		t.Fatal("defaults for distinct (kind, currency) pairs must be distinct accounts")
	}
}

func TestGetOrCreateDefaultValidation(t *testing.T) {
	svc := newTestService(t, setupTestDB(t))
	ctx := context.Background()

	if _, err := svc.GetOrCreateDefault(ctx, nil, 0, domain.KindAsset, money.ARS); !errors.Is(err, domain.ErrInvalidAgency) {
		t.Fatalf("err = %v, want ErrInvalidAgency", err)
	}
	if _, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.AccountKind("vault"), money.ARS); !errors.Is(err, domain.ErrInvalidKind) {
		t.Fatalf("err = %v, want ErrInvalidKind", err)
	}
}

func TestDeactivatedDefaultIsNotResolvable(t *testing.T) {
	svc := newTestService(t, setupTestDB(t))
	ctx := context.Background()

	account, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindAsset, money.ARS)
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	if err := svc.Deactivate(ctx, account.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindAsset, money.ARS); !errors.Is(err, domain.ErrInactiveResource) {
		t.Fatalf("err = %v, want ErrInactiveResource", err)
	}

	// The row survives; only new activity is blocked.
	got, err := svc.Get(ctx, nil, account.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Fatal("account still active after deactivation")
	}
}

func TestBalanceReplaysMovements(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	account, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindAsset, money.ARS)
	if err != nil {
		t.Fatalf("create default: %v", err)
	}

	insertMovement(t, db, account.ID, ledgerdomain.TypeIncome, money.ARS, "1000", "1000")
	insertMovement(t, db, account.ID, ledgerdomain.TypeExpense, money.ARS, "400", "400")
	// Cross-currency movement contributes its stored ARS equivalent.
	insertMovement(t, db, account.ID, ledgerdomain.TypeIncome, money.USD, "10", "11500")

	balance, err := svc.Balance(ctx, account.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if want := decimal.RequireFromString("12100"); !balance.Equal(want) {
		t.Fatalf("balance = %s, want %s", balance, want)
	}
}

func TestBalancesBatchMatchesSingleCalls(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	ars, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindAsset, money.ARS)
	if err != nil {
		t.Fatalf("ars default: %v", err)
	}
	usd, err := svc.GetOrCreateDefault(ctx, nil, testAgency, domain.KindAsset, money.USD)
	if err != nil {
		t.Fatalf("usd default: %v", err)
	}

	insertMovement(t, db, ars.ID, ledgerdomain.TypeIncome, money.ARS, "2500", "2500")
	insertMovement(t, db, ars.ID, ledgerdomain.TypeOperatorPayment, money.ARS, "700", "700")
	insertMovement(t, db, usd.ID, ledgerdomain.TypeIncome, money.USD, "300", "345000")
	insertMovement(t, db, usd.ID, ledgerdomain.TypeExpense, money.USD, "50", "57500")

	batch, err := svc.Balances(ctx, []snowflake.ID{ars.ID, usd.ID})
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	for _, id := range []snowflake.ID{ars.ID, usd.ID} {
		single, err := svc.Balance(ctx, id)
		if err != nil {
			t.Fatalf("single balance: %v", err)
		}
		if !batch[id].Equal(single) {
			t.Fatalf("account %s: batch %s != single %s", id, batch[id], single)
		}
	}
	if want := decimal.RequireFromString("250"); !batch[usd.ID].Equal(want) {
		t.Fatalf("usd balance = %s, want %s", batch[usd.ID], want)
	}
}

func TestBalanceUnknownAccount(t *testing.T) {
	svc := newTestService(t, setupTestDB(t))

	_, err := svc.Balance(context.Background(), snowflake.ID(999))
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}
