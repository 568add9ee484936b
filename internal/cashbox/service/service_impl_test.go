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

	accountrepo "github.com/tometh04/vibook-accounting/internal/account/repository"
	accountservice "github.com/tometh04/vibook-accounting/internal/account/service"
	cashboxdomain "github.com/tometh04/vibook-accounting/internal/cashbox/domain"
	"github.com/tometh04/vibook-accounting/internal/clock"
	"github.com/tometh04/vibook-accounting/internal/config"
	"github.com/tometh04/vibook-accounting/internal/events"
	exchangeratedomain "github.com/tometh04/vibook-accounting/internal/exchangerate/domain"
	exchangeraterepo "github.com/tometh04/vibook-accounting/internal/exchangerate/repository"
	exchangerateservice "github.com/tometh04/vibook-accounting/internal/exchangerate/service"
	ledgerservice "github.com/tometh04/vibook-accounting/internal/ledger/service"
	"github.com/tometh04/vibook-accounting/internal/migration"
	"github.com/tometh04/vibook-accounting/internal/money"
)

const testAgency snowflake.ID = 21

var testInstant = time.Date(2025, time.July, 3, 11, 0, 0, 0, time.UTC)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  cashboxdomain.Service
}

func setupFixture(t *testing.T) fixture {
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

	node, err := snowflake.NewNode(7)
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
	recorder := ledgerservice.NewService(ledgerservice.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		AccountSvc: accountSvc,
		Resolver:   resolver,
		Outbox:     outbox,
		Clock:      clk,
	})
	svc := NewService(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Recorder: recorder,
		Resolver: resolver,
		Outbox:   outbox,
		Clock:    clk,
	})
	return fixture{db: db, node: node, svc: svc}
}

func (f fixture) newBox(t *testing.T, name string, currency money.Currency, balance string) *cashboxdomain.CashBox {
	t.Helper()
	box := &cashboxdomain.CashBox{
		ID:             f.node.Generate(),
		AgencyID:       testAgency,
		Name:           name,
		Currency:       currency,
		InitialBalance: decimal.RequireFromString(balance),
		CurrentBalance: decimal.RequireFromString(balance),
		Active:         true,
		CreatedAt:      testInstant,
	}
	if err := f.db.Create(box).Error; err != nil {
		t.Fatalf("insert box %s: %v", name, err)
	}
	return box
}

func (f fixture) balance(t *testing.T, boxID snowflake.ID) decimal.Decimal {
	t.Helper()
	box, err := f.svc.Get(context.Background(), boxID)
	if err != nil {
		t.Fatalf("get box: %v", err)
	}
	return box.CurrentBalance
}

func TestTransferSameCurrencyMovesWholeBalance(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	from := f.newBox(t, "front desk", money.ARS, "500")
	to := f.newBox(t, "safe", money.ARS, "0")

	transfer, err := f.svc.Transfer(ctx, cashboxdomain.TransferParams{
		AgencyID:  testAgency,
		FromBoxID: from.ID,
		ToBoxID:   to.ID,
		Amount:    decimal.RequireFromString("500"),
		Currency:  money.ARS,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if transfer.Status != cashboxdomain.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", transfer.Status)
	}

	if got := f.balance(t, from.ID); !got.IsZero() {
		t.Fatalf("source balance = %s, want 0", got)
	}
	if got := f.balance(t, to.ID); !got.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("destination balance = %s, want 500", got)
	}

	var movements, cashRows int64
	f.db.Table("ledger_movements").Where("type = 'TRANSFER'").Count(&movements)
	f.db.Table("cash_movements").Count(&cashRows)
	if movements != 2 || cashRows != 2 {
		t.Fatalf("movements=%d cash=%d, want 2 and 2", movements, cashRows)
	}
}

func TestTransferInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	from := f.newBox(t, "front desk", money.ARS, "500")
	to := f.newBox(t, "safe", money.ARS, "0")

	_, err := f.svc.Transfer(ctx, cashboxdomain.TransferParams{
		AgencyID:  testAgency,
		FromBoxID: from.ID,
		ToBoxID:   to.ID,
		Amount:    decimal.RequireFromString("500.01"),
		Currency:  money.ARS,
	})
	if !errors.Is(err, cashboxdomain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	if got := f.balance(t, from.ID); !got.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("source balance = %s, want unchanged 500", got)
	}
	if got := f.balance(t, to.ID); !got.IsZero() {
		t.Fatalf("destination balance = %s, want unchanged 0", got)
	}
	var transfers, movements int64
	f.db.Table("cash_transfers").Count(&transfers)
	f.db.Table("ledger_movements").Count(&movements)
	if transfers != 0 || movements != 0 {
		t.Fatalf("transfers=%d movements=%d, want none recorded", transfers, movements)
	}
}

func TestTransferCrossCurrencyConvertsWithExplicitRate(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	from := f.newBox(t, "pesos", money.ARS, "20000")
	to := f.newBox(t, "dollars", money.USD, "0")

	rate := decimal.RequireFromString("1000")
	transfer, err := f.svc.Transfer(ctx, cashboxdomain.TransferParams{
		AgencyID:  testAgency,
		FromBoxID: from.ID,
		ToBoxID:   to.ID,
		Amount:    decimal.RequireFromString("10000"),
		Currency:  money.ARS,
		Rate:      &rate,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if transfer.ExchangeRate == nil || !transfer.ExchangeRate.Equal(rate) {
		t.Fatalf("stored rate = %v, want 1000", transfer.ExchangeRate)
	}

	if got := f.balance(t, from.ID); !got.Equal(decimal.RequireFromString("10000")) {
		t.Fatalf("source balance = %s, want 10000", got)
	}
	if got := f.balance(t, to.ID); !got.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("destination balance = %s, want 10", got)
	}
}

func TestTransferCrossCurrencyResolvesRateWhenOmitted(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	if err := f.db.Exec(
		`INSERT INTO exchange_rates (id, agency_id, rate_date, rate) VALUES (?, ?, ?, ?)`,
		f.node.Generate(), testAgency, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), "1250",
	).Error; err != nil {
		t.Fatalf("insert rate: %v", err)
	}
	from := f.newBox(t, "dollars", money.USD, "100")
	to := f.newBox(t, "pesos", money.ARS, "0")

	_, err := f.svc.Transfer(ctx, cashboxdomain.TransferParams{
		AgencyID:  testAgency,
		FromBoxID: from.ID,
		ToBoxID:   to.ID,
		Amount:    decimal.RequireFromString("10"),
		Currency:  money.USD,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := f.balance(t, to.ID); !got.Equal(decimal.RequireFromString("12500")) {
		t.Fatalf("destination balance = %s, want 12500", got)
	}
}

func TestTransferRejectsBadRequests(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	ars := f.newBox(t, "pesos", money.ARS, "1000")
	usd := f.newBox(t, "dollars", money.USD, "1000")
	closed := f.newBox(t, "retired", money.ARS, "0")
	if err := f.svc.Deactivate(ctx, closed.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	cases := []struct {
		name   string
		params cashboxdomain.TransferParams
		want   error
	}{
		{
			name: "same box",
			params: cashboxdomain.TransferParams{
				AgencyID: testAgency, FromBoxID: ars.ID, ToBoxID: ars.ID,
				Amount: decimal.NewFromInt(10), Currency: money.ARS,
			},
			want: cashboxdomain.ErrSameBox,
		},
		{
			name: "currency differs from source box",
			params: cashboxdomain.TransferParams{
				AgencyID: testAgency, FromBoxID: ars.ID, ToBoxID: usd.ID,
				Amount: decimal.NewFromInt(10), Currency: money.USD,
			},
			want: cashboxdomain.ErrCurrencyMismatch,
		},
		{
			name: "inactive destination",
			params: cashboxdomain.TransferParams{
				AgencyID: testAgency, FromBoxID: ars.ID, ToBoxID: closed.ID,
				Amount: decimal.NewFromInt(10), Currency: money.ARS,
			},
			want: cashboxdomain.ErrInactiveResource,
		},
		{
			name: "zero amount",
			params: cashboxdomain.TransferParams{
				AgencyID: testAgency, FromBoxID: ars.ID, ToBoxID: usd.ID,
				Amount: decimal.Zero, Currency: money.ARS,
			},
			want: cashboxdomain.ErrInvalidAmount,
		},
		{
			name: "unknown box",
			params: cashboxdomain.TransferParams{
				AgencyID: testAgency, FromBoxID: ars.ID, ToBoxID: snowflake.ID(404),
				Amount: decimal.NewFromInt(10), Currency: money.ARS,
			},
			want: cashboxdomain.ErrBoxNotFound,
		},
		{
			name: "zero rate",
			params: cashboxdomain.TransferParams{
				AgencyID: testAgency, FromBoxID: ars.ID, ToBoxID: usd.ID,
				Amount: decimal.NewFromInt(10), Currency: money.ARS,
				Rate: decPtr("0"),
			},
			want: exchangeratedomain.ErrInvalidRate,
		},
		{
			name: "negative rate",
			params: cashboxdomain.TransferParams{
				AgencyID: testAgency, FromBoxID: ars.ID, ToBoxID: usd.ID,
				Amount: decimal.NewFromInt(10), Currency: money.ARS,
				Rate: decPtr("-1000"),
			},
			want: exchangeratedomain.ErrInvalidRate,
		},
	}
	for _, tc := range cases {
		if _, err := f.svc.Transfer(ctx, tc.params); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestTransferBalanceMatchesDecimalReplay(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	from := f.newBox(t, "front desk", money.ARS, "500")
	to := f.newBox(t, "safe", money.ARS, "0")

	// Fractional amounts that have no exact float representation; the cached
	// balance must still land on the exact decimal sum.
	for i := 0; i < 3; i++ {
		if _, err := f.svc.Transfer(ctx, cashboxdomain.TransferParams{
			AgencyID:  testAgency,
			FromBoxID: from.ID,
			ToBoxID:   to.ID,
			Amount:    decimal.RequireFromString("0.1"),
			Currency:  money.ARS,
		}); err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
	}

	if got := f.balance(t, from.ID); !got.Equal(decimal.RequireFromString("499.7")) {
		t.Fatalf("source balance = %s, want exactly 499.7", got)
	}
	if got := f.balance(t, to.ID); !got.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("destination balance = %s, want exactly 0.3", got)
	}
}

func TestGetOrCreateDefaultBoxIsIdempotent(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetOrCreateDefault(ctx, testAgency, money.ARS)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := f.svc.GetOrCreateDefault(ctx, testAgency, money.ARS)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %s vs %s", first.ID, second.ID)
	}
}
