// @title           Vibook Accounting API
// @version         1.0
// @description     Multi-tenant accounting core for travel agencies

// @host      localhost:8080
// @BasePath  /api
// @Schemes 	http https

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tometh04/vibook-accounting/internal/account"
	"github.com/tometh04/vibook-accounting/internal/cashbox"
	"github.com/tometh04/vibook-accounting/internal/clock"
	"github.com/tometh04/vibook-accounting/internal/commission"
	"github.com/tometh04/vibook-accounting/internal/config"
	"github.com/tometh04/vibook-accounting/internal/events"
	"github.com/tometh04/vibook-accounting/internal/exchangerate"
	"github.com/tometh04/vibook-accounting/internal/ledger"
	"github.com/tometh04/vibook-accounting/internal/migration"
	"github.com/tometh04/vibook-accounting/internal/observability/logger"
	"github.com/tometh04/vibook-accounting/internal/payment"
	"github.com/tometh04/vibook-accounting/internal/scheduler"
	"github.com/tometh04/vibook-accounting/internal/seed"
	"github.com/tometh04/vibook-accounting/internal/server"
	"github.com/tometh04/vibook-accounting/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		fx.Provide(events.NewOutbox),
		fx.Invoke(RunMigrations),
		fx.Invoke(SeedDevData),

		exchangerate.Module,
		account.Module,
		ledger.Module,
		commission.Module,
		payment.Module,
		cashbox.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server, engine *gin.Engine) {
			s.RegisterAPIRoutes(engine)
		}),
		fx.Invoke(server.RunHTTP),

		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func SeedDevData(cfg config.Config, gdb *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
	if cfg.IsProduction() {
		return nil
	}
	if err := seed.EnsureDevAgency(gdb, node); err != nil {
		return err
	}
	log.Info("development agency seeded", zap.Int64("agency_id", int64(seed.DevAgencyID)))
	return nil
}

func RunMigrations(gdb *gorm.DB, log *zap.Logger) error {
	conn, err := gdb.DB()
	if err != nil {
		return err
	}
	if err := migration.RunMigrations(conn); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
