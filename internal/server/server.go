package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	cashboxdomain "github.com/tometh04/vibook-accounting/internal/cashbox/domain"
	commissiondomain "github.com/tometh04/vibook-accounting/internal/commission/domain"
	"github.com/tometh04/vibook-accounting/internal/config"
	exchangeratedomain "github.com/tometh04/vibook-accounting/internal/exchangerate/domain"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	"github.com/tometh04/vibook-accounting/internal/observability/logger"
	"github.com/tometh04/vibook-accounting/internal/observability/metrics"
	paymentdomain "github.com/tometh04/vibook-accounting/internal/payment/domain"
)

// Server exposes the accounting core over HTTP. All business rules live in
// the domain services; handlers only bind, delegate and translate errors.
type Server struct {
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	rateSvc    exchangeratedomain.Service
	accountSvc accountdomain.Service
	ledgerSvc  ledgerdomain.Service
	commSvc    commissiondomain.Service
	paymentSvc paymentdomain.Service
	cashboxSvc cashboxdomain.Service
}

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	RateSvc    exchangeratedomain.Service
	AccountSvc accountdomain.Service
	LedgerSvc  ledgerdomain.Service
	CommSvc    commissiondomain.Service
	PaymentSvc paymentdomain.Service
	CashboxSvc cashboxdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:        p.Config,
		log:        p.Log.Named("server"),
		db:         p.DB,
		rateSvc:    p.RateSvc,
		accountSvc: p.AccountSvc,
		ledgerSvc:  p.LedgerSvc,
		commSvc:    p.CommSvc,
		paymentSvc: p.PaymentSvc,
		cashboxSvc: p.CashboxSvc,
	}
}

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Log:       log,
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metricsMiddleware())
	return engine
}

func metricsMiddleware() gin.HandlerFunc {
	m := metrics.Accounting()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTPRequest(route, http.StatusText(c.Writer.Status()), time.Since(start))
	}
}

// RegisterAPIRoutes mounts the accounting API under /api. Every route below
// the group requires the tenant headers.
func (s *Server) RegisterAPIRoutes(engine *gin.Engine) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.Use(s.TenantContext())

	api.POST("/exchange-rates", s.PutExchangeRate)
	api.GET("/exchange-rates/resolve", s.ResolveExchangeRate)

	api.GET("/accounts/:id", s.GetAccount)
	api.POST("/accounts/:id/deactivate", s.DeactivateAccount)
	api.GET("/accounts/:id/balance", s.GetBalance)
	api.POST("/accounts/balances", s.GetBalances)

	api.POST("/movements", s.RecordMovement)
	api.GET("/accounts/:id/movements", s.ListMovements)

	api.POST("/commission-schemes", s.CreateCommissionScheme)
	api.GET("/commission-schemes/:id", s.GetCommissionScheme)
	api.POST("/commission-schemes/:id/compute", s.ComputeCommission)
	api.POST("/commissions", s.CreateCommission)
	api.POST("/commissions/:id/pay", s.PayCommission)
	api.POST("/commissions/:id/revert", s.RevertCommission)

	api.POST("/payments", s.CreatePayment)
	api.GET("/payments/:id", s.GetPayment)
	api.POST("/payments/:id/pay", s.MarkPaymentPaid)
	api.POST("/payments/:id/revert", s.RevertPayment)
	api.POST("/payments/sweep-overdue", s.SweepOverduePayments)
	api.POST("/maintenance/repair-unlinked", s.RepairUnlinkedPayments)

	api.POST("/cash-boxes/default", s.GetOrCreateDefaultCashBox)
	api.GET("/cash-boxes/:id", s.GetCashBox)
	api.POST("/cash-boxes/:id/deactivate", s.DeactivateCashBox)
	api.POST("/cash-transfers", s.CreateCashTransfer)
}

// RunHTTP starts the HTTP listener on the fx lifecycle and drains it on
// shutdown within the configured timeout.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
