package payment

import (
	"go.uber.org/fx"

	"github.com/tometh04/vibook-accounting/internal/payment/service"
)

var Module = fx.Module("payment.service",
	fx.Provide(service.NewService),
)
