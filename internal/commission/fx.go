package commission

import (
	"go.uber.org/fx"

	"github.com/tometh04/vibook-accounting/internal/commission/service"
)

var Module = fx.Module("commission.service",
	fx.Provide(service.NewService),
)
