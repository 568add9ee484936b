package cashbox

import (
	"go.uber.org/fx"

	"github.com/tometh04/vibook-accounting/internal/cashbox/service"
)

var Module = fx.Module("cashbox.service",
	fx.Provide(service.NewService),
)
