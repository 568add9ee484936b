package ledger

import (
	"go.uber.org/fx"

	"github.com/tometh04/vibook-accounting/internal/ledger/service"
)

var Module = fx.Module("ledger.service",
	fx.Provide(service.NewService),
)
