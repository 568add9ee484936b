package account

import (
	"go.uber.org/fx"

	"github.com/tometh04/vibook-accounting/internal/account/repository"
	"github.com/tometh04/vibook-accounting/internal/account/service"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
