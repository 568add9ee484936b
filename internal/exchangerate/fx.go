package exchangerate

import (
	"go.uber.org/fx"

	"github.com/tometh04/vibook-accounting/internal/exchangerate/repository"
	"github.com/tometh04/vibook-accounting/internal/exchangerate/service"
)

var Module = fx.Module("exchangerate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
