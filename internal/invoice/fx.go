package invoice

import (
	"github.com/service-ns/paycycle/internal/invoice/repository"
	"github.com/service-ns/paycycle/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
