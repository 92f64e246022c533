package cycle

import (
	"github.com/service-ns/paycycle/internal/cycle/repository"
	"github.com/service-ns/paycycle/internal/cycle/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cycle.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
