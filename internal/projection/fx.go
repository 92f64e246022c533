package projection

import (
	"github.com/service-ns/paycycle/internal/projection/service"
	"go.uber.org/fx"
)

var Module = fx.Module("projection.service",
	fx.Provide(service.NewService),
)
