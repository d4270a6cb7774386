package settings

import (
	"github.com/smallbiznis/glazeops/internal/settings/repository"
	"github.com/smallbiznis/glazeops/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewAccessor),
)
