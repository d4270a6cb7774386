package attachment

import (
	"github.com/smallbiznis/glazeops/internal/attachment/repository"
	"github.com/smallbiznis/glazeops/internal/attachment/service"
	"github.com/smallbiznis/glazeops/internal/attachment/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("attachment.service",
	fx.Provide(repository.Provide),
	fx.Provide(storage.NewS3Store),
	fx.Provide(service.New),
)
