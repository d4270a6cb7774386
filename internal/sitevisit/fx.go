package sitevisit

import (
	"github.com/smallbiznis/glazeops/internal/sitevisit/repository"
	"github.com/smallbiznis/glazeops/internal/sitevisit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sitevisit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
