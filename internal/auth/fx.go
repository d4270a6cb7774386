package auth

import (
	"context"

	"github.com/smallbiznis/glazeops/internal/auth/domain"
	"github.com/smallbiznis/glazeops/internal/auth/repository"
	"github.com/smallbiznis/glazeops/internal/auth/service"
	"github.com/smallbiznis/glazeops/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(token.NewIssuer),
	fx.Provide(service.New),
	fx.Invoke(registerBootstrap),
)

func registerBootstrap(lc fx.Lifecycle, svc domain.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.EnsureBootstrapAdmin(ctx)
		},
	})
}
