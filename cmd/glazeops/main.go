package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/glazeops/internal/clock"
	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/smallbiznis/glazeops/internal/migration"
	"github.com/smallbiznis/glazeops/internal/observability"
	"github.com/smallbiznis/glazeops/internal/server"
	"github.com/smallbiznis/glazeops/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema must exist before the auth module seeds the bootstrap admin.
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
