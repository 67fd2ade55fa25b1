package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/prelimth/examgate/internal/clock"
	"github.com/prelimth/examgate/internal/config"
	"github.com/prelimth/examgate/internal/migration"
	"github.com/prelimth/examgate/internal/observability"
	"github.com/prelimth/examgate/internal/server"
	"github.com/prelimth/examgate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
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
