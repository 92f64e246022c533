package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/service-ns/paycycle/internal/clock"
	"github.com/service-ns/paycycle/internal/config"
	"github.com/service-ns/paycycle/internal/migration"
	"github.com/service-ns/paycycle/internal/observability"
	"github.com/service-ns/paycycle/internal/sequence"
	"github.com/service-ns/paycycle/internal/server"
	"github.com/service-ns/paycycle/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		sequence.Module,

		// HTTP surface, pulls in the domain modules
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
