package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/roomledger/internal/audit"
	"github.com/smallbiznis/roomledger/internal/clock"
	"github.com/smallbiznis/roomledger/internal/config"
	"github.com/smallbiznis/roomledger/internal/invoice"
	"github.com/smallbiznis/roomledger/internal/observability"
	"github.com/smallbiznis/roomledger/internal/scheduler"
	"github.com/smallbiznis/roomledger/pkg/db"
	"go.uber.org/fx"
)

// Standalone sweep worker for deployments that scale the HTTP server
// separately from background jobs. The monolith in cmd/roomledger runs
// the same scheduler in-process.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		audit.Module,
		invoice.Module,
		scheduler.Module,
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
