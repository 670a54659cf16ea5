package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/sieve/internal/config"
	"github.com/smallbiznis/sieve/internal/httpapi"
	"github.com/smallbiznis/sieve/internal/observability"
	"github.com/smallbiznis/sieve/internal/sieve/baseline"
	"github.com/smallbiznis/sieve/internal/sieve/service"
	"github.com/smallbiznis/sieve/pkg/db"
)

var version = "dev"

func main() {
	app := fx.New(
		observability.Module,
		config.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		service.Module,
		baseline.Module,
		httpapi.Module,
	)
	app.Run()
}
