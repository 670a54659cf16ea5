package repository

import "go.uber.org/fx"

var Module = fx.Module("sieve.repository",
	fx.Provide(New),
)
