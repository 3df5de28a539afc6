package rateconfig

import (
	"github.com/smallbiznis/roomledger/internal/rateconfig/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rateconfig.service",
	fx.Provide(service.NewService),
)
