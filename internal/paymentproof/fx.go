package paymentproof

import (
	"github.com/smallbiznis/roomledger/internal/paymentproof/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentproof.service",
	fx.Provide(service.NewService),
)
