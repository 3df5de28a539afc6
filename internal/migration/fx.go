package migration

import (
	auditdomain "github.com/smallbiznis/roomledger/internal/audit/domain"
	"github.com/smallbiznis/roomledger/internal/config"
	invoicedomain "github.com/smallbiznis/roomledger/internal/invoice/domain"
	proofdomain "github.com/smallbiznis/roomledger/internal/paymentproof/domain"
	rateconfigdomain "github.com/smallbiznis/roomledger/internal/rateconfig/domain"
	"github.com/smallbiznis/roomledger/internal/seed"
	tenantdomain "github.com/smallbiznis/roomledger/internal/tenant/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&tenantdomain.Room{},
				&tenantdomain.Tenant{},
				&rateconfigdomain.RateConfig{},
				&invoicedomain.Invoice{},
				&proofdomain.PaymentProof{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultRates(conn, cfg)
	}),
)
