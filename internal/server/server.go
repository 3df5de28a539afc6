// Package server wires the HTTP surface over gin.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/roomledger/internal/audit"
	auditdomain "github.com/smallbiznis/roomledger/internal/audit/domain"
	"github.com/smallbiznis/roomledger/internal/config"
	"github.com/smallbiznis/roomledger/internal/invoice"
	invoicedomain "github.com/smallbiznis/roomledger/internal/invoice/domain"
	"github.com/smallbiznis/roomledger/internal/invoice/render"
	"github.com/smallbiznis/roomledger/internal/observability"
	obsmiddleware "github.com/smallbiznis/roomledger/internal/observability/logger"
	obstracing "github.com/smallbiznis/roomledger/internal/observability/tracing"
	"github.com/smallbiznis/roomledger/internal/paymentproof"
	proofdomain "github.com/smallbiznis/roomledger/internal/paymentproof/domain"
	"github.com/smallbiznis/roomledger/internal/rateconfig"
	rateconfigdomain "github.com/smallbiznis/roomledger/internal/rateconfig/domain"
	"github.com/smallbiznis/roomledger/internal/tenant"
	tenantdomain "github.com/smallbiznis/roomledger/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	audit.Module,
	tenant.Module,
	rateconfig.Module,
	invoice.Module,
	paymentproof.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config

	auditSvc      auditdomain.Service
	invoiceSvc    invoicedomain.Service
	tenantSvc     tenantdomain.Service
	rateConfigSvc rateconfigdomain.Service
	proofSvc      proofdomain.Service
	renderer      *render.Renderer
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	AuditSvc      auditdomain.Service
	InvoiceSvc    invoicedomain.Service
	TenantSvc     tenantdomain.Service
	RateConfigSvc rateconfigdomain.Service
	ProofSvc      proofdomain.Service
	Renderer      *render.Renderer
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		auditSvc:      p.AuditSvc,
		invoiceSvc:    p.InvoiceSvc,
		tenantSvc:     p.TenantSvc,
		rateConfigSvc: p.RateConfigSvc,
		proofSvc:      p.ProofSvc,
		renderer:      p.Renderer,
	}

	svc.registerAdminRoutes()
	svc.registerPortalRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	// -------- Rates --------
	admin.GET("/rates", s.GetRates)
	admin.PUT("/rates", s.UpdateRates)

	// -------- Tenants --------
	admin.GET("/tenants", s.ListTenants)
	admin.GET("/tenants/:id", s.GetTenantByID)

	// -------- Invoices --------
	admin.POST("/invoices/generate", s.GenerateInvoice)
	admin.GET("/invoices", s.ListInvoices)
	admin.GET("/invoices/:id", s.GetInvoiceByID)
	admin.PUT("/invoices/:id", s.UpdateInvoice)
	admin.GET("/invoices/:id/pdf", s.RenderInvoicePDF)
	admin.POST("/invoices/:ref/payments", s.RecordPayment)

	// -------- Billing periods --------
	admin.GET("/periods/next", s.NextPeriod)
}

func (s *Server) registerPortalRoutes() {
	portal := s.engine.Group("/portal")

	portal.POST("/payment-proofs", s.SubmitPaymentProof)
	portal.GET("/payment-proofs", s.ListPaymentProofs)
}
