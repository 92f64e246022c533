package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/service-ns/paycycle/internal/config"
	"github.com/service-ns/paycycle/internal/cycle"
	cycledomain "github.com/service-ns/paycycle/internal/cycle/domain"
	"github.com/service-ns/paycycle/internal/invoice"
	invoicedomain "github.com/service-ns/paycycle/internal/invoice/domain"
	"github.com/service-ns/paycycle/internal/observability"
	obslogger "github.com/service-ns/paycycle/internal/observability/logger"
	obsmetrics "github.com/service-ns/paycycle/internal/observability/metrics"
	obstracing "github.com/service-ns/paycycle/internal/observability/tracing"
	"github.com/service-ns/paycycle/internal/projection"
	projectiondomain "github.com/service-ns/paycycle/internal/projection/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	invoice.Module,
	cycle.Module,
	projection.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	invoiceSvc    invoicedomain.Service
	cycleSvc      cycledomain.Service
	projectionSvc projectiondomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	InvoiceSvc    invoicedomain.Service
	CycleSvc      cycledomain.Service
	ProjectionSvc projectiondomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		invoiceSvc:    p.InvoiceSvc,
		cycleSvc:      p.CycleSvc,
		projectionSvc: p.ProjectionSvc,
	}

	s.engine.GET("/db-ping", s.dbPing)
	s.registerAPIRoutes()
	return s
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(CallerIdentityMiddleware())

	api.POST("/invoices", s.createInvoice)
	api.GET("/invoices", s.listInvoices)
	api.GET("/invoices/:id", s.getInvoice)
	api.POST("/invoices/:id/history", s.recordHistoryEntry)

	api.POST("/history/:row_id/source", s.setSourceAnnotation)
	api.POST("/history/:row_id/status", s.setPaymentStatus)
	api.POST("/cycles/:id/source", s.setCycleSourceAnnotation)

	api.GET("/history", s.listHistory)
}

func (s *Server) dbPing(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		AbortWithError(c, ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
