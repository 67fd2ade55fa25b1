package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prelimth/examgate/internal/capacity"
	"github.com/prelimth/examgate/internal/config"
	"github.com/prelimth/examgate/internal/examcode"
	"github.com/prelimth/examgate/internal/observability"
	obsmiddleware "github.com/prelimth/examgate/internal/observability/logger"
	obsmetrics "github.com/prelimth/examgate/internal/observability/metrics"
	obstracing "github.com/prelimth/examgate/internal/observability/tracing"
	"github.com/prelimth/examgate/internal/ratelimit"
	"github.com/prelimth/examgate/internal/registration"
	registrationdomain "github.com/prelimth/examgate/internal/registration/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	capacity.Module,
	examcode.Module,
	ratelimit.Module,
	registration.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
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
	engine          *gin.Engine
	cfg             config.Config
	genID           *snowflake.Node
	registrationSvc registrationdomain.Service
	limiter         *ratelimit.RegistrationLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	GenID           *snowflake.Node
	RegistrationSvc registrationdomain.Service
	Limiter         *ratelimit.RegistrationLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		genID:           p.GenID,
		registrationSvc: p.RegistrationSvc,
		limiter:         p.Limiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/registrations", s.RegistrationRateLimit(), s.CreateRegistration)
	v1.GET("/sessions/status", s.GetSessionStatus)

	v1.POST("/codes/validate", s.ValidateCode)
	v1.POST("/codes/checkin", s.CheckinCode)

	v1.GET("/users/:id/codes", s.ListUserCodes)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin")

	admin.POST("/sessions/close", s.CloseSession)
	admin.POST("/sessions/reopen", s.ReopenSession)
}
