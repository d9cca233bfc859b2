package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes"

	"github.com/customeros/lexsync/api"
	"github.com/customeros/lexsync/config"
	"github.com/customeros/lexsync/internal/cron"
	"github.com/customeros/lexsync/internal/logger"
	"github.com/customeros/lexsync/internal/tracing"
	"github.com/customeros/lexsync/services"
)

const shutdownTimeout = 15 * time.Second

// Server runs the import scheduler next to the health and metrics endpoints.
type Server struct {
	config     *config.Config
	log        logger.Logger
	services   *services.Services
	cron       *cron.CronManager
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg *config.Config, svcs *services.Services, log logger.Logger, k8s kubernetes.Interface) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	api.RegisterRoutes(router, cfg.AppConfig.ServiceName, svcs.Registry)

	return &Server{
		config:   cfg,
		log:      log,
		services: svcs,
		cron:     cron.NewCronManager(cfg.CronConfig, cfg.AppConfig.PodName, log, k8s, svcs.Importer),
		router:   router,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerConfig.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run blocks until ctx is cancelled, SIGINT/SIGTERM arrives or the HTTP listener fails.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.cron.Start(ctx, s.config.AppConfig.Namespace); err != nil {
		return errors.Wrap(err, "start scheduler")
	}

	listenErr := make(chan error, 1)
	go func() {
		defer tracing.RecoverAndLogToJaeger(s.log)
		s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()
	s.log.Info("lexsync scheduler is running")

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("Shutting down...")
	case err, ok := <-listenErr:
		if ok {
			s.log.Error("HTTP server error", zap.Error(err))
			runErr = errors.Wrap(err, "http server")
		}
	}

	s.shutdown()
	return runErr
}

func (s *Server) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Waits for a running cycle to finish
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.cron.Stop()
	}()
	select {
	case <-stopped:
		s.log.Info("Scheduler stopped")
	case <-shutdownCtx.Done():
		s.log.Warn("Scheduler stop timed out, forcing exit")
	}
}
