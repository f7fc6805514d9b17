package container

import (
	"context"
	"fmt"
	"net"

	"github.com/gin-gonic/gin"

	"gosurv/adapters/stats/cox"
	"gosurv/app"
	"gosurv/internal"
	"gosurv/internal/api"
	"gosurv/internal/config"
	"gosurv/internal/validation"
	"gosurv/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Statistics pipeline
	Validator  ports.DesignValidator
	Fitter     *cox.Fitter
	Translator *app.ErrorTranslator
	Service    *app.SurvivalStatisticsService

	// Transport
	Handler *api.StatisticsHandler
	Server  *api.Server
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level))
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}
	c.initStatistics()
	return c, nil
}

func (c *Container) initStatistics() {
	c.Validator = validation.NewDesignValidator()
	c.Fitter = cox.NewFitter(cox.Options{
		MaxIterations: c.Config.Fitter.MaxIterations,
		Tolerance:     c.Config.Fitter.Tolerance,
	})
	c.Translator = app.NewErrorTranslator(c.Logger)
	c.Service = app.NewSurvivalStatisticsService(c.Validator, c.Fitter, c.Logger, c.Config.Batch.Workers)
	c.Logger.Debug("Fitter %s: max_iterations=%d tolerance=%g workers=%d",
		c.Fitter.Name(), c.Fitter.Options().MaxIterations, c.Fitter.Options().Tolerance, c.Config.Batch.Workers)
}

// InitServer builds the HTTP handler and server. It is only needed by the API binary.
func (c *Container) InitServer() *api.Server {
	gin.SetMode(c.Config.Server.GinMode)
	c.Handler = api.NewStatisticsHandler(c.Service, c.Translator, c.Config.Server.MaxRequestBytes)
	c.Server = api.NewServer(net.JoinHostPort("0.0.0.0", c.Config.Server.Port), c.Handler, c.Logger)
	return c.Server
}

// Shutdown stops the server if one was started and flushes the logger
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Server != nil {
		if err := c.Server.Stop(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
	}
	c.Logger.Info("Container shutdown completed")
	_ = c.Logger.Sync()
	return nil
}
