package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tvusvet/backend/internal/config"
	"github.com/tvusvet/backend/internal/domain/records"
	"github.com/tvusvet/backend/internal/domain/templates"
	"github.com/tvusvet/backend/internal/platform/db"
	"github.com/tvusvet/backend/internal/platform/middleware"
)

const serviceName = "TVUSVET Backend"

type app struct {
	records   *records.Service
	templates *templates.Service
	pinger    db.Pinger
}

func newApp(st *store, logger zerolog.Logger) *app {
	seeder := templates.NewSeeder(st.templates, templates.DefaultCatalog(), logger)
	return &app{
		records:   records.NewService(st.patients, st.exams, st.images, logger),
		templates: templates.NewService(st.templates, seeder, logger),
		pinger:    st.pinger,
	}
}

func newServer(cfg *config.Config, logger zerolog.Logger, a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.CORS(cfg.AllowedOrigins(), cfg.AllowCredentials()))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.UploadBodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "online", "service": serviceName})
	})

	api := e.Group("/api")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	api.GET("/health", db.HealthHandler(a.pinger))

	records.NewHandler(a.records).RegisterRoutes(api)
	templates.NewHandler(a.templates).RegisterRoutes(api)
	return e
}

// serve runs e until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, e *echo.Echo, addr string, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
