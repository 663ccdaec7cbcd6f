package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/muhammadolammi/polypopcareers/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	// multipart boundaries and text fields on top of the resume itself
	formOverhead = 1 << 20
	// file parts beyond this are spooled to temp files
	multipartMemory = 8 << 20
)

// newRouter builds the gin engine serving the site.
func newRouter(cfg *ServerConfig) (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(cfg.Logger))
	engine.MaxMultipartMemory = multipartMemory

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	engine.SetHTMLTemplate(tmpl)

	engine.GET("/", cfg.handleHome)
	engine.GET("/careers", cfg.handleCareersForm)
	engine.POST("/careers", cfg.handleCareersSubmit)
	engine.GET("/healthz", cfg.handleHealth)
	engine.NoRoute(cfg.handleNotFound)

	return engine, nil
}

// requestLogger tags each request with an ID and logs it once it completes.
func requestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		logger.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down within
// the configured timeout and drains the dispatcher.
func (cfg *ServerConfig) serve(ctx context.Context) error {
	router, err := newRouter(cfg)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Env.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	defer cfg.Dispatcher.Close()

	errCh := make(chan error, 1)
	go func() {
		cfg.Logger.Info("listening", "addr", srv.Addr, "backend", cfg.Store.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	cfg.Logger.Info("shutting down", "timeout", cfg.Env.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Env.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
