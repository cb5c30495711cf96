// Package devserver is an in-memory stand-in for the college REST API, used
// for local development and as the counterpart in client tests. It mirrors
// the wire contract only; nothing is persisted.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/campusdesk/portal/internal/config"
	"github.com/campusdesk/portal/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the stand-in API
type Server struct {
	router *gin.Engine
	issuer *Issuer
	logger *zap.Logger
}

// New builds the router and seeds the directory
func New(cfg config.DevServerConfig, logger *zap.Logger, seed []SeedUser) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("devserver")

	dir := newDirectory()
	if err := dir.seed(seed); err != nil {
		return nil, err
	}

	issuer := NewIssuer(cfg.SigningKey, cfg.RefreshSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	h := NewHandler(dir, issuer, logger)

	router := gin.New()

	// Global middleware
	router.Use(middleware.CORS(middleware.ParseAllowedOrigins(cfg.AllowedOrigins)))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Public routes
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/media/profile_pics/:id/:name", h.ProfilePic)

	api := router.Group("/api")
	{
		api.POST("/token/", h.ObtainToken)
		api.POST("/token/refresh/", h.RefreshToken)

		authed := api.Group("", middleware.Auth(issuer))
		{
			authed.GET("/faculty/:id/dashboard/", h.FacultyDashboard)
			authed.POST("/faculty/:id/add_student/", h.AddStudent)

			authed.GET("/students/", h.ListStudents)
			authed.POST("/students/", h.CreateStudent)
			authed.GET("/students/:id/", h.GetStudent)
			authed.PUT("/students/:id/", h.UpdateStudent)
			authed.DELETE("/students/:id/", h.DeleteStudent)
			authed.GET("/students/:id/dashboard/", h.StudentDashboard)
			authed.POST("/students/:id/upload_profile_pic/", h.UploadProfilePic)
		}
	}

	return &Server{router: router, issuer: issuer, logger: logger}, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Issuer returns the token issuer, e.g. for minting tokens in tests
func (s *Server) Issuer() *Issuer {
	return s.issuer
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
