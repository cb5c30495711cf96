package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/campusdesk/portal/internal/config"
	"github.com/campusdesk/portal/internal/devserver"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// runDevServer serves the stand-in college API until interrupted
func runDevServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	fs.SetOutput(stderr)
	port := fs.String("port", cfg.DevServer.Port, "listen port")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := devserver.New(cfg.DevServer, logger, devserver.DefaultSeed())
	if err != nil {
		logger.Error("Failed to build devserver", zap.Error(err))
		return 1
	}

	logger.Info("Starting devserver", zap.String("port", *port))
	if err := srv.Run(ctx, fmt.Sprintf(":%s", *port)); err != nil {
		logger.Error("Devserver stopped", zap.Error(err))
		return 1
	}

	logger.Info("Devserver stopped")
	return 0
}
