// Command portal is the command-line front end of the college management
// system. It keeps its session between runs in the configured token store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusdesk/portal/internal/config"
	"github.com/campusdesk/portal/internal/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(stdout, usage)
		return 0
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		logger.Warn("Sentry not initialized", zap.Error(err))
	}
	defer observability.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, logger)
		defer shutdown()
	}

	if args[0] == "devserver" {
		return runDevServer(ctx, cfg, logger, args[1:], stderr)
	}

	a, err := newApp(ctx, cfg, logger, stdin, stdout, stderr)
	if err != nil {
		logger.Error("Failed to open token store", zap.Error(err))
		fmt.Fprintf(stderr, "Failed to open token store: %v\n", err)
		return 1
	}
	defer a.close()

	return a.dispatch(ctx, args)
}

// serveMetrics exposes /metrics on addr for the lifetime of the command
func serveMetrics(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Debug("Serving metrics", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics listener stopped", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

const usage = `Usage: portal <command> [flags] [args]

Session:
  login [-u USERNAME] [-p PASSWORD]   sign in (password read from stdin if omitted)
  logout                              sign out and forget stored tokens
  whoami                              show the signed-in identity

Pages:
  dashboard                           faculty or student dashboard, by role
  student list                        list visible students
  student show ID                     show one student
  student new [form flags]            create a student (faculty only)
  student edit [form flags] ID        edit a student (faculty only)
  student delete ID                   delete a student (faculty only)
  student photo ID FILE               replace a profile picture
  faculty add-student [-faculty ID] STUDENT_ID
                                      enroll a student (faculty only)

Local API:
  devserver [-port PORT]              run the stand-in college API

Form flags: -username -password -email -first-name -last-name -dob YYYY-MM-DD
            -gender M|F|O -blood-group -contact -address -photo FILE
`
