package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/campusdesk/portal/internal/college"
	"github.com/campusdesk/portal/internal/config"
	"github.com/campusdesk/portal/internal/httpclient"
	"github.com/campusdesk/portal/internal/observability"
	"github.com/campusdesk/portal/internal/session"
	"github.com/campusdesk/portal/internal/token"
	"github.com/campusdesk/portal/internal/tokenstore"
	apperrors "github.com/campusdesk/portal/pkg/errors"
	"go.uber.org/zap"
)

// app is one CLI invocation: a rehydrated session and the API over it
type app struct {
	api     *college.API
	session *session.Session
	store   *tokenstore.Store
	logger  *zap.Logger

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

// openBackend selects the token store backend named by the configuration
func openBackend(ctx context.Context, cfg *config.Config) (tokenstore.Backend, error) {
	switch cfg.TokenStore.Backend {
	case config.StoreRedis:
		return tokenstore.OpenRedis(ctx, cfg.RedisURL, cfg.TokenStore.Namespace)
	case config.StorePostgres:
		return tokenstore.OpenPostgres(ctx, cfg.Database.ConnectionString(), cfg.TokenStore.Namespace)
	case config.StoreMemory:
		return tokenstore.NewMemory(), nil
	default:
		return tokenstore.NewFile(cfg.TokenStore.File), nil
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return assemble(ctx, backend, cfg.API, logger, stdin, stdout, stderr), nil
}

// assemble wires store, session, HTTP client and API, then restores the
// persisted session.
func assemble(ctx context.Context, backend tokenstore.Backend, api config.APIConfig, logger *zap.Logger, stdin io.Reader, stdout, stderr io.Writer) *app {
	a := &app{
		logger: logger,
		in:     bufio.NewReader(stdin),
		out:    stdout,
		errOut: stderr,
	}

	a.store = tokenstore.New(backend, logger)
	a.session = session.New(a.store,
		session.WithDecoder(token.NewDecoder(token.WithVerifyKey(api.VerifyKey))),
		session.WithLogger(logger),
		session.WithOnReset(func() {
			fmt.Fprintln(a.errOut, apperrors.MsgSessionExpired)
		}),
	)
	a.session.Subscribe(func(user *session.Identity) {
		if user == nil {
			logger.Debug("Session is anonymous")
			return
		}
		logger.Debug("Session authenticated", zap.Int("user_id", user.UserID), zap.Bool("is_faculty", user.IsFaculty))
	})

	client := httpclient.New(api.BaseURL, a.store,
		httpclient.WithTimeout(api.Timeout),
		httpclient.WithLogger(logger),
		httpclient.WithResetter(a.session),
	)
	a.api = college.New(client, a.session, college.WithLogger(logger))

	a.session.Rehydrate(ctx)
	return a
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close token store", zap.Error(err))
	}
}

// fail prints err the way the user should see it and returns the exit code
func (a *app) fail(err error) int {
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(a.errOut, "%s\n\n%s", usageErr.msg, usage)
		return 2
	}

	observability.Capture(err)

	appErr, ok := apperrors.As(err)
	if !ok {
		a.logger.Error("Command failed", zap.Error(err))
		fmt.Fprintln(a.errOut, apperrors.MsgServerError)
		return 1
	}

	fmt.Fprintln(a.errOut, appErr.Message)
	for _, field := range sortedKeys(appErr.Fields) {
		fmt.Fprintf(a.errOut, "  %s: %s\n", field, appErr.Fields[field])
	}
	if errors.Is(err, apperrors.ErrUnauthorized) && appErr.Message != apperrors.MsgInvalidCredentials && !a.session.Authenticated() {
		fmt.Fprintln(a.errOut, "Run `portal login` to sign in again.")
	}
	return 1
}

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}
