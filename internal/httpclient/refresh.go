package httpclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/campusdesk/portal/internal/metrics"
	"github.com/campusdesk/portal/internal/token"
	apperrors "github.com/campusdesk/portal/pkg/errors"
	"go.uber.org/zap"
)

var errNoRefreshToken = errors.New("no refresh token stored")

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// refresh obtains a new access token. Concurrent callers share one in-flight
// refresh. staleToken is the access token the failed request carried; if the
// store already holds a different one, another request refreshed first and
// the caller only needs to replay.
func (c *Client) refresh(ctx context.Context, staleToken string) error {
	_, err, _ := c.refreshes.Do("refresh", func() (any, error) {
		if current, ok := c.store.Get(ctx, token.KeyAccess); ok && current != "" && current != staleToken {
			return nil, nil
		}
		return nil, c.doRefresh(context.WithoutCancel(ctx))
	})
	return err
}

func (c *Client) doRefresh(ctx context.Context) error {
	refreshToken, ok := c.store.Get(ctx, token.KeyRefresh)
	if !ok || refreshToken == "" {
		metrics.RecordRefresh(metrics.RefreshMissing)
		return c.failRefresh(ctx, errNoRefreshToken)
	}

	var pair token.Pair
	r := &request{
		method:      http.MethodPost,
		path:        RefreshPath,
		contentType: "application/json",
		out:         &pair,
		skipAuth:    true,
	}
	payload, _, err := encodeBody(refreshRequest{Refresh: refreshToken})
	if err != nil {
		metrics.RecordRefresh(metrics.RefreshFailure)
		return c.failRefresh(ctx, err)
	}
	r.payload = payload

	if err := c.send(ctx, r, 0); err != nil {
		metrics.RecordRefresh(metrics.RefreshFailure)
		return c.failRefresh(ctx, err)
	}
	if pair.Access == "" {
		metrics.RecordRefresh(metrics.RefreshFailure)
		return c.failRefresh(ctx, errors.New("refresh response carried no access token"))
	}

	c.store.Set(ctx, token.KeyAccess, pair.Access)
	if pair.Refresh != "" {
		c.store.Set(ctx, token.KeyRefresh, pair.Refresh)
	}

	metrics.RecordRefresh(metrics.RefreshSuccess)
	c.logger.Info("access token refreshed", zap.Bool("rotated", pair.Refresh != ""))
	return nil
}

// failRefresh clears every token, resets the session and returns the
// UNAUTHORIZED error the original caller sees.
func (c *Client) failRefresh(ctx context.Context, cause error) error {
	c.logger.Warn("token refresh failed, clearing session", zap.Error(cause))

	c.store.Clear(ctx, token.AllKeys...)
	if c.resetter != nil {
		c.resetter.Reset(ctx)
	}
	return apperrors.Unauthorized(apperrors.NetworkRefresh(cause))
}
