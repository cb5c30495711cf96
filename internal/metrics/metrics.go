// Package metrics holds the Prometheus collectors recorded by the API client.
package metrics

import (
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound request metrics
	clientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_client_requests_total",
			Help: "Total number of API requests issued by the client",
		},
		[]string{"method", "path", "status"}, // status: HTTP code or "network"
	)

	clientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_client_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Session metrics
	tokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_client_token_refresh_total",
			Help: "Total number of access token refresh attempts",
		},
		[]string{"outcome"}, // outcome: success/failure/missing
	)

	loginTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_client_login_total",
			Help: "Total number of login attempts",
		},
		[]string{"outcome"}, // outcome: success/invalid_credentials/invalid_token/error
	)

	// Devserver metrics
	serverRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_devserver_requests_total",
			Help: "Total number of requests served by the devserver",
		},
		[]string{"method", "path", "status"},
	)
)

// Refresh outcomes
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshMissing = "missing"
)

// Login outcomes
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginInvalidToken       = "invalid_token"
	LoginError              = "error"
)

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// RouteTemplate replaces numeric path segments with {id} so that labels stay
// bounded: /api/students/42/ becomes /api/students/{id}/.
func RouteTemplate(path string) string {
	for numericSegment.MatchString(path) {
		path = numericSegment.ReplaceAllString(path, "/{id}$1")
	}
	return path
}

// RecordRequest records an outbound API request. status 0 means no response.
func RecordRequest(method, path string, status int, duration time.Duration) {
	route := RouteTemplate(path)
	label := "network"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	clientRequestsTotal.WithLabelValues(method, route, label).Inc()
	clientRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRefresh records a token refresh attempt
func RecordRefresh(outcome string) {
	tokenRefreshTotal.WithLabelValues(outcome).Inc()
}

// RecordLogin records a login attempt
func RecordLogin(outcome string) {
	loginTotal.WithLabelValues(outcome).Inc()
}

// RecordServed records a request handled by the devserver. route is the gin
// route template.
func RecordServed(method, route string, status int) {
	serverRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
