package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRouteTemplate(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/token/", "/api/token/"},
		{"/api/students/", "/api/students/"},
		{"/api/students/42/", "/api/students/{id}/"},
		{"/api/students/42", "/api/students/{id}"},
		{"/api/faculty/7/add_student/", "/api/faculty/{id}/add_student/"},
		{"/api/a/1/2/", "/api/a/{id}/{id}/"},
		{"/api/v2beta/", "/api/v2beta/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := RouteTemplate(tt.path); got != tt.want {
				t.Errorf("RouteTemplate(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(clientRequestsTotal.WithLabelValues("GET", "/api/students/{id}/", "404"))

	RecordRequest("GET", "/api/students/9/", 404, 10*time.Millisecond)
	RecordRequest("GET", "/api/students/10/", 404, 10*time.Millisecond)

	after := testutil.ToFloat64(clientRequestsTotal.WithLabelValues("GET", "/api/students/{id}/", "404"))
	if after-before != 2 {
		t.Errorf("requests counter grew by %v, want 2", after-before)
	}

	RecordRequest("POST", "/api/token/", 0, time.Millisecond)
	if got := testutil.ToFloat64(clientRequestsTotal.WithLabelValues("POST", "/api/token/", "network")); got < 1 {
		t.Errorf("network-failure counter = %v, want >= 1", got)
	}
}

func TestRecordRefreshAndLogin(t *testing.T) {
	before := testutil.ToFloat64(tokenRefreshTotal.WithLabelValues(RefreshFailure))
	RecordRefresh(RefreshFailure)
	if got := testutil.ToFloat64(tokenRefreshTotal.WithLabelValues(RefreshFailure)); got != before+1 {
		t.Errorf("refresh failure counter = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(loginTotal.WithLabelValues(LoginSuccess))
	RecordLogin(LoginSuccess)
	if got := testutil.ToFloat64(loginTotal.WithLabelValues(LoginSuccess)); got != before+1 {
		t.Errorf("login success counter = %v, want %v", got, before+1)
	}
}
