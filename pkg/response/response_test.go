package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/campusdesk/portal/pkg/errors"
	"github.com/gin-gonic/gin"
)

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, `{"detail":"Resource not found"}`},
		{"fields", &apperrors.AppError{Status: 400, Fields: map[string]string{"gender": "bad"}}, http.StatusBadRequest, `{"gender":["bad"]}`},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, `{"detail":"A server error occurred."}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Error(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var got, want any
			_ = json.Unmarshal(w.Body.Bytes(), &got)
			_ = json.Unmarshal([]byte(tt.wantBody), &want)
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("body = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

// The college API's 422 body is read back by the client's error mapping.
func TestValidationError_RoundTripsThroughFromStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ValidationError(c, http.StatusUnprocessableEntity, map[string]string{"email": "invalid"})

	got := apperrors.FromStatus(w.Code, w.Body.Bytes())
	if got.Fields["email"] != "invalid" {
		t.Errorf("Fields[email] = %q, want %q", got.Fields["email"], "invalid")
	}
}
