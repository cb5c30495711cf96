package college

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/campusdesk/portal/internal/config"
	"github.com/campusdesk/portal/internal/devserver"
	"github.com/campusdesk/portal/internal/httpclient"
	"github.com/campusdesk/portal/internal/session"
	"github.com/campusdesk/portal/internal/token"
	"github.com/campusdesk/portal/internal/tokenstore"
	apperrors "github.com/campusdesk/portal/pkg/errors"
	"github.com/gin-gonic/gin"
)

type harness struct {
	api     *API
	store   *tokenstore.Store
	session *session.Session
	resets  *atomic.Int32
}

func newHarness(t *testing.T, handler http.Handler) *harness {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	resets := &atomic.Int32{}
	store := tokenstore.New(tokenstore.NewMemory(), nil)
	sess := session.New(store, session.WithOnReset(func() { resets.Add(1) }))
	client := httpclient.New(ts.URL, store, httpclient.WithResetter(sess))

	return &harness{api: New(client, sess), store: store, session: sess, resets: resets}
}

func newDevHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv, err := devserver.New(config.DevServerConfig{
		SigningKey:        "college-test-signing-key-32-chars!!",
		RefreshSigningKey: "college-test-refresh-key-32-chars!!",
		AccessTTL:         time.Hour,
		RefreshTTL:        time.Hour,
		AllowedOrigins:    "*",
	}, nil, devserver.DefaultSeed())
	if err != nil {
		t.Fatalf("devserver.New() failed: %v", err)
	}
	return newHarness(t, srv.Handler())
}

func (h *harness) login(t *testing.T, username, password string) *session.Identity {
	t.Helper()
	user, err := h.api.Login(context.Background(), Credentials{Username: username, Password: password})
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", username, err)
	}
	return user
}

func TestLogin_FacultyScenario(t *testing.T) {
	h := newDevHarness(t)
	ctx := context.Background()

	user := h.login(t, "alice", "Secret123!")

	if !user.IsFaculty {
		t.Error("IsFaculty = false, want true")
	}
	if user.UserID != 7 {
		t.Errorf("UserID = %d, want 7", user.UserID)
	}
	if cur := h.session.Current(); cur == nil || cur.UserID != 7 {
		t.Errorf("session.Current() = %+v, want user 7", cur)
	}
	for _, key := range token.AllKeys {
		if _, ok := h.store.Get(ctx, key); !ok {
			t.Errorf("key %q not persisted after login", key)
		}
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newDevHarness(t)

	_, err := h.api.Login(context.Background(), Credentials{Username: "alice", Password: "wrong"})
	appErr, ok := apperrors.As(err)
	if !ok {
		t.Fatalf("Login() error = %v, want *AppError", err)
	}
	if appErr.Message != apperrors.MsgInvalidCredentials {
		t.Errorf("Message = %q, want %q", appErr.Message, apperrors.MsgInvalidCredentials)
	}
	if h.session.Current() != nil {
		t.Error("session authenticated after failed login")
	}
	if h.resets.Load() != 0 {
		t.Error("failed login triggered a session reset")
	}
}

func TestLogin_MalformedTokenResponse(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access":"not.a.jwt","refresh":"r"}`))
	}))
	ctx := context.Background()

	_, err := h.api.Login(ctx, Credentials{Username: "alice", Password: "Secret123!"})
	if !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Errorf("Login() error = %v, want INVALID_TOKEN", err)
	}
	if h.session.Current() != nil {
		t.Error("session authenticated with a malformed token")
	}
	for _, key := range token.AllKeys {
		if _, ok := h.store.Get(ctx, key); ok {
			t.Errorf("key %q stored after malformed login", key)
		}
	}
}

func TestLogin_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	store := tokenstore.New(tokenstore.NewMemory(), nil)
	sess := session.New(store)
	api := New(httpclient.New(url, store), sess)

	_, err := api.Login(context.Background(), Credentials{Username: "alice", Password: "Secret123!"})
	if !errors.Is(err, apperrors.ErrNetwork) {
		t.Errorf("Login() error = %v, want NETWORK_ERROR", err)
	}
}

func TestPreconditionsSendNothing(t *testing.T) {
	var requests atomic.Int32
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	ctx := context.Background()

	form := validForm()
	form.ContactNumber = "12345"

	tests := []struct {
		name string
		call func() error
	}{
		{"create with short contact", func() error { _, err := h.api.CreateStudent(ctx, form); return err }},
		{"update with short contact", func() error { _, err := h.api.UpdateStudent(ctx, 40, form); return err }},
		{"update without id", func() error { _, err := h.api.UpdateStudent(ctx, 0, validForm()); return err }},
		{"details without id", func() error { _, err := h.api.GetStudentDetails(ctx, -1); return err }},
		{"dashboard without id", func() error { _, err := h.api.GetStudentDashboard(ctx, 0); return err }},
		{"delete without id", func() error { return h.api.DeleteStudent(ctx, 0) }},
		{"enroll without ids", func() error { _, err := h.api.AddStudentToFaculty(ctx, 0, 0); return err }},
		{"upload text file", func() error {
			_, err := h.api.UploadProfilePic(ctx, 40, File{Name: "a.png", Data: []byte("hi")})
			return err
		}},
		{"login without password", func() error { _, err := h.api.Login(ctx, Credentials{Username: "alice"}); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, apperrors.ErrValidationFailed) {
				t.Errorf("error = %v, want VALIDATION_FAILED", err)
			}
		})
	}

	if n := requests.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}

	_, err := h.api.CreateStudent(ctx, form)
	appErr, _ := apperrors.As(err)
	if appErr == nil || appErr.Fields["contact_number"] == "" {
		t.Errorf("CreateStudent() error = %v, want contact_number field error", err)
	}
}

func TestGetFacultyDashboard(t *testing.T) {
	h := newDevHarness(t)
	ctx := context.Background()

	if _, err := h.api.GetFacultyDashboard(ctx); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("anonymous GetFacultyDashboard() error = %v, want UNAUTHORIZED", err)
	}

	h.login(t, "alice", "Secret123!")
	dash, err := h.api.GetFacultyDashboard(ctx)
	if err != nil {
		t.Fatalf("GetFacultyDashboard() failed: %v", err)
	}
	if dash.FacultyInfo.Subject != "Computer Science" {
		t.Errorf("Subject = %q, want Computer Science", dash.FacultyInfo.Subject)
	}
	if len(dash.AssignedStudents) != 1 || dash.AssignedStudents[0].Email != "bobby@college.test" {
		t.Errorf("AssignedStudents = %+v", dash.AssignedStudents)
	}
}

func TestGetFacultyDashboard_StudentForbidden(t *testing.T) {
	h := newDevHarness(t)
	h.login(t, "bobby", "Student1!")

	_, err := h.api.GetFacultyDashboard(context.Background())
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("GetFacultyDashboard() error = %v, want FORBIDDEN", err)
	}
}

func TestGetStudentDashboard(t *testing.T) {
	h := newDevHarness(t)
	user := h.login(t, "bobby", "Student1!")

	dash, err := h.api.GetStudentDashboard(context.Background(), *user.StudentID)
	if err != nil {
		t.Fatalf("GetStudentDashboard() failed: %v", err)
	}
	if dash.StudentInfo.Name != "Bobby Tran" {
		t.Errorf("Name = %q, want Bobby Tran", dash.StudentInfo.Name)
	}
	if len(dash.EnrolledCourses) != 1 || dash.EnrolledCourses[0].Subject != "Computer Science" {
		t.Errorf("EnrolledCourses = %+v", dash.EnrolledCourses)
	}

	if _, err := h.api.GetStudentDetails(context.Background(), 999); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetStudentDetails(999) error = %v, want NOT_FOUND", err)
	}
}

func TestStudentLifecycle(t *testing.T) {
	h := newDevHarness(t)
	ctx := context.Background()
	h.login(t, "alice", "Secret123!")

	form := validForm()
	form.ProfilePic = &File{Name: "carol.png", Data: pngHeader}

	created, err := h.api.CreateStudent(ctx, form)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if created.ID == 0 || created.User.Username != "carol" {
		t.Errorf("created = %+v", created)
	}
	if created.ProfilePicURL == nil {
		t.Error("ProfilePicURL = nil, want uploaded picture URL")
	}

	edit := FormFromStudent(created)
	edit.Address = "4 Oak Ave"
	updated, err := h.api.UpdateStudent(ctx, created.ID, edit)
	if err != nil {
		t.Fatalf("UpdateStudent() failed: %v", err)
	}
	if updated.Address != "4 Oak Ave" {
		t.Errorf("Address = %q, want %q", updated.Address, "4 Oak Ave")
	}

	// The password was left empty on update, so the old one still works.
	if _, err := h.api.Login(ctx, Credentials{Username: "carol", Password: "Passw0rd!"}); err != nil {
		t.Errorf("Login(carol) after update failed: %v", err)
	}
	h.login(t, "alice", "Secret123!")

	ack, err := h.api.AddStudentToFaculty(ctx, 3, created.ID)
	if err != nil {
		t.Fatalf("AddStudentToFaculty() failed: %v", err)
	}
	if ack.Status != "success" {
		t.Errorf("Status = %q, want success", ack.Status)
	}

	students, err := h.api.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents() failed: %v", err)
	}
	if len(students) != 2 {
		t.Errorf("ListStudents() returned %d, want 2", len(students))
	}

	pic, err := h.api.UploadProfilePic(ctx, created.ID, File{Name: "new.jpg", Data: jpegHeader})
	if err != nil {
		t.Fatalf("UploadProfilePic() failed: %v", err)
	}
	if pic.ProfilePicURL == "" || pic.Status != "success" {
		t.Errorf("UploadProfilePic() = %+v", pic)
	}

	if err := h.api.DeleteStudent(ctx, created.ID); err != nil {
		t.Fatalf("DeleteStudent() failed: %v", err)
	}
	if _, err := h.api.GetStudentDetails(ctx, created.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetStudentDetails() after delete error = %v, want NOT_FOUND", err)
	}
}

func TestExpiredAccessIsRefreshedTransparently(t *testing.T) {
	h := newDevHarness(t)
	ctx := context.Background()
	h.login(t, "alice", "Secret123!")

	oldRefresh, _ := h.store.Get(ctx, token.KeyRefresh)
	h.store.Set(ctx, token.KeyAccess, "revoked-by-server")

	students, err := h.api.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents() failed: %v", err)
	}
	if len(students) != 1 {
		t.Errorf("ListStudents() returned %d, want 1", len(students))
	}

	newRefresh, _ := h.store.Get(ctx, token.KeyRefresh)
	if newRefresh == oldRefresh {
		t.Error("refresh token not rotated")
	}
	if h.resets.Load() != 0 {
		t.Error("session reset despite successful refresh")
	}
}

func TestFailedRefreshLogsOut(t *testing.T) {
	h := newDevHarness(t)
	ctx := context.Background()
	h.login(t, "alice", "Secret123!")

	h.store.Set(ctx, token.KeyAccess, "revoked-by-server")
	h.store.Set(ctx, token.KeyRefresh, "also-revoked")

	_, err := h.api.ListStudents(ctx)
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("ListStudents() error = %v, want UNAUTHORIZED", err)
	}
	if h.session.Current() != nil {
		t.Error("session still authenticated after failed refresh")
	}
	if h.resets.Load() != 1 {
		t.Errorf("OnReset called %d times, want 1", h.resets.Load())
	}
	for _, key := range token.AllKeys {
		if _, ok := h.store.Get(ctx, key); ok {
			t.Errorf("key %q still stored", key)
		}
	}
}

func TestLogout(t *testing.T) {
	h := newDevHarness(t)
	ctx := context.Background()
	h.login(t, "alice", "Secret123!")

	h.api.Logout(ctx)
	h.api.Logout(ctx)

	if h.session.Current() != nil {
		t.Error("session authenticated after Logout")
	}
	if _, err := h.api.ListStudents(ctx); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("ListStudents() after logout error = %v, want UNAUTHORIZED", err)
	}
}
