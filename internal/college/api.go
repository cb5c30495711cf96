// Package college is the typed API façade over the college management REST
// API. Every call validates its inputs before touching the network.
package college

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/campusdesk/portal/internal/httpclient"
	"github.com/campusdesk/portal/internal/metrics"
	"github.com/campusdesk/portal/internal/session"
	"github.com/campusdesk/portal/internal/token"
	apperrors "github.com/campusdesk/portal/pkg/errors"
	"go.uber.org/zap"
)

// API endpoints
const (
	PathToken            = "/api/token/"
	PathStudents         = "/api/students/"
	pathStudent          = "/api/students/%d/"
	pathStudentDashboard = "/api/students/%d/dashboard/"
	pathStudentPhoto     = "/api/students/%d/upload_profile_pic/"
	pathFacultyDashboard = "/api/faculty/%d/dashboard/"
	pathFacultyAdd       = "/api/faculty/%d/add_student/"
)

// API is the college API client
type API struct {
	client    *httpclient.Client
	session   *session.Session
	validator *Validator
	logger    *zap.Logger
}

// Option configures an API
type Option func(*API)

// WithLogger sets the API logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// WithValidator replaces the form validator
func WithValidator(v *Validator) Option {
	return func(a *API) { a.validator = v }
}

// New creates an API over client, signing in and out through sess
func New(client *httpclient.Client, sess *session.Session, opts ...Option) *API {
	a := &API{
		client:    client,
		session:   sess,
		validator: NewValidator(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("college")
	return a
}

// Session returns the session the API signs in to
func (a *API) Session() *session.Session {
	return a.session
}

// Login exchanges credentials for a token pair and signs the session in
func (a *API) Login(ctx context.Context, creds Credentials) (*session.Identity, error) {
	if err := a.validator.Credentials(creds); err != nil {
		return nil, err
	}

	var pair token.Pair
	if err := a.client.Post(ctx, PathToken, creds, &pair, httpclient.SkipAuth()); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			metrics.RecordLogin(metrics.LoginInvalidCredentials)
			return nil, &apperrors.AppError{
				Code:    apperrors.ErrCodeUnauthorized,
				Message: apperrors.MsgInvalidCredentials,
				Status:  http.StatusUnauthorized,
				Err:     err,
			}
		}
		metrics.RecordLogin(metrics.LoginError)
		return nil, err
	}

	if pair.Access == "" || pair.Refresh == "" {
		metrics.RecordLogin(metrics.LoginInvalidToken)
		a.session.Logout(ctx)
		return nil, apperrors.InvalidToken(errors.New("token response is missing access or refresh"))
	}

	user, err := a.session.Login(ctx, pair)
	if err != nil {
		metrics.RecordLogin(metrics.LoginInvalidToken)
		return nil, err
	}

	metrics.RecordLogin(metrics.LoginSuccess)
	return user, nil
}

// Logout signs the session out. It never fails.
func (a *API) Logout(ctx context.Context) {
	a.session.Logout(ctx)
}

// GetFacultyDashboard loads the dashboard of the signed-in faculty member
func (a *API) GetFacultyDashboard(ctx context.Context) (*FacultyDashboard, error) {
	user := a.session.Current()
	if user == nil {
		return nil, apperrors.Unauthorized(nil)
	}
	if !user.IsFaculty || user.FacultyID == nil {
		return nil, &apperrors.AppError{
			Code:    apperrors.ErrCodeForbidden,
			Message: "Faculty ID not found",
		}
	}

	var dash FacultyDashboard
	if err := a.client.Get(ctx, fmt.Sprintf(pathFacultyDashboard, *user.FacultyID), &dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

// GetStudentDashboard loads a student's dashboard
func (a *API) GetStudentDashboard(ctx context.Context, id int) (*StudentDashboard, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}

	var dash StudentDashboard
	if err := a.client.Get(ctx, fmt.Sprintf(pathStudentDashboard, id), &dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

// AddStudentToFaculty enrolls a student in a faculty member's class
func (a *API) AddStudentToFaculty(ctx context.Context, facultyID, studentID int) (*StatusMessage, error) {
	fields := map[string]string{}
	if facultyID <= 0 {
		fields["faculty_id"] = "Faculty ID is required"
	}
	if studentID <= 0 {
		fields["student_id"] = "Student ID is required"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields)
	}

	body := struct {
		StudentID int `json:"student_id"`
	}{StudentID: studentID}

	var result StatusMessage
	if err := a.client.Post(ctx, fmt.Sprintf(pathFacultyAdd, facultyID), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func requireID(field string, id int) error {
	if id <= 0 {
		return apperrors.Validation(map[string]string{field: "A positive ID is required"})
	}
	return nil
}
