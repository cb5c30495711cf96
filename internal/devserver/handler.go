package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/campusdesk/portal/internal/middleware"
	"github.com/campusdesk/portal/pkg/response"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxRequestBytes   = 10 << 20
	maxProfilePicSize = 5 << 20
)

var allowedPictureTypes = []string{"image/jpeg", "image/png", "image/gif"}

// Handler serves the college API routes
type Handler struct {
	dir    *directory
	issuer *Issuer
	logger *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(dir *directory, issuer *Issuer, logger *zap.Logger) *Handler {
	return &Handler{dir: dir, issuer: issuer, logger: logger}
}

type obtainRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// ObtainToken exchanges credentials for a token pair
// POST /api/token/
func (h *Handler) ObtainToken(c *gin.Context) {
	var req obtainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, http.StatusBadRequest, map[string]string{
			"username": "This field is required.",
			"password": "This field is required.",
		})
		return
	}

	acct, err := h.dir.authenticate(req.Username, req.Password)
	if err != nil {
		h.logger.Info("login failed", zap.String("username", req.Username))
		response.Detail(c, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	pair, err := h.issuer.Generate(acct)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logger.Info("token issued", zap.Int("user_id", acct.ID), zap.String("user_type", acct.userType()))
	response.Success(c, http.StatusOK, pair)
}

// RefreshToken rotates a refresh token into a new pair
// POST /api/token/refresh/
func (h *Handler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, http.StatusBadRequest, map[string]string{"refresh": "This field is required."})
		return
	}

	claims, err := h.issuer.Redeem(req.Refresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	userID, _ := strconv.Atoi(claims.Subject)
	acct, ok := h.dir.accountByID(userID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "User not found", "code": "user_not_found"})
		return
	}

	pair, err := h.issuer.Generate(acct)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, pair)
}

// FacultyDashboard returns a faculty member's info and assigned students
// GET /api/faculty/:id/dashboard/
func (h *Handler) FacultyDashboard(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	dash, err := h.dir.facultyDashboard(id)
	if err != nil {
		response.Detail(c, http.StatusNotFound, "Not found.")
		return
	}
	response.Success(c, http.StatusOK, dash)
}

// AddStudent enrolls a student in a faculty member's class
// POST /api/faculty/:id/add_student/
func (h *Handler) AddStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		StudentID int `json:"student_id"`
	}
	_ = c.ShouldBindJSON(&req)

	username, subject, err := h.dir.addStudentToFaculty(id, req.StudentID)
	switch {
	case errors.Is(err, errFacultyNotFound):
		response.Detail(c, http.StatusNotFound, "Not found.")
		return
	case errors.Is(err, errStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Student %s added to %s class", username, subject),
	})
}

// ListStudents returns the students visible to the caller
// GET /api/students/
func (h *Handler) ListStudents(c *gin.Context) {
	views := h.dir.listStudents(middleware.Claims(c))
	for i := range views {
		h.absolutize(c, &views[i])
	}
	response.Success(c, http.StatusOK, views)
}

// GetStudent returns one student
// GET /api/students/:id/
func (h *Handler) GetStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	v, err := h.dir.student(middleware.Claims(c), id)
	if err != nil {
		response.Detail(c, http.StatusNotFound, "Not found.")
		return
	}
	h.render(c, http.StatusOK, v)
}

// StudentDashboard returns a student's info and enrolled courses
// GET /api/students/:id/dashboard/
func (h *Handler) StudentDashboard(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	dash, err := h.dir.studentDashboard(middleware.Claims(c), id)
	if err != nil {
		response.Detail(c, http.StatusNotFound, "Not found.")
		return
	}
	response.Success(c, http.StatusOK, dash)
}

// CreateStudent creates a student and its account
// POST /api/students/
func (h *Handler) CreateStudent(c *gin.Context) {
	in, ok := h.bindStudent(c, true)
	if !ok {
		return
	}

	v, err := h.dir.createStudent(in)
	if err != nil {
		h.studentWriteError(c, err)
		return
	}

	h.logger.Info("student created", zap.Int("student_id", v.ID))
	h.render(c, http.StatusCreated, v)
}

// UpdateStudent replaces a student record
// PUT /api/students/:id/
func (h *Handler) UpdateStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	in, ok := h.bindStudent(c, false)
	if !ok {
		return
	}

	v, err := h.dir.updateStudent(middleware.Claims(c), id, in)
	if err != nil {
		h.studentWriteError(c, err)
		return
	}
	h.render(c, http.StatusOK, v)
}

// DeleteStudent removes a student and its account
// DELETE /api/students/:id/
func (h *Handler) DeleteStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.dir.deleteStudent(middleware.Claims(c), id); err != nil {
		response.Detail(c, http.StatusNotFound, "Not found.")
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadProfilePic replaces a student's profile picture
// POST /api/students/:id/upload_profile_pic/
func (h *Handler) UploadProfilePic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	claims := middleware.Claims(c)
	if _, err := h.dir.student(claims, id); err != nil {
		response.Detail(c, http.StatusNotFound, "Not found.")
		return
	}

	if !parseMultipart(c) {
		return
	}
	pic, present, msg := readPicture(c)
	if !present {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	v, err := h.dir.setPicture(claims, id, pic)
	if err != nil {
		response.Detail(c, http.StatusNotFound, "Not found.")
		return
	}
	h.absolutize(c, &v)

	response.Success(c, http.StatusOK, gin.H{
		"status":          "success",
		"message":         "Profile picture updated successfully",
		"profile_pic_url": v.ProfilePicURL,
	})
}

// ProfilePic serves an uploaded picture
// GET /media/profile_pics/:id/:name
func (h *Handler) ProfilePic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	pic, found := h.dir.picture(id)
	if !found || pic.Name != c.Param("name") {
		response.Detail(c, http.StatusNotFound, "Not found.")
		return
	}
	c.Data(http.StatusOK, pic.ContentType, pic.Data)
}

// Health returns the health status
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) render(c *gin.Context, status int, v studentView) {
	h.absolutize(c, &v)
	response.Success(c, status, v)
}

func (h *Handler) absolutize(c *gin.Context, v *studentView) {
	if v.picturePath == "" {
		return
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	url := scheme + "://" + c.Request.Host + v.picturePath
	v.ProfilePicURL = &url
}

func (h *Handler) studentWriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errStudentNotFound):
		response.Detail(c, http.StatusNotFound, "Not found.")
	case errors.Is(err, errUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"user": gin.H{"username": []string{err.Error()}}})
	default:
		response.Error(c, err)
	}
}

type studentUser struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type studentJSON struct {
	User          json.RawMessage `json:"user"`
	DateOfBirth   string          `json:"date_of_birth"`
	Gender        string          `json:"gender"`
	BloodGroup    string          `json:"blood_group"`
	ContactNumber string          `json:"contact_number"`
	Address       string          `json:"address"`
}

// bindStudent reads a JSON or multipart student body. The user field may be
// an object or a JSON-encoded string.
func (h *Handler) bindStudent(c *gin.Context, creating bool) (studentInput, bool) {
	var body studentJSON
	var pic *picture

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if !parseMultipart(c) {
			return studentInput{}, false
		}
		body = studentJSON{
			User:          json.RawMessage(c.PostForm("user")),
			DateOfBirth:   c.PostForm("date_of_birth"),
			Gender:        c.PostForm("gender"),
			BloodGroup:    c.PostForm("blood_group"),
			ContactNumber: c.PostForm("contact_number"),
			Address:       c.PostForm("address"),
		}
		p, present, msg := readPicture(c)
		if present && msg != "" {
			response.ValidationError(c, http.StatusBadRequest, map[string]string{"profile_pic": msg})
			return studentInput{}, false
		}
		pic = p
	} else if err := c.ShouldBindJSON(&body); err != nil {
		response.Detail(c, http.StatusBadRequest, "JSON parse error")
		return studentInput{}, false
	}

	user, err := decodeUser(body.User)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"user": []string{"Invalid JSON format for user data"}})
		return studentInput{}, false
	}

	userErrs := gin.H{}
	if user.Username == "" {
		userErrs["username"] = []string{"This field is required."}
	}
	if creating && user.Password == "" {
		userErrs["password"] = []string{"This field is required."}
	}

	fields := map[string]string{}
	required := map[string]string{
		"date_of_birth":  body.DateOfBirth,
		"gender":         body.Gender,
		"blood_group":    body.BloodGroup,
		"contact_number": body.ContactNumber,
		"address":        body.Address,
	}
	for name, value := range required {
		if value == "" {
			fields[name] = "This field is required."
		}
	}
	if g := body.Gender; g != "" && g != "M" && g != "F" && g != "O" {
		fields["gender"] = fmt.Sprintf("%q is not a valid choice.", g)
	}
	if len(body.ContactNumber) > 15 {
		fields["contact_number"] = "Ensure this field has no more than 15 characters."
	}

	if len(userErrs) > 0 || len(fields) > 0 {
		errs := gin.H{}
		for k, v := range fields {
			errs[k] = []string{v}
		}
		if len(userErrs) > 0 {
			errs["user"] = userErrs
		}
		c.JSON(http.StatusBadRequest, errs)
		return studentInput{}, false
	}

	return studentInput{
		Username:      user.Username,
		Password:      user.Password,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		DateOfBirth:   body.DateOfBirth,
		Gender:        body.Gender,
		BloodGroup:    body.BloodGroup,
		ContactNumber: body.ContactNumber,
		Address:       body.Address,
		Picture:       pic,
	}, true
}

func decodeUser(raw json.RawMessage) (studentUser, error) {
	var user studentUser
	if len(raw) == 0 {
		return user, nil
	}

	// Multipart sends the object as a string; JSON bodies may do either.
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}
	if err := json.Unmarshal(raw, &user); err != nil {
		return studentUser{}, err
	}
	return user, nil
}

// parseMultipart reads the form, answering 413 when the body is too large
func parseMultipart(c *gin.Context) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)
	if err := c.Request.ParseMultipartForm(maxRequestBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Detail(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		response.Detail(c, http.StatusBadRequest, "Multipart form parse error")
		return false
	}
	return true
}

// readPicture returns the profile_pic part, whether one was sent, and a
// rejection message if it is not acceptable.
func readPicture(c *gin.Context) (*picture, bool, string) {
	fh, err := c.FormFile("profile_pic")
	if err != nil {
		return nil, false, ""
	}
	if fh.Size > maxProfilePicSize {
		return nil, true, "Image file too large ( > 5MB )"
	}

	f, err := fh.Open()
	if err != nil {
		return nil, true, "Failed to read file"
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, true, "Failed to read file"
	}

	mtype := mimetype.Detect(data)
	for _, allowed := range allowedPictureTypes {
		if mtype.Is(allowed) {
			return &picture{Name: fh.Filename, ContentType: allowed, Data: data}, true, ""
		}
	}
	return nil, true, "Invalid file type. Allowed types: " + strings.Join(allowedPictureTypes, ", ")
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.Detail(c, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}
