package college

// Credentials are sent once to obtain a token pair and never stored
type Credentials struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// User is the account embedded in student and faculty records
type User struct {
	ID        int    `json:"id,omitempty"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// FullName returns "first last"
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Faculty is a faculty record as nested in a student
type Faculty struct {
	ID            int    `json:"id"`
	User          User   `json:"user"`
	Subject       string `json:"subject"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
}

// Student is a student record
type Student struct {
	ID            int       `json:"id"`
	User          User      `json:"user"`
	ProfilePicURL *string   `json:"profile_pic_url"`
	DateOfBirth   string    `json:"date_of_birth"`
	Gender        string    `json:"gender"`
	BloodGroup    string    `json:"blood_group"`
	ContactNumber string    `json:"contact_number"`
	Address       string    `json:"address"`
	Faculties     []Faculty `json:"faculties,omitempty"`
}

// FacultyDashboard is returned by GET /api/faculty/{id}/dashboard/
type FacultyDashboard struct {
	FacultyInfo struct {
		Name    string `json:"name"`
		Subject string `json:"subject"`
		Email   string `json:"email"`
		Contact string `json:"contact"`
	} `json:"faculty_info"`
	AssignedStudents []AssignedStudent `json:"assigned_students"`
}

// AssignedStudent is a row of the faculty dashboard
type AssignedStudent struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Contact    string `json:"contact"`
	BloodGroup string `json:"blood_group"`
}

// StudentDashboard is returned by GET /api/students/{id}/dashboard/
type StudentDashboard struct {
	StudentInfo struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Contact string `json:"contact"`
	} `json:"student_info"`
	EnrolledCourses []EnrolledCourse `json:"enrolled_courses"`
}

// EnrolledCourse is a row of the student dashboard
type EnrolledCourse struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
}

// StatusMessage is the {status, message} acknowledgement
type StatusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProfilePicResult is returned by the profile picture upload
type ProfilePicResult struct {
	StatusMessage
	ProfilePicURL string `json:"profile_pic_url"`
}

// File is an in-memory upload
type File struct {
	Name string
	Data []byte
}

// StudentForm is the editable copy of a student record. Password may be left
// empty on update to keep the current one; ProfilePic is only sent when set.
type StudentForm struct {
	Username      string `form:"user.username" validate:"required,min=4"`
	Password      string `form:"user.password" validate:"omitempty,password"`
	Email         string `form:"user.email" validate:"required,email"`
	FirstName     string `form:"user.first_name" validate:"trimmed_min=2"`
	LastName      string `form:"user.last_name" validate:"trimmed_min=2"`
	DateOfBirth   string `form:"date_of_birth" validate:"required,datetime=2006-01-02,student_age"`
	Gender        string `form:"gender" validate:"required,oneof=M F O"`
	BloodGroup    string `form:"blood_group" validate:"required,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	ContactNumber string `form:"contact_number" validate:"required,contact_number"`
	Address       string `form:"address" validate:"required"`
	ProfilePic    *File  `form:"profile_pic" validate:"-"`
}

// FormFromStudent pre-fills an edit form from an existing record
func FormFromStudent(s *Student) StudentForm {
	return StudentForm{
		Username:      s.User.Username,
		Email:         s.User.Email,
		FirstName:     s.User.FirstName,
		LastName:      s.User.LastName,
		DateOfBirth:   s.DateOfBirth,
		Gender:        s.Gender,
		BloodGroup:    s.BloodGroup,
		ContactNumber: s.ContactNumber,
		Address:       s.Address,
	}
}
