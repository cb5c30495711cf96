package devserver

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/campusdesk/portal/internal/token"
)

var (
	errNoSuchUser      = errors.New("no active account found with the given credentials")
	errStudentNotFound = errors.New("student not found")
	errFacultyNotFound = errors.New("faculty not found")
	errUsernameTaken   = errors.New("A user with that username already exists.")
)

type account struct {
	ID           int
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Email        string
	FacultyID    int
	StudentID    int
}

func (a *account) userType() string {
	switch {
	case a.FacultyID != 0:
		return token.UserTypeFaculty
	case a.StudentID != 0:
		return token.UserTypeStudent
	}
	return "unknown"
}

func (a *account) fullName() string {
	return a.FirstName + " " + a.LastName
}

type faculty struct {
	ID            int
	UserID        int
	Subject       string
	ContactNumber string
	Address       string
}

type student struct {
	ID            int
	UserID        int
	DateOfBirth   string
	Gender        string
	BloodGroup    string
	ContactNumber string
	Address       string
	FacultyIDs    map[int]bool
	Picture       *picture
}

type picture struct {
	Name        string
	ContentType string
	Data        []byte
}

// studentInput is a parsed create/update request
type studentInput struct {
	Username      string
	Password      string
	FirstName     string
	LastName      string
	Email         string
	DateOfBirth   string
	Gender        string
	BloodGroup    string
	ContactNumber string
	Address       string
	Picture       *picture
}

// directory is the devserver's in-memory user, faculty and student tables
type directory struct {
	mu        sync.RWMutex
	accounts  map[int]*account
	usernames map[string]int
	faculties map[int]*faculty
	students  map[int]*student
	nextUser  int
	nextStud  int
}

func newDirectory() *directory {
	return &directory{
		accounts:  make(map[int]*account),
		usernames: make(map[string]int),
		faculties: make(map[int]*faculty),
		students:  make(map[int]*student),
		nextUser:  100,
		nextStud:  100,
	}
}

// SeedUser describes an account created at startup
type SeedUser struct {
	UserID    int
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string

	// Exactly one of Faculty or Student is set
	Faculty *SeedFaculty
	Student *SeedStudent
}

// SeedFaculty is the faculty profile of a seeded user
type SeedFaculty struct {
	ID            int
	Subject       string
	ContactNumber string
	Address       string
}

// SeedStudent is the student profile of a seeded user
type SeedStudent struct {
	ID            int
	DateOfBirth   string
	Gender        string
	BloodGroup    string
	ContactNumber string
	Address       string
	FacultyIDs    []int
}

// DefaultSeed is the data the devserver starts with
func DefaultSeed() []SeedUser {
	return []SeedUser{
		{
			UserID: 7, Username: "alice", Password: "Secret123!",
			FirstName: "Alice", LastName: "Moreau", Email: "alice@college.test",
			Faculty: &SeedFaculty{ID: 3, Subject: "Computer Science", ContactNumber: "5550100100", Address: "Block A, Room 12"},
		},
		{
			UserID: 8, Username: "victor", Password: "Secret123!",
			FirstName: "Victor", LastName: "Hale", Email: "victor@college.test",
			Faculty: &SeedFaculty{ID: 4, Subject: "Mathematics", ContactNumber: "5550100200", Address: "Block B, Room 3"},
		},
		{
			UserID: 12, Username: "bobby", Password: "Student1!",
			FirstName: "Bobby", LastName: "Tran", Email: "bobby@college.test",
			Student: &SeedStudent{
				ID: 40, DateOfBirth: "2004-05-17", Gender: "M", BloodGroup: "O+",
				ContactNumber: "5550123456", Address: "12 Main St", FacultyIDs: []int{3},
			},
		},
	}
}

func (d *directory) seed(users []SeedUser) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range users {
		hash, err := HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("seed %s: %w", u.Username, err)
		}
		acct := &account{
			ID: u.UserID, Username: u.Username, PasswordHash: hash,
			FirstName: u.FirstName, LastName: u.LastName, Email: u.Email,
		}
		if u.Faculty != nil {
			acct.FacultyID = u.Faculty.ID
			d.faculties[u.Faculty.ID] = &faculty{
				ID: u.Faculty.ID, UserID: u.UserID, Subject: u.Faculty.Subject,
				ContactNumber: u.Faculty.ContactNumber, Address: u.Faculty.Address,
			}
		}
		if u.Student != nil {
			acct.StudentID = u.Student.ID
			s := &student{
				ID: u.Student.ID, UserID: u.UserID, DateOfBirth: u.Student.DateOfBirth,
				Gender: u.Student.Gender, BloodGroup: u.Student.BloodGroup,
				ContactNumber: u.Student.ContactNumber, Address: u.Student.Address,
				FacultyIDs: make(map[int]bool),
			}
			for _, fid := range u.Student.FacultyIDs {
				s.FacultyIDs[fid] = true
			}
			d.students[s.ID] = s
		}
		d.accounts[acct.ID] = acct
		d.usernames[acct.Username] = acct.ID
	}
	return nil
}

func (d *directory) authenticate(username, password string) (*account, error) {
	d.mu.RLock()
	id, ok := d.usernames[username]
	acct := d.accounts[id]
	d.mu.RUnlock()

	if !ok {
		return nil, errNoSuchUser
	}
	if err := VerifyPassword(password, acct.PasswordHash); err != nil {
		return nil, errNoSuchUser
	}
	return acct, nil
}

func (d *directory) accountByID(id int) (*account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[id]
	return a, ok
}

// visible reports whether claims may see student s: faculty see everyone,
// students only themselves.
func visible(claims *token.Claims, s *student) bool {
	if claims.IsFaculty() {
		return true
	}
	return claims.StudentID != nil && *claims.StudentID == s.ID
}

func (d *directory) facultyDashboard(fid int) (map[string]any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	f, ok := d.faculties[fid]
	if !ok {
		return nil, errFacultyNotFound
	}
	fa := d.accounts[f.UserID]

	assigned := make([]map[string]any, 0)
	for _, s := range d.sortedStudents() {
		if !s.FacultyIDs[fid] {
			continue
		}
		sa := d.accounts[s.UserID]
		assigned = append(assigned, map[string]any{
			"name":        sa.fullName(),
			"email":       sa.Email,
			"contact":     s.ContactNumber,
			"blood_group": s.BloodGroup,
		})
	}

	return map[string]any{
		"faculty_info": map[string]any{
			"name":    fa.fullName(),
			"subject": f.Subject,
			"email":   fa.Email,
			"contact": f.ContactNumber,
		},
		"assigned_students": assigned,
	}, nil
}

func (d *directory) studentDashboard(claims *token.Claims, sid int) (map[string]any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.students[sid]
	if !ok || !visible(claims, s) {
		return nil, errStudentNotFound
	}
	sa := d.accounts[s.UserID]

	courses := make([]map[string]any, 0, len(s.FacultyIDs))
	for _, fid := range sortedKeys(s.FacultyIDs) {
		f := d.faculties[fid]
		fa := d.accounts[f.UserID]
		courses = append(courses, map[string]any{
			"name":    fa.fullName(),
			"subject": f.Subject,
			"contact": f.ContactNumber,
			"email":   fa.Email,
		})
	}

	return map[string]any{
		"student_info": map[string]any{
			"name":    sa.fullName(),
			"email":   sa.Email,
			"contact": s.ContactNumber,
		},
		"enrolled_courses": courses,
	}, nil
}

func (d *directory) listStudents(claims *token.Claims) []studentView {
	d.mu.RLock()
	defer d.mu.RUnlock()

	views := make([]studentView, 0, len(d.students))
	for _, s := range d.sortedStudents() {
		if visible(claims, s) {
			views = append(views, d.view(s))
		}
	}
	return views
}

func (d *directory) student(claims *token.Claims, sid int) (studentView, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.students[sid]
	if !ok || !visible(claims, s) {
		return studentView{}, errStudentNotFound
	}
	return d.view(s), nil
}

func (d *directory) createStudent(in studentInput) (studentView, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return studentView{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.usernames[in.Username]; taken {
		return studentView{}, errUsernameTaken
	}

	d.nextUser++
	d.nextStud++
	acct := &account{
		ID: d.nextUser, Username: in.Username, PasswordHash: hash,
		FirstName: in.FirstName, LastName: in.LastName, Email: in.Email,
		StudentID: d.nextStud,
	}
	s := &student{
		ID: d.nextStud, UserID: acct.ID, DateOfBirth: in.DateOfBirth, Gender: in.Gender,
		BloodGroup: in.BloodGroup, ContactNumber: in.ContactNumber, Address: in.Address,
		FacultyIDs: make(map[int]bool), Picture: in.Picture,
	}

	d.accounts[acct.ID] = acct
	d.usernames[acct.Username] = acct.ID
	d.students[s.ID] = s
	return d.view(s), nil
}

func (d *directory) updateStudent(claims *token.Claims, sid int, in studentInput) (studentView, error) {
	var hash string
	if in.Password != "" {
		h, err := HashPassword(in.Password)
		if err != nil {
			return studentView{}, err
		}
		hash = h
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.students[sid]
	if !ok || !visible(claims, s) {
		return studentView{}, errStudentNotFound
	}
	acct := d.accounts[s.UserID]

	if in.Username != "" && in.Username != acct.Username {
		if _, taken := d.usernames[in.Username]; taken {
			return studentView{}, errUsernameTaken
		}
		delete(d.usernames, acct.Username)
		acct.Username = in.Username
		d.usernames[acct.Username] = acct.ID
	}
	if hash != "" {
		acct.PasswordHash = hash
	}
	acct.FirstName = in.FirstName
	acct.LastName = in.LastName
	acct.Email = in.Email

	s.DateOfBirth = in.DateOfBirth
	s.Gender = in.Gender
	s.BloodGroup = in.BloodGroup
	s.ContactNumber = in.ContactNumber
	s.Address = in.Address
	if in.Picture != nil {
		s.Picture = in.Picture
	}
	return d.view(s), nil
}

func (d *directory) deleteStudent(claims *token.Claims, sid int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.students[sid]
	if !ok || !visible(claims, s) {
		return errStudentNotFound
	}
	acct := d.accounts[s.UserID]
	delete(d.students, sid)
	delete(d.usernames, acct.Username)
	delete(d.accounts, acct.ID)
	return nil
}

func (d *directory) setPicture(claims *token.Claims, sid int, pic *picture) (studentView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.students[sid]
	if !ok || !visible(claims, s) {
		return studentView{}, errStudentNotFound
	}
	s.Picture = pic
	return d.view(s), nil
}

func (d *directory) picture(sid int) (*picture, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.students[sid]
	if !ok || s.Picture == nil {
		return nil, false
	}
	return s.Picture, true
}

func (d *directory) addStudentToFaculty(fid, sid int) (string, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.faculties[fid]
	if !ok {
		return "", "", errFacultyNotFound
	}
	s, ok := d.students[sid]
	if !ok {
		return "", "", errStudentNotFound
	}
	s.FacultyIDs[fid] = true
	return d.accounts[s.UserID].Username, f.Subject, nil
}

// studentView is a student record as serialized by the API
type studentView struct {
	ID            int           `json:"id"`
	User          userView      `json:"user"`
	ProfilePicURL *string       `json:"profile_pic_url"`
	DateOfBirth   string        `json:"date_of_birth"`
	Gender        string        `json:"gender"`
	BloodGroup    string        `json:"blood_group"`
	ContactNumber string        `json:"contact_number"`
	Address       string        `json:"address"`
	Faculties     []facultyView `json:"faculties"`

	picturePath string
}

type userView struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type facultyView struct {
	ID            int      `json:"id"`
	User          userView `json:"user"`
	Subject       string   `json:"subject"`
	ContactNumber string   `json:"contact_number"`
	Address       string   `json:"address"`
}

func userViewOf(a *account) userView {
	return userView{ID: a.ID, Username: a.Username, FirstName: a.FirstName, LastName: a.LastName, Email: a.Email}
}

// view must be called with d.mu held
func (d *directory) view(s *student) studentView {
	v := studentView{
		ID:            s.ID,
		User:          userViewOf(d.accounts[s.UserID]),
		DateOfBirth:   s.DateOfBirth,
		Gender:        s.Gender,
		BloodGroup:    s.BloodGroup,
		ContactNumber: s.ContactNumber,
		Address:       s.Address,
		Faculties:     make([]facultyView, 0, len(s.FacultyIDs)),
	}
	for _, fid := range sortedKeys(s.FacultyIDs) {
		f := d.faculties[fid]
		v.Faculties = append(v.Faculties, facultyView{
			ID: f.ID, User: userViewOf(d.accounts[f.UserID]), Subject: f.Subject,
			ContactNumber: f.ContactNumber, Address: f.Address,
		})
	}
	if s.Picture != nil {
		v.picturePath = fmt.Sprintf("/media/profile_pics/%d/%s", s.ID, url.PathEscape(s.Picture.Name))
	}
	return v
}

func (d *directory) sortedStudents() []*student {
	out := make([]*student, 0, len(d.students))
	for _, s := range d.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
