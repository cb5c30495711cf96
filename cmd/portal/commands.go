package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/campusdesk/portal/internal/college"
	"github.com/campusdesk/portal/internal/session"
	apperrors "github.com/campusdesk/portal/pkg/errors"
)

func (a *app) dispatch(ctx context.Context, args []string) int {
	var err error
	switch args[0] {
	case "login":
		err = a.login(ctx, args[1:])
	case "logout":
		a.api.Logout(ctx)
		fmt.Fprintln(a.out, "Logged out")
	case "whoami":
		err = a.whoami()
	case "dashboard":
		err = a.dashboard(ctx)
	case "student":
		err = a.student(ctx, args[1:])
	case "faculty":
		err = a.faculty(ctx, args[1:])
	default:
		err = usagef("unknown command %q", args[0])
	}

	if err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return usagef("login: %v", err)
	}

	if *username == "" {
		*username = a.prompt("Username: ")
	}
	if *password == "" {
		*password = a.prompt("Password: ")
	}

	user, err := a.api.Login(ctx, college.Credentials{Username: *username, Password: *password})
	if err != nil {
		return err
	}

	role := "student"
	if user.IsFaculty {
		role = "faculty"
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", *username, role)
	return nil
}

func (a *app) prompt(label string) string {
	fmt.Fprint(a.errOut, label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (a *app) whoami() error {
	user := a.session.Current()
	if user == nil {
		return apperrors.Unauthorized(nil)
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "user_id\t%d\n", user.UserID)
	fmt.Fprintf(w, "user_type\t%s\n", user.UserType)
	fmt.Fprintf(w, "is_faculty\t%t\n", user.IsFaculty)
	if user.FacultyID != nil {
		fmt.Fprintf(w, "faculty_id\t%d\n", *user.FacultyID)
	}
	if user.StudentID != nil {
		fmt.Fprintf(w, "student_id\t%d\n", *user.StudentID)
	}
	return w.Flush()
}

// requireUser is the protected-route guard: anonymous users are sent to login
func (a *app) requireUser() (*session.Identity, error) {
	user := a.session.Current()
	if user == nil {
		return nil, apperrors.Unauthorized(nil)
	}
	return user, nil
}

// requireFaculty additionally restricts a command to faculty members
func (a *app) requireFaculty() (*session.Identity, error) {
	user, err := a.requireUser()
	if err != nil {
		return nil, err
	}
	if !user.IsFaculty {
		return nil, apperrors.NewAppError(apperrors.ErrCodeForbidden, apperrors.MsgUnauthorized, 0)
	}
	return user, nil
}

func (a *app) dashboard(ctx context.Context) error {
	user, err := a.requireUser()
	if err != nil {
		return err
	}

	if user.IsFaculty {
		dash, err := a.api.GetFacultyDashboard(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\n%s | %s | %s\n\n", dash.FacultyInfo.Name, dash.FacultyInfo.Subject, dash.FacultyInfo.Email, dash.FacultyInfo.Contact)

		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tEMAIL\tCONTACT\tBLOOD GROUP")
		for _, s := range dash.AssignedStudents {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.Email, s.Contact, s.BloodGroup)
		}
		return w.Flush()
	}

	if user.StudentID == nil {
		return apperrors.NewAppError(apperrors.ErrCodeForbidden, "Student ID not found", 0)
	}
	dash, err := a.api.GetStudentDashboard(ctx, *user.StudentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\n%s | %s\n\n", dash.StudentInfo.Name, dash.StudentInfo.Email, dash.StudentInfo.Contact)

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FACULTY\tSUBJECT\tEMAIL\tCONTACT")
	for _, c := range dash.EnrolledCourses {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.Subject, c.Email, c.Contact)
	}
	return w.Flush()
}

func (a *app) student(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usagef("student: missing subcommand")
	}

	switch args[0] {
	case "list":
		if _, err := a.requireUser(); err != nil {
			return err
		}
		students, err := a.api.ListStudents(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tEMAIL\tCONTACT")
		for _, s := range students {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.User.Username, s.User.FullName(), s.User.Email, s.ContactNumber)
		}
		return w.Flush()

	case "show":
		if _, err := a.requireUser(); err != nil {
			return err
		}
		id, err := parseID(args[1:], "student show ID")
		if err != nil {
			return err
		}
		s, err := a.api.GetStudentDetails(ctx, id)
		if err != nil {
			return err
		}
		a.printStudent(s)
		return nil

	case "new":
		if _, err := a.requireFaculty(); err != nil {
			return err
		}
		ff := newFormFlags("student new")
		ff.fs.SetOutput(io.Discard)
		if err := ff.fs.Parse(args[1:]); err != nil {
			return usagef("student new: %v", err)
		}
		var form college.StudentForm
		if err := ff.apply(&form); err != nil {
			return err
		}
		s, err := a.api.CreateStudent(ctx, form)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created student %d\n", s.ID)
		a.printStudent(s)
		return nil

	case "edit":
		if _, err := a.requireFaculty(); err != nil {
			return err
		}
		ff := newFormFlags("student edit")
		ff.fs.SetOutput(io.Discard)
		if err := ff.fs.Parse(args[1:]); err != nil {
			return usagef("student edit: %v", err)
		}
		id, err := parseID(ff.fs.Args(), "student edit [flags] ID")
		if err != nil {
			return err
		}
		current, err := a.api.GetStudentDetails(ctx, id)
		if err != nil {
			return err
		}
		form := college.FormFromStudent(current)
		if err := ff.apply(&form); err != nil {
			return err
		}
		s, err := a.api.UpdateStudent(ctx, id, form)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Updated student %d\n", s.ID)
		a.printStudent(s)
		return nil

	case "delete":
		if _, err := a.requireFaculty(); err != nil {
			return err
		}
		id, err := parseID(args[1:], "student delete ID")
		if err != nil {
			return err
		}
		if err := a.api.DeleteStudent(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted student %d\n", id)
		return nil

	case "photo":
		if _, err := a.requireUser(); err != nil {
			return err
		}
		if len(args) != 3 {
			return usagef("usage: student photo ID FILE")
		}
		id, err := parseID(args[1:2], "student photo ID FILE")
		if err != nil {
			return err
		}
		file, err := readFile(args[2])
		if err != nil {
			return err
		}
		result, err := a.api.UploadProfilePic(ctx, id, *file)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, result.Message)
		fmt.Fprintln(a.out, result.ProfilePicURL)
		return nil
	}

	return usagef("unknown student subcommand %q", args[0])
}

func (a *app) faculty(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "add-student" {
		return usagef("usage: faculty add-student [-faculty ID] STUDENT_ID")
	}

	user, err := a.requireFaculty()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("faculty add-student", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	facultyID := fs.Int("faculty", 0, "faculty id (defaults to your own)")
	if err := fs.Parse(args[1:]); err != nil {
		return usagef("faculty add-student: %v", err)
	}
	if *facultyID == 0 && user.FacultyID != nil {
		*facultyID = *user.FacultyID
	}
	studentID, err := parseID(fs.Args(), "faculty add-student [-faculty ID] STUDENT_ID")
	if err != nil {
		return err
	}

	result, err := a.api.AddStudentToFaculty(ctx, *facultyID, studentID)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, result.Message)
	return nil
}

func (a *app) printStudent(s *college.Student) {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%d\n", s.ID)
	fmt.Fprintf(w, "username\t%s\n", s.User.Username)
	fmt.Fprintf(w, "name\t%s\n", s.User.FullName())
	fmt.Fprintf(w, "email\t%s\n", s.User.Email)
	fmt.Fprintf(w, "date_of_birth\t%s\n", s.DateOfBirth)
	fmt.Fprintf(w, "gender\t%s\n", s.Gender)
	fmt.Fprintf(w, "blood_group\t%s\n", s.BloodGroup)
	fmt.Fprintf(w, "contact_number\t%s\n", s.ContactNumber)
	fmt.Fprintf(w, "address\t%s\n", s.Address)
	if s.ProfilePicURL != nil {
		fmt.Fprintf(w, "profile_pic\t%s\n", *s.ProfilePicURL)
	}
	for _, f := range s.Faculties {
		fmt.Fprintf(w, "faculty\t%s (%s)\n", f.User.FullName(), f.Subject)
	}
	_ = w.Flush()
}

func parseID(args []string, syntax string) (int, error) {
	if len(args) != 1 {
		return 0, usagef("usage: %s", syntax)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, usagef("invalid id %q", args[0])
	}
	return id, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
