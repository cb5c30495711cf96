package college

import (
	"bytes"
	"errors"
	"testing"
	"time"

	apperrors "github.com/campusdesk/portal/pkg/errors"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

func validForm() StudentForm {
	return StudentForm{
		Username:      "carol",
		Password:      "Passw0rd!",
		Email:         "carol@college.test",
		FirstName:     "Carol",
		LastName:      "Diaz",
		DateOfBirth:   "2003-02-01",
		Gender:        "F",
		BloodGroup:    "AB-",
		ContactNumber: "5550000001",
		Address:       "3 Elm St",
	}
}

func fixedValidator() *Validator {
	v := NewValidator()
	v.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return v
}

func TestValidPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Passw0rd!", true},
		{"Secret123!", true},
		{"Aa1@aaaa", true},
		{"Aa1@aaa", false},
		{"password1!", false},
		{"PASSWORD1!", false},
		{"Password!!", false},
		{"Password12", false},
		{"Passw0rd#", false},
		{"Pässw0rd!", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			if got := ValidPassword(tt.password); got != tt.want {
				t.Errorf("ValidPassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestValidContactNumber(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"5550000001", true},
		{"12345", false},
		{"555000000a", false},
		{"55500000011", false},
		{"+555000000", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			if got := ValidContactNumber(tt.number); got != tt.want {
				t.Errorf("ValidContactNumber(%q) = %v, want %v", tt.number, got, tt.want)
			}
		})
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		dob  string
		want int
	}{
		{"2009-06-15", 16},
		{"2009-06-16", 15},
		{"2009-07-01", 15},
		{"1925-06-15", 100},
		{"1925-06-14", 100},
		{"1925-01-01", 100},
		{"1924-06-15", 101},
	}

	for _, tt := range tests {
		t.Run(tt.dob, func(t *testing.T) {
			dob, _ := time.Parse(time.DateOnly, tt.dob)
			if got := Age(dob, now); got != tt.want {
				t.Errorf("Age(%s) = %d, want %d", tt.dob, got, tt.want)
			}
		})
	}
}

func TestValidator_Student(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *StudentForm)
		creating  bool
		wantField string
		wantMsg   string
	}{
		{"valid create", func(f *StudentForm) {}, true, "", ""},
		{"valid update without password", func(f *StudentForm) { f.Password = "" }, false, "", ""},
		{"missing password on create", func(f *StudentForm) { f.Password = "" }, true, "user.password", "Password is required"},
		{"weak password", func(f *StudentForm) { f.Password = "password" }, false, "user.password",
			"Password must be at least 8 characters and include uppercase, lowercase, number, and special character"},
		{"short username", func(f *StudentForm) { f.Username = "bob" }, true, "user.username", "Username must be at least 4 characters"},
		{"missing username", func(f *StudentForm) { f.Username = "" }, true, "user.username", "Username is required"},
		{"bad email", func(f *StudentForm) { f.Email = "carol@" }, true, "user.email", "Please enter a valid email address"},
		{"blank first name", func(f *StudentForm) { f.FirstName = "  C " }, true, "user.first_name", "First name must be at least 2 characters"},
		{"short last name", func(f *StudentForm) { f.LastName = "D" }, true, "user.last_name", "Last name must be at least 2 characters"},
		{"short contact", func(f *StudentForm) { f.ContactNumber = "12345" }, true, "contact_number", "Please enter a valid 10-digit contact number"},
		{"missing dob", func(f *StudentForm) { f.DateOfBirth = "" }, true, "date_of_birth", "Date of birth is required"},
		{"bad dob format", func(f *StudentForm) { f.DateOfBirth = "01/02/2003" }, true, "date_of_birth", "Date of birth must be in YYYY-MM-DD format"},
		{"too young", func(f *StudentForm) { f.DateOfBirth = "2015-01-01" }, true, "date_of_birth", "Student must be between 16 and 100 years old"},
		{"too old", func(f *StudentForm) { f.DateOfBirth = "1900-01-01" }, true, "date_of_birth", "Student must be between 16 and 100 years old"},
		{"bad gender", func(f *StudentForm) { f.Gender = "X" }, true, "gender", "Gender must be one of M, F or O"},
		{"missing gender", func(f *StudentForm) { f.Gender = "" }, true, "gender", "Gender is required"},
		{"bad blood group", func(f *StudentForm) { f.BloodGroup = "C+" }, true, "blood_group", "Blood group must be one of A+, A-, B+, B-, AB+, AB-, O+ or O-"},
		{"missing address", func(f *StudentForm) { f.Address = "" }, true, "address", "Address is required"},
		{"text picture", func(f *StudentForm) { f.ProfilePic = &File{Name: "a.png", Data: []byte("hello")} }, true, "profile_pic",
			"Unsupported file type. Allowed types: JPEG, PNG, GIF"},
	}

	v := fixedValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)

			err := v.Student(&form, tt.creating)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Student() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, apperrors.ErrValidationFailed) {
				t.Fatalf("Student() error = %v, want VALIDATION_FAILED", err)
			}
			appErr, _ := apperrors.As(err)
			if appErr.Status != 0 {
				t.Errorf("Status = %d, want 0 for a client-side failure", appErr.Status)
			}
			if got := appErr.Fields[tt.wantField]; got != tt.wantMsg {
				t.Errorf("Fields[%s] = %q, want %q", tt.wantField, got, tt.wantMsg)
			}
		})
	}
}

func TestValidator_StudentReportsEveryField(t *testing.T) {
	err := fixedValidator().Student(&StudentForm{}, true)
	appErr, ok := apperrors.As(err)
	if !ok {
		t.Fatalf("Student() error = %v, want *AppError", err)
	}

	want := []string{
		"user.username", "user.password", "user.email", "user.first_name", "user.last_name",
		"date_of_birth", "gender", "blood_group", "contact_number", "address",
	}
	for _, f := range want {
		if _, ok := appErr.Fields[f]; !ok {
			t.Errorf("Fields missing %q (got %v)", f, appErr.Fields)
		}
	}
}

func TestValidator_ProfilePic(t *testing.T) {
	tests := []struct {
		name     string
		file     *File
		wantType string
		wantErr  bool
	}{
		{"png", &File{Name: "a.png", Data: pngHeader}, "image/png", false},
		{"jpeg with wrong extension", &File{Name: "a.gif", Data: jpegHeader}, "image/jpeg", false},
		{"gif", &File{Name: "a.gif", Data: []byte("GIF89a\x01\x00")}, "image/gif", false},
		{"pdf", &File{Name: "a.png", Data: []byte("%PDF-1.4\n")}, "", true},
		{"empty", &File{Name: "a.png"}, "", true},
		{"nil", nil, "", true},
		{"too large", &File{Name: "a.png", Data: append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxProfilePicSize)...)}, "", true},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ProfilePic(tt.file)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProfilePic() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.wantType {
				t.Errorf("ProfilePic() = %q, want %q", got, tt.wantType)
			}
		})
	}
}

func TestValidator_Credentials(t *testing.T) {
	err := NewValidator().Credentials(Credentials{Username: "alice"})
	appErr, ok := apperrors.As(err)
	if !ok {
		t.Fatalf("Credentials() error = %v, want *AppError", err)
	}
	if appErr.Fields["password"] != "Password is required" {
		t.Errorf("Fields[password] = %q", appErr.Fields["password"])
	}
	if _, ok := appErr.Fields["username"]; ok {
		t.Error("username reported although present")
	}

	if err := NewValidator().Credentials(Credentials{Username: "alice", Password: "x"}); err != nil {
		t.Errorf("Credentials() error = %v, want nil", err)
	}
}
