package college

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/campusdesk/portal/pkg/errors"
)

// Profile picture limits
const (
	MaxProfilePicSize = 5 << 20
)

// AllowedProfilePicTypes are the accepted image formats, sniffed from content
var AllowedProfilePicTypes = []string{"image/jpeg", "image/png", "image/gif"}

// Student age bounds
const (
	MinStudentAge = 16
	MaxStudentAge = 100
)

var contactRegex = regexp.MustCompile(`^\d{10}$`)

const passwordSpecials = "@$!%*?&"

// field/tag -> message; the "" tag is the fallback for the field
var fieldMessages = map[string]map[string]string{
	"username": {
		"required": "Username is required",
		"":         "Invalid username",
	},
	"password": {
		"required": "Password is required",
		"":         "Invalid password",
	},
	"user.username": {
		"required": "Username is required",
		"":         "Username must be at least 4 characters",
	},
	"user.password": {
		"required": "Password is required",
		"":         "Password must be at least 8 characters and include uppercase, lowercase, number, and special character",
	},
	"user.email": {
		"": "Please enter a valid email address",
	},
	"user.first_name": {
		"": "First name must be at least 2 characters",
	},
	"user.last_name": {
		"": "Last name must be at least 2 characters",
	},
	"contact_number": {
		"": "Please enter a valid 10-digit contact number",
	},
	"date_of_birth": {
		"required": "Date of birth is required",
		"datetime": "Date of birth must be in YYYY-MM-DD format",
		"":         "Student must be between 16 and 100 years old",
	},
	"gender": {
		"required": "Gender is required",
		"":         "Gender must be one of M, F or O",
	},
	"blood_group": {
		"required": "Blood group is required",
		"":         "Blood group must be one of A+, A-, B+, B-, AB+, AB-, O+ or O-",
	},
	"address": {
		"": "Address is required",
	},
}

// Validator checks forms before anything is sent
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewValidator creates a validator with the form rules registered
func NewValidator() *Validator {
	v := &Validator{
		validate: validator.New(),
		now:      time.Now,
	}

	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("form")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// Registration only fails on empty tags or nil funcs.
	_ = v.validate.RegisterValidation("password", validPasswordField)
	_ = v.validate.RegisterValidation("contact_number", func(fl validator.FieldLevel) bool {
		return ValidContactNumber(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("trimmed_min", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len([]rune(strings.TrimSpace(fl.Field().String()))) >= n
	})
	_ = v.validate.RegisterValidation("student_age", func(fl validator.FieldLevel) bool {
		dob, err := time.Parse(time.DateOnly, fl.Field().String())
		if err != nil {
			return false
		}
		age := Age(dob, v.now())
		return age >= MinStudentAge && age <= MaxStudentAge
	})

	return v
}

// Credentials checks that both login fields are present
func (v *Validator) Credentials(c Credentials) error {
	return v.check(&c)
}

// Student checks a create (creating=true) or update form. The password is
// required on create and optional on update.
func (v *Validator) Student(form *StudentForm, creating bool) error {
	fields := map[string]string{}
	if err := v.check(form); err != nil {
		appErr, ok := apperrors.As(err)
		if !ok {
			return err
		}
		fields = appErr.Fields
	}

	if creating && form.Password == "" {
		fields["user.password"] = fieldMessages["user.password"]["required"]
	}

	if form.ProfilePic != nil {
		if _, err := v.ProfilePic(form.ProfilePic); err != nil {
			fields["profile_pic"] = err.Error()
		}
	}

	if len(fields) > 0 {
		return apperrors.Validation(fields)
	}
	return nil
}

// ProfilePic checks size and sniffed type and returns the detected MIME type
func (v *Validator) ProfilePic(f *File) (string, error) {
	if f == nil || len(f.Data) == 0 {
		return "", errors.New("No file provided")
	}
	if len(f.Data) > MaxProfilePicSize {
		return "", errors.New("Image file too large ( > 5MB )")
	}

	mtype := mimetype.Detect(f.Data)
	for _, allowed := range AllowedProfilePicTypes {
		if mtype.Is(allowed) {
			return allowed, nil
		}
	}
	return "", errors.New("Unsupported file type. Allowed types: JPEG, PNG, GIF")
}

func (v *Validator) check(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = messageFor(fe.Field(), fe.Tag())
	}
	return apperrors.Validation(fields)
}

func messageFor(field, tag string) string {
	msgs, ok := fieldMessages[field]
	if !ok {
		return "Invalid value"
	}
	if m, ok := msgs[tag]; ok {
		return m
	}
	return msgs[""]
}

// ValidPassword reports whether p has at least 8 characters drawn from
// letters, digits and @$!%*?&, including an upper, a lower, a digit and a
// special character.
func ValidPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return upper && lower && digit && special
}

func validPasswordField(fl validator.FieldLevel) bool {
	return ValidPassword(fl.Field().String())
}

// ValidContactNumber reports whether n is exactly ten digits
func ValidContactNumber(n string) bool {
	return contactRegex.MatchString(n)
}

// Age returns whole years between dob and now
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}
