package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/campusdesk/portal/internal/college"
	apperrors "github.com/campusdesk/portal/pkg/errors"
)

// formFlags binds the student form to command-line flags
type formFlags struct {
	fs     *flag.FlagSet
	values college.StudentForm
	photo  string
}

func newFormFlags(name string) *formFlags {
	f := &formFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	v := &f.values
	f.fs.StringVar(&v.Username, "username", "", "login name")
	f.fs.StringVar(&v.Password, "password", "", "password (left unchanged on edit when empty)")
	f.fs.StringVar(&v.Email, "email", "", "email address")
	f.fs.StringVar(&v.FirstName, "first-name", "", "first name")
	f.fs.StringVar(&v.LastName, "last-name", "", "last name")
	f.fs.StringVar(&v.DateOfBirth, "dob", "", "date of birth, YYYY-MM-DD")
	f.fs.StringVar(&v.Gender, "gender", "", "M, F or O")
	f.fs.StringVar(&v.BloodGroup, "blood-group", "", "A+, A-, B+, B-, AB+, AB-, O+ or O-")
	f.fs.StringVar(&v.ContactNumber, "contact", "", "10-digit contact number")
	f.fs.StringVar(&v.Address, "address", "", "postal address")
	f.fs.StringVar(&f.photo, "photo", "", "profile picture file")
	return f
}

// apply copies the flags that were set onto form, leaving the rest alone
func (f *formFlags) apply(form *college.StudentForm) error {
	var err error
	f.fs.Visit(func(fl *flag.Flag) {
		v := &f.values
		switch fl.Name {
		case "username":
			form.Username = v.Username
		case "password":
			form.Password = v.Password
		case "email":
			form.Email = v.Email
		case "first-name":
			form.FirstName = v.FirstName
		case "last-name":
			form.LastName = v.LastName
		case "dob":
			form.DateOfBirth = v.DateOfBirth
		case "gender":
			form.Gender = v.Gender
		case "blood-group":
			form.BloodGroup = v.BloodGroup
		case "contact":
			form.ContactNumber = v.ContactNumber
		case "address":
			form.Address = v.Address
		case "photo":
			form.ProfilePic, err = readFile(f.photo)
		}
	})
	return err
}

func readFile(path string) (*college.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Validation(map[string]string{"profile_pic": fmt.Sprintf("Cannot read %s", path)})
	}
	return &college.File{Name: filepath.Base(path), Data: data}, nil
}
