package college

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campusdesk/portal/internal/httpclient"
	apperrors "github.com/campusdesk/portal/pkg/errors"
	"go.uber.org/zap"
)

// ListStudents returns every student visible to the signed-in user
func (a *API) ListStudents(ctx context.Context) ([]Student, error) {
	var students []Student
	if err := a.client.Get(ctx, PathStudents, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// GetStudentDetails loads one student record
func (a *API) GetStudentDetails(ctx context.Context, id int) (*Student, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}

	var s Student
	if err := a.client.Get(ctx, fmt.Sprintf(pathStudent, id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateStudent validates form and creates the student with its account
func (a *API) CreateStudent(ctx context.Context, form StudentForm) (*Student, error) {
	if err := a.validator.Student(&form, true); err != nil {
		return nil, err
	}

	body, err := a.studentBody(&form)
	if err != nil {
		return nil, err
	}

	var s Student
	if err := a.client.Post(ctx, PathStudents, body, &s); err != nil {
		return nil, err
	}
	a.logger.Info("student created", zap.Int("student_id", s.ID))
	return &s, nil
}

// UpdateStudent validates form and replaces the student record. An empty
// password keeps the current one.
func (a *API) UpdateStudent(ctx context.Context, id int, form StudentForm) (*Student, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	if err := a.validator.Student(&form, false); err != nil {
		return nil, err
	}

	body, err := a.studentBody(&form)
	if err != nil {
		return nil, err
	}

	var s Student
	if err := a.client.Put(ctx, fmt.Sprintf(pathStudent, id), body, &s); err != nil {
		return nil, err
	}
	a.logger.Info("student updated", zap.Int("student_id", id))
	return &s, nil
}

// DeleteStudent removes a student record
func (a *API) DeleteStudent(ctx context.Context, id int) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := a.client.Delete(ctx, fmt.Sprintf(pathStudent, id)); err != nil {
		return err
	}
	a.logger.Info("student deleted", zap.Int("student_id", id))
	return nil
}

// UploadProfilePic replaces a student's profile picture
func (a *API) UploadProfilePic(ctx context.Context, id int, file File) (*ProfilePicResult, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	contentType, err := a.validator.ProfilePic(&file)
	if err != nil {
		return nil, apperrors.Validation(map[string]string{"profile_pic": err.Error()})
	}

	body := &httpclient.Multipart{}
	body.AddFile(httpclient.FilePart{
		Field:       "profile_pic",
		FileName:    file.Name,
		ContentType: contentType,
		Data:        file.Data,
	})

	var result ProfilePicResult
	if err := a.client.Post(ctx, fmt.Sprintf(pathStudentPhoto, id), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type userPayload struct {
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// studentBody builds the multipart form: the account as a JSON string in
// "user", the optional picture, then the profile fields.
func (a *API) studentBody(form *StudentForm) (*httpclient.Multipart, error) {
	user, err := json.Marshal(userPayload{
		Username:  form.Username,
		Password:  form.Password,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}

	body := &httpclient.Multipart{}
	body.Add("user", string(user))

	if form.ProfilePic != nil {
		contentType, err := a.validator.ProfilePic(form.ProfilePic)
		if err != nil {
			return nil, apperrors.Validation(map[string]string{"profile_pic": err.Error()})
		}
		body.AddFile(httpclient.FilePart{
			Field:       "profile_pic",
			FileName:    form.ProfilePic.Name,
			ContentType: contentType,
			Data:        form.ProfilePic.Data,
		})
	}

	body.Add("date_of_birth", form.DateOfBirth)
	body.Add("gender", form.Gender)
	body.Add("blood_group", form.BloodGroup)
	body.Add("contact_number", form.ContactNumber)
	body.Add("address", form.Address)
	return body, nil
}
