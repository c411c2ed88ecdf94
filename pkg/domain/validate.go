package domain

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Form field names used in ValidationErrors.
const (
	FieldEmail            = "email"
	FieldPassword         = "password"
	FieldStudentID        = "student_id"
	FieldName             = "name"
	FieldDepartment       = "department"
	FieldYearOfStudy      = "year_of_study"
	FieldRegistrationDate = "date_of_registration"
)

// MinPasswordLen is the shortest password the auth service accepts.
const MinPasswordLen = 6

var studentIDPattern = regexp.MustCompile(`^\d{2}[Ll]-\d{4}$`)

// ValidStudentID reports whether s has the DDL-DDDD form (L in either case).
func ValidStudentID(s string) bool {
	return studentIDPattern.MatchString(s)
}

// ProfileInput is the user-editable part of a profile as typed into a form.
type ProfileInput struct {
	StudentID        string `form:"student_id" validate:"required,student_id"`
	Name             string `form:"name" validate:"required"`
	DepartmentID     int    `form:"department" validate:"required,department"`
	YearOfStudy      string `form:"year_of_study" validate:"required"`
	RegistrationDate string `form:"date_of_registration" validate:"omitempty,calendar_date"`
}

// Credentials is an email/password pair.
type Credentials struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required,min=6"`
}

// SignInInput is what the login form submits. Length is not checked on sign-in.
type SignInInput struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// RegistrationInput is a complete sign-up form.
type RegistrationInput struct {
	Credentials
	Profile ProfileInput
}

// InputFromProfile fills an edit form from a stored profile.
func InputFromProfile(p StudentProfile) ProfileInput {
	return ProfileInput{
		StudentID:        p.StudentID,
		Name:             p.Name,
		DepartmentID:     p.DepartmentID,
		YearOfStudy:      p.YearOfStudy,
		RegistrationDate: p.RegistrationDate,
	}
}

// Normalize trims surrounding whitespace from every text field.
func (in ProfileInput) Normalize() ProfileInput {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Name = strings.TrimSpace(in.Name)
	in.YearOfStudy = strings.TrimSpace(in.YearOfStudy)
	in.RegistrationDate = strings.TrimSpace(in.RegistrationDate)
	return in
}

// Fields converts validated input to stored fields. An empty registration
// date defaults to today.
func (in ProfileInput) Fields(today time.Time) ProfileFields {
	in = in.Normalize()
	date := in.RegistrationDate
	if date == "" {
		date = FormatDate(today)
	}
	return ProfileFields{
		StudentID:        in.StudentID,
		Name:             in.Name,
		DepartmentID:     in.DepartmentID,
		YearOfStudy:      in.YearOfStudy,
		RegistrationDate: date,
	}
}

// Normalize trims the email and password.
func (c Credentials) Normalize() Credentials {
	c.Email = strings.TrimSpace(c.Email)
	c.Password = strings.TrimSpace(c.Password)
	return c
}

// Normalize trims every field of the registration form.
func (in RegistrationInput) Normalize() RegistrationInput {
	in.Credentials = in.Credentials.Normalize()
	in.Profile = in.Profile.Normalize()
	return in
}

// ValidateProfile checks every profile field and reports all failures together.
func ValidateProfile(in ProfileInput) error {
	return validateStruct(in.Normalize())
}

// ValidateRegistration checks credentials and profile fields together.
func ValidateRegistration(in RegistrationInput) error {
	return validateStruct(in.Normalize())
}

// ValidateSignIn checks that email and password are present.
func ValidateSignIn(in SignInInput) error {
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	return validateStruct(in)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("student_id", func(fl validator.FieldLevel) bool {
		return ValidStudentID(fl.Field().String())
	})
	_ = v.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		return ValidDepartmentID(int(fl.Field().Int()))
	})
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, ok := ParseDate(fl.Field().String())
		return ok
	})
	return v
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

var fieldMessages = map[string]string{
	FieldEmail + ".required":                 "Email is required",
	FieldPassword + ".required":              "Password is required",
	FieldPassword + ".min":                   "Password must be at least 6 characters",
	FieldStudentID + ".required":             "Student ID is required",
	FieldStudentID + ".student_id":           "Student ID must be in format XXL-XXXX (e.g., 22L-1234)",
	FieldName + ".required":                  "Name is required",
	FieldDepartment + ".required":            "Please select a valid department",
	FieldDepartment + ".department":          "Please select a valid department",
	FieldYearOfStudy + ".required":           "Year of study is required",
	FieldRegistrationDate + ".calendar_date": "Date of registration must be in format YYYY-MM-DD",
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fe.Field() + " validation failed: " + fe.Tag()
}
