// Package form describes HTML forms for the templates: which fields a
// page shows, their kinds, their submitted values and their errors.
package form

import (
	stderrors "errors"
	"fmt"

	"yatube/internal/errors"

	"github.com/go-playground/validator/v10"
)

type Kind string

const (
	KindChar   Kind = "char"
	KindChoice Kind = "choice"
	KindImage  Kind = "image"
)

type Choice struct {
	Value    string
	Label    string
	Selected bool
}

type Field struct {
	Name      string
	Label     string
	Kind      Kind
	Required  bool
	Multiline bool
	// InputType is the <input type> of a single-line char field.
	InputType string
	Value     string
	Choices   []Choice
	HelpText  string
	Error     string
}

// Form is an ordered set of fields plus errors that belong to no field.
type Form struct {
	Fields []*Field
	Errors []string
}

func New(fields ...*Field) *Form {
	return &Form{Fields: fields}
}

// Char is a text input.
func Char(name, label string, required bool) *Field {
	return &Field{Name: name, Label: label, Kind: KindChar, Required: required, InputType: "text"}
}

// Field returns the named field or nil.
func (f *Form) Field(name string) *Field {
	for _, field := range f.Fields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

// SetValue fills a field; choice fields mark the matching option.
func (f *Form) SetValue(name, value string) {
	field := f.Field(name)
	if field == nil {
		return
	}
	field.Value = value
	for i := range field.Choices {
		field.Choices[i].Selected = field.Choices[i].Value == value
	}
}

// SetError attaches msg to the named field, or to the form when there is
// no such field. The first error of a field wins.
func (f *Form) SetError(name, msg string) {
	if field := f.Field(name); field != nil {
		if field.Error == "" {
			field.Error = msg
		}
		return
	}
	f.Errors = append(f.Errors, msg)
}

func (f *Form) Valid() bool {
	if len(f.Errors) > 0 {
		return false
	}
	for _, field := range f.Fields {
		if field.Error != "" {
			return false
		}
	}
	return true
}

// AddError records err from binding or from a service. It reports
// whether err was a user-facing validation error; anything else is left
// for the caller to handle.
func (f *Form) AddError(err error) bool {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		for _, fe := range verrs {
			f.SetError(fe.Field(), message(fe))
		}
		return true
	}
	if fe, ok := errors.FieldOf(err); ok {
		f.SetError(fe.Field, fe.Message)
		return true
	}
	switch errors.CodeOf(err) {
	case errors.ErrValidation, errors.ErrInvalidCredentials:
		var appErr *errors.AppError
		stderrors.As(err, &appErr)
		f.Errors = append(f.Errors, appErr.Message)
		return true
	}
	return false
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Enter a valid value."
	}
}
