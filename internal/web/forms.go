package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bookshelf/internal/bookclient"
)

// Validation errors are local and field-level; a form with any of them
// never reaches the network.

var validate = validator.New(validator.WithRequiredStructEnabled())

type loginForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required,min=6"`
}

type registerForm struct {
	Name            string `validate:"required,min=2"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

type bookForm struct {
	Title       string `validate:"required,max=100"`
	Author      string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	PublishedAt string `validate:"omitempty,datetime=2006-01-02"`
}

func parseLoginForm(r *http.Request) loginForm {
	return loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func parseRegisterForm(r *http.Request) registerForm {
	return registerForm{
		Name:            strings.TrimSpace(r.PostFormValue("name")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
}

func parseBookForm(r *http.Request) bookForm {
	return bookForm{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Author:      strings.TrimSpace(r.PostFormValue("author")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		PublishedAt: strings.TrimSpace(r.PostFormValue("publishedAt")),
	}
}

// input converts a validated book form into the client payload.
func (f bookForm) input() bookclient.BookInput {
	in := bookclient.BookInput{
		Title:       f.Title,
		Author:      f.Author,
		Description: f.Description,
	}
	if f.PublishedAt != "" {
		if ts, err := time.Parse("2006-01-02", f.PublishedAt); err == nil {
			in.PublishedAt = &ts
		}
	}
	return in
}

// fieldErrors validates the form and maps failures to per-field messages.
// An empty map means the form is valid.
func fieldErrors(form any) map[string]string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": "Invalid input"}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	label := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", label, fe.Param())
	case "email":
		return "Invalid email format"
	case "eqfield":
		return "Passwords don't match"
	case "datetime":
		return "Invalid date format"
	default:
		return label + " is invalid"
	}
}

func fieldLabel(field string) string {
	switch field {
	case "ConfirmPassword":
		return "Confirm password"
	case "PublishedAt":
		return "Published date"
	default:
		return field
	}
}
