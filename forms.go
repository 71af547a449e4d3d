package blogengine

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RegisterForm is the sign-up form.
type RegisterForm struct {
	Name     string `form:"name" validate:"required"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
}

// PostForm is the create/edit post form. Body is rich-text HTML.
type PostForm struct {
	Title    string `form:"title" validate:"required"`
	Subtitle string `form:"subtitle" validate:"required"`
	ImgURL   string `form:"img_url" validate:"required,url"`
	Body     string `form:"body" validate:"required"`
}

// Fields converts the form to store input.
func (f PostForm) Fields() PostFields {
	return PostFields{Title: f.Title, Subtitle: f.Subtitle, Body: f.Body, ImgURL: f.ImgURL}
}

// CommentForm is the add-comment form under a post.
type CommentForm struct {
	Body string `form:"comment_body" validate:"required"`
}

// FieldErrors maps a form field name to a user-facing message.
type FieldErrors map[string]string

// formValidator adapts go-playground/validator to echo.Validator.
type formValidator struct {
	v *validator.Validate
}

func newFormValidator() *formValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &formValidator{v: v}
}

// Validate implements echo.Validator.
func (fv *formValidator) Validate(i any) error {
	return fv.v.Struct(i)
}

// bindForm binds and validates a submitted form. Whitespace is trimmed from
// every string field except passwords. A non-nil FieldErrors means the input
// was rejected; the error return is reserved for malformed requests.
func bindForm[T any](c echo.Context, form *T) (FieldErrors, error) {
	if err := c.Bind(form); err != nil {
		return nil, err
	}
	trimForm(form)
	if err := c.Validate(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fieldErrors(verrs), nil
		}
		return nil, err
	}
	return nil, nil
}

func trimForm(form any) {
	switch f := form.(type) {
	case *RegisterForm:
		f.Name = strings.TrimSpace(f.Name)
		f.Email = strings.TrimSpace(f.Email)
	case *LoginForm:
		f.Email = strings.TrimSpace(f.Email)
	case *PostForm:
		f.Title = strings.TrimSpace(f.Title)
		f.Subtitle = strings.TrimSpace(f.Subtitle)
		f.ImgURL = strings.TrimSpace(f.ImgURL)
		f.Body = strings.TrimSpace(f.Body)
	case *CommentForm:
		f.Body = strings.TrimSpace(f.Body)
	}
}

func fieldErrors(verrs validator.ValidationErrors) FieldErrors {
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "This field is required."
		case "email":
			out[fe.Field()] = "Invalid email address."
		case "min":
			out[fe.Field()] = "Field must be at least " + fe.Param() + " characters long."
		case "url":
			out[fe.Field()] = "Invalid URL."
		default:
			out[fe.Field()] = "Invalid value."
		}
	}
	return out
}

// normalizeEmail is the canonical stored form of an address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
