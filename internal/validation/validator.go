// Package validation checks task payloads before they reach the store.
// Checks are pure and never touch the database.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"tasklist/internal/models"
)

// TaskInput is the part of a create/update payload subject to field rules.
type TaskInput struct {
	Title string `json:"title" validate:"required,titlelen"`
}

// Result collects violations keyed by JSON field name.
type Result struct {
	Errors map[string]string `json:"errors"`
}

func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Validator wraps a configured validator.Validate.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("titlelen", titleLength); err != nil {
		panic(fmt.Sprintf("register titlelen validation: %v", err))
	}
	return &Validator{validate: v}
}

func titleLength(fl validator.FieldLevel) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
	return n >= models.TitleMinLength && n <= models.TitleMaxLength
}

// Validate checks in and returns every violation found.
func (v *Validator) Validate(in TaskInput) Result {
	in.Title = strings.TrimSpace(in.Title)

	res := Result{Errors: map[string]string{}}
	err := v.validate.Struct(in)
	if err == nil {
		return res
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		res.Errors["_"] = err.Error()
		return res
	}
	for _, fe := range fieldErrs {
		if _, seen := res.Errors[fe.Field()]; seen {
			continue
		}
		res.Errors[fe.Field()] = message(fe)
	}
	return res
}

func message(fe validator.FieldError) string {
	label := strings.ToUpper(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "titlelen":
		return fmt.Sprintf("%s must be between %d and %d characters", label, models.TitleMinLength, models.TitleMaxLength)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
