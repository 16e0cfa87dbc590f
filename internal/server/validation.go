package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jwulff/lotscope-go/internal/domain"
)

// dateRequest carries the {date} path parameter.
type dateRequest struct {
	Date string `validate:"required,isodate"`
}

// readingsRequest carries the readings endpoint query parameters.
type readingsRequest struct {
	Tag string `validate:"omitempty,readingtag"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("isodate", isISODate)
	v.RegisterValidation("readingtag", isReadingTag)
	return v
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := domain.ParseISODate(fl.Field().String())
	return err == nil
}

func isReadingTag(fl validator.FieldLevel) bool {
	_, err := domain.ParseTag(fl.Field().String())
	return err == nil
}

// fieldErrors converts a validation failure into response details.
func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: formatFieldError(fe),
		})
	}
	return out
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "readingtag":
		return fmt.Sprintf("%s must be one of: %s, %s", field, domain.TagError, domain.TagNormal)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
