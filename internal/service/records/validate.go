package records

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/dental-admin/internal/model"
	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
)

// NewValidator returns a validator that knows the incident_status tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("incident_status", func(fl validator.FieldLevel) bool {
		return model.IncidentStatus(fl.Field().String()).Valid()
	})
	return v
}

func (s *Service) check(kind string, record any) error {
	err := s.validate.Struct(record)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewBadRequest(fmt.Sprintf("invalid %s", kind), err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperrors.NewBadRequest(fmt.Sprintf("invalid %s: %s", kind, strings.Join(msgs, "; ")), err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "incident_status":
		return fmt.Sprintf("%s must be one of Scheduled, In Progress, Completed, Cancelled", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
