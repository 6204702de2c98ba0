package validation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validatable is implemented by every request payload.
type Validatable interface {
	Validate() error
}

// ParamBinder is implemented by payloads that take positional path
// parameters.
type ParamBinder interface {
	BindParams(params []string) error
}

// QueryBinder is implemented by payloads read from the query string.
type QueryBinder interface {
	BindQuery(query url.Values) error
}

type CustomValidationError struct {
	Field   string
	Message string
}

type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	return "Validation failed"
}

// Struct validates v against its validate tags.
func Struct(v any) error {
	return validate.Struct(v)
}

// BindAndValidate decodes the body of req into payload, binds path
// parameters, then validates. Failures are 400 errors.
func BindAndValidate(req *envelope.Request, params []string, payload Validatable) error {
	if err := Bind(req, payload); err != nil {
		return err
	}

	if binder, ok := payload.(QueryBinder); ok {
		if err := binder.BindQuery(req.QueryValues()); err != nil {
			return badRequest(err)
		}
	}

	if binder, ok := payload.(ParamBinder); ok {
		if err := binder.BindParams(params); err != nil {
			return badRequest(err)
		}
	}

	if err := payload.Validate(); err != nil {
		msg, fieldErrors := extractValidationError(err)
		if fieldErrors == nil {
			return errs.ValidationError(err)
		}
		return errs.NewBadRequestError(msg, true, nil, fieldErrors, nil)
	}

	return nil
}

func badRequest(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	return errs.NewBadRequestError(err.Error(), true, nil, nil, nil)
}

// Bind copies the decoded body of req into payload.
func Bind(req *envelope.Request, payload any) error {
	body := req.Body()
	if len(body) == 0 {
		return nil
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to re-encode request body")
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return errs.NewBadRequestError("Invalid request body", true, nil, []errs.FieldError{
				{Field: typeErr.Field, Error: fmt.Sprintf("must be a %s", typeErr.Type.Kind())},
			}, nil)
		}
		return errs.NewBadRequestError("Invalid request body", true, nil, nil, nil)
	}

	return nil
}

func extractValidationError(err error) (string, []errs.FieldError) {
	var fieldErrors []errs.FieldError

	var customErrors CustomValidationErrors
	if errors.As(err, &customErrors) {
		for _, e := range customErrors {
			fieldErrors = append(fieldErrors, errs.FieldError{
				Field: e.Field,
				Error: e.Message,
			})
		}
		return "Validation failed", fieldErrors
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error(), nil
	}

	for _, e := range validationErrors {
		field := e.Field()
		var msg string

		switch e.Tag() {
		case "required":
			msg = "is required"
		case "min":
			if e.Kind() == reflect.String {
				msg = fmt.Sprintf("must be at least %s characters", e.Param())
			} else {
				msg = fmt.Sprintf("must be at least %s", e.Param())
			}
		case "max":
			if e.Kind() == reflect.String {
				msg = fmt.Sprintf("must not exceed %s characters", e.Param())
			} else {
				msg = fmt.Sprintf("must not exceed %s", e.Param())
			}
		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", e.Param())
		case "email":
			msg = "must be a valid email address"
		case "gt":
			msg = fmt.Sprintf("must be greater than %s", e.Param())
		case "gte":
			msg = fmt.Sprintf("must be at least %s", e.Param())
		default:
			if e.Param() != "" {
				msg = fmt.Sprintf("%s: %s:%s", field, e.Tag(), e.Param())
			} else {
				msg = fmt.Sprintf("%s: %s", field, e.Tag())
			}
		}

		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: field,
			Error: msg,
		})
	}

	return "Validation failed", fieldErrors
}
