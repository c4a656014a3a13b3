package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/interfaces/http/dto"
)

// SetupValidator names fields by their json (or form) tag in validation
// errors and registers indian_phone.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("indian_phone", func(fl validator.FieldLevel) bool {
		return identity.ValidatePhone(fl.Field().String()) == nil
	})
}

// FormatValidationErrors builds the 400 envelope for a bind failure. Errors
// that are not field validation failures are reported as a malformed body.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return dto.NewValidationErrorResponse("Malformed request body", requestID, nil)
	}
	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: validationMessage(fe)})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 validation response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

var fixedMessages = map[string]string{
	"required":     "This field is required",
	"email":        "Invalid email format",
	"url":          "Invalid URL format",
	"indian_phone": "Invalid phone number",
}

var boundMessages = map[string]string{
	"min":   "Must be at least %s",
	"max":   "Must be at most %s",
	"gte":   "Must be greater than or equal to %s",
	"lte":   "Must be less than or equal to %s",
	"gt":    "Must be greater than %s",
	"oneof": "Must be one of: %s",
}

func validationMessage(e validator.FieldError) string {
	if msg, ok := fixedMessages[e.Tag()]; ok {
		return msg
	}
	format, ok := boundMessages[e.Tag()]
	if !ok {
		return "Invalid value"
	}
	msg := fmt.Sprintf(format, e.Param())
	if (e.Tag() == "min" || e.Tag() == "max") && e.Kind() == reflect.String {
		msg += " characters"
	}
	return msg
}
