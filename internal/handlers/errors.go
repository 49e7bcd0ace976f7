package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondValidationError writes a 422 with per-field messages.
// Binding failures that are not field validations (e.g. broken JSON) get a single
// "body" entry.
func respondValidationError(c *gin.Context, err error) {
	fields := gin.H{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = validationMessage(fe)
		}
	} else {
		fields["body"] = "invalid request body"
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":  "validation failed",
		"fields": fields,
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "invalid value"
	}
}
