package apiutil

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Aidin1998/foodhub/pkg/errors"
)

// RegisterJSONFieldNames makes gin's validator report json field names.
func RegisterJSONFieldNames() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonName)
	}
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// BindJSON decodes and validates the body into obj, returning an
// errors.Invalid with one field entry per failed rule.
func BindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return ValidationError(err)
	}
	return nil
}

// ValidationError converts validator errors to errors.Invalid.
func ValidationError(err error) error {
	validationErr := errors.Invalid.Explain("validation error")
	var fieldsError validator.ValidationErrors
	if errors.As(err, &fieldsError) {
		for _, fieldErr := range fieldsError {
			validationErr = validationErr.WithField(fieldErr.Tag(), fieldNamespace(fieldErr), fieldErr.Error())
		}
		return validationErr
	}
	return validationErr.Explain("malformed request body").Wrap(err)
}

// fieldNamespace drops the top-level struct name: "CreateOrderRequest.items[0].quantity" -> "items[0].quantity".
func fieldNamespace(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
