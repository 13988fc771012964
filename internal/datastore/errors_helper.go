package datastore

import (
	"fmt"

	"github.com/jingnanl/infant-guard/internal/errors"
)

// dbError creates a categorized database error with key/value context pairs.
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component(componentName).
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}
	return builder.Build()
}

func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component(componentName).
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}
