package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	dErrors "hearthgate/pkg/domain-errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the user's invariants before it is persisted. Failures come
// back as CodeValidation domain errors naming the offending fields.
func (u *User) Validate() error {
	err := validatorInstance().Struct(u)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "validate user")
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return &dErrors.Error{
		Code:    dErrors.CodeValidation,
		Message: "invalid user: " + strings.Join(fields, ", "),
		Err:     err,
	}
}
