package job

import (
	"sync"

	"github.com/go-playground/validator/v10"

	cferrors "github.com/alexisbeaulieu97/clusterfuzz-reproduce/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

// validatorInstance returns the shared validator used to check a resolved
// definition's Builder/Reproducer/Sanitizer against their enumerated sets.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

func validateRawDefinition(jobType string, def RawDefinition) error {
	if def.Builder == "" {
		return cferrors.NewJobTypeError(jobType, "missing builder")
	}
	if def.Reproducer == "" {
		return cferrors.NewJobTypeError(jobType, "missing reproducer")
	}
	if err := validatorInstance().Struct(def); err != nil {
		return cferrors.NewValidationError(jobType, err.Error(), err)
	}
	return nil
}
