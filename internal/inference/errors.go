package inference

import (
	"errors"
	"fmt"
)

// ModelMismatchError reports two models that cannot be compared by a
// likelihood-ratio test.
type ModelMismatchError struct {
	Null   string
	Full   string
	Reason string
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("cannot compare %q with %q: %s", e.Null, e.Full, e.Reason)
}

// IsModelMismatch reports whether err is or wraps a *ModelMismatchError.
func IsModelMismatch(err error) bool {
	var me *ModelMismatchError
	return errors.As(err, &me)
}
