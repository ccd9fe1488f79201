package behaviour

import (
	"errors"
	"fmt"
)

// ErrContractViolation is wrapped by every ContractViolation.
var ErrContractViolation = errors.New("behaviour contract violation")

// ContractViolation signals a caller bug, such as assessing an attempt that
// is not finished or passing a star rating outside 0..MaxStars. It is never
// the result of ordinary user input.
type ContractViolation struct {
	Op     string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ContractViolation) Unwrap() error { return ErrContractViolation }

// IsContractViolation reports whether err is or wraps a ContractViolation.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrContractViolation)
}
