package validator

import (
	"fmt"
)

type ErrInvalidCheck struct {
	error
}

func NewErrInvalidCheck(format string, args ...any) *ErrInvalidCheck {
	return &ErrInvalidCheck{fmt.Errorf(format, args...)}
}
