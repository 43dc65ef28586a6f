package service

import (
	"fmt"
)

const (
	ResultNotFoundMessage      = "Validation result not found"
	FailedToFetchResultMessage = "Failed to fetch results"
)

type ErrResultNotFound struct {
	error
}

func NewErrResultNotFound(checkID string) *ErrResultNotFound {
	return &ErrResultNotFound{fmt.Errorf("no result for check %s", checkID)}
}

// ErrFetchResults carries the message of a failed result list fetch.
type ErrFetchResults struct {
	error
}

func NewErrFetchResults(message string) *ErrFetchResults {
	if message == "" {
		message = FailedToFetchResultMessage
	}
	return &ErrFetchResults{fmt.Errorf("%s", message)}
}
