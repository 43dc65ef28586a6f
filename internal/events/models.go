package events

import (
	api "github.com/data-validator/data-validator/api/v1alpha1"
)

const (
	// CheckStatusKind is emitted when a watched check changes status.
	CheckStatusKind string = "io.data-validator.watch.check.status"
	// CheckErrorKind is emitted when a watched check could not be run.
	CheckErrorKind string = "io.data-validator.watch.check.error"
)

type CheckStatusEvent struct {
	CheckID        string           `json:"check_id"`
	ResultID       string           `json:"result_id"`
	PreviousStatus api.ResultStatus `json:"previous_status,omitempty"`
	Status         api.ResultStatus `json:"status"`
	FailedRecords  int              `json:"failed_records"`
}

type CheckErrorEvent struct {
	CheckID string `json:"check_id"`
	Error   string `json:"error"`
}
