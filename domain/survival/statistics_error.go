package survival

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// StatisticsErrorType is the fixed errorType of every StatisticsError
const StatisticsErrorType = "StatisticsError"

// StatisticsError is the single externally visible failure artifact of a batch.
// It is never returned alongside results.
type StatisticsError struct {
	ErrorType  string `json:"errorType"`
	HTTPStatus int    `json:"httpStatus"`
	RequestID  string `json:"request_id"`
	Message    string `json:"message"`

	cause error
}

// NewStatisticsError builds a StatisticsError with the standard type and status
func NewStatisticsError(requestID, message string, cause error) *StatisticsError {
	return &StatisticsError{
		ErrorType:  StatisticsErrorType,
		HTTPStatus: http.StatusBadRequest,
		RequestID:  requestID,
		Message:    message,
		cause:      cause,
	}
}

// Error returns the JSON encoding, so the error text itself is the wire payload
func (e *StatisticsError) Error() string {
	data, err := e.JSON()
	if err != nil {
		return fmt.Sprintf("%s: %s", e.ErrorType, e.Message)
	}
	return string(data)
}

// Unwrap exposes the translated InvalidInputError or ModelFitError
func (e *StatisticsError) Unwrap() error { return e.cause }

// JSON encodes the public fields
func (e *StatisticsError) JSON() ([]byte, error) {
	return json.Marshal(e)
}
