package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"gosurv/domain/core"
	"gosurv/domain/survival"
	"gosurv/internal"
)

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// SanitizeMessage collapses every run of line breaks into a single space so the
// message survives transports that assume single-line error text.
func SanitizeMessage(msg string) string {
	return lineBreaks.ReplaceAllString(msg, " ")
}

// ErrorTranslator turns validation and fitting failures into the single
// StatisticsError returned to callers, logging the full payload first.
type ErrorTranslator struct {
	logger *internal.Logger
}

// NewErrorTranslator creates a translator that logs through logger
func NewErrorTranslator(logger *internal.Logger) *ErrorTranslator {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &ErrorTranslator{logger: logger}
}

// Translate builds the StatisticsError for err. InvalidInputError and
// ModelFitError map to 400; cancellation and anything unexpected keep the same
// envelope with a 503 or 500 status so no raw error ever leaves the core.
func (t *ErrorTranslator) Translate(requestID core.RequestID, req *survival.Request, err error) *survival.StatisticsError {
	var statErr *survival.StatisticsError
	if errors.As(err, &statErr) {
		return statErr
	}

	payload, hash := encodePayload(req)
	log := t.logger.With("request_id", requestID.String(), "payload_sha256", hash.Short())
	log.Error("Payload: %s", payload)
	log.Error("Error: %v", err)

	out := survival.NewStatisticsError(requestID.String(), SanitizeMessage(err.Error()), err)
	switch {
	case core.IsInvalidInputError(err), core.IsModelFitError(err):
		out.HTTPStatus = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		out.HTTPStatus = http.StatusServiceUnavailable
	default:
		out.HTTPStatus = http.StatusInternalServerError
	}
	return out
}

// encodePayload renders the request for the log. JSON cannot carry NaN or Inf,
// which file readers may produce, so those payloads fall back to Go syntax.
func encodePayload(req *survival.Request) (string, core.PayloadHash) {
	data, err := json.Marshal(req)
	if err != nil {
		data = []byte(fmt.Sprintf("%+v", req))
	}
	return string(data), core.NewPayloadHash(data)
}
