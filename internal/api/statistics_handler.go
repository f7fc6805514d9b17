package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gosurv/app"
	"gosurv/domain/core"
	"gosurv/domain/survival"
)

// StatisticsCalculator is the core entry point the handler drives
type StatisticsCalculator interface {
	Calculate(ctx context.Context, requestID core.RequestID, req *survival.Request) (*survival.BatchResult, error)
}

// StatisticsHandler serves batch survival statistics over HTTP
type StatisticsHandler struct {
	calculator StatisticsCalculator
	translator *app.ErrorTranslator
	maxBytes   int64
}

// NewStatisticsHandler creates a new statistics handler
func NewStatisticsHandler(calculator StatisticsCalculator, translator *app.ErrorTranslator, maxBytes int64) *StatisticsHandler {
	return &StatisticsHandler{
		calculator: calculator,
		translator: translator,
		maxBytes:   maxBytes,
	}
}

// CalculateStatistics handles POST /v1/survival/statistics. Success returns
// {"statistics_list": [...]}; any failure returns the StatisticsError JSON with
// its httpStatus as the response status.
func (h *StatisticsHandler) CalculateStatistics(c *gin.Context) {
	requestID := RequestIDFrom(c)

	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	var req survival.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, h.translator.Translate(requestID, nil, core.NewInvalidInputError("body", err.Error())))
		return
	}

	result, err := h.calculator.Calculate(c.Request.Context(), requestID, &req)
	if err != nil {
		var statErr *survival.StatisticsError
		if !errors.As(err, &statErr) {
			statErr = h.translator.Translate(requestID, &req, err)
		}
		h.writeError(c, statErr)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *StatisticsHandler) writeError(c *gin.Context, statErr *survival.StatisticsError) {
	c.Data(statErr.HTTPStatus, "application/json; charset=utf-8", []byte(statErr.Error()))
}
