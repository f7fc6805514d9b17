package app

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosurv/domain/core"
	"gosurv/domain/survival"
	"gosurv/internal"
)

func TestSanitizeMessage(t *testing.T) {
	tests := map[string]string{
		"single line":          "single line",
		"a\nb":                 "a b",
		"a\r\nb":               "a b",
		"a\n\n\nb":             "a b",
		"trailing\n":           "trailing ",
		"Error in x :\n  boom": "Error in x :   boom",
	}
	for input, want := range tests {
		assert.Equal(t, want, SanitizeMessage(input))
	}
}

func TestTranslate_StatusMapping(t *testing.T) {
	translator := NewErrorTranslator(internal.NewNopLogger())
	req := &survival.Request{Times: []float64{1, 2}}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", core.NewInvalidInputError("times", "too short"), http.StatusBadRequest},
		{"model fit", core.NewModelFitError(core.ErrSingularHessian, "information 0").WithRecord(2), http.StatusBadRequest},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statErr := translator.Translate("rid-9", req, tt.err)
			assert.Equal(t, tt.status, statErr.HTTPStatus)
			assert.Equal(t, "rid-9", statErr.RequestID)
			assert.Equal(t, tt.err.Error(), statErr.Message)
			assert.ErrorIs(t, statErr, tt.err)
		})
	}
}

func TestTranslate_PassesThroughStatisticsError(t *testing.T) {
	existing := survival.NewStatisticsError("rid-1", "already translated", nil)
	got := NewErrorTranslator(nil).Translate("rid-2", nil, existing)
	assert.Same(t, existing, got)
}

func TestTranslate_ErrorTextIsJSON(t *testing.T) {
	statErr := NewErrorTranslator(nil).Translate("rid-3", nil, core.NewInvalidInputError("events", "no observed events"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(statErr.Error()), &decoded))
	assert.Equal(t, "StatisticsError", decoded["errorType"])
	assert.Equal(t, float64(400), decoded["httpStatus"])
	assert.Equal(t, "rid-3", decoded["request_id"])
	assert.Equal(t, "invalid input: events: no observed events", decoded["message"])
	assert.Len(t, decoded, 4)
}

func TestEncodePayload_NonFinite(t *testing.T) {
	payload, hash := encodePayload(&survival.Request{Times: []float64{math.NaN(), 1}})
	assert.Contains(t, payload, "NaN")
	assert.Len(t, hash.String(), 64)
}

func TestResultAggregator(t *testing.T) {
	agg := NewResultAggregator(2)
	assert.Equal(t, []survival.ResultRecord{}, agg.Result().StatisticsList)

	agg.Append(survival.FittedModel{HazardRatio: 1.5, PValue: 0.2, Coefficient: 0.405})
	agg.Append(survival.FittedModel{HazardRatio: 0.5, PValue: 0.01})

	assert.Equal(t, 2, agg.Len())
	assert.Equal(t, []survival.ResultRecord{{Hazard: 1.5, PValue: 0.2}, {Hazard: 0.5, PValue: 0.01}}, agg.Result().StatisticsList)
}
