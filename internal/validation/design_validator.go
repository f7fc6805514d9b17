package validation

import (
	"fmt"
	"math"

	"gosurv/domain/core"
	"gosurv/domain/survival"
)

// MinSubjects is the smallest design a Cox model can be fitted on
const MinSubjects = 2

// DesignValidator checks a raw request before any fitting begins. It reports
// the first offending field and never touches the numerical layer.
type DesignValidator struct{}

// NewDesignValidator creates a new validator
func NewDesignValidator() *DesignValidator {
	return &DesignValidator{}
}

// Validate returns an immutable Batch built from copies of the request slices,
// or an *core.InvalidInputError naming the first offending field.
func (v *DesignValidator) Validate(req *survival.Request) (*survival.Batch, error) {
	if req == nil {
		return nil, core.NewInvalidInputError("request", "missing")
	}

	design, err := v.validateDesign(req.Times, req.Events)
	if err != nil {
		return nil, err
	}

	records := make([]survival.RecordValues, len(req.ValuesByRecord))
	for r, row := range req.ValuesByRecord {
		field := fmt.Sprintf("values_by_record[%d]", r)
		if len(row) != design.NumSubjects() {
			return nil, core.NewInvalidInputErrorf(field, "has %d values, want %d (one per subject)", len(row), design.NumSubjects())
		}
		for j, x := range row {
			if !isFinite(x) {
				return nil, core.NewInvalidInputErrorf(fmt.Sprintf("%s[%d]", field, j), "must be a finite number, got %g", x)
			}
		}
		records[r] = append(survival.RecordValues(nil), row...)
	}

	return &survival.Batch{Design: *design, Records: records}, nil
}

func (v *DesignValidator) validateDesign(times, events []float64) (*survival.Design, error) {
	if len(events) != len(times) {
		return nil, core.NewInvalidInputErrorf("events", "has %d values, want %d (one per time)", len(events), len(times))
	}
	if len(times) < MinSubjects {
		return nil, core.NewInvalidInputErrorf("times", "need at least %d subjects, got %d", MinSubjects, len(times))
	}

	design := &survival.Design{
		Times:  make([]float64, len(times)),
		Events: make([]int, len(events)),
	}

	for i, t := range times {
		if !isFinite(t) {
			return nil, core.NewInvalidInputErrorf(fmt.Sprintf("times[%d]", i), "must be a finite number, got %g", t)
		}
		if t < 0 {
			return nil, core.NewInvalidInputErrorf(fmt.Sprintf("times[%d]", i), "must be non-negative, got %g", t)
		}
		design.Times[i] = t
	}

	for i, e := range events {
		switch e {
		case 0:
			design.Events[i] = 0
		case 1:
			design.Events[i] = 1
		default:
			return nil, core.NewInvalidInputErrorf(fmt.Sprintf("events[%d]", i), "must be 0 (censored) or 1 (event), got %g", e)
		}
	}

	if design.NumEvents() == 0 {
		return nil, core.NewInvalidInputError("events", "no observed events, all subjects are censored")
	}

	return design, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
