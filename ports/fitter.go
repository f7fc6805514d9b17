package ports

import (
	"gosurv/domain/survival"
)

// CoxFitter fits one record's values against the shared survival design.
// Implementations must be deterministic and must not retain or mutate their inputs;
// failures are returned as *core.ModelFitError.
type CoxFitter interface {
	Fit(design *survival.Design, values survival.RecordValues) (survival.FittedModel, error)
}

// DesignValidator turns a raw request into a validated batch or an *core.InvalidInputError
type DesignValidator interface {
	Validate(req *survival.Request) (*survival.Batch, error)
}
