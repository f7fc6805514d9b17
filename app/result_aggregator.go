package app

import (
	"gosurv/domain/survival"
)

// ResultAggregator collects fitted models into the wire result, in the order
// they are appended. The orchestrator appends in input record order.
type ResultAggregator struct {
	records []survival.ResultRecord
}

// NewResultAggregator creates an aggregator sized for n records
func NewResultAggregator(n int) *ResultAggregator {
	return &ResultAggregator{records: make([]survival.ResultRecord, 0, n)}
}

// Append adds one fitted record
func (a *ResultAggregator) Append(model survival.FittedModel) {
	a.records = append(a.records, survival.ResultRecord{
		Hazard: model.HazardRatio,
		PValue: model.PValue,
	})
}

// Len returns the number of records aggregated so far
func (a *ResultAggregator) Len() int {
	return len(a.records)
}

// Result returns the batch result. StatisticsList is never nil so that an empty
// batch encodes as [] rather than null.
func (a *ResultAggregator) Result() *survival.BatchResult {
	list := a.records
	if list == nil {
		list = []survival.ResultRecord{}
	}
	return &survival.BatchResult{StatisticsList: list}
}
