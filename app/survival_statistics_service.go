package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"gosurv/domain/core"
	"gosurv/domain/survival"
	"gosurv/internal"
	"gosurv/ports"
)

// SurvivalStatisticsService validates a request, fits one Cox model per record
// and returns either every result in input order or exactly one StatisticsError.
type SurvivalStatisticsService struct {
	validator  ports.DesignValidator
	fitter     ports.CoxFitter
	translator *ErrorTranslator
	logger     *internal.Logger
	workers    int
}

// NewSurvivalStatisticsService creates the service. workers <= 1 fits records
// strictly sequentially; larger values fit concurrently with identical results.
func NewSurvivalStatisticsService(
	validator ports.DesignValidator,
	fitter ports.CoxFitter,
	logger *internal.Logger,
	workers int,
) *SurvivalStatisticsService {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	if workers < 1 {
		workers = 1
	}
	return &SurvivalStatisticsService{
		validator:  validator,
		fitter:     fitter,
		translator: NewErrorTranslator(logger),
		logger:     logger,
		workers:    workers,
	}
}

// Calculate runs one batch. On failure the returned error is always a
// *survival.StatisticsError and the result is nil; results computed before the
// failure are discarded.
func (s *SurvivalStatisticsService) Calculate(ctx context.Context, requestID core.RequestID, req *survival.Request) (*survival.BatchResult, error) {
	log := s.logger.With("request_id", requestID.String())
	if req != nil {
		log.Info("Number of samples: %d", req.NumSubjects())
		log.Info("Number of records: %d", req.NumRecords())
	}

	batch, err := s.validator.Validate(req)
	if err != nil {
		return nil, s.translator.Translate(requestID, req, err)
	}

	start := time.Now()
	var models []survival.FittedModel
	if s.workers > 1 && len(batch.Records) > 1 {
		models, err = s.fitConcurrent(ctx, log, batch)
	} else {
		models, err = s.fitSequential(ctx, log, batch)
	}
	if err != nil {
		return nil, s.translator.Translate(requestID, req, err)
	}

	agg := NewResultAggregator(len(models))
	for _, m := range models {
		agg.Append(m)
	}

	log.Debug("Fitted %d records in %s", agg.Len(), time.Since(start))
	s.logSummary(log, models)
	return agg.Result(), nil
}

// fitSequential fits in input order and stops at the first failure
func (s *SurvivalStatisticsService) fitSequential(ctx context.Context, log *internal.Logger, batch *survival.Batch) ([]survival.FittedModel, error) {
	models := make([]survival.FittedModel, 0, len(batch.Records))
	for i, values := range batch.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := s.fitRecord(log, &batch.Design, i, values)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

// fitConcurrent fits records on a bounded worker pool. A failure lowers a
// watermark so no record after it is started; records before it still run, and
// the lowest failing index is reported, exactly as the sequential path would.
func (s *SurvivalStatisticsService) fitConcurrent(ctx context.Context, log *internal.Logger, batch *survival.Batch) ([]survival.FittedModel, error) {
	n := len(batch.Records)
	models := make([]survival.FittedModel, n)
	errs := make([]error, n)

	var firstFailed atomic.Int64
	firstFailed.Store(int64(n))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := 0; i < n; i++ {
		if int64(i) > firstFailed.Load() {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if int64(i) > firstFailed.Load() {
				return nil
			}
			m, err := s.fitRecord(log, &batch.Design, i, batch.Records[i])
			if err != nil {
				errs[i] = err
				for {
					cur := firstFailed.Load()
					if int64(i) >= cur || firstFailed.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
				return nil
			}
			models[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return models, nil
}

func (s *SurvivalStatisticsService) fitRecord(log *internal.Logger, design *survival.Design, i int, values survival.RecordValues) (survival.FittedModel, error) {
	m, err := s.fitter.Fit(design, values)
	if err != nil {
		var fitErr *core.ModelFitError
		if errors.As(err, &fitErr) {
			return survival.FittedModel{}, fitErr.WithRecord(i)
		}
		return survival.FittedModel{}, fmt.Errorf("record %d: %w", i, err)
	}
	log.Trace("record %d: coef=%.6g se=%.6g naive_se=%.6g hazard=%.6g pval=%.6g loglik=%.6g iterations=%d",
		i, m.Coefficient, m.StandardError, m.NaiveStandardError, m.HazardRatio, m.PValue, m.LogLikelihood, m.Iterations)
	return m, nil
}

func (s *SurvivalStatisticsService) logSummary(log *internal.Logger, models []survival.FittedModel) {
	if len(models) == 0 || log.GetLevel() < internal.LogLevelDebug {
		return
	}
	pvals := make([]float64, len(models))
	significant := 0
	for i, m := range models {
		pvals[i] = m.PValue
		if m.PValue < 0.05 {
			significant++
		}
	}
	median, err := stats.Median(pvals)
	if err != nil {
		return
	}
	log.Debug("p-value median %.4g, %d of %d records below 0.05", median, significant, len(models))
}
