package cox

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"gosurv/domain/core"
	"gosurv/domain/survival"
)

// timeGroup is a run of subjects sharing one time value, in ascending time order
type timeGroup struct {
	start, end int     // half-open range into partialLikelihood.order
	time       float64 // shared time
	deaths     int     // observed events in the group
	deathZ     float64 // sum of covariate over the group's events
}

// partialLikelihood holds the time-ordered design for one record
type partialLikelihood struct {
	z      []float64 // standardized covariate, indexed by subject
	events []int
	order  []int // subjects sorted by time, ties by input index
	groups []timeGroup
	group  []int // subject -> index into groups
}

// evaluation is the Breslow partial likelihood and its derivatives at one beta
type evaluation struct {
	logLik      float64
	score       float64 // first derivative
	information float64 // negative second derivative

	// per group, populated only where deaths > 0
	riskWeight []float64 // S0: sum of exp(beta*z) over the risk set
	riskMean   []float64 // S1/S0: weighted covariate mean over the risk set
}

func newPartialLikelihood(design *survival.Design, z []float64) *partialLikelihood {
	n := len(z)
	sortedTimes := append([]float64(nil), design.Times...)
	order := make([]int, n)
	floats.ArgsortStable(sortedTimes, order)

	pl := &partialLikelihood{
		z:      z,
		events: design.Events,
		order:  order,
		group:  make([]int, n),
	}

	for start := 0; start < n; {
		t := sortedTimes[start]
		g := timeGroup{start: start, time: t}
		end := start
		for ; end < n && sortedTimes[end] == t; end++ {
			i := order[end]
			pl.group[i] = len(pl.groups)
			if design.Events[i] == 1 {
				g.deaths++
				g.deathZ += z[i]
			}
		}
		g.end = end
		pl.groups = append(pl.groups, g)
		start = end
	}

	return pl
}

// evaluate computes log-likelihood, score and information at beta. Risk sets are
// accumulated from the latest time backwards, so each group sees every subject
// whose time is at or after its own.
func (pl *partialLikelihood) evaluate(beta float64) evaluation {
	ev := evaluation{
		riskWeight: make([]float64, len(pl.groups)),
		riskMean:   make([]float64, len(pl.groups)),
	}

	var s0, s1, s2 float64
	for g := len(pl.groups) - 1; g >= 0; g-- {
		grp := pl.groups[g]
		for k := grp.start; k < grp.end; k++ {
			zi := pl.z[pl.order[k]]
			w := math.Exp(beta * zi)
			s0 += w
			s1 += w * zi
			s2 += w * zi * zi
		}
		if grp.deaths == 0 {
			continue
		}

		d := float64(grp.deaths)
		mean := s1 / s0
		ev.logLik += beta*grp.deathZ - d*math.Log(s0)
		ev.score += grp.deathZ - d*mean
		ev.information += d * (s2/s0 - mean*mean)
		ev.riskWeight[g] = s0
		ev.riskMean[g] = mean
	}

	return ev
}

// checkedEvaluate evaluates at beta and rejects non-finite or singular iterates
func (pl *partialLikelihood) checkedEvaluate(beta float64) (evaluation, error) {
	ev := pl.evaluate(beta)
	if !isFinite(ev.logLik) || !isFinite(ev.score) || !isFinite(ev.information) {
		return evaluation{}, core.NewModelFitError(core.ErrNonFinite,
			"partial likelihood at beta=%g: loglik=%g score=%g information=%g",
			beta, ev.logLik, ev.score, ev.information)
	}
	if ev.information <= singularTolerance {
		return evaluation{}, core.NewModelFitError(core.ErrSingularHessian,
			"information %g at beta=%g", ev.information, beta)
	}
	return ev, nil
}
