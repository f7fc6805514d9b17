package cox

import "math"

// scoreResiduals returns each subject's contribution to the score at beta
// (Breslow). For subject i at time t_i:
//
//	r_i = event_i*(z_i - zbar(t_i)) - exp(beta*z_i) * sum_{t_j <= t_i} d_j*(z_i - zbar(t_j))/S0(t_j)
//
// The residuals sum to the total score, which is zero at the maximum.
func (pl *partialLikelihood) scoreResiduals(beta float64, ev evaluation) []float64 {
	// cumulative hazard terms per group, ascending in time
	cumHazard := make([]float64, len(pl.groups))
	cumMean := make([]float64, len(pl.groups))
	var h, hz float64
	for g, grp := range pl.groups {
		if grp.deaths > 0 {
			d := float64(grp.deaths)
			h += d / ev.riskWeight[g]
			hz += d * ev.riskMean[g] / ev.riskWeight[g]
		}
		cumHazard[g] = h
		cumMean[g] = hz
	}

	resid := make([]float64, len(pl.z))
	for i, zi := range pl.z {
		g := pl.group[i]
		r := -math.Exp(beta*zi) * (zi*cumHazard[g] - cumMean[g])
		if pl.events[i] == 1 {
			r += zi - ev.riskMean[g]
		}
		resid[i] = r
	}
	return resid
}

// robustVariance is the sandwich estimate I^-1 (sum_c U_c^2) I^-1 with one
// cluster per subject, i.e. the sum of squared dfbeta residuals.
func (pl *partialLikelihood) robustVariance(beta float64, ev evaluation) float64 {
	var v float64
	for _, r := range pl.scoreResiduals(beta, ev) {
		dfbeta := r / ev.information
		v += dfbeta * dfbeta
	}
	return v
}
