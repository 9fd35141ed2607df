package slam

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LMSolver runs Levenberg-Marquardt damped least squares over a 6-DoF pose
// (spec §4.3), re-matching correspondences periodically rather than on
// every iteration.
type LMSolver struct {
	cfg MatchConfig
}

// NewLMSolver builds a solver from the ego-motion or mapping match
// configuration.
func NewLMSolver(cfg MatchConfig) *LMSolver {
	return &LMSolver{cfg: cfg}
}

// MatchFunc rebuilds correspondences for a given pose estimate. LMSolver
// calls it on iteration 0 and then every cfg.ICPFrequency accepted steps
// (spec §5, §9 Open Question #1, resolved in SPEC_FULL.md §12).
type MatchFunc func(pose Pose6) []Correspondence

// Solve runs up to cfg.MaxIter LM iterations from init and returns the best
// pose found. Returns ErrNotEnoughKeypoints if a re-match ever yields fewer
// than 6 correspondences (the minimum for a determined 6-DoF solve), and
// ErrLMDiverged if no step was ever accepted.
func (s *LMSolver) Solve(init Pose6, match MatchFunc, lambda0, lambdaRatio float64) (Pose6, error) {
	pose := init
	best := init
	bestCost := math.Inf(1)
	lambda := lambda0
	accepted := 0
	var acc *ResidualAccumulator

	for iter := 0; iter < s.cfg.MaxIter; iter++ {
		if iter == 0 || (s.cfg.ICPFrequency > 0 && accepted%s.cfg.ICPFrequency == 0) {
			corrs := match(pose)
			if len(corrs) < 6 {
				return best, ErrNotEnoughKeypoints
			}
			acc = NewResidualAccumulator(corrs)
		}

		cost, jtj, jtr := acc.Evaluate(pose)
		if iter == 0 {
			bestCost = cost
			best = pose
		}

		damped := dampedHessian(jtj, lambda)
		delta, ok := solve6(damped, jtr)
		if !ok {
			lambda *= lambdaRatio
			continue
		}
		candidate := applyDelta(pose, negate6(delta))
		newCost, _, _ := acc.Evaluate(candidate)

		if newCost < cost {
			improved := cost - newCost
			pose = candidate
			lambda /= lambdaRatio
			accepted++
			if newCost < bestCost {
				bestCost = newCost
				best = pose
			}
			if improved < 1e-9*math.Max(cost, 1e-12) {
				return best, nil
			}
			continue
		}
		lambda *= lambdaRatio
	}

	if accepted == 0 {
		return best, ErrLMDiverged
	}
	return best, nil
}

// dampedHessian returns JᵀJ with its diagonal scaled by (1+lambda), the
// Marquardt (rather than Levenberg) damping variant.
func dampedHessian(jtj *mat.Dense, lambda float64) *mat.Dense {
	damped := mat.DenseCopyOf(jtj)
	for i := 0; i < 6; i++ {
		damped.Set(i, i, damped.At(i, i)*(1+lambda))
	}
	return damped
}

func solve6(a *mat.Dense, b *mat.VecDense) ([6]float64, bool) {
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return [6]float64{}, false
	}
	var out [6]float64
	for i := 0; i < 6; i++ {
		out[i] = x.AtVec(i)
	}
	return out, true
}

// negate6 flips the sign of a normal-equations solve, since solve6 returns
// x solving (JᵀJ + λD)x = Jᵀr and the LM step is Δθ = -x.
func negate6(v [6]float64) [6]float64 {
	for i := range v {
		v[i] = -v[i]
	}
	return v
}

func applyDelta(pose Pose6, delta [6]float64) Pose6 {
	return Pose6{
		RX: pose.RX + delta[0],
		RY: pose.RY + delta[1],
		RZ: pose.RZ + delta[2],
		TX: pose.TX + delta[3],
		TY: pose.TY + delta[4],
		TZ: pose.TZ + delta[5],
	}
}
