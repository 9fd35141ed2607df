package slam

import "gonum.org/v1/gonum/mat"

// ResidualAccumulator builds the 6-parameter Gauss-Newton normal equations
// (JᵀJ, Jᵀr) and total cost for a set of line/plane correspondences
// evaluated against a candidate pose (spec §4.3's point-to-line and
// point-to-plane residual models).
type ResidualAccumulator struct {
	corrs []Correspondence
}

// NewResidualAccumulator wraps a fixed correspondence set. Correspondences
// are frozen between re-matches (spec §5: ICPFrequency controls how often
// they're refreshed), so the same accumulator is reused across several LM
// sub-steps.
func NewResidualAccumulator(corrs []Correspondence) *ResidualAccumulator {
	return &ResidualAccumulator{corrs: corrs}
}

// Len reports the number of correspondences, used by LMSolver to enforce
// spec §7's ErrNotEnoughKeypoints threshold.
func (a *ResidualAccumulator) Len() int { return len(a.corrs) }

// Evaluate computes cost = sum(w * r^2), the 6x6 JᵀJ matrix, and the 6x1
// Jᵀr vector at pose, where theta = (rx, ry, rz, tx, ty, tz).
func (a *ResidualAccumulator) Evaluate(pose Pose6) (cost float64, jtj *mat.Dense, jtr *mat.VecDense) {
	jtj = mat.NewDense(6, 6, nil)
	jtr = mat.NewVecDense(6, nil)

	R := zyxRotation(pose.RX, pose.RY, pose.RZ)
	dRx, dRy, dRz := zyxJacobian(pose.RX, pose.RY, pose.RZ)
	t := pose.Translation()

	for _, c := range a.corrs {
		transformed := mulMatVec3(R, c.Query).add(t)

		var res float64
		var dres [6]float64

		drx := mulMatVec3(dRx, c.Query)
		dry := mulMatVec3(dRy, c.Query)
		drz := mulMatVec3(dRz, c.Query)

		switch c.Kind {
		case CorrLine:
			diff := transformed.sub(c.Anchor)
			perp := diff.sub(c.Direction.scale(diff.dot(c.Direction)))
			res = perp.norm()
			if res < 1e-12 {
				continue
			}
			u := perp.scale(1 / res)
			dres = [6]float64{u.dot(drx), u.dot(dry), u.dot(drz), u.x, u.y, u.z}
		case CorrPlane:
			diff := transformed.sub(c.Anchor)
			res = diff.dot(c.Normal)
			n := c.Normal
			dres = [6]float64{n.dot(drx), n.dot(dry), n.dot(drz), n.x, n.y, n.z}
		}

		w := c.Weight
		cost += w * res * res
		for i := 0; i < 6; i++ {
			jtr.SetVec(i, jtr.AtVec(i)+w*dres[i]*res)
			for j := 0; j < 6; j++ {
				jtj.Set(i, j, jtj.At(i, j)+w*dres[i]*dres[j])
			}
		}
	}
	return cost, jtj, jtr
}
