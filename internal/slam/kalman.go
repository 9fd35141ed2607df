package slam

import "gonum.org/v1/gonum/mat"

// KalmanFilter12 is a constant-velocity Kalman filter over a 12-state
// vector: a 6-DoF pose followed by its 6-DoF velocity (spec §4.6). It
// supplies the mapping pass's initial pose guess and a motion-model
// fallback when ego-motion is rejected as excessive.
type KalmanFilter12 struct {
	x                        *mat.VecDense // 12x1 state: [pose(6), velocity(6)]
	p                        *mat.Dense    // 12x12 covariance
	maxVelAccel, maxAngAccel float64
	nbrMeasures              int
}

// NewKalmanFilter12 builds a filter at the given initial pose with zero
// velocity and a generously uncertain covariance.
func NewKalmanFilter12(initial Pose6, maxVelAccel, maxAngAccel float64) *KalmanFilter12 {
	k := &KalmanFilter12{maxVelAccel: maxVelAccel, maxAngAccel: maxAngAccel}
	k.Reset(initial)
	return k
}

// Predict advances the state by dt seconds under the constant-velocity
// model F = [[I6, dt*I6],[0,I6]], inflating covariance by process noise
// derived from MaxAngleAccel/MaxVelocityAccel.
func (k *KalmanFilter12) Predict(dt float64) {
	f := mat.NewDense(12, 12, nil)
	for i := 0; i < 12; i++ {
		f.Set(i, i, 1)
	}
	for i := 0; i < 6; i++ {
		f.Set(i, i+6, dt)
	}

	var xNew mat.VecDense
	xNew.MulVec(f, k.x)
	k.x = &xNew

	var fp, fpft mat.Dense
	fp.Mul(f, k.p)
	fpft.Mul(&fp, f.T())

	var pNew mat.Dense
	pNew.Add(&fpft, processNoise(dt, k.maxAngAccel, k.maxVelAccel))
	k.p = &pNew
}

// processNoise builds a diagonal 12x12 process noise matrix from the
// acceleration bounds via the standard constant-acceleration discretization
// (position variance ~ dt^4/4 * sigma^2, velocity variance ~ dt^2 * sigma^2).
func processNoise(dt, angAccel, velAccel float64) *mat.Dense {
	q := mat.NewDense(12, 12, nil)
	dt2 := dt * dt
	for i := 0; i < 3; i++ {
		q.Set(i, i, 0.25*dt2*dt2*angAccel*angAccel)
		q.Set(i+6, i+6, dt2*angAccel*angAccel)
	}
	for i := 3; i < 6; i++ {
		q.Set(i, i, 0.25*dt2*dt2*velAccel*velAccel)
		q.Set(i+6, i+6, dt2*velAccel*velAccel)
	}
	return q
}

// Correct fuses a measured pose (the mapping LM solve's result) into the
// state using the measurement model H = [I6 | 0].
func (k *KalmanFilter12) Correct(measured Pose6, measurementNoise [6]float64) {
	z := mat.NewVecDense(6, nil)
	mv := measured.Vector()
	for i := 0; i < 6; i++ {
		z.SetVec(i, mv[i])
	}

	h := mat.NewDense(6, 12, nil)
	for i := 0; i < 6; i++ {
		h.Set(i, i, 1)
	}

	var hx mat.VecDense
	hx.MulVec(h, k.x)
	var y mat.VecDense
	y.SubVec(z, &hx)

	r := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		r.Set(i, i, measurementNoise[i])
	}

	var hp, hpht, s mat.Dense
	hp.Mul(h, k.p)
	hpht.Mul(&hp, h.T())
	s.Add(&hpht, r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return
	}

	var pht, gain mat.Dense
	pht.Mul(k.p, h.T())
	gain.Mul(&pht, &sInv)

	var ky mat.VecDense
	ky.MulVec(&gain, &y)
	var xNew mat.VecDense
	xNew.AddVec(k.x, &ky)
	k.x = &xNew

	var kh mat.Dense
	kh.Mul(&gain, h)
	ident := mat.NewDense(12, 12, nil)
	for i := 0; i < 12; i++ {
		ident.Set(i, i, 1)
	}
	var imkh, pNew mat.Dense
	imkh.Sub(ident, &kh)
	pNew.Mul(&imkh, k.p)
	k.p = &pNew

	k.nbrMeasures++
}

// GetNbrMeasure reports how many measurements Correct has fused since the
// last Reset, used by diagnostics to tell a freshly-started filter from a
// settled one (spec §4.6).
func (k *KalmanFilter12) GetNbrMeasure() int {
	return k.nbrMeasures
}

// State returns the current pose estimate, the first 6 states.
func (k *KalmanFilter12) State() Pose6 {
	var v [6]float64
	for i := 0; i < 6; i++ {
		v[i] = k.x.AtVec(i)
	}
	return FromVector(v)
}

// Velocity returns the current 6-DoF velocity estimate.
func (k *KalmanFilter12) Velocity() Pose6 {
	var v [6]float64
	for i := 0; i < 6; i++ {
		v[i] = k.x.AtVec(i + 6)
	}
	return FromVector(v)
}

// Reset reinitializes the filter at pose with zero velocity and a fresh
// covariance, used by SlamEngine.Reset.
func (k *KalmanFilter12) Reset(pose Pose6) {
	x := mat.NewVecDense(12, nil)
	v := pose.Vector()
	for i := 0; i < 6; i++ {
		x.SetVec(i, v[i])
	}
	k.x = x

	p := mat.NewDense(12, 12, nil)
	for i := 0; i < 12; i++ {
		p.Set(i, i, 1.0)
	}
	k.p = p
	k.nbrMeasures = 0
}
