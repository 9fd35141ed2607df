package slam

import "gonum.org/v1/gonum/mat"

// covariance3 computes the 3x3 sample covariance of pts about their
// centroid. Shared by KeypointExtractor's blob test and FeatureMatcher's
// line/plane neighborhood fits (spec §4.1 step 4, §4.2 steps 2-3).
func covariance3(pts []vec3) *mat.SymDense {
	n := float64(len(pts))
	var mean vec3
	for _, p := range pts {
		mean = mean.add(p)
	}
	mean = mean.scale(1 / n)

	var cxx, cxy, cxz, cyy, cyz, czz float64
	for _, p := range pts {
		d := p.sub(mean)
		cxx += d.x * d.x
		cxy += d.x * d.y
		cxz += d.x * d.z
		cyy += d.y * d.y
		cyz += d.y * d.z
		czz += d.z * d.z
	}
	return mat.NewSymDense(3, []float64{
		cxx / n, cxy / n, cxz / n,
		cxy / n, cyy / n, cyz / n,
		cxz / n, cyz / n, czz / n,
	})
}

// centroid3 returns the mean of pts.
func centroid3(pts []vec3) vec3 {
	var mean vec3
	for _, p := range pts {
		mean = mean.add(p)
	}
	return mean.scale(1 / float64(len(pts)))
}

// eigenDecompose3 returns the eigenvalues of a 3x3 symmetric matrix in
// ascending order, and the corresponding eigenvectors as columns of a 3x3
// matrix (eigenvectors[:,0] is the direction of least variance). Returns
// ok=false if the decomposition fails to converge.
func eigenDecompose3(cov *mat.SymDense) (lambdas [3]float64, vectors *mat.Dense, ok bool) {
	var es mat.EigenSym
	if !es.Factorize(cov, true) {
		return lambdas, nil, false
	}
	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// gonum does not guarantee ascending order; sort explicitly.
	order := []int{0, 1, 2}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if values[order[j]] < values[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
	sorted := mat.NewDense(3, 3, nil)
	for col, o := range order {
		lambdas[col] = values[o]
		sorted.SetCol(col, mat.Col(nil, o, &vecs))
	}
	return lambdas, sorted, true
}
