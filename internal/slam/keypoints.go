package slam

import (
	"math"
	"sort"
	"sync"
)

// grazingCosineThreshold bounds the incidence-angle validity test: a point
// is rejected when its scan line runs nearly parallel to the beam (view
// ray), i.e. the local tangent direction is nearly colinear with the ray to
// the point. Not exposed in Config because the spec's recognized options
// (§6) don't name it; it is a fixed geometric tolerance, not a tuning knob.
const grazingCosineThreshold = 0.96

// pointCandidate is the per-point working state for one scan line's
// extraction pass.
type pointCandidate struct {
	idx       int // index into Frame.Points
	pos       int // position within the scan line's point sequence
	curvature float64
	depthGap  float64
	valid     bool
}

// KeypointExtractor implements spec §4.1: per-scan-line curvature,
// validity, and labeling, with greedy non-maximum suppression to distribute
// keypoints along each line.
type KeypointExtractor struct {
	cfg         KeypointConfig
	angleResRad float64 // Config.AngleResolution, converted to radians once
}

// NewKeypointExtractor builds an extractor from the given configuration.
// angleResolutionDeg is Config.AngleResolution, the angular spacing
// between consecutive points on a scan line; it scales the occlusion
// gap test so a wider-than-EdgeDepthGapThreshold range jump isn't flagged
// as an occlusion boundary when it's just the angular spread expected at
// that range. Zero disables the scaling.
func NewKeypointExtractor(cfg KeypointConfig, angleResolutionDeg float64) *KeypointExtractor {
	return &KeypointExtractor{cfg: cfg, angleResRad: angleResolutionDeg * math.Pi / 180}
}

// Extract classifies every point in frame into edge, planar, and (if
// enabled) blob keypoints. Per-scan-line work is fan-out in parallel
// (spec §5: "embarrassingly parallel over independent input partitions");
// the final merge is single-threaded and orders output by ascending
// scan-line ID then by within-line selection rank, making the result
// deterministic regardless of goroutine scheduling.
func (e *KeypointExtractor) Extract(frame *Frame) *Keypoints {
	n := len(frame.Points)
	out := &Keypoints{
		Labels:    make([]KeypointLabel, n),
		Curvature: make([]float64, n),
		DepthGap:  make([]float64, n),
	}

	lineIdx := frame.ScanLines()
	lineIDs := make([]uint16, 0, len(lineIdx))
	for id := range lineIdx {
		lineIDs = append(lineIDs, id)
	}
	sort.Slice(lineIDs, func(i, j int) bool { return lineIDs[i] < lineIDs[j] })

	type lineResult struct {
		edges, planars, blobs, invalid []pointCandidate
	}
	results := make([]lineResult, len(lineIDs))

	var wg sync.WaitGroup
	for li, id := range lineIDs {
		li, id := li, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			cands := e.scoreLine(frame, lineIdx[id], out)
			edges, planars := e.selectEdgesAndPlanars(cands)
			selected := make(map[int]bool, len(edges)+len(planars))
			for _, c := range edges {
				selected[c.pos] = true
			}
			for _, c := range planars {
				selected[c.pos] = true
			}
			var blobs, invalid []pointCandidate
			for _, c := range cands {
				if !c.valid {
					invalid = append(invalid, c)
					continue
				}
				if selected[c.pos] {
					continue
				}
				if e.cfg.ExtractBlobs && e.isBlob(frame, lineIdx[id], c.pos) {
					blobs = append(blobs, c)
				}
			}
			results[li] = lineResult{edges: edges, planars: planars, blobs: blobs, invalid: invalid}
		}()
	}
	wg.Wait()

	for _, r := range results {
		for _, c := range r.invalid {
			out.Labels[c.idx] = LabelInvalid
		}
		for _, c := range r.edges {
			out.Labels[c.idx] = LabelEdge
			out.Edges = append(out.Edges, frame.Points[c.idx])
		}
		for _, c := range r.planars {
			out.Labels[c.idx] = LabelPlanar
			out.Planars = append(out.Planars, frame.Points[c.idx])
		}
		for _, c := range r.blobs {
			out.Labels[c.idx] = LabelBlob
			out.Blobs = append(out.Blobs, frame.Points[c.idx])
		}
	}
	return out
}

// scoreLine computes curvature, depth gap, and validity for every point on
// one scan line (spec §4.1 steps 1-3).
func (e *KeypointExtractor) scoreLine(frame *Frame, idxs []int, out *Keypoints) []pointCandidate {
	m := len(idxs)
	w := e.cfg.NeighborWidth

	scaled := make([]vec3, m)
	ranges := make([]float64, m)
	for i, idx := range idxs {
		p := frame.Points[idx]
		raw := pointVec3(p)
		xyNorm := math.Hypot(p.X, p.Y)
		full := raw.norm()
		ranges[i] = full
		if xyNorm < 1e-9 {
			scaled[i] = raw
			continue
		}
		// Isolate scan-line geometry from vertical beam divergence by
		// scaling radially (spec §4.1 step 1).
		scaled[i] = raw.scale(full / xyNorm)
	}

	cands := make([]pointCandidate, m)
	for i, idx := range idxs {
		cands[i] = pointCandidate{idx: idx, pos: i, valid: true}

		if ranges[i] < e.cfg.MinDistanceToSensor {
			cands[i].valid = false
		}

		lo, hi := i-w, i+w
		if lo < 0 || hi >= m {
			// Not enough neighbors for a symmetric window; leave
			// unscored and invalid rather than guessing with a partial
			// window.
			cands[i].valid = false
			continue
		}

		var sum vec3
		var maxGapLeft, maxGapRight float64
		for j := lo; j <= hi; j++ {
			if j == i {
				continue
			}
			sum = sum.add(scaled[j].sub(scaled[i]))
			gap := math.Abs(ranges[j] - ranges[i])
			if j < i && gap > maxGapLeft {
				maxGapLeft = gap
			}
			if j > i && gap > maxGapRight {
				maxGapRight = gap
			}
		}
		nn := float64(hi - lo) // neighbor count excluding self
		denom := nn * nn * scaled[i].dot(scaled[i])
		a := 0.0
		if denom > 1e-12 {
			a = sum.dot(sum) / denom
		}
		g := math.Max(maxGapLeft, maxGapRight)
		cands[i].curvature = a
		cands[i].depthGap = g
		out.Curvature[idx] = a
		out.DepthGap[idx] = g

		// Angle-of-incidence test: reject points whose local line runs
		// nearly parallel to the beam.
		tangent := scaled[hi].sub(scaled[lo])
		if tn := tangent.norm(); tn > 1e-9 {
			cosInc := math.Abs(scaled[i].normalize().dot(tangent.scale(1 / tn)))
			if cosInc > grazingCosineThreshold {
				cands[i].valid = false
			}
		}

		// Occlusion test: an asymmetric depth gap means the point sits on
		// the far side of a discontinuity; invalidate whichever side is
		// farther from the sensor. The threshold widens with range since
		// angular resolution alone produces a larger raw gap far from the
		// sensor even with no real discontinuity.
		occlusionThreshold := math.Max(e.cfg.EdgeDepthGapThreshold, ranges[i]*e.angleResRad)
		if math.Abs(maxGapLeft-maxGapRight) >= occlusionThreshold {
			if maxGapLeft > maxGapRight && ranges[i] > ranges[lo] {
				cands[i].valid = false
			} else if maxGapRight > maxGapLeft && ranges[i] > ranges[hi] {
				cands[i].valid = false
			}
		}
	}
	return cands
}

// selectEdgesAndPlanars performs spec §4.1 steps 4-5: classify by
// threshold, rank, and greedily suppress a neighbor_width window around
// each accepted point so keypoints spread out along the line.
func (e *KeypointExtractor) selectEdgesAndPlanars(cands []pointCandidate) (edges, planars []pointCandidate) {
	m := len(cands)

	edgeCandidates := make([]pointCandidate, 0, m)
	for _, c := range cands {
		if !c.valid {
			continue
		}
		if c.curvature >= e.cfg.EdgeSinAngleThreshold || c.depthGap >= e.cfg.EdgeDepthGapThreshold {
			edgeCandidates = append(edgeCandidates, c)
		}
	}
	sort.SliceStable(edgeCandidates, func(i, j int) bool {
		si := math.Max(edgeCandidates[i].curvature, edgeCandidates[i].depthGap)
		sj := math.Max(edgeCandidates[j].curvature, edgeCandidates[j].depthGap)
		if si != sj {
			return si > sj
		}
		return edgeCandidates[i].pos < edgeCandidates[j].pos
	})
	suppressed := make([]bool, m)
	edges = greedySelect(edgeCandidates, suppressed, m, e.cfg.NeighborWidth, e.cfg.MaxEdgesPerLine)

	planarCandidates := make([]pointCandidate, 0, m)
	for _, c := range cands {
		if !c.valid {
			continue
		}
		if c.curvature <= e.cfg.PlaneSinAngleThreshold {
			planarCandidates = append(planarCandidates, c)
		}
	}
	sort.SliceStable(planarCandidates, func(i, j int) bool {
		if planarCandidates[i].curvature != planarCandidates[j].curvature {
			return planarCandidates[i].curvature < planarCandidates[j].curvature
		}
		return planarCandidates[i].pos < planarCandidates[j].pos
	})
	suppressed = make([]bool, m)
	// Planar selection independently suppresses points already chosen as
	// edges, so the two label sets stay disjoint (spec §3: "labels
	// partition eligible points").
	for _, c := range edges {
		suppressed[c.pos] = true
	}
	planars = greedySelect(planarCandidates, suppressed, m, e.cfg.NeighborWidth, e.cfg.MaxPlanarsPerLine)
	return edges, planars
}

func greedySelect(ranked []pointCandidate, suppressed []bool, m, width, cap int) []pointCandidate {
	selected := make([]pointCandidate, 0, cap)
	for _, c := range ranked {
		if len(selected) >= cap {
			break
		}
		if suppressed[c.pos] {
			continue
		}
		selected = append(selected, c)
		lo, hi := c.pos-width, c.pos+width
		if lo < 0 {
			lo = 0
		}
		if hi >= m {
			hi = m - 1
		}
		for k := lo; k <= hi; k++ {
			suppressed[k] = true
		}
	}
	return selected
}

// isBlob tests the 3x3 eigen-spread of the neighborhood around position pos
// on the scan line idxs, labeling it a blob when the geometry is isotropic
// (spec §4.1 step 4, blob branch).
func (e *KeypointExtractor) isBlob(frame *Frame, idxs []int, pos int) bool {
	w := e.cfg.NeighborWidth
	lo, hi := pos-w, pos+w
	if lo < 0 {
		lo = 0
	}
	if hi >= len(idxs) {
		hi = len(idxs) - 1
	}
	if hi-lo < 3 {
		return false
	}
	pts := make([]vec3, 0, hi-lo+1)
	for k := lo; k <= hi; k++ {
		pts = append(pts, pointVec3(frame.Points[idxs[k]]))
	}
	lambdas, _, ok := eigenDecompose3(covariance3(pts))
	if !ok || lambdas[2] <= 1e-12 {
		return false
	}
	ratio := lambdas[0] / lambdas[2] // ascending order: lambdas[0] smallest
	return ratio >= e.cfg.SphericityThreshold
}
