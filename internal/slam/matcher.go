package slam

import "math"

// CorrespondenceKind distinguishes the two (three, counting the blob
// decomposition) geometric primitives a keypoint can be matched against.
type CorrespondenceKind int

const (
	CorrLine  CorrespondenceKind = iota // point-to-line, direction d through Anchor
	CorrPlane                           // point-to-plane, normal n through Anchor
)

// Correspondence is one matched keypoint-to-primitive constraint, evaluated
// by ResidualAccumulator against a candidate pose (spec §4.2/§4.3).
type Correspondence struct {
	Kind      CorrespondenceKind
	Query     vec3    // current-frame keypoint, in its own sensor frame
	Anchor    vec3    // point on the fitted line/plane (the neighborhood centroid)
	Direction vec3    // unit line direction, valid when Kind == CorrLine
	Normal    vec3    // unit plane normal, valid when Kind == CorrPlane
	Weight    float64 // robust outlier weight, spec §4.3: exp(-residual_distance^2/scale^2)
}

// MatchVariant distinguishes the two places FeatureMatcher is used, each
// with its own candidate-filtering rule (spec §4.2): ego-motion matches
// against the previous frame's own keypoints, where collinear candidates
// from a single scan line would make the line fit degenerate; mapping
// matches against the rolling map's accumulated submap, where candidates
// instead need a sample-consensus pass to drop points that have drifted
// from the true surface over many inserted frames.
type MatchVariant int

const (
	EgoMotionVariant MatchVariant = iota
	MappingVariant
)

// FeatureMatcher implements spec §4.2: for each current-frame keypoint,
// find neighborhood candidates in a spatial index built over a reference
// point set (the previous frame's keypoints for ego-motion, or the rolling
// map's local submap for mapping), fit a line or plane, and reject fits
// whose eigenvalue spread isn't line-like or plane-like.
type FeatureMatcher struct {
	cfg               MatchConfig
	variant           MatchVariant
	outlierScale      float64 // Config.MaxDistanceForICPMatching; <=0 disables weighting
	lineMaxDistInlier float64 // MappingConfig.LineMaxDistInlier; <=0 disables the leave-one-out filter
}

// NewFeatureMatcher builds a matcher from the given configuration. variant
// selects which candidate filter MatchEdges/MatchPlanes applies.
// outlierScale is the robust-weighting scale; lineMaxDistInlier is the
// mapping-variant leave-one-out inlier bound and is ignored for
// EgoMotionVariant matchers.
func NewFeatureMatcher(cfg MatchConfig, variant MatchVariant, outlierScale, lineMaxDistInlier float64) *FeatureMatcher {
	return &FeatureMatcher{cfg: cfg, variant: variant, outlierScale: outlierScale, lineMaxDistInlier: lineMaxDistInlier}
}

// outlierWeight implements spec §4.3's robust downweighting: fits close to
// the matched primitive keep weight near 1, fits far from it decay toward
// 0 rather than being cut off sharply.
func outlierWeight(dist, scale float64) float64 {
	if scale <= 0 {
		return 1
	}
	return math.Exp(-(dist * dist) / (scale * scale))
}

func pointToLineDistance(p, anchor, direction vec3) float64 {
	diff := p.sub(anchor)
	perp := diff.sub(direction.scale(diff.dot(direction)))
	return perp.norm()
}

func pointToPlaneDistance(p, anchor, normal vec3) float64 {
	return math.Abs(p.sub(anchor).dot(normal))
}

// MatchEdges fits a line through the nearest reference edges to each
// current edge keypoint. originals are in the current sensor's own local
// frame; pose is the candidate transform into the reference frame the
// index was built over, used only to search for neighbors — the stored
// Correspondence.Query keeps the untransformed point so
// ResidualAccumulator can re-evaluate it at any pose.
func (m *FeatureMatcher) MatchEdges(originals []vec3, pose Pose6, index *SpatialIndex) []Correspondence {
	r := pose.RotationMatrix()
	t := pose.Translation()
	var out []Correspondence
	for _, orig := range originals {
		q := mulMatVec3(r, orig).add(t)
		nn := index.KNearest(q, m.cfg.LineNbNeighbors, m.cfg.MaxLineDistance)
		if len(nn) < m.cfg.MinLineNeighbors {
			continue
		}
		// Ego-motion candidates all come from one frame: if they all lie
		// on the same scan line, they're collinear within that line's own
		// sampling direction and the fit below is degenerate.
		if m.variant == EgoMotionVariant && !index.scanLineDiversity(nn) {
			continue
		}
		pts := gather(index.points, nn)
		if m.variant == MappingVariant {
			pts = leaveOneOutLineInliers(pts, m.lineMaxDistInlier)
			if len(pts) < m.cfg.MinLineNeighbors {
				continue
			}
		}
		lambdas, vecs, ok := eigenDecompose3(covariance3(pts))
		if !ok {
			continue
		}
		// lambdas ascending: lambdas[2] is the largest (λ1), lambdas[0]
		// the smallest (λ3). Line-like requires one dominant direction.
		if lambdas[1] <= 1e-12 || lambdas[2] < m.cfg.LineDistanceFactor*lambdas[1] {
			continue
		}
		direction := vec3{vecs.At(0, 2), vecs.At(1, 2), vecs.At(2, 2)}.normalize()
		anchor := centroid3(pts)
		out = append(out, Correspondence{
			Kind:      CorrLine,
			Query:     orig,
			Anchor:    anchor,
			Direction: direction,
			Weight:    outlierWeight(pointToLineDistance(q, anchor, direction), m.outlierScale),
		})
	}
	return out
}

// leaveOneOutLineInliers implements the mapping-variant sample-consensus
// filter (spec §4.2): each candidate is refit against every OTHER
// candidate's line and dropped if its own residual to that fit exceeds
// maxDist, so a point that drifted off the true surface over many
// inserted frames doesn't pull the final fit toward it. maxDist <= 0
// disables the filter.
func leaveOneOutLineInliers(pts []vec3, maxDist float64) []vec3 {
	if maxDist <= 0 || len(pts) < 4 {
		return pts
	}
	inliers := make([]vec3, 0, len(pts))
	for i, p := range pts {
		rest := without(pts, i)
		lambdas, vecs, ok := eigenDecompose3(covariance3(rest))
		if !ok || lambdas[1] <= 1e-12 {
			continue
		}
		direction := vec3{vecs.At(0, 2), vecs.At(1, 2), vecs.At(2, 2)}.normalize()
		if pointToLineDistance(p, centroid3(rest), direction) <= maxDist {
			inliers = append(inliers, p)
		}
	}
	return inliers
}

func without(pts []vec3, skip int) []vec3 {
	out := make([]vec3, 0, len(pts)-1)
	for i, p := range pts {
		if i != skip {
			out = append(out, p)
		}
	}
	return out
}

// MatchPlanes fits a plane through the nearest reference planars to each
// current planar keypoint, with the same original/pose/index contract as
// MatchEdges.
func (m *FeatureMatcher) MatchPlanes(originals []vec3, pose Pose6, index *SpatialIndex) []Correspondence {
	r := pose.RotationMatrix()
	t := pose.Translation()
	var out []Correspondence
	for _, orig := range originals {
		q := mulMatVec3(r, orig).add(t)
		nn := index.KNearest(q, m.cfg.PlaneNbNeighbors, m.cfg.MaxPlaneDistance)
		if len(nn) < m.cfg.PlaneNbNeighbors {
			continue
		}
		pts := gather(index.points, nn)
		if m.variant == MappingVariant {
			pts = leaveOneOutPlaneInliers(pts, m.lineMaxDistInlier)
			if len(pts) < 3 {
				continue
			}
		}
		lambdas, vecs, ok := eigenDecompose3(covariance3(pts))
		if !ok {
			continue
		}
		// λ1 = lambdas[2] (largest), λ2 = lambdas[1], λ3 = lambdas[0]
		// (smallest, normal direction). Plane-like: flat (λ2 >= factor1*λ3)
		// and not a thin line embedded in the plane (λ1 <= factor2*λ2).
		if lambdas[0] <= 1e-12 || lambdas[1] < m.cfg.PlaneDistanceFactor1*lambdas[0] {
			continue
		}
		if lambdas[2] > m.cfg.PlaneDistanceFactor2*lambdas[1] {
			continue
		}
		normal := vec3{vecs.At(0, 0), vecs.At(1, 0), vecs.At(2, 0)}.normalize()
		anchor := centroid3(pts)
		out = append(out, Correspondence{
			Kind:   CorrPlane,
			Query:  orig,
			Anchor: anchor,
			Normal: normal,
			Weight: outlierWeight(pointToPlaneDistance(q, anchor, normal), m.outlierScale),
		})
	}
	return out
}

// leaveOneOutPlaneInliers is leaveOneOutLineInliers's plane analog: each
// candidate is refit against every other candidate's plane and dropped if
// its own residual to that fit exceeds maxDist.
func leaveOneOutPlaneInliers(pts []vec3, maxDist float64) []vec3 {
	if maxDist <= 0 || len(pts) < 4 {
		return pts
	}
	inliers := make([]vec3, 0, len(pts))
	for i, p := range pts {
		rest := without(pts, i)
		lambdas, vecs, ok := eigenDecompose3(covariance3(rest))
		if !ok || lambdas[0] <= 1e-12 {
			continue
		}
		normal := vec3{vecs.At(0, 0), vecs.At(1, 0), vecs.At(2, 0)}.normalize()
		if pointToPlaneDistance(p, centroid3(rest), normal) <= maxDist {
			inliers = append(inliers, p)
		}
	}
	return inliers
}

// MatchBlobs matches a blob keypoint to its nearest reference blob
// centroid, decomposed into three orthogonal plane constraints (normals
// ex, ey, ez through the matched centroid) whose combined residual is
// exactly the squared Euclidean point-to-point distance. This lets blob
// correspondences flow through the same line/plane ResidualAccumulator
// without a third residual model.
func (m *FeatureMatcher) MatchBlobs(originals []vec3, pose Pose6, index *SpatialIndex) []Correspondence {
	r := pose.RotationMatrix()
	t := pose.Translation()
	var out []Correspondence
	for _, orig := range originals {
		q := mulMatVec3(r, orig).add(t)
		nn := index.KNearest(q, 1, m.cfg.MaxPlaneDistance)
		if len(nn) == 0 {
			continue
		}
		anchor := index.points[nn[0]]
		weight := outlierWeight(q.sub(anchor).norm(), m.outlierScale)
		for _, n := range []vec3{{x: 1}, {y: 1}, {z: 1}} {
			out = append(out, Correspondence{
				Kind:   CorrPlane,
				Query:  orig,
				Anchor: anchor,
				Normal: n,
				Weight: weight,
			})
		}
	}
	return out
}

func gather(points []vec3, idxs []int) []vec3 {
	out := make([]vec3, len(idxs))
	for i, idx := range idxs {
		out[i] = points[idx]
	}
	return out
}
