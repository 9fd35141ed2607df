package slam

import (
	"math"
	"sort"
)

// zigzag maps a signed cell coordinate to a non-negative integer so it can
// feed a Szudzik pairing, the scheme this index generalizes from two
// dimensions to three.
func zigzag(x int) int64 {
	if x >= 0 {
		return int64(x) * 2
	}
	return int64(-x)*2 - 1
}

func szudzik(a, b int64) int64 {
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

func cellKey(x, y, z int) int64 {
	return szudzik(szudzik(zigzag(x), zigzag(y)), zigzag(z))
}

// SpatialIndex is a uniform 3D grid spatial index over a fixed point set,
// used for spec §4.2's bounded-radius candidate search. Candidates are
// bucketed by grid cell and the query inspects the cube of cells covering
// the search radius, the same scheme as a 2D spatial hash generalized to
// three axes.
//
// scanLines carries the originating scan line ID of each point, when
// known, so FeatureMatcher can apply the ego-motion scan-line-diversity
// filter (spec §4.2). It is nil for indexes built over the rolling map's
// submap, where individual points no longer carry a meaningful single
// scan line.
type SpatialIndex struct {
	cellSize  float64
	cells     map[int64][]int
	points    []vec3
	scanLines []uint16
}

// NewSpatialIndex builds an index over points, a per-frame static point
// set (edges or planars from the previous frame's keypoints, or the
// rolling map's local submap). scanLines may be nil when the point set has
// no per-point scan line (e.g. a rolling-map submap); otherwise it must be
// the same length as points.
func NewSpatialIndex(points []vec3, scanLines []uint16, cellSize float64) *SpatialIndex {
	idx := &SpatialIndex{
		cellSize:  cellSize,
		cells:     make(map[int64][]int, len(points)),
		points:    points,
		scanLines: scanLines,
	}
	for i, p := range points {
		k := idx.keyFor(p)
		idx.cells[k] = append(idx.cells[k], i)
	}
	return idx
}

// scanLineDiversity reports whether idxs spans at least two distinct scan
// lines. When the index carries no scan line metadata, every candidate
// trivially passes (the filter doesn't apply).
func (s *SpatialIndex) scanLineDiversity(idxs []int) bool {
	if s.scanLines == nil {
		return true
	}
	var first uint16
	seenFirst := false
	for _, i := range idxs {
		if !seenFirst {
			first = s.scanLines[i]
			seenFirst = true
			continue
		}
		if s.scanLines[i] != first {
			return true
		}
	}
	return false
}

func (s *SpatialIndex) cellCoord(v float64) int {
	return int(math.Floor(v / s.cellSize))
}

func (s *SpatialIndex) keyFor(p vec3) int64 {
	return cellKey(s.cellCoord(p.x), s.cellCoord(p.y), s.cellCoord(p.z))
}

// KNearest returns up to k point indices within radius of query, sorted by
// ascending distance with ties broken by index so results are
// deterministic regardless of map iteration order.
func (s *SpatialIndex) KNearest(query vec3, k int, radius float64) []int {
	if k <= 0 || radius <= 0 {
		return nil
	}
	cx, cy, cz := s.cellCoord(query.x), s.cellCoord(query.y), s.cellCoord(query.z)
	cellRadius := int(math.Ceil(radius / s.cellSize))

	type candidate struct {
		idx  int
		dist float64
	}
	var cands []candidate
	for dx := -cellRadius; dx <= cellRadius; dx++ {
		for dy := -cellRadius; dy <= cellRadius; dy++ {
			for dz := -cellRadius; dz <= cellRadius; dz++ {
				key := cellKey(cx+dx, cy+dy, cz+dz)
				for _, i := range s.cells[key] {
					d := s.points[i].sub(query).norm()
					if d <= radius {
						cands = append(cands, candidate{i, d})
					}
				}
			}
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].idx < cands[j].idx
	})
	if len(cands) == 0 {
		return nil
	}
	if len(cands) > k {
		cands = cands[:k]
	}
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.idx
	}
	return out
}

// Len reports the number of points indexed.
func (s *SpatialIndex) Len() int { return len(s.points) }
