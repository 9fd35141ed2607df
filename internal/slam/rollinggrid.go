package slam

import "math"

// voxelCoord is a discrete cell address in a RollingGrid.
type voxelCoord struct{ x, y, z int }

// RollingGrid is a bounded, sliding 3D voxel map (spec §4.5). Points are
// bucketed into cubic voxels of VoxelSize; as the sensor moves the grid
// recenters on the current position, evicting any voxel that falls
// outside GridNbVoxel of the new center so memory stays bounded
// regardless of trajectory length: exactly GridNbVoxel[i] voxels along
// axis i survive a recenter, each capped at MaxPointsPerCell points, so
// total stored points never exceed prod(GridNbVoxel)*MaxPointsPerCell
// (spec §8/scenario 6). Each voxel downsamples to roughly one point per
// LeafVoxelFilterSize cube; when LeafVoxelFilterSize is zero,
// PointcloudNbVoxel is used instead to derive an equivalent sub-voxel
// resolution.
type RollingGrid struct {
	cfg    RollingGridConfig
	center voxelCoord
	cells  map[voxelCoord][]vec3
}

// NewRollingGrid builds an empty grid centered at the origin voxel.
func NewRollingGrid(cfg RollingGridConfig) *RollingGrid {
	if cfg.LeafVoxelFilterSize <= 0 {
		cfg.LeafVoxelFilterSize = subVoxelLeafSize(cfg.VoxelSize, cfg.PointcloudNbVoxel)
	}
	return &RollingGrid{cfg: cfg, cells: make(map[voxelCoord][]vec3)}
}

// subVoxelLeafSize derives a leaf size from PointcloudNbVoxel, the
// sub-voxel resolution hint used when LeafVoxelFilterSize isn't set
// explicitly: each voxel axis is treated as subdivided into n equal
// sub-cells, and the leaf size is the average sub-cell edge length.
func subVoxelLeafSize(voxelSize float64, nb [3]int) float64 {
	var sum float64
	var count int
	for _, n := range nb {
		if n > 0 {
			sum += voxelSize / float64(n)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func (g *RollingGrid) voxelFor(p vec3) voxelCoord {
	return voxelCoord{
		x: int(math.Floor(p.x / g.cfg.VoxelSize)),
		y: int(math.Floor(p.y / g.cfg.VoxelSize)),
		z: int(math.Floor(p.z / g.cfg.VoxelSize)),
	}
}

// Insert adds pts to the grid. Points landing in a voxel outside the
// current bounds are silently dropped rather than growing the map.
func (g *RollingGrid) Insert(pts []vec3) {
	for _, p := range pts {
		vc := g.voxelFor(p)
		if !g.inBounds(vc) {
			continue
		}
		g.cells[vc] = appendDownsampled(g.cells[vc], p, g.cfg.LeafVoxelFilterSize, g.cfg.MaxPointsPerCell)
	}
}

func appendDownsampled(cell []vec3, p vec3, leaf float64, cap int) []vec3 {
	if leaf > 0 {
		for _, q := range cell {
			if p.sub(q).norm() < leaf {
				return cell
			}
		}
	}
	if len(cell) >= cap {
		return cell
	}
	return append(cell, p)
}

// inBounds reports whether vc lies within a GridNbVoxel[i]-wide span of the
// grid's current center on axis i, per spec §8's literal
// prod(grid_nb_voxel)*max_points_per_cell bound.
func (g *RollingGrid) inBounds(vc voxelCoord) bool {
	return inAxisSpan(vc.x, g.center.x, g.cfg.GridNbVoxel[0]) &&
		inAxisSpan(vc.y, g.center.y, g.cfg.GridNbVoxel[1]) &&
		inAxisSpan(vc.z, g.center.z, g.cfg.GridNbVoxel[2])
}

// inAxisSpan reports whether v lies within the n-cell-wide window centered
// on center, split as n/2 cells below center and the remainder above it so
// the window is exactly n cells wide regardless of n's parity.
func inAxisSpan(v, center, n int) bool {
	below := n / 2
	above := n - below - 1
	return v >= center-below && v <= center+above
}

// Query returns all points within radius of center. Mapping builds a
// SpatialIndex over the result before handing it to FeatureMatcher (spec
// §4.5's local-submap extraction feeding the mapping match pass).
func (g *RollingGrid) Query(center vec3, radius float64) []vec3 {
	cellRadius := int(math.Ceil(radius/g.cfg.VoxelSize)) + 1
	c := g.voxelFor(center)
	var out []vec3
	for dx := -cellRadius; dx <= cellRadius; dx++ {
		for dy := -cellRadius; dy <= cellRadius; dy++ {
			for dz := -cellRadius; dz <= cellRadius; dz++ {
				vc := voxelCoord{c.x + dx, c.y + dy, c.z + dz}
				for _, p := range g.cells[vc] {
					if p.sub(center).norm() <= radius {
						out = append(out, p)
					}
				}
			}
		}
	}
	return out
}

// RecenterTo moves the grid's center to the voxel containing pos, evicting
// every voxel that falls outside GridNbVoxel of the new center.
func (g *RollingGrid) RecenterTo(pos vec3) {
	newCenter := g.voxelFor(pos)
	if newCenter == g.center {
		return
	}
	g.center = newCenter
	for vc := range g.cells {
		if !g.inBounds(vc) {
			delete(g.cells, vc)
		}
	}
}

// Clear empties the grid, keeping its configuration (used by
// SlamEngine.Reset).
func (g *RollingGrid) Clear() {
	g.cells = make(map[voxelCoord][]vec3)
	g.center = voxelCoord{}
}

// Len returns the total number of points currently stored across all
// voxels, used by the map-size invariant in tests.
func (g *RollingGrid) Len() int {
	n := 0
	for _, c := range g.cells {
		n += len(c)
	}
	return n
}

// AllPoints returns every point currently stored, as plain [x,y,z]
// triples, for snapshot export via internal/slam/persistence.
func (g *RollingGrid) AllPoints() [][3]float64 {
	out := make([][3]float64, 0, g.Len())
	for _, cell := range g.cells {
		for _, p := range cell {
			out = append(out, [3]float64{p.x, p.y, p.z})
		}
	}
	return out
}

// LoadPoints bulk-inserts points for snapshot restore, through the same
// per-voxel downsampling and cap as Insert, after recentering the grid on
// the restored points' centroid so a snapshot taken far from the origin
// isn't dropped by the bounds check before the caller gets a chance to
// RecenterTo the actual current position.
func (g *RollingGrid) LoadPoints(pts [][3]float64) {
	vecs := make([]vec3, len(pts))
	for i, p := range pts {
		vecs[i] = vec3{p[0], p[1], p[2]}
	}
	if len(vecs) > 0 {
		var centroid vec3
		for _, v := range vecs {
			centroid = centroid.add(v)
		}
		g.RecenterTo(centroid.scale(1 / float64(len(vecs))))
	}
	g.Insert(vecs)
}
