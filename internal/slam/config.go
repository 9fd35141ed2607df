package slam

import (
	"fmt"
	"time"
)

// Config is the single configuration record for the engine, replacing the
// "macros generating getters/setters on 40+ scalar fields" anti-pattern
// (spec §9) with one struct built at construction and mutated through
// ordinary field assignment plus a Validate() pass. Field groups mirror
// spec §6's "Recognized options" flat namespace.
type Config struct {
	// General
	DisplayMode               bool    // not read by the engine; Observer callbacks run whenever an Observer is set
	MaxDistBetweenTwoFrames   float64 // meters; ExcessiveMotion sanity bound (default: 3.0)
	AngleResolution           float64 // degrees between consecutive points on a scan line (default: 0.2)
	MaxDistanceForICPMatching float64 // meters; outlier weighting scale (default: 5.0)
	Lambda0                   float64 // initial LM damping factor (default: 1e-2)
	LambdaRatio               float64 // LM accept/reject damping multiplier (default: 10.0)
	FastSlam                  bool    // reuse ego-motion planar keypoints for mapping
	Undistortion              bool    // apply per-point motion undistortion
	MotionModel               int     // 0 = motion-only, 1 = + external velocity hint

	MaxVelocityAccel float64 // m/s^2, Kalman process-noise derivation (default: 10.0)
	MaxAngleAccel    float64 // rad/s^2, Kalman process-noise derivation (default: 5.0)

	RollingGrid RollingGridConfig
	Keypoint    KeypointConfig
	EgoMotion   MatchConfig
	Mapping     MappingConfig
}

// RollingGridConfig configures the three bounded voxel maps.
type RollingGridConfig struct {
	VoxelSize           float64 // meters per voxel edge (default: 1.0)
	GridNbVoxel         [3]int  // grid extent in voxels per axis (default: [50,50,10])
	PointcloudNbVoxel   [3]int  // sub-voxel resolution hint for leaf filtering (default: [5,5,5])
	LeafVoxelFilterSize float64 // meters; downsampling leaf size inside a voxel (default: 0.1)
	MaxPointsPerCell    int     // bound used by the map-size invariant (default: 50)
}

// KeypointConfig configures KeypointExtractor.
type KeypointConfig struct {
	NeighborWidth          int     // symmetric neighbor window half-width (default: 5)
	MaxEdgesPerLine        int     // default: 10
	MaxPlanarsPerLine      int     // default: 40
	MinDistanceToSensor    float64 // meters (default: 1.0)
	EdgeSinAngleThreshold  float64 // default: 0.25
	PlaneSinAngleThreshold float64 // default: 0.05
	EdgeDepthGapThreshold  float64 // meters (default: 0.3)
	SphericityThreshold    float64 // min/max eigenvalue ratio for blobs (default: 0.7)
	ExtractBlobs           bool
}

// MatchConfig configures FeatureMatcher + LMSolver for the ego-motion pass.
type MatchConfig struct {
	MaxIter              int     // default: 15
	ICPFrequency         int     // re-match every N accepted LM steps (default: 4)
	LineNbNeighbors      int     // default: 10
	MinLineNeighbors     int     // default: 3
	LineDistanceFactor   float64 // λ1 >= factor*λ2 to accept a line fit (default: 3.0)
	PlaneNbNeighbors     int     // default: 5
	PlaneDistanceFactor1 float64 // λ2 >= factor1*λ3 (default: 3.0)
	PlaneDistanceFactor2 float64 // λ1 <= factor2*λ2 (default: 5.0)
	MaxLineDistance      float64 // meters (default: 1.0)
	MaxPlaneDistance     float64 // meters (default: 1.0)
}

// MappingConfig extends MatchConfig with the mapping-only sample-consensus
// inlier threshold.
type MappingConfig struct {
	MatchConfig
	LineMaxDistInlier  float64 // meters; leave-one-out residual bound (default: 0.2)
	FarestKeypointDist float64 // meters; radius of the spherical submap query around the pose guess (default: 5.0)
}

// DefaultConfig returns a Config populated with the defaults named in each
// field's doc comment above (mirroring l3grid.DefaultBackgroundConfig's
// role as the canonical source of tuning defaults).
func DefaultConfig() *Config {
	matchDefaults := MatchConfig{
		MaxIter:              15,
		ICPFrequency:         4,
		LineNbNeighbors:      10,
		MinLineNeighbors:     3,
		LineDistanceFactor:   3.0,
		PlaneNbNeighbors:     5,
		PlaneDistanceFactor1: 3.0,
		PlaneDistanceFactor2: 5.0,
		MaxLineDistance:      1.0,
		MaxPlaneDistance:     1.0,
	}
	return &Config{
		DisplayMode:               false,
		MaxDistBetweenTwoFrames:   3.0,
		AngleResolution:           0.2,
		MaxDistanceForICPMatching: 5.0,
		Lambda0:                   1e-2,
		LambdaRatio:               10.0,
		FastSlam:                  false,
		Undistortion:              true,
		MotionModel:               0,
		MaxVelocityAccel:          10.0,
		MaxAngleAccel:             5.0,
		RollingGrid: RollingGridConfig{
			VoxelSize:           1.0,
			GridNbVoxel:         [3]int{50, 50, 10},
			PointcloudNbVoxel:   [3]int{5, 5, 5},
			LeafVoxelFilterSize: 0.1,
			MaxPointsPerCell:    50,
		},
		Keypoint: KeypointConfig{
			NeighborWidth:          5,
			MaxEdgesPerLine:        10,
			MaxPlanarsPerLine:      40,
			MinDistanceToSensor:    1.0,
			EdgeSinAngleThreshold:  0.25,
			PlaneSinAngleThreshold: 0.05,
			EdgeDepthGapThreshold:  0.3,
			SphericityThreshold:    0.7,
			ExtractBlobs:           false,
		},
		EgoMotion: matchDefaults,
		Mapping: MappingConfig{
			MatchConfig:        matchDefaults,
			LineMaxDistInlier:  0.2,
			FarestKeypointDist: 5.0,
		},
	}
}

// Validate checks that every field is within its acceptable range, fatal to
// the caller per spec §7's "configuration errors are fatal" policy.
func (c *Config) Validate() error {
	if c.MaxDistBetweenTwoFrames <= 0 {
		return fmt.Errorf("slam: MaxDistBetweenTwoFrames must be positive, got %f", c.MaxDistBetweenTwoFrames)
	}
	if c.AngleResolution <= 0 {
		return fmt.Errorf("slam: AngleResolution must be positive, got %f", c.AngleResolution)
	}
	if c.Lambda0 <= 0 {
		return fmt.Errorf("slam: Lambda0 must be positive, got %f", c.Lambda0)
	}
	if c.LambdaRatio <= 1 {
		return fmt.Errorf("slam: LambdaRatio must be > 1, got %f", c.LambdaRatio)
	}
	if c.MotionModel != 0 && c.MotionModel != 1 {
		return fmt.Errorf("slam: MotionModel must be 0 or 1, got %d", c.MotionModel)
	}
	if err := c.RollingGrid.validate(); err != nil {
		return err
	}
	if err := c.Keypoint.validate(); err != nil {
		return err
	}
	if err := c.EgoMotion.validate(); err != nil {
		return err
	}
	if err := c.Mapping.MatchConfig.validate(); err != nil {
		return err
	}
	if c.Mapping.LineMaxDistInlier <= 0 {
		return fmt.Errorf("slam: Mapping.LineMaxDistInlier must be positive, got %f", c.Mapping.LineMaxDistInlier)
	}
	return nil
}

func (c *RollingGridConfig) validate() error {
	if c.VoxelSize <= 0 {
		return fmt.Errorf("slam: RollingGrid.VoxelSize must be positive, got %f", c.VoxelSize)
	}
	for i, n := range c.GridNbVoxel {
		if n <= 0 {
			return fmt.Errorf("slam: RollingGrid.GridNbVoxel[%d] must be positive, got %d", i, n)
		}
	}
	if c.LeafVoxelFilterSize < 0 {
		return fmt.Errorf("slam: RollingGrid.LeafVoxelFilterSize must be non-negative, got %f", c.LeafVoxelFilterSize)
	}
	if c.MaxPointsPerCell <= 0 {
		return fmt.Errorf("slam: RollingGrid.MaxPointsPerCell must be positive, got %d", c.MaxPointsPerCell)
	}
	return nil
}

func (c *KeypointConfig) validate() error {
	if c.NeighborWidth <= 0 {
		return fmt.Errorf("slam: Keypoint.NeighborWidth must be positive, got %d", c.NeighborWidth)
	}
	if c.MaxEdgesPerLine < 0 || c.MaxPlanarsPerLine < 0 {
		return fmt.Errorf("slam: Keypoint.MaxEdgesPerLine/MaxPlanarsPerLine must be non-negative")
	}
	if c.MinDistanceToSensor < 0 {
		return fmt.Errorf("slam: Keypoint.MinDistanceToSensor must be non-negative, got %f", c.MinDistanceToSensor)
	}
	if c.EdgeSinAngleThreshold <= 0 || c.EdgeSinAngleThreshold > 1 {
		return fmt.Errorf("slam: Keypoint.EdgeSinAngleThreshold must be in (0,1], got %f", c.EdgeSinAngleThreshold)
	}
	if c.PlaneSinAngleThreshold <= 0 || c.PlaneSinAngleThreshold > 1 {
		return fmt.Errorf("slam: Keypoint.PlaneSinAngleThreshold must be in (0,1], got %f", c.PlaneSinAngleThreshold)
	}
	return nil
}

func (c *MatchConfig) validate() error {
	if c.MaxIter <= 0 {
		return fmt.Errorf("slam: MaxIter must be positive, got %d", c.MaxIter)
	}
	if c.ICPFrequency <= 0 {
		return fmt.Errorf("slam: ICPFrequency must be positive, got %d", c.ICPFrequency)
	}
	if c.LineNbNeighbors <= 0 || c.MinLineNeighbors <= 0 || c.MinLineNeighbors > c.LineNbNeighbors {
		return fmt.Errorf("slam: invalid line neighbor counts (nb=%d, min=%d)", c.LineNbNeighbors, c.MinLineNeighbors)
	}
	if c.PlaneNbNeighbors <= 0 {
		return fmt.Errorf("slam: PlaneNbNeighbors must be positive, got %d", c.PlaneNbNeighbors)
	}
	if c.LineDistanceFactor <= 1 {
		return fmt.Errorf("slam: LineDistanceFactor must be > 1, got %f", c.LineDistanceFactor)
	}
	if c.PlaneDistanceFactor1 <= 1 || c.PlaneDistanceFactor2 <= 1 {
		return fmt.Errorf("slam: PlaneDistanceFactor1/2 must be > 1")
	}
	if c.MaxLineDistance <= 0 || c.MaxPlaneDistance <= 0 {
		return fmt.Errorf("slam: MaxLineDistance/MaxPlaneDistance must be positive")
	}
	return nil
}

// SettlingDuration is the nominal time an engine instance should run before
// its rolling maps are considered representative, used only by diagnostics
// and tests; analogous in spirit to l3grid.BackgroundConfig.SettlingPeriod.
func (c *Config) SettlingDuration() time.Duration {
	return 30 * time.Second
}
