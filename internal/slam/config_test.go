package slam

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	base := func() *Config { return DefaultConfig() }

	cases := []struct {
		name    string
		mutate  func(*Config)
	}{
		{"zero MaxDistBetweenTwoFrames", func(c *Config) { c.MaxDistBetweenTwoFrames = 0 }},
		{"negative AngleResolution", func(c *Config) { c.AngleResolution = -1 }},
		{"zero Lambda0", func(c *Config) { c.Lambda0 = 0 }},
		{"LambdaRatio too small", func(c *Config) { c.LambdaRatio = 1 }},
		{"bad MotionModel", func(c *Config) { c.MotionModel = 2 }},
		{"zero VoxelSize", func(c *Config) { c.RollingGrid.VoxelSize = 0 }},
		{"zero GridNbVoxel", func(c *Config) { c.RollingGrid.GridNbVoxel[0] = 0 }},
		{"zero MaxPointsPerCell", func(c *Config) { c.RollingGrid.MaxPointsPerCell = 0 }},
		{"zero NeighborWidth", func(c *Config) { c.Keypoint.NeighborWidth = 0 }},
		{"out-of-range EdgeSinAngleThreshold", func(c *Config) { c.Keypoint.EdgeSinAngleThreshold = 1.5 }},
		{"zero MaxIter", func(c *Config) { c.EgoMotion.MaxIter = 0 }},
		{"MinLineNeighbors exceeds LineNbNeighbors", func(c *Config) { c.EgoMotion.MinLineNeighbors = c.EgoMotion.LineNbNeighbors + 1 }},
		{"LineDistanceFactor too small", func(c *Config) { c.EgoMotion.LineDistanceFactor = 1 }},
		{"zero LineMaxDistInlier", func(c *Config) { c.Mapping.LineMaxDistInlier = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			if err := c.Validate(); err == nil {
				t.Errorf("Validate() with %s: got nil error, want error", tc.name)
			}
		})
	}
}

func TestSettlingDurationPositive(t *testing.T) {
	if DefaultConfig().SettlingDuration() <= 0 {
		t.Errorf("SettlingDuration() must be positive")
	}
}
