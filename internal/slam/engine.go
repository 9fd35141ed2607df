package slam

import "sync"

// SlamEngine runs the sequential LOAM-style pipeline of spec §5: per-frame
// keypoint extraction, Kalman pose prediction, ego-motion LM against the
// previous frame, undistortion to the sweep start, mapping LM against the
// rolling map, rolling-map insertion, and trajectory append. All mutable pipeline state lives behind
// a mutex so ProcessFrame and the read-only accessors are safe to call from
// different goroutines (e.g. a diagnostics goroutine polling WorldPose
// while the main loop drives ProcessFrame).
type SlamEngine struct {
	mu sync.Mutex

	cfg      *Config
	calib    SensorCalibration
	hasCalib bool

	extractor *KeypointExtractor
	undist    *MotionUndistorter
	kalman    *KalmanFilter12

	edgeGrid   *RollingGrid
	planarGrid *RollingGrid
	blobGrid   *RollingGrid

	prevKeypoints *Keypoints
	worldPose     Pose6
	frameIdx      int
	lastTimestamp float64
	started       bool

	trajectory *TworldList
	observer   Observer
	interp     PoseInterpolator
}

// NewSlamEngine validates cfg and constructs an engine with identity
// initial pose and empty rolling maps.
func NewSlamEngine(cfg *Config) (*SlamEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SlamEngine{
		cfg:        cfg,
		extractor:  NewKeypointExtractor(cfg.Keypoint, cfg.AngleResolution),
		undist:     NewMotionUndistorter(),
		kalman:     NewKalmanFilter12(IdentityPose6(), cfg.MaxVelocityAccel, cfg.MaxAngleAccel),
		edgeGrid:   NewRollingGrid(cfg.RollingGrid),
		planarGrid: NewRollingGrid(cfg.RollingGrid),
		blobGrid:   NewRollingGrid(cfg.RollingGrid),
		worldPose:  IdentityPose6(),
		trajectory: NewTworldList(),
		observer:   NoopObserver{},
	}, nil
}

// SetSensorCalibration installs the calibration ProcessFrame requires
// before it will accept frames (spec §7: absent calibration is a fatal,
// caller-visible error).
func (e *SlamEngine) SetSensorCalibration(c SensorCalibration) error {
	if err := c.validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calib = c
	e.hasCalib = true
	return nil
}

// SetObserver installs a diagnostic Observer, or clears it when o is nil.
func (e *SlamEngine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o == nil {
		o = NoopObserver{}
	}
	e.observer = o
}

// SetPoseInterpolator installs the external velocity hint source used when
// Config.MotionModel == 1.
func (e *SlamEngine) SetPoseInterpolator(p PoseInterpolator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.interp = p
}

// WorldPose returns the most recently estimated world pose.
func (e *SlamEngine) WorldPose() Pose6 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.worldPose
}

// Trajectory returns the accumulated trajectory. The returned pointer
// aliases engine state; callers must not mutate it concurrently with
// ProcessFrame.
func (e *SlamEngine) Trajectory() *TworldList {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trajectory
}

// Reset returns the engine to its just-constructed state: identity pose,
// empty rolling maps, zero velocity, no previous-frame keypoints.
func (e *SlamEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kalman.Reset(IdentityPose6())
	e.edgeGrid.Clear()
	e.planarGrid.Clear()
	e.blobGrid.Clear()
	e.prevKeypoints = nil
	e.worldPose = IdentityPose6()
	e.frameIdx = 0
	e.lastTimestamp = 0
	e.started = false
	e.trajectory = NewTworldList()
}

// ProcessFrame runs the full pipeline on one sweep and returns the
// estimated world pose at the sweep's end.
func (e *SlamEngine) ProcessFrame(frame *Frame, timestamp float64) (Pose6, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasCalib {
		return Pose6{}, ErrCalibrationMissing
	}

	kp := e.extractor.Extract(frame)
	e.observer.OnKeypoints(e.frameIdx, kp)

	dt := 0.0
	if e.started {
		dt = timestamp - e.lastTimestamp
		if dt < 0 {
			dt = 0
		}
	}
	e.kalman.Predict(dt)
	predictedWorld := e.kalman.State()

	delta := IdentityPose6()
	worldGuess := predictedWorld

	if e.prevKeypoints != nil {
		egoInit := IdentityPose6()
		if e.cfg.MotionModel == 1 && e.interp != nil {
			if hint, ok := e.interp.VelocityHint(timestamp); ok {
				egoInit = scalePose(hint, dt)
			}
		}

		egoDelta, egoErr := e.runEgoMotion(kp, e.prevKeypoints, egoInit)
		e.observer.OnEgoMotion(e.frameIdx, egoDelta, egoErr)

		if egoErr == nil && egoDelta.Translation().norm() > e.cfg.MaxDistBetweenTwoFrames {
			egoErr = ErrExcessiveMotion
		}
		if egoErr == nil {
			delta = egoDelta
			worldGuess = Compose(delta, e.worldPose)
		}
	}

	undistorted := kp
	if e.cfg.Undistortion && e.prevKeypoints != nil {
		undistorted = e.undistortKeypoints(kp, delta)
	}

	mapped, mapErr := e.runMapping(undistorted, worldGuess)
	e.observer.OnMapping(e.frameIdx, mapped, mapErr)

	finalPose := worldGuess
	if mapErr == nil {
		e.kalman.Correct(mapped, defaultMeasurementNoise())
		finalPose = mapped
	}

	e.worldPose = finalPose
	e.insertIntoMaps(undistorted, finalPose)
	center := finalPose.Translation()
	e.edgeGrid.RecenterTo(center)
	e.planarGrid.RecenterTo(center)
	e.blobGrid.RecenterTo(center)

	e.prevKeypoints = undistorted
	e.lastTimestamp = timestamp
	e.started = true
	e.frameIdx++

	e.trajectory.Append(timestamp, finalPose)
	e.observer.OnFrameComplete(e.frameIdx-1, finalPose)
	return finalPose, nil
}

// runEgoMotion solves the relative pose delta mapping the current frame's
// keypoints into the previous frame's sensor frame (spec §4.2/§4.3, the
// "ego-motion" pass).
func (e *SlamEngine) runEgoMotion(kp, prev *Keypoints, init Pose6) (Pose6, error) {
	edgeIdx := NewSpatialIndex(toVec3s(prev.Edges), scanLinesOf(prev.Edges), e.cfg.EgoMotion.MaxLineDistance)
	planarIdx := NewSpatialIndex(toVec3s(prev.Planars), nil, e.cfg.EgoMotion.MaxPlaneDistance)
	matcher := NewFeatureMatcher(e.cfg.EgoMotion, EgoMotionVariant, e.cfg.MaxDistanceForICPMatching, 0)

	edges := toVec3s(kp.Edges)
	planars := toVec3s(kp.Planars)

	matchFn := func(pose Pose6) []Correspondence {
		var corrs []Correspondence
		if edgeIdx.Len() > 0 {
			corrs = append(corrs, matcher.MatchEdges(edges, pose, edgeIdx)...)
		}
		if planarIdx.Len() > 0 {
			corrs = append(corrs, matcher.MatchPlanes(planars, pose, planarIdx)...)
		}
		return corrs
	}

	solver := NewLMSolver(e.cfg.EgoMotion)
	return solver.Solve(init, matchFn, e.cfg.Lambda0, e.cfg.LambdaRatio)
}

// runMapping solves the full world pose by matching the undistorted
// current keypoints against the rolling map's local submap (spec §4.5).
// When Config.FastSlam is set, only planar correspondences are used
// (spec §9 Open Question #2, resolved in SPEC_FULL.md §12).
func (e *SlamEngine) runMapping(kp *Keypoints, init Pose6) (Pose6, error) {
	center := init.Translation()
	radius := e.cfg.Mapping.FarestKeypointDist

	planarSubmap := e.planarGrid.Query(center, radius)
	planarIdx := NewSpatialIndex(planarSubmap, nil, e.cfg.Mapping.MaxPlaneDistance)
	matcher := NewFeatureMatcher(e.cfg.Mapping.MatchConfig, MappingVariant, e.cfg.MaxDistanceForICPMatching, e.cfg.Mapping.LineMaxDistInlier)

	planars := toVec3s(kp.Planars)

	var edgeIdx *SpatialIndex
	var edges []vec3
	if !e.cfg.FastSlam {
		edgeSubmap := e.edgeGrid.Query(center, radius)
		edgeIdx = NewSpatialIndex(edgeSubmap, nil, e.cfg.Mapping.MaxLineDistance)
		edges = toVec3s(kp.Edges)
	}

	matchFn := func(pose Pose6) []Correspondence {
		var corrs []Correspondence
		if planarIdx.Len() > 0 {
			corrs = append(corrs, matcher.MatchPlanes(planars, pose, planarIdx)...)
		}
		if edgeIdx != nil && edgeIdx.Len() > 0 {
			corrs = append(corrs, matcher.MatchEdges(edges, pose, edgeIdx)...)
		}
		return corrs
	}

	solver := NewLMSolver(e.cfg.Mapping.MatchConfig)
	return solver.Solve(init, matchFn, e.cfg.Lambda0, e.cfg.LambdaRatio)
}

// undistortKeypoints rewrites each keypoint's coordinates into the
// sweep-start frame using delta, the ego-motion relative pose (spec §4.4).
func (e *SlamEngine) undistortKeypoints(kp *Keypoints, delta Pose6) *Keypoints {
	out := &Keypoints{
		Edges:     make([]Point, len(kp.Edges)),
		Planars:   make([]Point, len(kp.Planars)),
		Blobs:     make([]Point, len(kp.Blobs)),
		Labels:    kp.Labels,
		Curvature: kp.Curvature,
		DepthGap:  kp.DepthGap,
	}
	for i, p := range kp.Edges {
		out.Edges[i] = e.undist.TransformToStart(p, delta)
	}
	for i, p := range kp.Planars {
		out.Planars[i] = e.undist.TransformToStart(p, delta)
	}
	for i, p := range kp.Blobs {
		out.Blobs[i] = e.undist.TransformToStart(p, delta)
	}
	return out
}

// insertIntoMaps transforms kp's keypoints into the world frame via
// worldPose and inserts them into the three rolling maps.
func (e *SlamEngine) insertIntoMaps(kp *Keypoints, worldPose Pose6) {
	e.edgeGrid.Insert(transformAll(toVec3s(kp.Edges), worldPose))
	e.planarGrid.Insert(transformAll(toVec3s(kp.Planars), worldPose))
	e.blobGrid.Insert(transformAll(toVec3s(kp.Blobs), worldPose))
}

func toVec3s(pts []Point) []vec3 {
	out := make([]vec3, len(pts))
	for i, p := range pts {
		out[i] = p.Vec3()
	}
	return out
}

func scanLinesOf(pts []Point) []uint16 {
	out := make([]uint16, len(pts))
	for i, p := range pts {
		out[i] = p.ScanLineID
	}
	return out
}

func transformAll(pts []vec3, pose Pose6) []vec3 {
	out := make([]vec3, len(pts))
	for i, p := range pts {
		out[i] = pose.Transform(p)
	}
	return out
}

func scalePose(p Pose6, s float64) Pose6 {
	return Pose6{
		RX: p.RX * s, RY: p.RY * s, RZ: p.RZ * s,
		TX: p.TX * s, TY: p.TY * s, TZ: p.TZ * s,
	}
}

// defaultMeasurementNoise is the Kalman correction step's measurement
// noise diagonal: tighter on rotation than on translation, matching the
// mapping LM solve's typically finer angular than positional precision.
func defaultMeasurementNoise() [6]float64 {
	return [6]float64{1e-4, 1e-4, 1e-4, 1e-2, 1e-2, 1e-2}
}
