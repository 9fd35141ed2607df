// Command slam runs the SLAM engine over a line-oriented point-cloud
// fixture and writes the recovered trajectory.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ErgouZhao/loam-slam/internal/slam"
	"github.com/ErgouZhao/loam-slam/internal/slam/persistence"
)

func main() {
	inputPath := flag.String("input", "", "line-oriented point cloud fixture (required)")
	outputPath := flag.String("output", "", "trajectory output file, defaults to stdout")
	dbPath := flag.String("db", "", "optional sqlite database to persist the trajectory to")
	nLasers := flag.Int("lasers", 16, "laser count for the identity laser_id_mapping")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("slam: -input is required")
	}

	frames, timestamps, err := loadFrames(*inputPath)
	if err != nil {
		log.Fatalf("slam: load frames: %v", err)
	}

	cfg := slam.DefaultConfig()
	engine, err := slam.NewSlamEngine(cfg)
	if err != nil {
		log.Fatalf("slam: configure engine: %v", err)
	}

	mapping := make([]uint16, *nLasers)
	for i := range mapping {
		mapping[i] = uint16(i)
	}
	if err := engine.SetSensorCalibration(slam.SensorCalibration{LaserIDMapping: mapping}); err != nil {
		log.Fatalf("slam: set calibration: %v", err)
	}

	var store *persistence.Store
	if *dbPath != "" {
		store, err = persistence.Open(*dbPath)
		if err != nil {
			log.Fatalf("slam: open db: %v", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			log.Fatalf("slam: migrate db: %v", err)
		}
	}

	for i, frame := range frames {
		pose, err := engine.ProcessFrame(frame, timestamps[i])
		if err != nil {
			log.Printf("slam: frame %d: %v", i, err)
			continue
		}
		if store != nil {
			v := pose.Vector()
			row := persistence.PoseRow{
				Timestamp: timestamps[i],
				RX:        v[0], RY: v[1], RZ: v[2],
				TX: v[3], TY: v[4], TZ: v[5],
			}
			if err := store.InsertPose(row); err != nil {
				log.Printf("slam: persist frame %d: %v", i, err)
			}
		}
	}

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			log.Fatalf("slam: create output: %v", err)
		}
		defer f.Close()
		out = f
	}
	if _, err := engine.Trajectory().WriteTo(out); err != nil {
		log.Fatalf("slam: write trajectory: %v", err)
	}
}

// loadFrames parses lines of "frame_idx timestamp scan_line x y z intensity
// time_offset" into ordered Frames, grouping by frame_idx.
func loadFrames(path string) ([]*slam.Frame, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	type frameAccum struct {
		timestamp float64
		points    []slam.Point
	}
	var order []int
	byIdx := make(map[int]*frameAccum)

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 8 {
			return nil, nil, fmt.Errorf("line %d: expected 8 fields, got %d", lineNo, len(fields))
		}

		frameIdx, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: frame_idx: %w", lineNo, err)
		}
		timestamp, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: timestamp: %w", lineNo, err)
		}
		scanLine, err := strconv.ParseUint(fields[2], 10, 16)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: scan_line: %w", lineNo, err)
		}
		x, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: x: %w", lineNo, err)
		}
		y, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: y: %w", lineNo, err)
		}
		z, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: z: %w", lineNo, err)
		}
		intensity, err := strconv.ParseFloat(fields[6], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: intensity: %w", lineNo, err)
		}
		timeOffset, err := strconv.ParseFloat(fields[7], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: time_offset: %w", lineNo, err)
		}

		acc, ok := byIdx[frameIdx]
		if !ok {
			acc = &frameAccum{timestamp: timestamp}
			byIdx[frameIdx] = acc
			order = append(order, frameIdx)
		}
		acc.points = append(acc.points, slam.Point{
			X: x, Y: y, Z: z,
			Intensity:  intensity,
			ScanLineID: uint16(scanLine),
			TimeOffset: timeOffset,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}

	sort.Ints(order)
	frames := make([]*slam.Frame, len(order))
	timestamps := make([]float64, len(order))
	for i, idx := range order {
		frames[i] = &slam.Frame{Points: byIdx[idx].points}
		timestamps[i] = byIdx[idx].timestamp
	}
	return frames, timestamps, nil
}
