// Command slam-report renders a top-down PNG trajectory plot from a
// TworldList export written by cmd/slam.
package main

import (
	"flag"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ErgouZhao/loam-slam/internal/slam"
)

func main() {
	inputPath := flag.String("input", "", "trajectory file written by cmd/slam (required)")
	outputPath := flag.String("output", "trajectory.png", "PNG report path")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("slam-report: -input is required")
	}

	f, err := os.Open(*inputPath)
	if err != nil {
		log.Fatalf("slam-report: open %s: %v", *inputPath, err)
	}
	defer f.Close()

	traj, err := slam.ReadTworldList(f)
	if err != nil {
		log.Fatalf("slam-report: parse trajectory: %v", err)
	}

	pts := make(plotter.XYs, traj.Len())
	for i := 0; i < traj.Len(); i++ {
		pose := traj.At(i).Pose
		pts[i].X = pose.TX
		pts[i].Y = pose.TY
	}

	p := plot.New()
	p.Title.Text = "Recovered trajectory (top-down)"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		log.Fatalf("slam-report: build line plot: %v", err)
	}
	p.Add(line)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, *outputPath); err != nil {
		log.Fatalf("slam-report: save %s: %v", *outputPath, err)
	}
}
