package telemetry

import (
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series is a named scalar signal over time.
type Series struct {
	Name   string
	Stamps []time.Time
	Values []float64
}

// NewSeries pairs values with the stamps of trace samples.
func NewSeries(name string, stamps []time.Time, values []float64) (Series, error) {
	if len(stamps) != len(values) {
		return Series{}, errors.Errorf("series %q has %d stamps but %d values", name, len(stamps), len(values))
	}
	return Series{Name: name, Stamps: stamps, Values: values}, nil
}

// PlotTrajectories draws the end-effector paths in the x-y plane of the robot base, in millimeters. The
// format is chosen by the extension of path.
func PlotTrajectories(path, title string, trajectories ...Trajectory) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"

	for i, traj := range trajectories {
		if traj.Len() == 0 {
			continue
		}
		pts := make(plotter.XYs, 0, traj.Len())
		for _, s := range traj.Samples {
			pts = append(pts, plotter.XY{X: s.Pose.X * 1e3, Y: s.Pose.Y * 1e3})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "trajectory %q", traj.Name)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(traj.Name, line)
	}
	return savePlot(p, path)
}

// PlotSeries draws scalar signals over the seconds elapsed since the earliest stamp.
func PlotSeries(path, title, yLabel string, series ...Series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t (s)"
	p.Y.Label.Text = yLabel

	var start time.Time
	for _, s := range series {
		for _, stamp := range s.Stamps {
			if start.IsZero() || stamp.Before(start) {
				start = stamp
			}
		}
	}

	for i, s := range series {
		if len(s.Stamps) != len(s.Values) {
			return errors.Errorf("series %q has %d stamps but %d values", s.Name, len(s.Stamps), len(s.Values))
		}
		if len(s.Values) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.Values))
		for j, v := range s.Values {
			pts[j] = plotter.XY{X: s.Stamps[j].Sub(start).Seconds(), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "series %q", s.Name)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return savePlot(p, path)
}

func savePlot(p *plot.Plot, path string) error {
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot to %q", path)
	}
	return nil
}
