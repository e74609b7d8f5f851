// Package telemetry turns recorded HSA sessions into trajectories, tracking error statistics and plots.
package telemetry

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mstoelzle/ros2-hsa/recorder"
	"github.com/mstoelzle/ros2-hsa/ros/msgs"
)

// Sample is a planar end-effector pose at a point in time.
type Sample struct {
	Stamp time.Time
	Pose  msgs.Pose2D
}

// Trajectory is a named sequence of samples ordered by stamp.
type Trajectory struct {
	Name    string
	Samples []Sample
}

// Len returns the number of samples.
func (t Trajectory) Len() int {
	return len(t.Samples)
}

// Duration returns the time between the first and the last sample.
func (t Trajectory) Duration() time.Duration {
	if len(t.Samples) < 2 {
		return 0
	}
	return t.Samples[len(t.Samples)-1].Stamp.Sub(t.Samples[0].Stamp)
}

// TrajectoryFromMessages extracts the planar poses out of recorded end-effector poses, setpoints or
// controller infos. Messages of any other type are skipped. Messages without a stamp are placed at the
// time they were received.
func TrajectoryFromMessages(name string, recorded []recorder.Message) Trajectory {
	traj := Trajectory{Name: name}
	for _, m := range recorded {
		var pose msgs.Pose2D
		switch msg := m.Msg.(type) {
		case *msgs.Pose2DStamped:
			pose = msg.Pose
		case *msgs.PlanarSetpoint:
			pose = msg.ChieeDes
		case *msgs.PlanarSetpointControllerInfo:
			pose = msg.Chiee.Pose
		case *msgs.Pose2D:
			pose = *msg
		default:
			continue
		}
		stamp := m.Received
		if !m.Header.Stamp.IsZero() {
			stamp = m.Header.Stamp.Go()
		}
		traj.Samples = append(traj.Samples, Sample{Stamp: stamp, Pose: pose})
	}
	sort.SliceStable(traj.Samples, func(i, j int) bool {
		return traj.Samples[i].Stamp.Before(traj.Samples[j].Stamp)
	})
	return traj
}

// TrajectoriesFromTrace splits a controller trace into the measured and the desired end-effector
// trajectory.
func TrajectoriesFromTrace(trace []recorder.ControllerRow) (measured, desired Trajectory) {
	measured = Trajectory{Name: "chiee", Samples: make([]Sample, 0, len(trace))}
	desired = Trajectory{Name: "chiee_des", Samples: make([]Sample, 0, len(trace))}
	for _, row := range trace {
		measured.Samples = append(measured.Samples, Sample{Stamp: row.Stamp, Pose: row.Chiee})
		desired.Samples = append(desired.Samples, Sample{Stamp: row.Stamp, Pose: row.ChieeDes})
	}
	return measured, desired
}

// PositionErrors returns the euclidean distance between the measured and the desired end-effector
// position of every controller sample.
func PositionErrors(trace []recorder.ControllerRow) []float64 {
	return lo.Map(trace, func(row recorder.ControllerRow, _ int) float64 {
		return math.Hypot(row.Chiee.X-row.ChieeDes.X, row.Chiee.Y-row.ChieeDes.Y)
	})
}

// ActuationOptimalityErrors returns the actuation optimality error of every controller sample.
func ActuationOptimalityErrors(trace []recorder.ControllerRow) []float64 {
	return lo.Map(trace, func(row recorder.ControllerRow, _ int) float64 {
		return row.ActuationOptimalityError
	})
}

// Summary describes the distribution of a series of errors.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Median float64
	P95    float64
	Max    float64
	// RMS is the root mean square.
	RMS    float64
}

// Summarize computes the summary statistics of values. Non-finite values are left out.
func Summarize(values []float64) (Summary, error) {
	data := stats.Float64Data(finite(values))
	if len(data) == 0 {
		return Summary{}, errors.New("no finite values to summarize")
	}

	s := Summary{Count: len(data)}
	var err error
	for _, f := range []struct {
		out *float64
		fn  func(stats.Float64Data) (float64, error)
	}{
		{&s.Mean, stats.Mean},
		{&s.StdDev, stats.StandardDeviationPopulation},
		{&s.Median, stats.Median},
		{&s.Max, stats.Max},
		{&s.RMS, rootMeanSquare},
		{&s.P95, func(d stats.Float64Data) (float64, error) { return stats.PercentileNearestRank(d, 95) }},
	} {
		if *f.out, err = f.fn(data); err != nil {
			return Summary{}, err
		}
	}
	return s, nil
}

func rootMeanSquare(data stats.Float64Data) (float64, error) {
	squares := lo.Map(data, func(v float64, _ int) float64 { return v * v })
	meanSquare, err := stats.Mean(squares)
	return math.Sqrt(meanSquare), err
}

// String renders the summary on a single line.
func (s Summary) String() string {
	return fmt.Sprintf("n=%d mean=%.4g std=%.4g median=%.4g p95=%.4g max=%.4g rms=%.4g",
		s.Count, s.Mean, s.StdDev, s.Median, s.P95, s.Max, s.RMS)
}

func finite(values []float64) []float64 {
	return lo.Filter(values, func(v float64, _ int) bool {
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	})
}

// FprintHistogram prints a unicode histogram of values over bins buckets, with bars at most width
// characters wide. Non-finite values are left out.
func FprintHistogram(w io.Writer, values []float64, bins, width int) error {
	if bins < 1 {
		return errors.Errorf("histogram needs at least one bin, got %d", bins)
	}
	data := finite(values)
	if len(data) == 0 {
		return errors.New("no finite values to draw a histogram of")
	}
	hist := histogram.Hist(bins, data)
	return histogram.Fprint(w, hist, histogram.Linear(width))
}
