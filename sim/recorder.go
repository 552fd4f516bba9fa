package sim

import (
	"io"
	"sort"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Sample is the state recorded after a frame.
type Sample struct {
	Frame     int
	Time      float64
	Duration  time.Duration
	Positions map[string]float64
}

// Recorder keeps the joint trajectory and frame timings of a simulation.
type Recorder struct {
	samples []Sample
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends a sample.
func (r *Recorder) Record(frame int, simTime float64, took time.Duration, positions map[string]float64) {
	r.samples = append(r.samples, Sample{Frame: frame, Time: simTime, Duration: took, Positions: positions})
}

// Samples returns the recorded samples in order.
func (r *Recorder) Samples() []Sample {
	return r.samples
}

// Joints returns the names of every recorded joint, sorted.
func (r *Recorder) Joints() []string {
	names := lo.Uniq(lo.FlatMap(r.samples, func(s Sample, _ int) []string { return lo.Keys(s.Positions) }))
	sort.Strings(names)
	return names
}

// FrameStats summarizes how long frames took to compute, in milliseconds.
type FrameStats struct {
	Frames int
	Mean   float64
	Median float64
	P95    float64
	Max    float64
}

// Stats returns the frame timing summary.
func (r *Recorder) Stats() (FrameStats, error) {
	if len(r.samples) == 0 {
		return FrameStats{}, errors.New("no frames recorded")
	}
	data := stats.Float64Data(r.frameMillis())
	fs := FrameStats{Frames: len(r.samples)}
	var err error
	if fs.Mean, err = data.Mean(); err != nil {
		return fs, err
	}
	if fs.Median, err = data.Median(); err != nil {
		return fs, err
	}
	if fs.P95, err = data.Percentile(95); err != nil {
		return fs, err
	}
	if fs.Max, err = data.Max(); err != nil {
		return fs, err
	}
	return fs, nil
}

// frameMillis returns the frame durations in milliseconds.
func (r *Recorder) frameMillis() []float64 {
	return lo.Map(r.samples, func(s Sample, _ int) float64 {
		return float64(s.Duration) / float64(time.Millisecond)
	})
}

// Histogram prints a text histogram of frame times in milliseconds.
func (r *Recorder) Histogram(w io.Writer, bins int) error {
	millis := r.frameMillis()
	if len(millis) == 0 {
		return errors.New("no frames recorded")
	}
	if bins < 1 || lo.Min(millis) == lo.Max(millis) {
		bins = 1
	}
	hist := histogram.Hist(bins, millis)
	return histogram.Fprint(w, hist, histogram.Linear(40))
}

// Plot saves a plot of every joint position over simulated time. The format follows the file
// extension.
func (r *Recorder) Plot(path string) error {
	joints := r.Joints()
	if len(joints) == 0 {
		return errors.New("no joint positions recorded")
	}
	p := plot.New()
	p.Title.Text = "Joint positions"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "position (rad or m)"
	p.Add(plotter.NewGrid())
	for i, name := range joints {
		pts := make(plotter.XYs, 0, len(r.samples))
		for _, s := range r.samples {
			if v, ok := s.Positions[name]; ok {
				pts = append(pts, plotter.XY{X: s.Time, Y: v})
			}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "joint %q", name)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot to %q", path)
	}
	return nil
}
