package scenario

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Summary condenses one trace.
type Summary struct {
	Robot    string
	Samples  int
	Mean     float64
	StdDev   float64
	P95      float64
	Max      float64
	Final    float64
	Failures int
}

// Summarize computes the statistics of a trace. A trace without samples yields a summary with only
// the robot name and failure count set.
func Summarize(t Trace) (Summary, error) {
	s := Summary{Robot: t.Robot, Samples: len(t.Samples), Failures: t.Failures}
	if len(t.Samples) == 0 {
		return s, nil
	}
	data := stats.Float64Data(t.Errors())
	var err error
	if s.Mean, err = data.Mean(); err != nil {
		return s, errors.Wrap(err, "mean")
	}
	if s.StdDev, err = data.StandardDeviation(); err != nil {
		return s, errors.Wrap(err, "standard deviation")
	}
	if s.P95, err = data.Percentile(95); err != nil {
		return s, errors.Wrap(err, "percentile")
	}
	if s.Max, err = data.Max(); err != nil {
		return s, errors.Wrap(err, "max")
	}
	s.Final = t.Samples[len(t.Samples)-1].Error
	return s, nil
}

// SummaryTable renders one row per robot.
func SummaryTable(summaries []Summary) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Robot", "Samples", "Mean", "Std Dev", "P95", "Max", "Final", "Failures"})
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.Robot,
			s.Samples,
			fmt.Sprintf("%.5f", s.Mean),
			fmt.Sprintf("%.5f", s.StdDev),
			fmt.Sprintf("%.5f", s.P95),
			fmt.Sprintf("%.5f", s.Max),
			fmt.Sprintf("%.5f", s.Final),
			s.Failures,
		})
	}
	return t.Render()
}

// EventTable renders the tool schedule as it happened.
func EventTable(events []Event) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Time", "Robot", "Tool", "Action"})
	for _, e := range events {
		t.AppendRow(table.Row{fmt.Sprintf("%.3f", e.Time), e.Robot, e.Tool, e.Action})
	}
	return t.Render()
}

// SavePlot writes a PNG (or any format gonum/plot infers from the extension) of every trace's
// tracking error over simulated time.
func SavePlot(traces []Trace, path string) error {
	p := plot.New()
	p.Title.Text = "Tracking error"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "error"
	p.Add(plotter.NewGrid())

	for i, t := range traces {
		if len(t.Samples) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(t.Samples))
		for j, s := range t.Samples {
			pts[j].X, pts[j].Y = s.Time, s.Error
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "plotting %q", t.Robot)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(t.Robot, line)
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// FprintHistogram writes a text histogram of a trace's tracking error.
func FprintHistogram(w io.Writer, t Trace, bins int) error {
	if len(t.Samples) == 0 {
		return errors.Errorf("robot %q has no samples", t.Robot)
	}
	if bins < 1 {
		return errors.Errorf("need at least one bin, got %d", bins)
	}
	return histogram.Fprint(w, histogram.Hist(bins, t.Errors()), histogram.Linear(40))
}
