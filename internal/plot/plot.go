// Package plot renders comparison summaries to files. Existing files of
// the same name are overwritten.
package plot

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Vincent-lau/crnfigs/internal/compare"
	"github.com/Vincent-lau/crnfigs/internal/metrics"
	"github.com/Vincent-lau/crnfigs/internal/rng"
	log "github.com/sirupsen/logrus"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var PlotLogger = log.WithFields(log.Fields{"prefix": "plot"})

var policyColor = map[rng.Policy]drawing.Color{
	rng.CRN:         {R: 31, G: 119, B: 180, A: 255},
	rng.Centralized: {R: 214, G: 39, B: 40, A: 255},
}

const (
	width  = 900
	height = 500
)

// Render writes one effect figure per arm, a variance bar chart and a
// summary table into dir and returns the paths written.
func Render(sum *compare.ComparisonSummary, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating figure directory: %w", err)
	}

	var written []string
	for _, a := range sum.Arms {
		path := filepath.Join(dir, fmt.Sprintf("effect_%s.png", a.Arm.Name))
		if err := writeChart(path, effectChart(sum, a)); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, "variance.png")
	if err := writeChart(path, varianceChart(sum)); err != nil {
		return written, err
	}
	written = append(written, path)

	path = filepath.Join(dir, "summary.csv")
	if err := WriteSummaryCSV(path, sum); err != nil {
		return written, err
	}
	written = append(written, path)

	PlotLogger.WithFields(log.Fields{
		"scenario": sum.Scenario,
		"dir":      dir,
		"files":    len(written),
	}).Info("figures written")

	return written, nil
}

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func writeChart(path string, c renderable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Render(chart.PNG, f); err != nil {
		f.Close()
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	metrics.Figures.Inc()
	return nil
}

func steps(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}

// padRange keeps go-chart from rejecting a flat series.
func padRange(lo, hi float64) *chart.ContinuousRange {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsNaN(hi) {
		lo, hi = 0, 1
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(1, math.Abs(lo)*0.05)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func effectChart(sum *compare.ComparisonSummary, a compare.ArmSummary) *chart.Chart {
	x := steps(sum.Steps)
	lo, hi := math.Inf(1), math.Inf(-1)

	var series []chart.Series
	for _, pol := range rng.Policies() {
		b := a.Band(pol)
		upper := make([]float64, len(b.Mean))
		lower := make([]float64, len(b.Mean))
		for t := range b.Mean {
			upper[t] = b.Mean[t] + b.Std[t]
			lower[t] = b.Mean[t] - b.Std[t]
			lo = math.Min(lo, lower[t])
			hi = math.Max(hi, upper[t])
		}

		c := policyColor[pol]
		series = append(series,
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("%s mean", pol),
				XValues: x,
				YValues: b.Mean,
				Style:   chart.Style{StrokeColor: c, StrokeWidth: 3},
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("%s ±1 sd", pol),
				XValues: x,
				YValues: upper,
				Style:   chart.Style{StrokeColor: c.WithAlpha(128), StrokeWidth: 1, StrokeDashArray: []float64{5, 5}},
			},
			chart.ContinuousSeries{
				XValues: x,
				YValues: lower,
				Style:   chart.Style{StrokeColor: c.WithAlpha(128), StrokeWidth: 1, StrokeDashArray: []float64{5, 5}},
			},
		)
	}

	graph := &chart.Chart{
		Title:  fmt.Sprintf("%s: effect on %s, %s (%d seeds)", sum.Scenario, sum.Outcome, a.Arm.Name, sum.Seeds),
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Step",
			Range: padRange(0, float64(sum.Steps-1)),
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "Intervention - baseline",
			Range: padRange(lo, hi),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(graph)}
	return graph
}

func varianceChart(sum *compare.ComparisonSummary) *chart.BarChart {
	var bars []chart.Value
	hi := 0.0
	for _, a := range sum.Arms {
		for _, pol := range rng.Policies() {
			v := a.Stats(pol).Var
			hi = math.Max(hi, v)
			bars = append(bars, chart.Value{
				Label: fmt.Sprintf("%s %s", a.Arm.Name, pol),
				Value: v,
				Style: chart.Style{FillColor: policyColor[pol], StrokeColor: policyColor[pol]},
			})
		}
	}

	return &chart.BarChart{
		Title:  fmt.Sprintf("%s: variance of the effect on %s", sum.Scenario, sum.Outcome),
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 50},
		},
		BarWidth: 40,
		YAxis: chart.YAxis{
			Range: padRange(0, hi),
		},
		Bars: bars,
	}
}

// WriteSummaryCSV writes one row per arm and policy.
func WriteSummaryCSV(path string, sum *compare.ComparisonSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	w.Write([]string{"arm", "coverage", "policy", "seeds", "mean", "variance", "std", "variance_reduction", "bias"})
	ff := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, a := range sum.Arms {
		for _, pol := range rng.Policies() {
			st := a.Stats(pol)
			w.Write([]string{
				a.Arm.Name,
				ff(a.Arm.Coverage),
				pol.String(),
				strconv.Itoa(sum.Seeds),
				ff(st.Mean),
				ff(st.Var),
				ff(st.Std),
				ff(a.VarianceReduction),
				ff(a.Bias),
			})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	metrics.Figures.Inc()
	return nil
}
