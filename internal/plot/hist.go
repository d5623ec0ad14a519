package plot

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
)

// maxTicks bounds how many category labels are drawn on the x axis.
const maxTicks = 64

// Histograms draws one count series per name over the shared categories,
// values[i][k] being the count of categories[k] under names[i].
func Histograms(path, title string, categories, names []string, values [][]float64) error {
	if len(names) != len(values) {
		return fmt.Errorf("%d series names for %d series", len(names), len(values))
	}
	x := steps(len(categories))
	hi := 0.0

	var series []chart.Series
	for i, name := range names {
		if len(values[i]) != len(categories) {
			return fmt.Errorf("series %s has %d values for %d categories", name, len(values[i]), len(categories))
		}
		for _, v := range values[i] {
			hi = math.Max(hi, v)
		}
		c := chart.GetDefaultColor(i)
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: x,
			YValues: values[i],
			Style:   chart.Style{StrokeColor: c, StrokeWidth: 1, DotColor: c, DotWidth: 3},
		})
	}

	xa := chart.XAxis{
		Name:  "Graph",
		Range: padRange(0, float64(len(categories)-1)),
	}
	if len(categories) <= maxTicks {
		for k, c := range categories {
			xa.Ticks = append(xa.Ticks, chart.Tick{Value: float64(k), Label: c})
		}
		xa.TickStyle = chart.Style{TextRotationDegrees: 90}
	}

	graph := &chart.Chart{
		Title:  title,
		Width:  max(width, 14*len(categories)),
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: xa,
		YAxis: chart.YAxis{
			Name:  "Count",
			Range: padRange(0, hi),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(graph)}
	return writeChart(path, graph)
}
