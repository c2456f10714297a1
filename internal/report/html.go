package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/hotspot.report/internal/evaluate"
	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/grid"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// maxScatterCells caps the points sent to the browser; larger surfaces are
// strided.
const maxScatterCells = 40000

// HTMLReport writes <prefix>.html: HR and PAI curves per group and, when
// surface is non-nil, a colored scatter of the surface.
func HTMLReport(fsys fsutil.FileSystem, dir, prefix string, results []evaluate.GroupResult, surface *grid.Surface) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("html report: no group results")
	}
	page := components.NewPage()
	page.AddCharts(
		curveChart(prefix+" hit rate", "HR", results, func(c *evaluate.Curve, k int) float64 { return c.HR[k] }),
		curveChart(prefix+" PAI", "PAI", results, func(c *evaluate.Curve, k int) float64 { return c.PAI[k] }),
	)
	if surface != nil {
		page.AddCharts(surfaceChart(prefix+" surface", surface))
	}
	return fsutil.WriteArtifact(fsys, dir, prefix+".html", func(w io.Writer) error {
		return page.Render(w)
	})
}

func curveChart(title, yName string, results []evaluate.GroupResult, y func(*evaluate.Curve, int) float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1100px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("groups=%d", len(results))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: 0, Max: 1, Name: "Area", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName, NameLocation: "middle", NameGap: 40}),
	)
	for _, r := range results {
		if r.Curve == nil {
			continue
		}
		line.AddSeries(fmt.Sprintf("group %d", r.Group.Index), lineData(r.Curve, y))
	}
	return line
}

// lineData pairs area with y. NaN and Inf are not valid JSON, so those
// points are left out.
func lineData(c *evaluate.Curve, y func(*evaluate.Curve, int) float64) []opts.LineData {
	data := make([]opts.LineData, 0, c.Len())
	for k := 0; k < c.Len(); k++ {
		v := y(c, k)
		if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(c.Area[k]) {
			continue
		}
		data = append(data, opts.LineData{Value: []interface{}{c.Area[k], v}})
	}
	return data
}

func surfaceChart(title string, s *grid.Surface) *charts.Scatter {
	g := &s.Grid
	stride := 1
	for (g.NX/stride)*(g.NY/stride) > maxScatterCells {
		stride++
	}
	data := make([]opts.ScatterData, 0, (g.NX/stride+1)*(g.NY/stride+1))
	for j := 0; j < g.NY; j += stride {
		for i := 0; i < g.NX; i += stride {
			v := s.At(i, j)
			if v <= 0 {
				continue
			}
			x, y := g.CenterOf(i, j)
			data = append(data, opts.ScatterData{Value: []interface{}{x, y, v}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("cells=%dx%d stride=%d", g.NX, g.NY, stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: g.Box.XMin, Max: g.Box.XMax, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: g.Box.YMin, Max: g.Box.YMax, Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(s.Max()),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("risk", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}
