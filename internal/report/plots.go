package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/hotspot.report/internal/evaluate"
	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/grid"
)

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// CurvePNGs writes <prefix>_hr.png and <prefix>_pai.png with one line per
// group. Points with a NaN coordinate are dropped since plotter rejects
// them.
func CurvePNGs(fsys fsutil.FileSystem, dir, prefix string, results []evaluate.GroupResult) ([]string, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("curve plots: no group results")
	}
	hr, err := curvePlot(prefix+" hit rate", "HR", results, func(c *evaluate.Curve, k int) float64 { return c.HR[k] })
	if err != nil {
		return nil, err
	}
	pai, err := curvePlot(prefix+" predictive accuracy index", "PAI", results, func(c *evaluate.Curve, k int) float64 { return c.PAI[k] })
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, out := range []struct {
		name string
		p    *plot.Plot
	}{{prefix + "_hr.png", hr}, {prefix + "_pai.png", pai}} {
		path, err := writePNG(fsys, dir, out.name, out.p, plotWidth, plotHeight)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func curvePlot(title, yLabel string, results []evaluate.GroupResult, y func(*evaluate.Curve, int) float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Area (fraction of study region)"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	colors := seriesColors(len(results))
	for i, r := range results {
		if r.Curve == nil {
			continue
		}
		pts := make(plotter.XYs, 0, r.Curve.Len())
		for k := 0; k < r.Curve.Len(); k++ {
			x, v := r.Curve.Area[k], y(r.Curve, k)
			if math.IsNaN(x) || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: x, Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("group %d line: %w", r.Group.Index, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("group %d %s", r.Group.Index, r.Group.Test), line)
	}
	return p, nil
}

// seriesColors spreads n distinct hues from blue to red.
func seriesColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	return palette.Rainbow(max(n, 2), palette.Blue, palette.Red, 0.8, 0.9, 1).Colors()[:n]
}

// SurfacePNG writes a heatmap of s to dir/name.
func SurfacePNG(fsys fsutil.FileSystem, dir, name, title string, s *grid.Surface) (string, error) {
	if s == nil || len(s.Values) == 0 {
		return "", fmt.Errorf("surface plot: empty surface")
	}
	hm := plotter.NewHeatMap(surfaceGrid{s}, palette.Heat(16, 1))
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(hm)
	return writePNG(fsys, dir, name, p, 8*vg.Inch, 8*vg.Inch)
}

// surfaceGrid adapts a Surface to plotter.GridXYZ.
type surfaceGrid struct{ s *grid.Surface }

func (g surfaceGrid) Dims() (c, r int) { return g.s.Grid.NX, g.s.Grid.NY }
func (g surfaceGrid) Z(c, r int) float64 {
	return g.s.At(c, r)
}
func (g surfaceGrid) X(c int) float64 {
	x, _ := g.s.Grid.CenterOf(c, 0)
	return x
}
func (g surfaceGrid) Y(r int) float64 {
	_, y := g.s.Grid.CenterOf(0, r)
	return y
}

func writePNG(fsys fsutil.FileSystem, dir, name string, p *plot.Plot, w, h vg.Length) (string, error) {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return fsutil.WriteArtifact(fsys, dir, name, func(out io.Writer) error {
		_, err := wt.WriteTo(out)
		return err
	})
}
