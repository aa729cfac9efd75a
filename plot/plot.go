// Package plot renders Dissimilarity-Overlap Curves and their residual plots
// as PNG or SVG.
package plot

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/biomisc/doc"
	"github.com/carbocation/biomisc/lowess"
	"github.com/carbocation/pfx"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

var (
	pointColor = drawing.ColorFromHex("1f77b4")
	curveColor = drawing.ColorFromHex("d62728")
	bandColor  = drawing.ColorFromHex("7f7f7f")
)

type Options struct {
	Title  string
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// RendererForPath picks the image format from the file extension. Paths
// without an extension are rendered as SVG.
func RendererForPath(path string) (chart.RendererProvider, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return chart.PNG, nil
	case ".svg", "":
		return chart.SVG, nil
	default:
		return nil, fmt.Errorf("unsupported image format %q; use .png or .svg", ext)
	}
}

// DOC draws the observed pairs, the central LOWESS curve labelled with
// rSquared, and the bootstrap band when every point carries one.
func DOC(w io.Writer, rp chart.RendererProvider, points []doc.CurvePoint, rSquared float64, opts Options) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to plot")
	}

	overlap := make([]float64, len(points))
	dissimilarity := make([]float64, len(points))
	curve := make([]float64, len(points))
	lower := make([]float64, len(points))
	upper := make([]float64, len(points))
	hasBand := true
	for i, p := range points {
		overlap[i] = p.Overlap
		dissimilarity[i] = p.Dissimilarity
		curve[i] = p.LOWESS
		lower[i], upper[i] = p.Band()
		hasBand = hasBand && p.HasCI
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name: "Sample pairs",
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    2,
				DotColor:    pointColor.WithAlpha(128),
			},
			XValues: overlap,
			YValues: dissimilarity,
		},
		chart.ContinuousSeries{
			Name: fmt.Sprintf("LOWESS (R² = %.3f)", rSquared),
			Style: chart.Style{
				StrokeWidth: 2,
				StrokeColor: curveColor,
			},
			XValues: overlap,
			YValues: curve,
		},
	}

	if hasBand {
		for _, b := range []struct {
			name   string
			values []float64
		}{
			{"Lower bound", lower},
			{"Upper bound", upper},
		} {
			series = append(series, chart.ContinuousSeries{
				Name: b.name,
				Style: chart.Style{
					StrokeWidth:     1,
					StrokeColor:     bandColor,
					StrokeDashArray: []float64{5, 3},
				},
				XValues: overlap,
				YValues: b.values,
			})
		}
	}

	width, height := opts.size()
	graph := chart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Overlap",
			Range:          &chart.ContinuousRange{Min: 0, Max: 1},
			ValueFormatter: chart.FloatValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Dissimilarity",
			Range:          &chart.ContinuousRange{Min: 0, Max: 1},
			ValueFormatter: chart.FloatValueFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(rp, w)
}

// Residuals draws residuals against Overlap with a zero reference line and a
// LOWESS trend through the residuals.
func Residuals(w io.Writer, rp chart.RendererProvider, points []doc.CurvePoint, residuals []float64, opts Options) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to plot")
	}
	if len(points) != len(residuals) {
		return fmt.Errorf("%d points but %d residuals", len(points), len(residuals))
	}

	overlap := make([]float64, len(points))
	extent := 0.0
	for i, p := range points {
		overlap[i] = p.Overlap
		extent = math.Max(extent, math.Abs(residuals[i]))
	}
	if extent < 1e-9 {
		extent = 1
	}

	trend, err := lowess.Fit(overlap, residuals, lowess.DefaultOptions())
	if err != nil {
		return pfx.Err(err)
	}

	width, height := opts.size()
	graph := chart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Overlap",
			Range:          &chart.ContinuousRange{Min: 0, Max: 1},
			ValueFormatter: chart.FloatValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Residual",
			Range:          &chart.ContinuousRange{Min: -1.1 * extent, Max: 1.1 * extent},
			ValueFormatter: chart.FloatValueFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "Residuals",
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    2,
					DotColor:    pointColor.WithAlpha(128),
				},
				XValues: overlap,
				YValues: residuals,
			},
			chart.ContinuousSeries{
				Name: "LOWESS",
				Style: chart.Style{
					StrokeWidth: 2,
					StrokeColor: curveColor,
				},
				XValues: overlap,
				YValues: trend,
			},
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeWidth:     1,
					StrokeColor:     bandColor,
					StrokeDashArray: []float64{2, 2},
				},
				XValues: []float64{0, 1},
				YValues: []float64{0, 0},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(rp, w)
}

// Save renders with draw into a file whose extension picks the format.
func Save(path string, draw func(io.Writer, chart.RendererProvider) error) error {
	rp, err := RendererForPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := draw(f, rp); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return f.Close()
}
