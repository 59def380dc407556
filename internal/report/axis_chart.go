package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anime-shed/blur-effect-go/pkg/models"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Chart dimensions
const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
)

// UndefinedLabel marks axes whose blur could not be estimated
const UndefinedLabel = "undefined"

// ErrNoAxes is returned for results without per-axis values
var ErrNoAxes = errors.New("result has no per-axis values")

var (
	definedColor   = color.RGBA{R: 66, G: 133, B: 244, A: 255}
	undefinedColor = color.RGBA{R: 180, G: 180, B: 180, A: 255}
)

// NewAxisChart builds a bar chart of the per-axis blur ratios of result.
// Undefined axes are drawn at zero and labelled.
func NewAxisChart(result *models.AnalysisResult) (*plot.Plot, error) {
	if result == nil || len(result.Metrics.PerAxis) == 0 {
		return nil, ErrNoAxes
	}

	n := len(result.Metrics.PerAxis)
	defined := make(plotter.Values, n)
	undefined := make(plotter.Values, n)
	names := make([]string, n)
	var marks plotter.XYLabels

	for i, v := range result.Metrics.PerAxis {
		names[i] = fmt.Sprintf("axis %d", i)
		if v == nil {
			marks.XYs = append(marks.XYs, plotter.XY{X: float64(i), Y: 0.02})
			marks.Labels = append(marks.Labels, UndefinedLabel)
			continue
		}
		defined[i] = *v
	}

	p := plot.New()
	p.Title.Text = "Blur effect per axis"
	if result.ImageURL != "" {
		p.Title.Text += "\n" + result.ImageURL
	}
	p.Y.Label.Text = "blur ratio"
	p.Y.Min = 0
	p.Y.Max = 1
	p.NominalX(names...)

	bars, err := plotter.NewBarChart(defined, vg.Points(30))
	if err != nil {
		return nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = definedColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	if len(marks.XYs) > 0 {
		// Zero-height bars keep the undefined axes visible in the legend
		undefinedBars, err := plotter.NewBarChart(undefined, vg.Points(30))
		if err != nil {
			return nil, fmt.Errorf("failed to build bar chart: %w", err)
		}
		undefinedBars.Color = undefinedColor
		p.Add(undefinedBars)
		p.Legend.Add(UndefinedLabel, undefinedBars)

		labels, err := plotter.NewLabels(marks)
		if err != nil {
			return nil, fmt.Errorf("failed to build labels: %w", err)
		}
		p.Add(labels)
	}

	if result.Metrics.BlurScore != nil {
		score := *result.Metrics.BlurScore
		line, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: score}, {X: float64(n) - 0.5, Y: score}})
		if err != nil {
			return nil, fmt.Errorf("failed to build score line: %w", err)
		}
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(result.Metrics.Aggregate, line)
	}
	p.Legend.Top = true

	return p, nil
}

// RenderAxisChart writes the chart to w in format ("png", "svg", "pdf", ...)
func RenderAxisChart(w io.Writer, result *models.AnalysisResult, format string) error {
	p, err := NewAxisChart(result)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(chartWidth, chartHeight, strings.ToLower(format))
	if err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// WriteAxisChart saves the chart to path; the extension picks the format
func WriteAxisChart(path string, result *models.AnalysisResult) error {
	p, err := NewAxisChart(result)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create chart directory: %w", err)
		}
	}
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("failed to save chart %s: %w", path, err)
	}
	return nil
}
