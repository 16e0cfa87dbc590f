package render

import (
	"fmt"
	"path/filepath"

	"github.com/jwulff/lotscope-go/internal/analysis"
	"github.com/jwulff/lotscope-go/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PNG file names written by ExportPNGs.
const (
	TempDensityFile    = "temp_density.png"
	CurrentDensityFile = "current_density.png"
	ScatterFile        = "scatter.png"
)

const (
	pngWidth    = 8 * vg.Inch
	pngHeight   = 4 * vg.Inch
	densityFill = 70
)

// ExportPNGs writes the density and scatter charts of a summary into dir and
// returns the written paths.
func ExportPNGs(dir string, s *analysis.Summary) ([]string, error) {
	files := []struct {
		name string
		save func(string) error
	}{
		{TempDensityFile, func(p string) error {
			return SaveDensityPNG(p, "Temp distribution", domain.ColumnTemp, s.TempDensity)
		}},
		{CurrentDensityFile, func(p string) error {
			return SaveDensityPNG(p, "Current distribution", domain.ColumnCurrent, s.CurrentDensity)
		}},
		{ScatterFile, func(p string) error {
			return SaveScatterPNG(p, s.Scatter)
		}},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := f.save(path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SaveDensityPNG draws filled density curves, one per tag.
func SaveDensityPNG(path, title, column string, curves []analysis.Curve) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = column
	p.Y.Label.Text = "Density"

	for _, c := range curves {
		pts := make(plotter.XYs, len(c.X))
		for i := range c.X {
			pts[i] = plotter.XY{X: c.X[i], Y: c.Y[i]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to create %s density line: %w", c.Tag, err)
		}
		line.Width = vg.Points(1)
		line.Color = TagColor(c.Tag).Color()
		line.FillColor = Translucent(TagColor(c.Tag), densityFill)
		p.Add(line)
		p.Legend.Add(string(c.Tag), line)
	}
	p.Legend.Top = true

	if err := p.Save(pngWidth, pngHeight, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// SaveScatterPNG draws Temp against Current, one glyph color per tag.
func SaveScatterPNG(path string, series []analysis.ScatterSeries) error {
	p := plot.New()
	p.Title.Text = "Temp vs Current"
	p.X.Label.Text = domain.ColumnTemp
	p.Y.Label.Text = domain.ColumnCurrent

	for _, s := range series {
		pts := make(plotter.XYs, len(s.Points))
		for i, pt := range s.Points {
			pts[i] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to create %s scatter: %w", s.Tag, err)
		}
		sc.GlyphStyle.Color = TagColor(s.Tag).Color()
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(string(s.Tag), sc)
	}
	p.Legend.Top = true

	if err := p.Save(pngWidth, pngHeight, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
