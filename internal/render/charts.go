// Package render draws a day's analysis summary as an interactive go-echarts
// page, static gonum/plot PNGs, and an xlsx workbook.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jwulff/lotscope-go/internal/analysis"
	"github.com/jwulff/lotscope-go/internal/domain"
)

// DefaultAssetsHost serves the echarts javascript bundle.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Chart sizes
const (
	smallChartWidth  = "420px"
	smallChartHeight = "420px"
	wideChartWidth   = "720px"
	wideChartHeight  = "420px"

	heatmapCellSize = 80
)

func initOpts(title, width, height, assetsHost string) opts.Initialization {
	return opts.Initialization{
		PageTitle:  title,
		Width:      width,
		Height:     height,
		AssetsHost: assetsHost,
	}
}

// ErrorSubtitle describes the error processes of a day.
func ErrorSubtitle(processes []string) string {
	if len(processes) == 0 {
		return "No errors (normal lot)"
	}
	return "Error processes: " + strings.Join(processes, ", ")
}

// NewTagPie draws the Error/Normal proportion of the day's rows.
func NewTagPie(s *analysis.Summary, assetsHost string) *charts.Pie {
	data := make([]opts.PieData, 0, len(s.Counts))
	for _, c := range s.Counts {
		data = append(data, opts.PieData{
			Name:      string(c.Tag),
			Value:     c.Count,
			ItemStyle: &opts.ItemStyle{Color: TagColor(c.Tag).Hex()},
		})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Error / Normal", smallChartWidth, smallChartHeight, assetsHost)),
		charts.WithTitleOpts(opts.Title{Title: "Error / Normal", Subtitle: ErrorSubtitle(s.ErrorProcesses)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)
	pie.AddSeries("rows", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)
	return pie
}

// NewDensityChart draws one density curve per tag.
func NewDensityChart(title, column string, curves []analysis.Curve, assetsHost string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(title, wideChartWidth, wideChartHeight, assetsHost)),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: column, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Density"}),
	)
	for _, c := range curves {
		data := make([]opts.LineData, len(c.X))
		for i := range c.X {
			data[i] = opts.LineData{Value: []interface{}{c.X[i], c.Y[i]}}
		}
		line.AddSeries(string(c.Tag), data,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: TagColor(c.Tag).Hex()}),
		)
	}
	return line
}

// NewScatterChart draws Temp against Current, one series per tag.
func NewScatterChart(series []analysis.ScatterSeries, assetsHost string) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Temp vs Current", wideChartWidth, wideChartHeight, assetsHost)),
		charts.WithTitleOpts(opts.Title{Title: "Temp vs Current"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: domain.ColumnTemp, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: domain.ColumnCurrent, NameLocation: "middle", NameGap: 40}),
	)
	for _, s := range series {
		data := make([]opts.ScatterData, len(s.Points))
		for i, p := range s.Points {
			data[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
		}
		scatter.AddSeries(string(s.Tag), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: TagColor(s.Tag).Hex()}),
		)
	}
	return scatter
}

// NewCorrelationChart draws the correlation matrix as an annotated heatmap
// colored on the coolwarm scale.
func NewCorrelationChart(m *analysis.Matrix, assetsHost string) *charts.HeatMap {
	n := len(m.Labels)
	data := make([]opts.HeatMapData, 0, n*n)
	for i := range m.Values {
		for j, v := range m.Values[i] {
			// y runs top to bottom like a printed matrix.
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, n - 1 - i, round2(v)}})
		}
	}
	yLabels := make([]string, n)
	for i, l := range m.Labels {
		yLabels[n-1-i] = l
	}

	size := fmt.Sprintf("%dpx", heatmapCellSize*n+200)
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Correlation", size, size, assetsHost)),
		charts.WithTitleOpts(opts.Title{Title: "Correlation"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: m.Labels}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: yLabels}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: CoolwarmScale()},
		}),
	)
	hm.SetXAxis(m.Labels).AddSeries("correlation", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{@[2]}"}),
	)
	return hm
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
