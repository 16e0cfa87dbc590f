package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/jwulff/lotscope-go/internal/analysis"
	"github.com/jwulff/lotscope-go/internal/domain"
)

// DashboardData contains all data needed to render a day's dashboard page.
type DashboardData struct {
	Summary    *analysis.Summary
	AssetsHost string
}

// ComposeDashboard lays out the proportion, density, scatter and correlation
// charts of one day on a single page. The correlation chart is omitted when
// the summary has none.
func ComposeDashboard(data DashboardData) *components.Page {
	host := data.AssetsHost
	if host == "" {
		host = DefaultAssetsHost
	}
	s := data.Summary

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Sensor data %s", s.Date)
	page.SetAssetsHost(host)

	page.AddCharts(
		NewTagPie(s, host),
		NewDensityChart("Temp distribution", domain.ColumnTemp, s.TempDensity, host),
		NewDensityChart("Current distribution", domain.ColumnCurrent, s.CurrentDensity, host),
		NewScatterChart(s.Scatter, host),
	)
	if s.Correlation != nil {
		page.AddCharts(NewCorrelationChart(s.Correlation, host))
	}
	return page
}

// RenderDashboard writes the dashboard page for a summary as HTML.
func RenderDashboard(w io.Writer, data DashboardData) error {
	if data.Summary == nil {
		return fmt.Errorf("render dashboard: nil summary")
	}
	return ComposeDashboard(data).Render(w)
}
