package analysis

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	E = domain.TagError
	N = domain.TagNormal
)

func trapezoid(xs, ys []float64) float64 {
	area := 0.0
	for i := 1; i < len(xs); i++ {
		area += (xs[i] - xs[i-1]) * (ys[i] + ys[i-1]) / 2
	}
	return area
}

func TestTagCounts(t *testing.T) {
	got := TagCounts([]domain.Tag{N, E, N, N, E})
	want := []TagCount{{Tag: N, Count: 3}, {Tag: E, Count: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TagCounts mismatch (-want +got):\n%s", diff)
	}
}

func TestTagCountsTieKeepsDisplayOrder(t *testing.T) {
	got := TagCounts([]domain.Tag{N, E})
	assert.Equal(t, []TagCount{{Tag: E, Count: 1}, {Tag: N, Count: 1}}, got)
}

func TestTagCountsEmpty(t *testing.T) {
	assert.Empty(t, TagCounts(nil))
}

func TestScottBandwidth(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	sd := math.Sqrt(2.5)
	assert.InDelta(t, sd*math.Pow(5, -0.2), ScottBandwidth(xs), 1e-12)

	assert.Zero(t, ScottBandwidth([]float64{1}))
	assert.Zero(t, ScottBandwidth([]float64{2, 2, 2}))
}

func TestDensityIntegratesToOne(t *testing.T) {
	values := []float64{70, 71, 72, 71.5, 69, 80, 81, 79.5}
	tags := []domain.Tag{N, N, N, N, N, E, E, E}

	curves := Density(values, tags, DefaultGridSize)
	require.Len(t, curves, 2)
	assert.Equal(t, E, curves[0].Tag)
	assert.Equal(t, 3, curves[0].N)
	assert.Equal(t, N, curves[1].Tag)
	assert.Equal(t, 5, curves[1].N)

	total := 0.0
	for _, c := range curves {
		require.Len(t, c.X, DefaultGridSize)
		require.Len(t, c.Y, DefaultGridSize)
		share := float64(c.N) / float64(len(values))
		area := trapezoid(c.X, c.Y)
		assert.InDelta(t, share, area, 0.01)
		total += area
	}
	assert.InDelta(t, 1.0, total, 0.01)
}

func TestDensitySkipsSparseAndConstantGroups(t *testing.T) {
	values := []float64{1, 2, 3, 5, 5, math.NaN()}
	tags := []domain.Tag{N, N, N, E, E, E}

	curves := Density(values, tags, 50)
	require.Len(t, curves, 1)
	assert.Equal(t, N, curves[0].Tag)
}

func TestDensityIgnoresNaN(t *testing.T) {
	values := []float64{1, math.NaN(), 2, 3}
	tags := []domain.Tag{N, N, N, N}

	curves := Density(values, tags, 20)
	require.Len(t, curves, 1)
	assert.Equal(t, 3, curves[0].N)
	for _, y := range curves[0].Y {
		assert.False(t, math.IsNaN(y))
	}
}

func TestScatter(t *testing.T) {
	xs := []float64{1, 2, math.NaN(), 4}
	ys := []float64{10, 20, 30, math.NaN()}
	tags := []domain.Tag{N, E, N, N}

	got := Scatter(xs, ys, tags)
	want := []ScatterSeries{
		{Tag: E, Points: []Point{{X: 2, Y: 20}}},
		{Tag: N, Points: []Point{{X: 1, Y: 10}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scatter mismatch (-want +got):\n%s", diff)
	}
}

func TestCorrelationLinear(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}

	m, err := Correlation([]string{"Temp", "Current"}, x, y)
	require.NoError(t, err)
	assert.Equal(t, []string{"Temp", "Current"}, m.Labels)
	for i := range m.Values {
		for j := range m.Values[i] {
			assert.InDelta(t, 1.0, m.Values[i][j], 1e-9)
		}
	}
}

func TestCorrelationNegativeWithMissing(t *testing.T) {
	x := []float64{1, 2, 3, math.NaN(), 4}
	y := []float64{8, 6, 4, 100, 2}

	m, err := Correlation([]string{"a", "b"}, x, y)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, m.Values[0][1], 1e-9)
	assert.InDelta(t, -1.0, m.Values[1][0], 1e-9)
}

func TestCorrelationInsufficientData(t *testing.T) {
	_, err := Correlation([]string{"a", "b"}, []float64{1}, []float64{2})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Correlation([]string{"a", "b"}, []float64{1, 1, 1}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Correlation([]string{"a"}, []float64{1, 2}, []float64{1, 2})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	table := domain.NewTable("Temp", "Current", "Process")
	rows := [][]string{
		{"70", "1.0", "1"},
		{"71", "1.1", "2"},
		{"72", "1.2", "1"},
		{"73", "1.3", "2"},
	}
	for _, r := range rows {
		require.NoError(t, table.AppendRow(r))
	}
	tt := &domain.TaggedTable{
		Date:           domain.NewDate(2024, 3, 15),
		Table:          table,
		Tags:           []domain.Tag{N, E, N, E},
		ErrorProcesses: domain.NewProcessSet("2"),
	}

	s, err := Summarize(tt)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Rows)
	assert.Equal(t, []string{"2"}, s.ErrorProcesses)
	assert.Equal(t, []TagCount{{Tag: E, Count: 2}, {Tag: N, Count: 2}}, s.Counts)
	assert.Len(t, s.TempDensity, 2)
	assert.Len(t, s.CurrentDensity, 2)
	assert.Len(t, s.Scatter, 2)
	require.NotNil(t, s.Correlation)
	assert.InDelta(t, 1.0, s.Correlation.Values[0][1], 1e-9)
}

func TestSummarizeWithoutCorrelation(t *testing.T) {
	table := domain.NewTable("Temp", "Current", "Process")
	require.NoError(t, table.AppendRow([]string{"70", "1.0", "1"}))
	tt := &domain.TaggedTable{
		Table:          table,
		Tags:           []domain.Tag{N},
		ErrorProcesses: domain.NewProcessSet(),
	}

	s, err := Summarize(tt)
	require.NoError(t, err)
	assert.Nil(t, s.Correlation)
	assert.Empty(t, s.TempDensity)
}

func TestSummarizeMissingColumn(t *testing.T) {
	tt := &domain.TaggedTable{Table: domain.NewTable("Process"), ErrorProcesses: domain.NewProcessSet()}
	_, err := Summarize(tt)
	assert.Error(t, err)
}
