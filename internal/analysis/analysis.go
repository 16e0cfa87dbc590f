// Package analysis computes the chart data shown for one day of tagged sensor
// readings: Error/Normal proportions, Temp and Current densities per tag,
// the Temp vs Current scatter, and their correlation matrix.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/jwulff/lotscope-go/internal/domain"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultGridSize is the number of evaluation points per density curve.
const DefaultGridSize = 200

// densityCut extends the density support this many bandwidths past the data.
const densityCut = 3

// ErrInsufficientData is returned when too few finite values remain for a statistic.
var ErrInsufficientData = errors.New("insufficient data")

// TagCount is the number of rows carrying a tag.
type TagCount struct {
	Tag   domain.Tag `json:"tag"`
	Count int        `json:"count"`
}

// Curve is a density estimate for the rows carrying one tag.
type Curve struct {
	Tag domain.Tag `json:"tag"`
	N   int        `json:"n"`
	X   []float64  `json:"x"`
	Y   []float64  `json:"y"`
}

// Point is one Temp/Current observation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScatterSeries groups the scatter points of one tag.
type ScatterSeries struct {
	Tag    domain.Tag `json:"tag"`
	Points []Point    `json:"points"`
}

// Matrix is a labelled square matrix.
type Matrix struct {
	Labels []string    `json:"labels"`
	Values [][]float64 `json:"values"`
}

// Summary holds everything needed to draw one day's dashboard.
type Summary struct {
	Date           domain.Date     `json:"date"`
	Rows           int             `json:"rows"`
	ErrorProcesses []string        `json:"error_processes"`
	Counts         []TagCount      `json:"counts"`
	TempDensity    []Curve         `json:"temp_density"`
	CurrentDensity []Curve         `json:"current_density"`
	Scatter        []ScatterSeries `json:"scatter"`
	// Correlation is nil when it cannot be computed, e.g. fewer than two
	// complete rows or a constant column.
	Correlation *Matrix `json:"correlation,omitempty"`
}

// Summarize computes the full dashboard summary for a tagged table.
func Summarize(tt *domain.TaggedTable) (*Summary, error) {
	temp, err := tt.Table.Floats(domain.ColumnTemp)
	if err != nil {
		return nil, err
	}
	current, err := tt.Table.Floats(domain.ColumnCurrent)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Date:           tt.Date,
		Rows:           tt.Table.Len(),
		ErrorProcesses: tt.ErrorProcesses.Sorted(),
		Counts:         TagCounts(tt.Tags),
		TempDensity:    Density(temp, tt.Tags, DefaultGridSize),
		CurrentDensity: Density(current, tt.Tags, DefaultGridSize),
		Scatter:        Scatter(temp, current, tt.Tags),
	}
	corr, err := Correlation([]string{domain.ColumnTemp, domain.ColumnCurrent}, temp, current)
	if err == nil {
		s.Correlation = corr
	} else if !errors.Is(err, ErrInsufficientData) {
		return nil, err
	}
	return s, nil
}

// TagCounts counts tags, most frequent first. Ties keep display order.
func TagCounts(tags []domain.Tag) []TagCount {
	counts := make(map[domain.Tag]int)
	for _, t := range tags {
		counts[t]++
	}
	out := make([]TagCount, 0, len(counts))
	for _, t := range domain.Tags {
		if n := counts[t]; n > 0 {
			out = append(out, TagCount{Tag: t, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Density estimates a Gaussian kernel density per tag with Scott's rule
// bandwidth. Curves are scaled by each tag's share of the finite values so
// that all curves together integrate to one. Tags with fewer than two
// distinct finite values produce no curve.
func Density(values []float64, tags []domain.Tag, gridSize int) []Curve {
	groups := make(map[domain.Tag][]float64)
	total := 0
	for i, v := range values {
		if i >= len(tags) || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		groups[tags[i]] = append(groups[tags[i]], v)
		total++
	}

	var curves []Curve
	for _, tag := range domain.Tags {
		xs := groups[tag]
		if len(xs) < 2 {
			continue
		}
		bw := ScottBandwidth(xs)
		if bw == 0 {
			continue
		}
		lo, hi := minMax(xs)
		grid := linspace(lo-densityCut*bw, hi+densityCut*bw, gridSize)
		ys := KDE(xs, bw, grid)
		weight := float64(len(xs)) / float64(total)
		for i := range ys {
			ys[i] *= weight
		}
		curves = append(curves, Curve{Tag: tag, N: len(xs), X: grid, Y: ys})
	}
	return curves
}

// ScottBandwidth returns the sample standard deviation times n^(-1/5).
func ScottBandwidth(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sd := stat.StdDev(xs, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd * math.Pow(float64(len(xs)), -1.0/5.0)
}

// KDE evaluates a Gaussian kernel density of xs with bandwidth bw at each grid point.
func KDE(xs []float64, bw float64, grid []float64) []float64 {
	norm := 1 / (float64(len(xs)) * bw * math.Sqrt(2*math.Pi))
	out := make([]float64, len(grid))
	for i, g := range grid {
		sum := 0.0
		for _, x := range xs {
			u := (g - x) / bw
			sum += math.Exp(-0.5 * u * u)
		}
		out[i] = sum * norm
	}
	return out
}

// Scatter pairs x and y per row and groups the pairs by tag, dropping rows
// with a missing value.
func Scatter(xs, ys []float64, tags []domain.Tag) []ScatterSeries {
	groups := make(map[domain.Tag][]Point)
	for i := range xs {
		if i >= len(ys) || i >= len(tags) {
			break
		}
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		groups[tags[i]] = append(groups[tags[i]], Point{X: xs[i], Y: ys[i]})
	}
	var out []ScatterSeries
	for _, tag := range domain.Tags {
		if pts := groups[tag]; len(pts) > 0 {
			out = append(out, ScatterSeries{Tag: tag, Points: pts})
		}
	}
	return out
}

// Correlation computes the Pearson correlation matrix of the given columns
// over the rows where every column is finite.
func Correlation(labels []string, columns ...[]float64) (*Matrix, error) {
	if len(labels) != len(columns) {
		return nil, fmt.Errorf("got %d labels for %d columns", len(labels), len(columns))
	}
	if len(columns) == 0 {
		return nil, ErrInsufficientData
	}

	var data []float64
	rows := 0
	for i := range columns[0] {
		complete := true
		for _, col := range columns {
			if i >= len(col) || math.IsNaN(col[i]) || math.IsInf(col[i], 0) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		for _, col := range columns {
			data = append(data, col[i])
		}
		rows++
	}
	if rows < 2 {
		return nil, ErrInsufficientData
	}

	x := mat.NewDense(rows, len(columns), data)
	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, x, nil)

	m := &Matrix{Labels: append([]string(nil), labels...)}
	for i := range columns {
		row := make([]float64, len(columns))
		for j := range columns {
			v := corr.At(i, j)
			if math.IsNaN(v) {
				return nil, fmt.Errorf("%w: constant column", ErrInsufficientData)
			}
			row[j] = v
		}
		m.Values = append(m.Values, row)
	}
	return m, nil
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
