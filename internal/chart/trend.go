// Package chart renders the sales trend chart with gonum/plot.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"salespulse/internal/dataset"
)

// ErrNoTrendData is returned when no rows survive grouping by establishment year.
var ErrNoTrendData = errors.New("no data to plot after grouping")

// YearTotal is the summed sales of one establishment year.
type YearTotal struct {
	Year  string  `json:"year"`
	Total float64 `json:"total"`
}

// TrendResult describes a rendered sales trend chart.
type TrendResult struct {
	Path    string      `json:"path"`
	MinYear string      `json:"min_year"`
	MaxYear string      `json:"max_year"`
	Records int         `json:"records"`
	Years   []YearTotal `json:"years"`
}

// RenderSalesTrend groups total sales by store establishment year and saves a
// bar chart at outPath. Rows with a missing year cell are dropped; missing
// sales cells contribute nothing to their year's total. The chart is a
// 10x6 inch PNG with steel-blue bars and year labels rotated 45 degrees.
func RenderSalesTrend(t *dataset.Table, outPath string) (*TrendResult, error) {
	yearIdx, err := dataset.DetectYearColumn(t)
	if err != nil {
		return nil, err
	}
	salesIdx, err := dataset.DetectSalesColumn(t)
	if err != nil {
		return nil, err
	}

	totals := groupTotalsByYear(t, yearIdx, salesIdx)
	if len(totals) == 0 {
		return nil, ErrNoTrendData
	}

	if err := renderBarChart(totals, outPath); err != nil {
		return nil, fmt.Errorf("render trend chart: %w", err)
	}

	return &TrendResult{
		Path:    outPath,
		MinYear: totals[0].Year,
		MaxYear: totals[len(totals)-1].Year,
		Records: t.NumRows(),
		Years:   totals,
	}, nil
}

// groupTotalsByYear sums sales per distinct year value, sorted by year
// ascending. Years sort numerically when every value parses as a number.
func groupTotalsByYear(t *dataset.Table, yearIdx, salesIdx int) []YearTotal {
	sales := t.NumericColumn(salesIdx)
	sums := make(map[string]float64)
	var order []string
	for i, row := range t.Rows {
		year := strings.TrimSpace(row[yearIdx])
		if year == "" {
			continue
		}
		if _, seen := sums[year]; !seen {
			order = append(order, year)
			sums[year] = 0
		}
		if v := sales[i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			sums[year] += v
		}
	}

	numeric := make(map[string]float64, len(order))
	allNumeric := true
	for _, year := range order {
		v, err := strconv.ParseFloat(year, 64)
		if err != nil {
			allNumeric = false
			break
		}
		numeric[year] = v
	}
	sort.Slice(order, func(i, j int) bool {
		if allNumeric {
			return numeric[order[i]] < numeric[order[j]]
		}
		return order[i] < order[j]
	})

	totals := make([]YearTotal, len(order))
	for i, year := range order {
		totals[i] = YearTotal{Year: year, Total: sums[year]}
	}
	return totals
}

func renderBarChart(totals []YearTotal, outPath string) error {
	p := plot.New()
	p.Title.Text = "Total Sales by Store Establishment Year"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Establishment year"
	p.Y.Label.Text = "Total sales"

	values := make(plotter.Values, len(totals))
	labels := make([]string, len(totals))
	for i, yt := range totals {
		values[i] = yt.Total
		labels[i] = yt.Year
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	bars.Color = color.RGBA{R: 0x2E, G: 0x86, B: 0xAB, A: 255}
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.Add(plotter.NewGrid())

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight

	return p.Save(10*vg.Inch, 6*vg.Inch, outPath)
}

// Text is the tool-facing success message for a rendered chart.
func (r *TrendResult) Text() string {
	return fmt.Sprintf("Chart saved as '%s'.\nYear range: %s-%s\nTotal records: %d",
		filepath.Base(r.Path), r.MinYear, r.MaxYear, r.Records)
}
