package chart

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// RenderDistribution writes a standalone HTML page with one stacked bar
// per bucket and one series per year
func RenderDistribution(w io.Writer, counts []domain.BucketCount) error {
	if len(counts) == 0 {
		return fmt.Errorf("archive is empty, nothing to chart")
	}

	buckets, years := axes(counts)
	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b] = i
	}

	total := 0
	series := make(map[int][]opts.BarData, len(years))
	for _, y := range years {
		series[y] = make([]opts.BarData, len(buckets))
		for i := range series[y] {
			series[y][i] = opts.BarData{Value: 0}
		}
	}
	for _, c := range counts {
		series[c.Year][index[c.Bucket]] = opts.BarData{Value: c.Count}
		total += c.Count
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Research archive", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Research archive",
			Subtitle: fmt.Sprintf("%d files in %d buckets", total, len(buckets)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%"}),
	)

	bar.SetXAxis(buckets)
	for _, y := range years {
		bar.AddSeries(yearLabel(y), series[y], charts.WithBarChartOpts(opts.BarChart{Stack: "files"}))
	}

	return bar.Render(w)
}

// axes returns sorted bucket names and years
func axes(counts []domain.BucketCount) ([]string, []int) {
	seenBucket := make(map[string]bool)
	seenYear := make(map[int]bool)
	var buckets []string
	var years []int
	for _, c := range counts {
		if !seenBucket[c.Bucket] {
			seenBucket[c.Bucket] = true
			buckets = append(buckets, c.Bucket)
		}
		if !seenYear[c.Year] {
			seenYear[c.Year] = true
			years = append(years, c.Year)
		}
	}
	sort.Strings(buckets)
	sort.Ints(years)
	return buckets, years
}

func yearLabel(y int) string {
	if y == 0 {
		return "undated"
	}
	return strconv.Itoa(y)
}
