// Package chart renders aligned series as an HTML line chart.
package chart

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/HatiCode/demandcast/pkg/selection"
)

const dateLayout = "2006-01-02"

// Line builds one line per series over the first series' dates.
func Line(title string, series []selection.DisplaySeries) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "volume"}),
	)

	var x []string
	if len(series) > 0 {
		x = make([]string, len(series[0].Dates))
		for i, d := range series[0].Dates {
			x[i] = d.Format(dateLayout)
		}
	}
	line.SetXAxis(x)

	for _, s := range series {
		data := make([]opts.LineData, 0, len(s.Volumes))
		for _, v := range s.Volumes {
			data = append(data, opts.LineData{Value: v})
		}
		line.AddSeries(string(s.ID), data)
	}
	return line
}

// Render writes the chart page for series to w.
func Render(w io.Writer, title string, series []selection.DisplaySeries) error {
	return Line(title, series).Render(w)
}
