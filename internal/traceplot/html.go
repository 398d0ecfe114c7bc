package traceplot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// maxChartPoints bounds the points per series sent to the browser.
const maxChartPoints = 4000

// WriteHTML renders panels as one page of zoomable line charts. Long
// traces are decimated to at most maxChartPoints points per series.
func WriteHTML(w io.Writer, title string, panels []Panel, sampleRate float64) error {
	page := components.NewPage()
	page.PageTitle = title

	for _, p := range panels {
		n := 0
		for _, s := range p.Series {
			n = max(n, len(s.Samples))
		}
		stride := decimation(n)

		x := make([]string, 0, n/stride+1)
		for i := 0; i < n; i += stride {
			x = append(x, strconv.FormatFloat(float64(i)/sampleRate, 'f', -1, 64))
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
			charts.WithTitleOpts(opts.Title{Title: p.Title, Subtitle: fmt.Sprintf("series=%d samples=%d stride=%d", len(p.Series), n, stride)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
			charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: p.Channel}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		)
		line.SetXAxis(x)
		for _, s := range p.Series {
			data := make([]opts.LineData, 0, len(s.Samples)/stride+1)
			for i := 0; i < len(s.Samples); i += stride {
				data = append(data, opts.LineData{Value: s.Samples[i]})
			}
			line.AddSeries(s.Name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		}
		page.AddCharts(line)
	}
	return page.Render(w)
}

func decimation(n int) int {
	if n <= maxChartPoints {
		return 1
	}
	return (n + maxChartPoints - 1) / maxChartPoints
}
