package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/tkal/internal/levels"
)

// LevelChart renders one bar chart per family of res, module tier first,
// as a standalone HTML page. Mixed-orientation levels are drawn in a
// separate series so they stand out.
func LevelChart(res *levels.Result, w io.Writer) error {
	if res == nil || len(res.Families) == 0 {
		return fmt.Errorf("no levels to chart")
	}

	page := components.NewPage()
	page.PageTitle = "Alignment levels"
	for _, fam := range res.Families {
		page.AddCharts(familyBar(fam, res.Counts[fam.Family]))
	}
	return page.Render(w)
}

func familyBar(fam levels.FamilyLevels, modules int) *charts.Bar {
	x := make([]string, len(fam.Levels))
	plain := make([]opts.BarData, len(fam.Levels))
	mixed := make([]opts.BarData, len(fam.Levels))
	for i, l := range fam.Levels {
		x[i] = l.Name.Short()
		if l.MixedOrientation {
			plain[i] = opts.BarData{Value: "-"}
			mixed[i] = opts.BarData{Value: l.Cardinality}
		} else {
			plain[i] = opts.BarData{Value: l.Cardinality}
			mixed[i] = opts.BarData{Value: "-"}
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: fam.Family.String(), Subtitle: fmt.Sprintf("identifiers=%d", modules)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: "cardinality"}),
	)
	label := charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})
	stack := charts.WithBarChartOpts(opts.BarChart{Stack: "level"})
	bar.SetXAxis(x).
		AddSeries("uniform", plain, stack, label).
		AddSeries("mixed orientation", mixed, stack, label)
	return bar
}
