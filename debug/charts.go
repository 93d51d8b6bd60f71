package debug

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Charts 残差曲线与层级结构网页
type Charts struct {
	Title   string    // 页面标题
	Records []*Record // 残差历史
	Levels  []Level   // 多重网格层级，可为空
}

// residualLine 残差曲线（纵轴对数）
func (c *Charts) residualLine() *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    c.Title,
			Subtitle: "残差范数随迭代变化曲线",
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "iteration",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  "residual",
			Type:  "log",
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(true),
	)
	longest := 0
	for _, r := range c.Records {
		longest = max(longest, r.Len())
	}
	axis := make([]int, longest)
	for i := range axis {
		axis[i] = i
	}
	line.SetXAxis(axis)
	for _, r := range c.Records {
		items := make([]opts.LineData, r.Len())
		for i, v := range r.Residual {
			// 对数轴上零残差无法显示
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				items[i] = opts.LineData{Value: "-"}
				continue
			}
			items[i] = opts.LineData{Value: v}
		}
		line.AddSeries(r.Name, items)
	}
	return line
}

// levelGraph 层级结构图
func (c *Charts) levelGraph() *charts.Graph {
	graph := charts.NewGraph()
	graph.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "多重网格层级",
			Subtitle: "各层规模与非零元",
		}),
	)
	nodes := make([]opts.GraphNode, len(c.Levels))
	links := make([]opts.GraphLink, 0, len(c.Levels))
	for i, l := range c.Levels {
		nodes[i] = opts.GraphNode{
			Name:       fmt.Sprintf("L%d rows=%d nnz=%d", i, l.Rows, l.Nnz),
			Value:      float32(l.Rows),
			SymbolSize: 10 + 40*math.Log10(float64(max(l.Rows, 1)))/6,
			Tooltip:    &opts.Tooltip{Show: opts.Bool(true)},
		}
		if i > 0 {
			links = append(links, opts.GraphLink{Source: nodes[i-1].Name, Target: nodes[i].Name})
		}
	}
	graph.AddSeries("levels", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout: "force",
			Roam:   opts.Bool(true),
			Force:  &opts.GraphForce{Repulsion: 200},
		}))
	return graph
}

// Render 输出网页
func (c *Charts) Render(w io.Writer) error {
	page := components.NewPage()
	page.AddCharts(c.residualLine())
	if len(c.Levels) > 0 {
		page.AddCharts(c.levelGraph())
	}
	return page.Render(w)
}

// Handler 发布到网页面
func (c *Charts) Handler(w http.ResponseWriter, _ *http.Request) {
	if err := c.Render(w); err != nil {
		slog.Error("render charts", "err", err)
	}
}
