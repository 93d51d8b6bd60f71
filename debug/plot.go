package debug

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// XYs 可绘制的正残差点
func (r *Record) XYs() plotter.XYs {
	pts := make(plotter.XYs, 0, r.Len())
	for i, v := range r.Residual {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(r.Iteration[i]), Y: v})
	}
	return pts
}

// NewPlot 残差历史图，纵轴对数
func NewPlot(title string, records ...*Record) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "residual"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())
	for i, r := range records {
		pts := r.XYs()
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(r.Name, line)
	}
	return p, nil
}

// SavePlot 保存图片，格式由扩展名决定（png、svg、pdf）
func SavePlot(path, title string, records ...*Record) error {
	p, err := NewPlot(title, records...)
	if err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
