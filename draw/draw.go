// Package draw 绘制迭代求解的收敛轨迹
package draw

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/shiyuan-1/linsolve/solver"
)

// Convergence 将诊断信息中的逐轮残差绘制为折线图
// 纵轴为log10(平均加权残差平方和),零残差按精度下限绘制
func Convergence(meta *solver.Meta) (*plot.Plot, error) {
	if meta == nil || len(meta.ChiSq) == 0 {
		return nil, fmt.Errorf("诊断信息中没有残差记录")
	}
	p := plot.New()
	p.Title.Text = "Gauss-Newton 收敛轨迹"
	p.X.Label.Text = "迭代轮数"
	p.Y.Label.Text = "log10(chisq)"

	pts := make(plotter.XYs, len(meta.ChiSq))
	for i, c := range meta.ChiSq {
		if c <= 0 {
			c = 1e-300
		}
		pts[i].X = float64(i + 1)
		pts[i].Y = math.Log10(c)
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	p.Add(line, plotter.NewGrid())
	return p, nil
}

// SaveConvergence 绘制收敛轨迹并保存为图片文件
// 格式由文件扩展名决定(png/svg/pdf等)
func SaveConvergence(meta *solver.Meta, path string) error {
	p, err := Convergence(meta)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
