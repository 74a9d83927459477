// 命令行入口: 读取TOML问题文件,求解并输出结果
// 可选择将迭代收敛轨迹绘制为图片,或将解导出为msgpack文件
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/shiyuan-1/linsolve/draw"
	"github.com/shiyuan-1/linsolve/load"
	"github.com/shiyuan-1/linsolve/solver"
)

var (
	file    = flag.String("f", "", "TOML问题文件路径")
	mode    = flag.String("mode", "", "求解模式(default/lsqr/pinv/solve),覆盖文件内设置")
	plotOut = flag.String("plot", "", "收敛轨迹图片输出路径(仅linproduct)")
	export  = flag.String("export", "", "解的msgpack导出路径")
	verbose = flag.Bool("v", false, "输出每个解的完整数组")
)

func main() {
	flag.Parse()
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(); err != nil {
		color.Red("错误: %v", err)
		os.Exit(1)
	}
}

func run() error {
	p, err := load.ReadFile(*file)
	if err != nil {
		return err
	}
	if *mode != "" {
		p.Mode = *mode
	}
	meta, sol, err := p.Run()
	if err != nil {
		return err
	}
	printSolution(sol)
	if meta != nil {
		printMeta(meta)
		if *plotOut != "" {
			if err := draw.SaveConvergence(meta, *plotOut); err != nil {
				return err
			}
			fmt.Printf("收敛轨迹已保存至 %s\n", *plotOut)
		}
	}
	if *export != "" {
		if err := exportSolution(sol, *export); err != nil {
			return err
		}
		fmt.Printf("解已导出至 %s\n", *export)
	}
	return nil
}

// printSolution 按未知量名排序输出解
func printSolution(sol solver.Solution) {
	names := make([]string, 0, len(sol))
	for n := range sol {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		v := sol[n]
		if v.IsScalar() || *verbose {
			color.Green("%s = %v", n, v)
		} else {
			color.Green("%s = <%v数组, %s>", n, v.Shape(), v.DType())
		}
	}
}

// printMeta 输出迭代诊断信息
func printMeta(meta *solver.Meta) {
	if meta.Converged {
		color.Cyan("迭代 %d 轮收敛 (conv=%.3g)", meta.Iter, meta.Conv)
	} else {
		color.Yellow("迭代 %d 轮未收敛 (%s, conv=%.3g)", meta.Iter, meta.Reason, meta.Conv)
	}
	if n := len(meta.ChiSq); n > 0 {
		fmt.Printf("最终chisq均值: %.6g\n", meta.ChiSq[n-1])
	}
}

// exportEntry 单个解的序列化形式
// 复数数组拆为实部/虚部两个实数切片
type exportEntry struct {
	DType string    `msgpack:"dtype"`
	Shape []int     `msgpack:"shape"`
	Re    []float64 `msgpack:"re"`
	Im    []float64 `msgpack:"im"`
}

// exportSolution 将解序列化为msgpack文件
func exportSolution(sol solver.Solution, path string) error {
	out := make(map[string]exportEntry, len(sol))
	for n, v := range sol {
		e := exportEntry{
			DType: v.DType().String(),
			Shape: v.Shape(),
			Re:    make([]float64, v.Size()),
		}
		if v.DType().IsComplex() {
			e.Im = make([]float64, v.Size())
		}
		for i, c := range v.Data() {
			e.Re[i] = real(c)
			if e.Im != nil {
				e.Im[i] = imag(c)
			}
		}
		out[n] = e
	}
	buf, err := msgpack.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}
