// Package load 从TOML问题文件构建并运行求解器
// 文件描述求解器种类、求解模式与数据/权重/常量/初值四张表,
// 表内取值支持实数、整数、复数字符串以及一维/二维数组
package load

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/shiyuan-1/linsolve/solver"
	"github.com/shiyuan-1/linsolve/types"
)

// Problem TOML问题文件模型
type Problem struct {
	Solver   string  `toml:"solver"`    // linear(缺省)/logproduct/linproduct
	Mode     string  `toml:"mode"`      // 求解模式,缺省default
	Sparse   bool    `toml:"sparse"`    // 稀疏装配
	ConvCrit float64 `toml:"conv_crit"` // 迭代收敛容差
	MaxIter  int     `toml:"max_iter"`  // 最大迭代轮数
	Workers  int     `toml:"workers"`   // 逐样本并行度

	Data    map[string]any `toml:"data"`    // 表达式→观测值
	Weights map[string]any `toml:"weights"` // 表达式→权重
	Consts  map[string]any `toml:"consts"`  // 常量名→取值
	Init    map[string]any `toml:"init"`    // 未知量名→初始估计(linproduct用)
}

// ReadFile 读取并解析TOML问题文件
func ReadFile(path string) (*Problem, error) {
	p := &Problem{}
	if _, err := toml.DecodeFile(path, p); err != nil {
		return nil, fmt.Errorf("读取问题文件失败: %w", err)
	}
	if len(p.Data) == 0 {
		return nil, fmt.Errorf("问题文件 %s 缺少[data]表", path)
	}
	return p, nil
}

// Options 转换为求解器配置
func (p *Problem) Options() *solver.Options {
	return &solver.Options{
		Sparse:   p.Sparse,
		Workers:  p.Workers,
		ConvCrit: p.ConvCrit,
		MaxIter:  p.MaxIter,
	}
}

// dataOf 将无序表转换为按键名排序的有序数据
func dataOf(m map[string]any) (*solver.Data, error) {
	if len(m) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := solver.NewData()
	for _, k := range keys {
		v, err := valueToArray(m[k])
		if err != nil {
			return nil, fmt.Errorf("键 %q: %w", k, err)
		}
		d.Set(k, v)
	}
	return d, nil
}

// mapOf 将无序表转换为名值映射
func mapOf(m map[string]any) (map[string]*types.Array, error) {
	out := make(map[string]*types.Array, len(m))
	for k, v := range m {
		a, err := valueToArray(v)
		if err != nil {
			return nil, fmt.Errorf("键 %q: %w", k, err)
		}
		out[k] = a
	}
	return out, nil
}

// valueToArray 将TOML取值转换为数值数组
// 标量不携带精度标注(按低精度归类),数组按64位精度归类,
// 字符串按Go复数字面量解析(如"1+2i")
func valueToArray(v any) (*types.Array, error) {
	switch x := v.(type) {
	case float64:
		return types.Scalar(x), nil
	case int64:
		return types.Int64Scalar(x), nil
	case string:
		c, err := strconv.ParseComplex(x, 128)
		if err != nil {
			return nil, fmt.Errorf("复数字面量 %q 非法: %w", x, err)
		}
		return types.Complex128Scalar(c), nil
	case []any:
		return sliceToArray(x)
	}
	return nil, fmt.Errorf("不支持的取值类型 %T", v)
}

// sliceToArray 转换一维或二维数组
func sliceToArray(xs []any) (*types.Array, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("数组不能为空")
	}
	if rows, ok := xs[0].([]any); ok {
		// 二维: 各行长度必须一致
		ncol := len(rows)
		data := make([]complex128, 0, len(xs)*ncol)
		dt := types.Float64
		for _, rv := range xs {
			row, ok := rv.([]any)
			if !ok || len(row) != ncol {
				return nil, fmt.Errorf("二维数组各行长度不一致")
			}
			for _, e := range row {
				c, edt, err := elemToComplex(e)
				if err != nil {
					return nil, err
				}
				data = append(data, c)
				dt = types.Promote(dt, edt)
			}
		}
		a := types.Complex128s(data, len(xs), ncol)
		return a.Cast(dt), nil
	}
	data := make([]complex128, len(xs))
	dt := types.Float64
	for i, e := range xs {
		c, edt, err := elemToComplex(e)
		if err != nil {
			return nil, err
		}
		data[i] = c
		dt = types.Promote(dt, edt)
	}
	return types.Complex128s(data).Cast(dt), nil
}

// elemToComplex 转换数组元素
func elemToComplex(e any) (complex128, types.DType, error) {
	switch x := e.(type) {
	case float64:
		return complex(x, 0), types.Float64, nil
	case int64:
		return complex(float64(x), 0), types.Int64, nil
	case string:
		c, err := strconv.ParseComplex(x, 128)
		if err != nil {
			return 0, 0, fmt.Errorf("复数字面量 %q 非法: %w", x, err)
		}
		return c, types.Complex128, nil
	}
	return 0, 0, fmt.Errorf("不支持的数组元素类型 %T", e)
}

// Run 按问题描述构建求解器并求解
// linear与logproduct为单步求解,诊断信息为nil;
// linproduct执行迭代求解并返回诊断信息
func (p *Problem) Run() (*solver.Meta, solver.Solution, error) {
	data, err := dataOf(p.Data)
	if err != nil {
		return nil, nil, err
	}
	wgts, err := dataOf(p.Weights)
	if err != nil {
		return nil, nil, err
	}
	consts, err := mapOf(p.Consts)
	if err != nil {
		return nil, nil, err
	}
	opts := p.Options()
	mode := solver.Mode(p.Mode)

	switch p.Solver {
	case "", "linear":
		ls, err := solver.NewLinearSolver(data, wgts, consts, opts)
		if err != nil {
			return nil, nil, err
		}
		sol, err := ls.Solve(mode)
		return nil, sol, err
	case "logproduct":
		lp, err := solver.NewLogProductSolver(data, wgts, consts, opts)
		if err != nil {
			return nil, nil, err
		}
		sol, err := lp.Solve(mode)
		return nil, sol, err
	case "linproduct":
		init, err := mapOf(p.Init)
		if err != nil {
			return nil, nil, err
		}
		if len(init) == 0 {
			return nil, nil, fmt.Errorf("linproduct求解器需要[init]表给出初始估计")
		}
		lp, err := solver.NewLinProductSolver(data, solver.Solution(init), wgts, consts, opts)
		if err != nil {
			return nil, nil, err
		}
		return lp.SolveIteratively(mode)
	}
	return nil, nil, fmt.Errorf("未知的求解器种类 %q", p.Solver)
}
