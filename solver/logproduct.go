package solver

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/shiyuan-1/linsolve/ast"
	"github.com/shiyuan-1/linsolve/equation"
	"github.com/shiyuan-1/linsolve/types"
)

// LogProductSolver 纯乘积方程的对数线性化求解器
// 要求每条方程为若干未知量因子的单项乘积(可带共轭标记),
// 取对数后幅值与相位各自成为线性系统独立求解:
// log(x·conj(y)) = log|x|+log|y| + i·(arg x − arg y)
type LogProductSolver struct {
	lsAmp *LinearSolver // 对数幅值系统
	lsPhs *LinearSolver // 相位系统(纯实数据时为nil)
	dtype types.DType
}

// NewLogProductSolver 构建对数线性化求解器
// 幅值方程各因子系数为+1,相位方程共轭因子系数为-1,
// 数据映射为log|d|(模为零时按1处理)与arg(d)
func NewLogProductSolver(data *Data, wgts *Data, consts map[string]*types.Array, opts *Options) (*LogProductSolver, error) {
	wmap, err := VerifyWeights(wgts, data.Keys())
	if err != nil {
		return nil, err
	}
	dAmp, dPhs := NewData(), NewData()
	wAmp, wPhs := NewData(), NewData()
	anyComplex := false
	for _, k := range data.Keys() {
		n, err := ast.Parse(k)
		if err != nil {
			return nil, err
		}
		terms, err := equation.GetTerms(n)
		if err != nil {
			return nil, err
		}
		if len(terms) != 1 {
			return nil, fmt.Errorf("对数线性化要求单项乘积方程, %q 含 %d 个项", k, len(terms))
		}
		ampKey, phsKey, err := logKeys(terms[0], k)
		if err != nil {
			return nil, err
		}

		d := data.Get(k)
		anyComplex = anyComplex || d.DType().IsComplex()
		dAmp.Set(ampKey, logAbs(d))
		dPhs.Set(phsKey, d.Angle())
		wAmp.Set(ampKey, wmap[k])
		wPhs.Set(phsKey, wmap[k])
	}

	lp := &LogProductSolver{}
	var vals []*types.Array
	for _, k := range data.Keys() {
		vals = append(vals, data.Get(k), wmap[k])
	}
	for _, v := range consts {
		vals = append(vals, v)
	}
	lp.dtype = types.InferDType(vals)

	lp.lsAmp, err = NewLinearSolver(dAmp, wAmp, consts, opts)
	if err != nil {
		return nil, err
	}
	if anyComplex {
		lp.lsPhs, err = NewLinearSolver(dPhs, wPhs, consts, opts)
		if err != nil {
			return nil, err
		}
	}
	return lp, nil
}

// logKeys 将乘积项映射为幅值/相位方程的表达式键
// 幅值侧共轭因子渲染为"1*名",相位侧渲染为"-1*名",保证两键互不相同
func logKeys(t equation.Term, key string) (string, string, error) {
	var ampTerms, phsTerms []equation.Term
	for _, f := range t {
		if f.IsNum() {
			return "", "", fmt.Errorf("对数线性化要求全符号乘积, %q 含数值因子", key)
		}
		sym := equation.Sym(f.Name, false)
		if f.Conj {
			ampTerms = append(ampTerms, equation.Term{equation.Num(1), sym})
			phsTerms = append(phsTerms, equation.Term{equation.Num(-1), sym})
		} else {
			ampTerms = append(ampTerms, equation.Term{sym})
			phsTerms = append(phsTerms, equation.Term{sym})
		}
	}
	return equation.JoinTerms(ampTerms), equation.JoinTerms(phsTerms), nil
}

// logAbs 逐元素计算log|d|,模为零的元素按log(1)=0处理
func logAbs(d *types.Array) *types.Array {
	out := types.New(d.DType().Realify(), d.Shape()...)
	for i, v := range d.Data() {
		m := cmplx.Abs(v)
		if m == 0 {
			m = 1
		}
		out.SetFlat(i, complex(math.Log(m), 0))
	}
	return out
}

// AmpSolver 返回对数幅值子求解器
func (lp *LogProductSolver) AmpSolver() *LinearSolver { return lp.lsAmp }

// PhsSolver 返回相位子求解器(纯实数据时为nil)
func (lp *LogProductSolver) PhsSolver() *LinearSolver { return lp.lsPhs }

// Solve 求解并重组乘积因子
// 纯实数据时直接返回exp(幅值解)并保持推断精度,
// 否则每个未知量取exp(amp+i·phs),精度标签转为复数
func (lp *LogProductSolver) Solve(mode Mode) (Solution, error) {
	ampSol, err := lp.lsAmp.Solve(mode)
	if err != nil {
		return nil, err
	}
	out := Solution{}
	if lp.lsPhs == nil {
		for p, v := range ampSol {
			out[p] = v.Exp().Cast(lp.dtype)
		}
		return out, nil
	}
	phsSol, err := lp.lsPhs.Solve(mode)
	if err != nil {
		return nil, err
	}
	dt := lp.dtype.Complexify()
	for p, amp := range ampSol {
		ip := phsSol[p].Scale(1i)
		c, err := amp.Add(ip)
		if err != nil {
			return nil, err
		}
		out[p] = c.Exp().Cast(dt)
	}
	return out, nil
}
