package solver

import (
	"fmt"
	"math"

	"github.com/shiyuan-1/linsolve/ast"
	"github.com/shiyuan-1/linsolve/equation"
	"github.com/shiyuan-1/linsolve/types"
)

// 迭代终止原因
const (
	ReasonConverged = "converged" // 解的相对变化量低于容差
	ReasonMaxIter   = "maxiter"   // 达到最大迭代轮数
)

// Meta 迭代求解的诊断信息
// 未收敛不作为错误返回,调用方检查Converged标志
type Meta struct {
	Iter      int       // 实际执行的迭代轮数
	Conv      float64   // 最终一轮解的相对变化量
	Converged bool      // 是否在容差内收敛
	Reason    string    // 终止原因
	ChiSq     []float64 // 每轮的平均加权残差平方和
}

// LinProductSolver 未知量乘积和方程的逐次线性化求解器
// 围绕当前估计sol0做一阶泰勒展开,以扰动量为未知量构建线性系统,
// 每步求解后以sol0+扰动为新估计(Gauss-Newton迭代)
type LinProductSolver struct {
	keys     []string
	data     *Data
	wmap     map[string]*types.Array
	consts   map[string]*types.Array
	opts     Options
	prepend  string                      // 扰动未知量名前缀
	allTerms map[string][]equation.Term  // 每条方程的原始项
	prms     []string                    // 原始未知量名(按首次出现顺序)
	sol0     Solution
	ls       *LinearSolver // 当前估计处的线性化系统
}

// NewLinProductSolver 构建逐次线性化求解器
// sol0必须给出每个未知量的初始估计
func NewLinProductSolver(data *Data, sol0 Solution, wgts *Data, consts map[string]*types.Array, opts *Options) (*LinProductSolver, error) {
	if opts == nil {
		opts = &Options{}
	}
	lp := &LinProductSolver{
		keys:     data.Keys(),
		data:     data,
		consts:   consts,
		opts:     *opts,
		allTerms: map[string][]equation.Term{},
	}
	wmap, err := VerifyWeights(wgts, lp.keys)
	if err != nil {
		return nil, err
	}
	lp.wmap = wmap

	seen := map[string]bool{}
	names := map[string]bool{}
	for _, k := range lp.keys {
		n, err := ast.Parse(k)
		if err != nil {
			return nil, err
		}
		terms, err := equation.GetTerms(n)
		if err != nil {
			return nil, err
		}
		lp.allTerms[k] = terms
		for _, t := range terms {
			for _, f := range t {
				if f.IsNum() {
					continue
				}
				names[f.Name] = true
				if _, isConst := consts[f.Name]; isConst {
					continue
				}
				if !seen[f.Name] {
					seen[f.Name] = true
					lp.prms = append(lp.prms, f.Name)
				}
			}
		}
	}
	lp.prepend = choosePrepend(opts.Prepend, names)

	if err := lp.buildSolver(sol0); err != nil {
		return nil, err
	}
	return lp, nil
}

// choosePrepend 选取不与既有符号名冲突的扰动前缀
// 冲突时逐级加长(d→dd→...)直到任意"前缀+符号名"都不是既有名字
func choosePrepend(prefix string, names map[string]bool) string {
	if prefix == "" {
		prefix = "d"
	}
	for {
		clash := false
		for n := range names {
			if names[prefix+n] {
				clash = true
				break
			}
		}
		if !clash {
			return prefix
		}
		prefix += prefix[:1]
	}
}

// Prms 返回原始未知量名列表
func (lp *LinProductSolver) Prms() []string { return lp.prms }

// Prepend 返回实际使用的扰动前缀
func (lp *LinProductSolver) Prepend() string { return lp.prepend }

// solValues 合并常量与当前解为求值环境
func (lp *LinProductSolver) solValues(sol Solution) map[string]*types.Array {
	out := make(map[string]*types.Array, len(lp.consts)+len(sol))
	for n, v := range lp.consts {
		out[n] = v
	}
	for n, v := range sol {
		out[n] = v
	}
	return out
}

// buildSolver 在估计sol处重建线性化系统
// 每条方程的键替换为其一阶扰动项,有效数据为原数据减去sol处的方程取值
func (lp *LinProductSolver) buildSolver(sol Solution) error {
	vals := lp.solValues(sol)
	dlin, wlin := NewData(), NewData()
	for _, k := range lp.keys {
		var perts []equation.Term
		for _, t := range lp.allTerms[k] {
			ex := equation.TaylorExpand([]equation.Term{t}, lp.consts, lp.prepend)
			perts = append(perts, ex[1:]...)
		}
		tk := equation.JoinTerms(perts)

		ans0, err := evalTermsAt(lp.allTerms[k], vals)
		if err != nil {
			return err
		}
		dk, err := lp.data.Get(k).Sub(ans0)
		if err != nil {
			return err
		}
		dlin.Set(tk, dk)
		wlin.Set(tk, lp.wmap[k])
	}
	ls, err := NewLinearSolver(dlin, wlin, vals, &lp.opts)
	if err != nil {
		return err
	}
	lp.sol0 = sol
	lp.ls = ls
	return nil
}

// Solve 执行单步线性化求解
// 返回sol0+扰动,不在内部循环,调用方重建后可继续迭代
func (lp *LinProductSolver) Solve(mode Mode) (Solution, error) {
	dsol, err := lp.ls.Solve(mode)
	if err != nil {
		return nil, err
	}
	out := Solution{}
	for _, p := range lp.prms {
		dp, ok := dsol[lp.prepend+p]
		if !ok {
			return nil, fmt.Errorf("线性化解中缺少扰动量 %q", lp.prepend+p)
		}
		v, err := lp.sol0[p].Add(dp)
		if err != nil {
			return nil, err
		}
		out[p] = v
	}
	return out, nil
}

// SolveIteratively 迭代执行线性化求解直到收敛或超出轮数上限
// 每轮以新解重建线性化系统,相对变化量‖Δ‖/‖sol‖低于容差时终止,
// 未收敛只记入诊断信息,仍返回最后一轮的解
func (lp *LinProductSolver) SolveIteratively(mode Mode) (*Meta, Solution, error) {
	convCrit := lp.opts.ConvCrit
	if convCrit <= 0 {
		convCrit = types.ConvCrit
		// 低精度系统取不到1e-10量级的相对变化
		if !lp.ls.DType().IsHigh() {
			convCrit = 1e-6
		}
	}
	maxiter := lp.opts.MaxIter
	if maxiter <= 0 {
		maxiter = types.MaxIter
	}
	meta := &Meta{Reason: ReasonMaxIter}
	sol := lp.sol0
	for i := 1; i <= maxiter; i++ {
		if i > 1 {
			if err := lp.buildSolver(sol); err != nil {
				return nil, nil, err
			}
		}
		next, err := lp.Solve(mode)
		if err != nil {
			return nil, nil, err
		}
		meta.Iter = i
		meta.Conv = solChange(sol, next)
		if cs, err := lp.Chisq(next); err == nil {
			meta.ChiSq = append(meta.ChiSq, real(cs.Mean()))
		}
		sol = next
		if meta.Conv < convCrit {
			meta.Converged = true
			meta.Reason = ReasonConverged
			break
		}
	}
	return meta, sol, nil
}

// solChange 计算两个解之间的全局相对变化量
func solChange(old, next Solution) float64 {
	num, den := 0.0, 0.0
	for p, nv := range next {
		d, err := nv.Sub(old[p])
		if err != nil {
			return math.Inf(1)
		}
		dn, nn := d.Norm(), nv.Norm()
		num += dn * dn
		den += nn * nn
	}
	if den == 0 {
		return 0
	}
	return math.Sqrt(num / den)
}

// Eval 在给定完整解处求原始(未线性化)方程的取值
func (lp *LinProductSolver) Eval(sol Solution, keys ...string) (*Data, error) {
	if len(keys) == 0 {
		keys = lp.keys
	}
	vals := lp.solValues(sol)
	out := NewData()
	for _, k := range keys {
		terms, ok := lp.allTerms[k]
		if !ok {
			n, err := ast.Parse(k)
			if err != nil {
				return nil, err
			}
			if terms, err = equation.GetTerms(n); err != nil {
				return nil, err
			}
		}
		v, err := evalTermsAt(terms, vals)
		if err != nil {
			return nil, err
		}
		out.Set(k, v)
	}
	return out, nil
}

// Chisq 计算完整解的加权残差平方和 Σ w·|eval−data|²
func (lp *LinProductSolver) Chisq(sol Solution) (*types.Array, error) {
	ev, err := lp.Eval(sol)
	if err != nil {
		return nil, err
	}
	var sum *types.Array
	for _, k := range lp.keys {
		diff, err := ev.Get(k).Sub(lp.data.Get(k))
		if err != nil {
			return nil, err
		}
		absd := diff.Abs()
		sq, err := absd.Mul(absd)
		if err != nil {
			return nil, err
		}
		wsq, err := sq.Mul(lp.wmap[k])
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = wsq
		} else if sum, err = sum.Add(wsq); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// evalTermsAt 在给定取值环境下对项列表求和
// 项内数值因子直接相乘,符号因子查表取值并按标记共轭
func evalTermsAt(terms []equation.Term, vals map[string]*types.Array) (*types.Array, error) {
	var sum *types.Array
	for _, t := range terms {
		prod := types.Scalar(1)
		for _, f := range t {
			var v *types.Array
			if f.IsNum() {
				v = types.ScalarComplex(f.Num)
			} else {
				v = vals[f.Name]
				if v == nil {
					return nil, fmt.Errorf("缺少符号 %q 的取值", f.Name)
				}
				if f.Conj {
					v = v.Conj()
				}
			}
			out, err := prod.Mul(v)
			if err != nil {
				return nil, err
			}
			prod = out
		}
		if sum == nil {
			sum = prod
		} else {
			out, err := sum.Add(prod)
			if err != nil {
				return nil, err
			}
			sum = out
		}
	}
	return sum, nil
}
