package equation

import (
	"fmt"

	"github.com/shiyuan-1/linsolve/ast"
	"github.com/shiyuan-1/linsolve/types"
)

// NonLinearTermError 非线性项错误
// 规范化后某个项包含零个或多个未知量因子
type NonLinearTermError struct {
	Term string // 违规项的渲染形式
}

func (e *NonLinearTermError) Error() string {
	return fmt.Sprintf("非线性项: %q 未包含恰好一个未知量因子", e.Term)
}

// LinearEquation 单条线性方程模型
// 表达式的每个项规范化为(数值系数,常量因子...,唯一未知量因子)形式
type LinearEquation struct {
	Terms   []Term                  // 规范化后的项列表
	Consts  map[string]*types.Array // 表达式实际引用的常量值
	Prms    []string                // 未知量名列表(按首次出现顺序,共轭标记已剥离)
	HasConj bool                    // 任意未知量因子是否带共轭标记
}

// New 解析表达式并构建线性方程
// consts给出常量名到取值的映射,其余符号视为未知量
func New(expr string, consts map[string]*types.Array) (*LinearEquation, error) {
	n, err := ast.Parse(expr)
	if err != nil {
		return nil, err
	}
	terms, err := GetTerms(n)
	if err != nil {
		return nil, err
	}
	return NewFromTerms(terms, consts)
}

// NewFromTerms 从已提取的项列表构建线性方程
func NewFromTerms(terms []Term, consts map[string]*types.Array) (*LinearEquation, error) {
	eq := &LinearEquation{Consts: map[string]*types.Array{}}
	seen := map[string]bool{}
	for _, t := range terms {
		ot, err := eq.orderTerm(t, consts)
		if err != nil {
			return nil, err
		}
		eq.Terms = append(eq.Terms, ot)
		name, conj := eq.TermPrm(ot)
		if conj {
			eq.HasConj = true
		}
		if !seen[name] {
			seen[name] = true
			eq.Prms = append(eq.Prms, name)
		}
	}
	return eq, nil
}

// orderTerm 规范化单个项
// 数值因子折叠为唯一的首位系数,常量因子保持出现顺序居中,
// 唯一的未知量因子置于末位,未知量数不为一时报 NonLinearTermError
func (eq *LinearEquation) orderTerm(t Term, consts map[string]*types.Array) (Term, error) {
	out := make(Term, 0, len(t))
	coeff := complex128(1)
	hasCoeff := false
	var prm Factor
	nprm := 0
	for _, f := range t {
		switch {
		case f.IsNum():
			coeff *= f.Num
			hasCoeff = true
		default:
			if _, ok := consts[f.Name]; ok {
				out = append(out, f)
				eq.Consts[f.Name] = consts[f.Name]
			} else {
				prm = f
				nprm++
			}
		}
	}
	if nprm != 1 {
		return nil, &NonLinearTermError{Term: t.String()}
	}
	if hasCoeff {
		out = append(Term{Num(coeff)}, out...)
	}
	return append(out, prm), nil
}

// TermPrm 返回规范化项的未知量名与共轭标记
func (eq *LinearEquation) TermPrm(t Term) (string, bool) {
	f := t[len(t)-1]
	return f.Name, f.Conj
}

// TermCoeff 计算规范化项的系数
// 数值系数与各常量取值(按标记共轭)的广播乘积
func (eq *LinearEquation) TermCoeff(t Term) (*types.Array, error) {
	coeff := types.Scalar(1)
	for _, f := range t[:len(t)-1] {
		var v *types.Array
		if f.IsNum() {
			v = types.ScalarComplex(f.Num)
		} else {
			v = eq.Consts[f.Name]
			if f.Conj {
				v = v.Conj()
			}
		}
		out, err := coeff.Mul(v)
		if err != nil {
			return nil, err
		}
		coeff = out
	}
	return coeff, nil
}

// Eval 在给定解处求方程左侧的值
func (eq *LinearEquation) Eval(sol map[string]*types.Array) (*types.Array, error) {
	return EvalTerms(eq, eq.Terms, sol)
}

// EvalTerms 对项列表求和取值
// 每个项为系数乘以未知量在解中的取值(按标记共轭)
func EvalTerms(eq *LinearEquation, terms []Term, sol map[string]*types.Array) (*types.Array, error) {
	var sum *types.Array
	for _, t := range terms {
		coeff, err := eq.TermCoeff(t)
		if err != nil {
			return nil, err
		}
		name, conj := eq.TermPrm(t)
		v, ok := sol[name]
		if !ok {
			return nil, fmt.Errorf("解中缺少未知量 %q", name)
		}
		if conj {
			v = v.Conj()
		}
		tv, err := coeff.Mul(v)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = tv
		} else if sum, err = sum.Add(tv); err != nil {
			return nil, err
		}
	}
	return sum, nil
}
