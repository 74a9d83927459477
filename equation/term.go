// Package equation 实现表达式项的提取、规范化与线性方程模型
// 一个项是若干因子的乘积,因子为数值系数或符号名(可带共轭标记)
// 若干项求和构成一个方程的左侧
package equation

import (
	"strconv"
	"strings"

	"github.com/shiyuan-1/linsolve/ast"
)

// Factor 项的组成因子
// Name为空表示数值因子,否则为符号因子
type Factor struct {
	Num  complex128 // 数值因子取值
	Name string     // 符号名(共轭标记已剥离)
	Conj bool       // 符号是否取共轭
}

// Num 创建数值因子
func Num(v complex128) Factor { return Factor{Num: v} }

// Sym 创建符号因子
func Sym(name string, conj bool) Factor { return Factor{Name: name, Conj: conj} }

// IsNum 判断是否为数值因子
func (f Factor) IsNum() bool { return f.Name == "" }

// String 渲染因子为表达式片段
func (f Factor) String() string {
	if f.IsNum() {
		return formatNumber(f.Num)
	}
	if f.Conj {
		return f.Name + string(ast.ConjSuffix)
	}
	return f.Name
}

// Term 因子乘积构成的项
type Term []Factor

// clone 复制项
func (t Term) clone() Term {
	out := make(Term, len(t))
	copy(out, t)
	return out
}

// String 渲染项为因子乘积
func (t Term) String() string {
	parts := make([]string, len(t))
	for i, f := range t {
		parts[i] = f.String()
	}
	return strings.Join(parts, "*")
}

// GetTerms 将语法树展平为规范化的项列表
// 加法拼接两侧项,减法与一元负号对右侧/唯一子树逐项取负,
// 乘法对两侧项做笛卡尔积拼接因子(对多项一侧自动展开分配律)
func GetTerms(n ast.Node) ([]Term, error) {
	switch v := n.(type) {
	case *ast.Number:
		return []Term{{Num(v.Val)}}, nil
	case *ast.Symbol:
		return []Term{{Sym(v.Name, v.Conj)}}, nil
	case *ast.Unary:
		ts, err := GetTerms(v.X)
		if err != nil {
			return nil, err
		}
		return negateTerms(ts), nil
	case *ast.Binary:
		l, err := GetTerms(v.L)
		if err != nil {
			return nil, err
		}
		r, err := GetTerms(v.R)
		if err != nil {
			return nil, err
		}
		switch v.Op {
		case '+':
			return append(l, r...), nil
		case '-':
			return append(l, negateTerms(r)...), nil
		case '*':
			out := make([]Term, 0, len(l)*len(r))
			for _, lt := range l {
				for _, rt := range r {
					t := make(Term, 0, len(lt)+len(rt))
					t = append(t, lt...)
					t = append(t, rt...)
					out = append(out, t)
				}
			}
			return out, nil
		}
	}
	return nil, &ast.ParseError{Msg: "不支持的表达式节点"}
}

// negateTerms 对每个项取负
// 首因子为数值时直接乘以-1,否则在头部插入-1系数
func negateTerms(terms []Term) []Term {
	out := make([]Term, len(terms))
	for i, t := range terms {
		if len(t) > 0 && t[0].IsNum() {
			nt := t.clone()
			nt[0].Num = -nt[0].Num
			out[i] = nt
		} else {
			nt := make(Term, 0, len(t)+1)
			nt = append(nt, Num(-1))
			nt = append(nt, t...)
			out[i] = nt
		}
	}
	return out
}

// JoinTerms 将项列表渲染回可再解析的表达式字符串
func JoinTerms(terms []Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, "+")
}

// formatNumber 渲染数值因子
// 实数渲染为十进制,纯虚数带j后缀,一般复数带括号
func formatNumber(c complex128) string {
	re, im := real(c), imag(c)
	switch {
	case im == 0:
		return strconv.FormatFloat(re, 'g', -1, 64)
	case re == 0:
		return strconv.FormatFloat(im, 'g', -1, 64) + "j"
	}
	return "(" + strconv.FormatFloat(re, 'g', -1, 64) + "+" +
		strconv.FormatFloat(im, 'g', -1, 64) + "j)"
}
