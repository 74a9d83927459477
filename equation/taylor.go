package equation

import "github.com/shiyuan-1/linsolve/types"

// TaylorExpand 对项列表做一阶泰勒展开
// 对每个项先原样输出,再对项内每个非常量符号因子输出一个扰动项:
// 该因子换名为prepend+原名(乘积求导的一阶摄动项),数值因子与常量因子不参与扰动
func TaylorExpand(terms []Term, consts map[string]*types.Array, prepend string) []Term {
	var out []Term
	for _, t := range terms {
		out = append(out, t)
		out = append(out, perturbTerm(t, consts, prepend)...)
	}
	return out
}

// perturbTerm 生成单个项的全部一阶扰动项
func perturbTerm(t Term, consts map[string]*types.Array, prepend string) []Term {
	var out []Term
	for i, f := range t {
		if f.IsNum() {
			continue
		}
		if _, ok := consts[f.Name]; ok {
			continue
		}
		nt := t.clone()
		nt[i].Name = prepend + f.Name
		out = append(out, nt)
	}
	return out
}
