package solver

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/shiyuan-1/linsolve/equation"
	"github.com/shiyuan-1/linsolve/maths"
	"github.com/shiyuan-1/linsolve/types"
)

// termRef 预展平的单项引用
type termRef struct {
	coeff  []complex128 // 展平到样本形状的系数
	scalar bool         // 系数是否为标量
	col    int          // 未知量列索引
	conj   bool         // 是否对未知量取共轭
}

// eqRef 预展平的单条方程引用
type eqRef struct {
	terms   []termRef
	sqrtW   []float64    // 展平的权重平方根
	scalarW bool         // 权重是否为标量
	data    []complex128 // 展平的观测数据
}

// LinearSolver 加权最小二乘线性求解器
// 构造时解析全部方程并推断工作精度与样本形状,
// 复数或含共轭的系统经实虚分离嵌入为实矩阵求解
type LinearSolver struct {
	keys     []string
	data     *Data
	wgts     map[string]*types.Array
	consts   map[string]*types.Array
	eqs      []*equation.LinearEquation
	eqIndex  map[string]int
	prms     []string
	prmOrder map[string]int
	opts     Options

	dtype    types.DType // 推断精度(存在共轭标记时转为实数标签)
	solDType types.DType // 解的精度标签
	split    bool        // 是否执行实虚分离嵌入
	shape    []int       // 样本形状
	nsamp    int
	refs     []eqRef
}

// NewLinearSolver 构建线性求解器
// data为"表达式→观测值",wgts为可选权重(键集合须与data一致),
// consts给出表达式中常量符号的取值,其余符号为未知量
func NewLinearSolver(data *Data, wgts *Data, consts map[string]*types.Array, opts *Options) (*LinearSolver, error) {
	if opts == nil {
		opts = &Options{}
	}
	ls := &LinearSolver{
		keys:    data.Keys(),
		data:    data,
		consts:  consts,
		eqIndex: map[string]int{},
		opts:    *opts,
	}
	wmap, err := VerifyWeights(wgts, ls.keys)
	if err != nil {
		return nil, err
	}
	ls.wgts = wmap

	// 解析方程并收集未知量(按首次出现顺序)
	hasConj := false
	seen := map[string]bool{}
	usedConsts := map[string]*types.Array{}
	for i, k := range ls.keys {
		eq, err := equation.New(k, consts)
		if err != nil {
			return nil, err
		}
		ls.eqs = append(ls.eqs, eq)
		ls.eqIndex[k] = i
		hasConj = hasConj || eq.HasConj
		for _, p := range eq.Prms {
			if !seen[p] {
				seen[p] = true
				ls.prms = append(ls.prms, p)
			}
		}
		for n, v := range eq.Consts {
			usedConsts[n] = v
		}
	}
	ls.prmOrder = opts.PrmOrder
	if ls.prmOrder == nil {
		ls.prmOrder = map[string]int{}
		for i, p := range ls.prms {
			ls.prmOrder[p] = i
		}
	}

	// 推断精度: 数据∪常量∪权重合并,含共轭时报告实数标签
	var vals []*types.Array
	for _, k := range ls.keys {
		vals = append(vals, data.Get(k), wmap[k])
	}
	for _, v := range usedConsts {
		vals = append(vals, v)
	}
	raw := types.InferDType(vals)
	ls.dtype = raw
	if hasConj {
		ls.dtype = raw.Realify()
	}
	ls.split = hasConj || raw.IsComplex()
	ls.solDType = ls.dtype
	if ls.split {
		ls.solDType = ls.dtype.Complexify()
	}

	// 样本形状: 各输入形状右侧补齐后逐维取最大
	var shapes [][]int
	for _, v := range vals {
		if v != nil && !v.IsScalar() {
			shapes = append(shapes, v.Shape())
		}
	}
	ls.shape = types.MergeShape(shapes...)
	ls.nsamp = 1
	for _, d := range ls.shape {
		ls.nsamp *= d
	}

	if err := ls.buildRefs(); err != nil {
		return nil, err
	}
	return ls, nil
}

// buildRefs 将方程的系数/权重/数据展平到样本形状
func (ls *LinearSolver) buildRefs() error {
	ls.refs = make([]eqRef, len(ls.eqs))
	for i, eq := range ls.eqs {
		k := ls.keys[i]
		ref := &ls.refs[i]

		df, err := ls.data.Get(k).FlatBroadcast(ls.shape)
		if err != nil {
			return err
		}
		ref.data = df

		w := ls.wgts[k]
		wf, err := w.FlatBroadcast(ls.shape)
		if err != nil {
			return err
		}
		ref.sqrtW = make([]float64, len(wf))
		for s, v := range wf {
			ref.sqrtW[s] = math.Sqrt(real(v))
		}
		ref.scalarW = w.IsScalar()

		for _, t := range eq.Terms {
			coeff, err := eq.TermCoeff(t)
			if err != nil {
				return err
			}
			cf, err := coeff.FlatBroadcast(ls.shape)
			if err != nil {
				return err
			}
			name, conj := eq.TermPrm(t)
			ref.terms = append(ref.terms, termRef{
				coeff:  cf,
				scalar: coeff.IsScalar(),
				col:    ls.prmOrder[name],
				conj:   conj,
			})
		}
	}
	return nil
}

// DType 返回推断的工作精度标签
func (ls *LinearSolver) DType() types.DType { return ls.dtype }

// Prms 返回未知量名列表
func (ls *LinearSolver) Prms() []string { return ls.prms }

// Shape 返回样本形状
func (ls *LinearSolver) Shape() []int { return ls.shape }

// AShape 返回系数张量形状(方程数,未知量数,样本数)
func (ls *LinearSolver) AShape() []int {
	return []int{len(ls.keys), len(ls.prms), ls.nsamp}
}

// GetA 装配未加权的系数张量
// 同一(方程,未知量)位置的多个项系数相加
func (ls *LinearSolver) GetA() *types.Array {
	sh := ls.AShape()
	a := types.New(ls.solDType, sh...)
	np := len(ls.prms)
	for e, ref := range ls.refs {
		for _, t := range ref.terms {
			base := (e*np + t.col) * ls.nsamp
			for s := 0; s < ls.nsamp; s++ {
				a.SetFlat(base+s, a.At(base+s)+t.coeff[s])
			}
		}
	}
	return a
}

// dims 返回嵌入后实系统的行列数
func (ls *LinearSolver) dims() (rows, cols int) {
	rows, cols = len(ls.keys), len(ls.prms)
	if ls.split {
		rows, cols = 2*rows, 2*cols
	}
	return
}

// matSetter 装配目标的元素累加接口
type matSetter interface {
	Increment(i, j int, v float64)
}

// assemble 装配样本s的加权实系数矩阵
// 复数系数c=a+bi嵌入为2x2实块,共轭因子翻转虚部所在列的符号
func (ls *LinearSolver) assemble(s int, m matSetter) {
	for e, ref := range ls.refs {
		rw := ref.sqrtW[s]
		for _, t := range ref.terms {
			c := t.coeff[s]
			a, b := real(c), imag(c)
			if !ls.split {
				m.Increment(e, t.col, rw*a)
				continue
			}
			sgn := 1.0
			if t.conj {
				sgn = -1
			}
			m.Increment(2*e, 2*t.col, rw*a)
			m.Increment(2*e, 2*t.col+1, -sgn*rw*b)
			m.Increment(2*e+1, 2*t.col, rw*b)
			m.Increment(2*e+1, 2*t.col+1, sgn*rw*a)
		}
	}
}

// rhs 装配样本s的加权右端向量
func (ls *LinearSolver) rhs(s int) []float64 {
	rows, _ := ls.dims()
	out := make([]float64, rows)
	for e, ref := range ls.refs {
		rw := ref.sqrtW[s]
		d := ref.data[s]
		if !ls.split {
			out[e] = rw * real(d)
			continue
		}
		out[2*e] = rw * real(d)
		out[2*e+1] = rw * imag(d)
	}
	return out
}

// sharedA 判断系数矩阵是否对全部样本相同
func (ls *LinearSolver) sharedA() bool {
	for _, ref := range ls.refs {
		if !ref.scalarW {
			return false
		}
		for _, t := range ref.terms {
			if !t.scalar {
				return false
			}
		}
	}
	return true
}

// workers 返回有效并行度
func (ls *LinearSolver) workers() int {
	if ls.opts.Workers > 0 {
		return ls.opts.Workers
	}
	return runtime.NumCPU()
}

// rcond 返回有效的伪逆截断比例
func (ls *LinearSolver) rcond() float64 {
	if ls.opts.RCond > 0 {
		return ls.opts.RCond
	}
	return types.RCond
}

// Solve 求解系统并返回未知量到解的映射
// 模式为空时等价于 ModeDefault: 稠密伪逆,Sparse选项开启时为稀疏LSQR
func (ls *LinearSolver) Solve(mode Mode) (Solution, error) {
	if len(ls.keys) < len(ls.prms) {
		return nil, &UnderdeterminedError{NEqs: len(ls.keys), NPrms: len(ls.prms)}
	}
	switch mode {
	case "", ModeDefault, ModeLSQR, ModePinv, ModeSolve:
	default:
		return nil, fmt.Errorf("未知的求解模式 %q", mode)
	}
	xs, err := ls.solveColumns(mode)
	if err != nil {
		return nil, err
	}
	return ls.extract(xs), nil
}

// solveColumns 逐样本求解,返回每个样本的实解向量
func (ls *LinearSolver) solveColumns(mode Mode) ([][]float64, error) {
	xs := make([][]float64, ls.nsamp)
	if ls.sharedA() {
		return xs, ls.solveShared(mode, xs)
	}
	// 系数随样本变化,分块并行逐样本装配求解
	var g errgroup.Group
	g.SetLimit(ls.workers())
	chunk := (ls.nsamp + ls.workers() - 1) / ls.workers()
	for lo := 0; lo < ls.nsamp; lo += chunk {
		hi := lo + chunk
		if hi > ls.nsamp {
			hi = ls.nsamp
		}
		lo, hi := lo, hi
		g.Go(func() error {
			for s := lo; s < hi; s++ {
				x, err := ls.solveOne(mode, s)
				if err != nil {
					return err
				}
				xs[s] = x
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return xs, nil
}

// solveOne 装配并求解单个样本
func (ls *LinearSolver) solveOne(mode Mode, s int) ([]float64, error) {
	rows, cols := ls.dims()
	b := ls.rhs(s)
	if ls.useLSQR(mode) {
		var a maths.Matrix
		if ls.opts.Sparse {
			sm := maths.NewSparse(rows, cols)
			ls.assemble(s, sm)
			a = sm
		} else {
			dm := maths.NewDense(rows, cols)
			ls.assemble(s, dm)
			a = dm
		}
		return maths.LSQR(a, b, types.LSQRAtol, 0), nil
	}
	dm := maths.NewDense(rows, cols)
	ls.assemble(s, dm)
	bm := maths.NewDense(rows, 1)
	for i, v := range b {
		bm.Set(i, 0, v)
	}
	xm, err := ls.solveDense(mode, dm, bm)
	if err != nil {
		return nil, err
	}
	x := make([]float64, cols)
	for i := range x {
		x[i] = xm.At(i, 0)
	}
	return x, nil
}

// solveShared 系数矩阵全样本共享时一次装配多右端求解
func (ls *LinearSolver) solveShared(mode Mode, xs [][]float64) error {
	rows, cols := ls.dims()
	if ls.useLSQR(mode) {
		var a maths.Matrix
		if ls.opts.Sparse {
			sm := maths.NewSparse(rows, cols)
			ls.assemble(0, sm)
			a = sm
		} else {
			dm := maths.NewDense(rows, cols)
			ls.assemble(0, dm)
			a = dm
		}
		var g errgroup.Group
		g.SetLimit(ls.workers())
		for s := 0; s < ls.nsamp; s++ {
			s := s
			g.Go(func() error {
				xs[s] = maths.LSQR(a, ls.rhs(s), types.LSQRAtol, 0)
				return nil
			})
		}
		return g.Wait()
	}
	dm := maths.NewDense(rows, cols)
	ls.assemble(0, dm)
	bm := maths.NewDense(rows, ls.nsamp)
	for s := 0; s < ls.nsamp; s++ {
		for i, v := range ls.rhs(s) {
			bm.Set(i, s, v)
		}
	}
	xm, err := ls.solveDense(mode, dm, bm)
	if err != nil {
		return err
	}
	for s := 0; s < ls.nsamp; s++ {
		x := make([]float64, cols)
		for i := range x {
			x[i] = xm.At(i, s)
		}
		xs[s] = x
	}
	return nil
}

// useLSQR 判断模式是否走迭代路径
func (ls *LinearSolver) useLSQR(mode Mode) bool {
	if mode == ModeLSQR {
		return true
	}
	return (mode == "" || mode == ModeDefault) && ls.opts.Sparse
}

// solveDense 稠密矩阵按模式求解
func (ls *LinearSolver) solveDense(mode Mode, a, b *maths.DenseMatrix) (*maths.DenseMatrix, error) {
	if mode == ModeSolve {
		return maths.DirectSolve(a, b)
	}
	return maths.PinvSolve(a, b, ls.rcond())
}

// extract 将逐样本实解向量重组为解映射
// 实虚分离时相邻两列合成复数,最终按推断精度截断
func (ls *LinearSolver) extract(xs [][]float64) Solution {
	sol := Solution{}
	for _, p := range ls.prms {
		col := ls.prmOrder[p]
		arr := types.New(types.Complex128, ls.shape...)
		for s, x := range xs {
			if ls.split {
				arr.SetFlat(s, complex(x[2*col], x[2*col+1]))
			} else {
				arr.SetFlat(s, complex(x[col], 0))
			}
		}
		sol[p] = arr.Cast(ls.solDType)
	}
	return sol
}

// equationFor 返回键对应的方程(未知键按表达式即时解析)
func (ls *LinearSolver) equationFor(key string) (*equation.LinearEquation, error) {
	if i, ok := ls.eqIndex[key]; ok {
		return ls.eqs[i], nil
	}
	return equation.New(key, ls.consts)
}

// Eval 在给定解处求各方程左侧的取值
// 省略keys时对全部数据键求值,结果保持对应数据的原始形状
func (ls *LinearSolver) Eval(sol Solution, keys ...string) (*Data, error) {
	if len(keys) == 0 {
		keys = ls.keys
	}
	out := NewData()
	for _, k := range keys {
		eq, err := ls.equationFor(k)
		if err != nil {
			return nil, err
		}
		v, err := eq.Eval(sol)
		if err != nil {
			return nil, err
		}
		flat, err := v.FlatBroadcast(ls.shape)
		if err != nil {
			return nil, err
		}
		arr := types.New(v.DType(), ls.shape...)
		for i, c := range flat {
			arr.SetFlat(i, c)
		}
		if dv := ls.data.Get(k); dv != nil && !dv.IsScalar() && dv.Size() == arr.Size() {
			if r, err := arr.Reshape(dv.Shape()...); err == nil {
				arr = r
			}
		}
		out.Set(k, arr)
	}
	return out, nil
}

// Chisq 计算解的加权残差平方和 Σ w·|eval−data|²(逐样本,不做自由度归一)
func (ls *LinearSolver) Chisq(sol Solution) (*types.Array, error) {
	ev, err := ls.Eval(sol)
	if err != nil {
		return nil, err
	}
	var sum *types.Array
	for _, k := range ls.keys {
		diff, err := ev.Get(k).Sub(ls.data.Get(k))
		if err != nil {
			return nil, err
		}
		absd := diff.Abs()
		sq, err := absd.Mul(absd)
		if err != nil {
			return nil, err
		}
		wsq, err := sq.Mul(ls.wgts[k])
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
