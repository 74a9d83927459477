package maths

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/shiyuan-1/linsolve/types"
)

// ErrSingular 法方程系数矩阵奇异
var ErrSingular = errors.New("法方程系数矩阵奇异,无法直接求解")

// DenseMatrix 行主序稠密实矩阵
type DenseMatrix struct {
	rows, cols int
	data       []float64
}

// NewDense 创建全零稠密矩阵
func NewDense(rows, cols int) *DenseMatrix {
	return &DenseMatrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Dims 返回矩阵维度
func (m *DenseMatrix) Dims() (int, int) { return m.rows, m.cols }

// At 获取元素值
func (m *DenseMatrix) At(i, j int) float64 { return m.data[i*m.cols+j] }

// Set 设置元素值
func (m *DenseMatrix) Set(i, j int, v float64) { m.data[i*m.cols+j] = v }

// Increment 元素累加
func (m *DenseMatrix) Increment(i, j int, v float64) { m.data[i*m.cols+j] += v }

// MulVec 计算 A·x
func (m *DenseMatrix) MulVec(x []float64) []float64 {
	out := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		s := 0.0
		for j, v := range row {
			s += v * x[j]
		}
		out[i] = s
	}
	return out
}

// MulTransVec 计算 Aᵀ·x
func (m *DenseMatrix) MulTransVec(x []float64) []float64 {
	out := make([]float64, m.cols)
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		for j, v := range row {
			out[j] += v * x[i]
		}
	}
	return out
}

// asMat 桥接为gonum矩阵(共享底层数据)
func (m *DenseMatrix) asMat() *mat.Dense {
	return mat.NewDense(m.rows, m.cols, m.data)
}

// fromMat 从gonum矩阵复制数据
func fromMat(src mat.Matrix) *DenseMatrix {
	r, c := src.Dims()
	out := NewDense(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, src.At(i, j))
		}
	}
	return out
}

// normalEquations 构造法方程 AᵀA 与 AᵀB
func normalEquations(a, b *DenseMatrix) (*mat.Dense, *mat.Dense) {
	am, bm := a.asMat(), b.asMat()
	var ata, atb mat.Dense
	ata.Mul(am.T(), am)
	atb.Mul(am.T(), bm)
	return &ata, &atb
}

// PinvSolve 经伪逆求解最小二乘问题 min‖A·X−B‖
// 对法方程 AᵀA 做SVD,截断相对奇异值小于rcond的模式后回代,
// 退化系统得到最小范数解(零空间分量被投影为零)
func PinvSolve(a, b *DenseMatrix, rcond float64) (*DenseMatrix, error) {
	if rcond <= 0 {
		rcond = types.RCond
	}
	ata, atb := normalEquations(a, b)
	var svd mat.SVD
	if !svd.Factorize(ata, mat.SVDFull) {
		return nil, errors.New("法方程SVD分解失败")
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	// x = V·diag(1/s)·Uᵀ·atb,截断小奇异值
	n := len(s)
	_, k := atb.Dims()
	ut := mat.NewDense(n, k, nil)
	ut.Mul(u.T(), atb)
	for i := 0; i < n; i++ {
		inv := 0.0
		if s[i] > rcond*s[0] {
			inv = 1 / s[i]
		}
		for j := 0; j < k; j++ {
			ut.Set(i, j, ut.At(i, j)*inv)
		}
	}
	var x mat.Dense
	x.Mul(&v, ut)
	return fromMat(&x), nil
}

// DirectSolve 直接求解法方程 AᵀA·X = AᵀB
// 系数矩阵必须非奇异,病态时容忍gonum的条件数警告
func DirectSolve(a, b *DenseMatrix) (*DenseMatrix, error) {
	ata, atb := normalEquations(a, b)
	var x mat.Dense
	if err := x.Solve(ata, atb); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, ErrSingular
		}
	}
	return fromMat(&x), nil
}
