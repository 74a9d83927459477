package maths

import "sort"

// SparseMatrix 压缩稀疏行(CSR)格式实矩阵
// 行指针定位每行的非零区间,列索引在区间内保持升序以支持二分查找
type SparseMatrix struct {
	rows, cols int
	rowPtr     []int     // 每行非零区间的起点,长度rows+1
	colInd     []int     // 非零元素的列索引
	values     []float64 // 非零元素值
}

// NewSparse 创建空的CSR矩阵
func NewSparse(rows, cols int) *SparseMatrix {
	return &SparseMatrix{rows: rows, cols: cols, rowPtr: make([]int, rows+1)}
}

// Dims 返回矩阵维度
func (m *SparseMatrix) Dims() (int, int) { return m.rows, m.cols }

// NNZ 返回非零元素数量
func (m *SparseMatrix) NNZ() int { return len(m.values) }

// find 二分查找行内列索引
// 返回存储位置与是否命中,未命中时为插入点
func (m *SparseMatrix) find(i, j int) (int, bool) {
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	p := lo + sort.SearchInts(m.colInd[lo:hi], j)
	return p, p < hi && m.colInd[p] == j
}

// At 获取元素值(未存储的位置为零)
func (m *SparseMatrix) At(i, j int) float64 {
	if p, ok := m.find(i, j); ok {
		return m.values[p]
	}
	return 0
}

// Set 设置元素值
func (m *SparseMatrix) Set(i, j int, v float64) {
	p, ok := m.find(i, j)
	if ok {
		m.values[p] = v
		return
	}
	m.insert(i, p, j, v)
}

// Increment 元素累加
func (m *SparseMatrix) Increment(i, j int, v float64) {
	p, ok := m.find(i, j)
	if ok {
		m.values[p] += v
		return
	}
	m.insert(i, p, j, v)
}

// insert 在存储位置p插入新的非零元素
func (m *SparseMatrix) insert(i, p, j int, v float64) {
	m.colInd = append(m.colInd, 0)
	copy(m.colInd[p+1:], m.colInd[p:])
	m.colInd[p] = j
	m.values = append(m.values, 0)
	copy(m.values[p+1:], m.values[p:])
	m.values[p] = v
	for r := i + 1; r <= m.rows; r++ {
		m.rowPtr[r]++
	}
}

// MulVec 计算 A·x
func (m *SparseMatrix) MulVec(x []float64) []float64 {
	out := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		s := 0.0
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			s += m.values[p] * x[m.colInd[p]]
		}
		out[i] = s
	}
	return out
}

// MulTransVec 计算 Aᵀ·x
func (m *SparseMatrix) MulTransVec(x []float64) []float64 {
	out := make([]float64, m.cols)
	for i := 0; i < m.rows; i++ {
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			out[m.colInd[p]] += m.values[p] * x[i]
		}
	}
	return out
}

// ToDense 展开为稠密矩阵
func (m *SparseMatrix) ToDense() *DenseMatrix {
	out := NewDense(m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			out.Set(i, m.colInd[p], m.values[p])
		}
	}
	return out
}
