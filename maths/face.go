// Package maths 提供最小二乘求解所需的稠密/稀疏矩阵内核
// 稠密路径桥接gonum的SVD与直接求解,稀疏路径使用CSR存储配合LSQR迭代
package maths

// Matrix 实矩阵的统一访问接口
// 迭代求解只依赖矩阵-向量乘法,稠密与稀疏实现共用同一套内核
type Matrix interface {
	Dims() (rows, cols int)
	MulVec(x []float64) []float64      // 计算 A·x
	MulTransVec(x []float64) []float64 // 计算 Aᵀ·x
}
