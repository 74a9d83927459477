// Package linsolve 以线性最小二乘为核心的方程组求解库
// 方程以文本表达式描述("2*x+3*y"),观测数据可为标量或数组,
// 纯乘积系统支持对数线性化,乘积和系统支持Gauss-Newton逐次线性化
package linsolve

import (
	"github.com/shiyuan-1/linsolve/load"
	"github.com/shiyuan-1/linsolve/solver"
	"github.com/shiyuan-1/linsolve/types"
)

// 核心类型的顶层别名
type (
	Array    = types.Array
	DType    = types.DType
	Data     = solver.Data
	Solution = solver.Solution
	Options  = solver.Options
	Mode     = solver.Mode
	Meta     = solver.Meta

	LinearSolver     = solver.LinearSolver
	LogProductSolver = solver.LogProductSolver
	LinProductSolver = solver.LinProductSolver
)

// 求解模式
const (
	ModeDefault = solver.ModeDefault
	ModeLSQR    = solver.ModeLSQR
	ModePinv    = solver.ModePinv
	ModeSolve   = solver.ModeSolve
)

// 精度标签
const (
	Float32    = types.Float32
	Float64    = types.Float64
	Complex64  = types.Complex64
	Complex128 = types.Complex128
	Int32      = types.Int32
	Int64      = types.Int64
)

// NewData 创建有序的"表达式→取值"映射
func NewData() *Data { return solver.NewData() }

// NewLinearSolver 构建线性最小二乘求解器
func NewLinearSolver(data, wgts *Data, consts map[string]*Array, opts *Options) (*LinearSolver, error) {
	return solver.NewLinearSolver(data, wgts, consts, opts)
}

// NewLogProductSolver 构建纯乘积方程的对数线性化求解器
func NewLogProductSolver(data, wgts *Data, consts map[string]*Array, opts *Options) (*LogProductSolver, error) {
	return solver.NewLogProductSolver(data, wgts, consts, opts)
}

// NewLinProductSolver 构建乘积和方程的逐次线性化求解器
func NewLinProductSolver(data *Data, sol0 Solution, wgts *Data, consts map[string]*Array, opts *Options) (*LinProductSolver, error) {
	return solver.NewLinProductSolver(data, sol0, wgts, consts, opts)
}

// LoadProblem 读取TOML问题文件
func LoadProblem(path string) (*load.Problem, error) {
	return load.ReadFile(path)
}

// Scalar 创建无精度标注的实数标量
func Scalar(v float64) *Array { return types.Scalar(v) }

// ScalarComplex 创建无精度标注的标量
func ScalarComplex(v complex128) *Array { return types.ScalarComplex(v) }
