package types

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Array 带精度标签的数值数组
// 底层数据一律以complex128存储,精度标签只参与推断与输出转换
// 空形状表示标量(长度为1)
type Array struct {
	dtype DType
	shape []int
	data  []complex128
}

// New 创建指定标签与形状的全零数组
func New(dt DType, shape ...int) *Array {
	return &Array{dtype: dt, shape: shape, data: make([]complex128, prodShape(shape))}
}

// Scalar 创建无类型标注的实数标量(按低精度归类)
func Scalar(v float64) *Array {
	return &Array{dtype: Float32, data: []complex128{complex(v, 0)}}
}

// ScalarComplex 创建无类型标注的标量
// 虚部非零时按低精度复数归类,否则与 Scalar 等价
func ScalarComplex(v complex128) *Array {
	dt := Float32
	if imag(v) != 0 {
		dt = Complex64
	}
	return &Array{dtype: dt, data: []complex128{v}}
}

// Float32Scalar 创建带32位浮点标注的标量
func Float32Scalar(v float32) *Array {
	return &Array{dtype: Float32, data: []complex128{complex(float64(v), 0)}}
}

// Float64Scalar 创建带64位浮点标注的标量
func Float64Scalar(v float64) *Array {
	return &Array{dtype: Float64, data: []complex128{complex(v, 0)}}
}

// Complex64Scalar 创建带64位复数标注的标量
func Complex64Scalar(v complex64) *Array {
	return &Array{dtype: Complex64, data: []complex128{complex128(v)}}
}

// Complex128Scalar 创建带128位复数标注的标量
func Complex128Scalar(v complex128) *Array {
	return &Array{dtype: Complex128, data: []complex128{v}}
}

// Int32Scalar 创建带32位整数标注的标量
func Int32Scalar(v int32) *Array {
	return &Array{dtype: Int32, data: []complex128{complex(float64(v), 0)}}
}

// Int64Scalar 创建带64位整数标注的标量
func Int64Scalar(v int64) *Array {
	return &Array{dtype: Int64, data: []complex128{complex(float64(v), 0)}}
}

// Float64s 从数据切片创建64位浮点数组
// 省略形状时按一维处理
func Float64s(data []float64, shape ...int) *Array {
	a := newShaped(Float64, shape, len(data))
	for i, v := range data {
		a.data[i] = complex(v, 0)
	}
	return a
}

// Float32s 从数据切片创建32位浮点数组
func Float32s(data []float32, shape ...int) *Array {
	a := newShaped(Float32, shape, len(data))
	for i, v := range data {
		a.data[i] = complex(float64(v), 0)
	}
	return a
}

// Complex128s 从数据切片创建128位复数数组
func Complex128s(data []complex128, shape ...int) *Array {
	a := newShaped(Complex128, shape, len(data))
	copy(a.data, data)
	return a
}

// Complex64s 从数据切片创建64位复数数组
func Complex64s(data []complex64, shape ...int) *Array {
	a := newShaped(Complex64, shape, len(data))
	for i, v := range data {
		a.data[i] = complex128(v)
	}
	return a
}

// Int64s 从数据切片创建64位整数数组
func Int64s(data []int64, shape ...int) *Array {
	a := newShaped(Int64, shape, len(data))
	for i, v := range data {
		a.data[i] = complex(float64(v), 0)
	}
	return a
}

// newShaped 创建指定形状的数组并校验长度
func newShaped(dt DType, shape []int, n int) *Array {
	if len(shape) == 0 {
		shape = []int{n}
	}
	if prodShape(shape) != n {
		panic(fmt.Sprintf("数据长度 %d 与形状 %v 不匹配", n, shape))
	}
	return &Array{dtype: dt, shape: shape, data: make([]complex128, n)}
}

// DType 返回精度标签
func (a *Array) DType() DType { return a.dtype }

// Shape 返回形状(标量为空)
func (a *Array) Shape() []int { return a.shape }

// Size 返回元素数量
func (a *Array) Size() int { return len(a.data) }

// IsScalar 判断是否为标量
func (a *Array) IsScalar() bool { return len(a.data) == 1 }

// Data 返回底层数据切片引用
func (a *Array) Data() []complex128 { return a.data }

// At 获取展平索引处的元素值
func (a *Array) At(i int) complex128 { return a.data[i] }

// SetFlat 设置展平索引处的元素值
func (a *Array) SetFlat(i int, v complex128) { a.data[i] = v }

// Reshape 调整形状(元素数量必须一致)
func (a *Array) Reshape(shape ...int) (*Array, error) {
	if prodShape(shape) != len(a.data) {
		return nil, &ShapeMismatchError{Shapes: [][]int{a.shape, shape}}
	}
	return &Array{dtype: a.dtype, shape: shape, data: a.data}, nil
}

// prodShape 计算形状的展平长度
func prodShape(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// MergeShape 合并一组形状为样本形状
// 较短的形状在右侧补齐,逐维取最大值
func MergeShape(shapes ...[]int) []int {
	var out []int
	for _, sh := range shapes {
		for len(out) < len(sh) {
			out = append(out, 1)
		}
		for i, d := range sh {
			if d > out[i] {
				out[i] = d
			}
		}
	}
	return out
}

// BroadcastShape 按右对齐规则计算广播形状
// 逐维要求相等或其中一方为1,否则返回 ShapeMismatchError
func BroadcastShape(shapes ...[]int) ([]int, error) {
	n := 0
	for _, sh := range shapes {
		if len(sh) > n {
			n = len(sh)
		}
	}
	out := make([]int, n)
	for i := range out {
		out[i] = 1
	}
	for _, sh := range shapes {
		off := n - len(sh)
		for i, d := range sh {
			switch {
			case out[off+i] == 1:
				out[off+i] = d
			case d != 1 && d != out[off+i]:
				return nil, &ShapeMismatchError{Shapes: shapes}
			}
		}
	}
	return out, nil
}

// FlatBroadcast 将数组按右对齐规则广播到目标形状并展平
func (a *Array) FlatBroadcast(shape []int) ([]complex128, error) {
	n := prodShape(shape)
	if a.IsScalar() {
		out := make([]complex128, n)
		for i := range out {
			out[i] = a.data[0]
		}
		return out, nil
	}
	if len(a.shape) > len(shape) {
		return nil, &ShapeMismatchError{Shapes: [][]int{a.shape, shape}}
	}
	// 右对齐计算各维步长(尺寸为1的维度步长为0)
	off := len(shape) - len(a.shape)
	strides := make([]int, len(shape))
	stride := 1
	for i := len(a.shape) - 1; i >= 0; i-- {
		switch {
		case a.shape[i] == shape[off+i]:
			strides[off+i] = stride
		case a.shape[i] == 1:
			strides[off+i] = 0
		default:
			return nil, &ShapeMismatchError{Shapes: [][]int{a.shape, shape}}
		}
		stride *= a.shape[i]
	}
	out := make([]complex128, n)
	idx := make([]int, len(shape))
	si := 0
	for i := 0; i < n; i++ {
		out[i] = a.data[si]
		// 里程计进位
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			si += strides[d]
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
			si -= strides[d] * shape[d]
		}
	}
	return out, nil
}

// apply2 对两个数组执行广播二元运算并合并精度标签
func apply2(a, b *Array, f func(x, y complex128) complex128) (*Array, error) {
	shape, err := BroadcastShape(a.shape, b.shape)
	if err != nil {
		return nil, err
	}
	xs, err := a.FlatBroadcast(shape)
	if err != nil {
		return nil, err
	}
	ys, err := b.FlatBroadcast(shape)
	if err != nil {
		return nil, err
	}
	out := &Array{dtype: Promote(a.dtype, b.dtype), shape: shape, data: make([]complex128, len(xs))}
	for i := range xs {
		out.data[i] = f(xs[i], ys[i])
	}
	return out, nil
}

// Add 广播加法
func (a *Array) Add(b *Array) (*Array, error) {
	return apply2(a, b, func(x, y complex128) complex128 { return x + y })
}

// Sub 广播减法
func (a *Array) Sub(b *Array) (*Array, error) {
	return apply2(a, b, func(x, y complex128) complex128 { return x - y })
}

// Mul 广播乘法
func (a *Array) Mul(b *Array) (*Array, error) {
	return apply2(a, b, func(x, y complex128) complex128 { return x * y })
}

// apply1 对数组执行逐元素一元运算
func (a *Array) apply1(dt DType, f func(x complex128) complex128) *Array {
	out := &Array{dtype: dt, shape: a.shape, data: make([]complex128, len(a.data))}
	for i, v := range a.data {
		out.data[i] = f(v)
	}
	return out
}

// Neg 取负
func (a *Array) Neg() *Array {
	return a.apply1(a.dtype, func(x complex128) complex128 { return -x })
}

// Conj 取共轭
func (a *Array) Conj() *Array {
	return a.apply1(a.dtype, cmplx.Conj)
}

// Scale 乘以常数因子(不改变精度标签)
func (a *Array) Scale(c complex128) *Array {
	return a.apply1(a.dtype, func(x complex128) complex128 { return c * x })
}

// Abs 逐元素取模(标签转为同精度实数)
func (a *Array) Abs() *Array {
	return a.apply1(a.dtype.Realify(), func(x complex128) complex128 {
		return complex(cmplx.Abs(x), 0)
	})
}

// Angle 逐元素取辐角(标签转为同精度实数)
func (a *Array) Angle() *Array {
	return a.apply1(a.dtype.Realify(), func(x complex128) complex128 {
		return complex(math.Atan2(imag(x), real(x)), 0)
	})
}

// Log 逐元素自然对数
func (a *Array) Log() *Array {
	return a.apply1(a.dtype, cmplx.Log)
}

// Exp 逐元素指数
func (a *Array) Exp() *Array {
	return a.apply1(a.dtype, cmplx.Exp)
}

// Cast 转换精度标签并截断精度
// 转为32位标签时各分量经float32截断,转为实数标签时丢弃虚部
func (a *Array) Cast(dt DType) *Array {
	return a.apply1(dt, func(x complex128) complex128 {
		re, im := real(x), imag(x)
		if !dt.IsComplex() {
			im = 0
		}
		if !dt.IsHigh() {
			re = float64(float32(re))
			im = float64(float32(im))
		}
		return complex(re, im)
	})
}

// Norm 计算二范数
func (a *Array) Norm() float64 {
	sum := 0.0
	for _, v := range a.data {
		re, im := real(v), imag(v)
		sum += re*re + im*im
	}
	return math.Sqrt(sum)
}

// Mean 计算平均值
func (a *Array) Mean() complex128 {
	sum := complex128(0)
	for _, v := range a.data {
		sum += v
	}
	return sum / complex(float64(len(a.data)), 0)
}

// AllClose 判断两数组是否在容差内逐元素相等
func (a *Array) AllClose(b *Array, tol float64) bool {
	if a.Size() != b.Size() {
		return false
	}
	for i := range a.data {
		if cmplx.Abs(a.data[i]-b.data[i]) > tol {
			return false
		}
	}
	return true
}

// String 格式化输出(调试用)
func (a *Array) String() string {
	if a.IsScalar() {
		return fmt.Sprintf("%v(%s)", a.data[0], a.dtype)
	}
	return fmt.Sprintf("%v%v(%s)", a.shape, a.data, a.dtype)
}
