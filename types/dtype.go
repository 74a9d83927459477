package types

// DType 数值精度标签
// 求解器的工作精度与返回值精度由输入值的标签推断得到
type DType uint8

const (
	Float32    DType = iota // 32位浮点(低精度实数)
	Float64                 // 64位浮点(高精度实数)
	Complex64               // 64位复数(32位分量,低精度)
	Complex128              // 128位复数(64位分量,高精度)
	Int32                   // 32位整数(按高精度实数归类)
	Int64                   // 64位整数(按高精度实数归类)
)

// String 输出标签名称
func (dt DType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	}
	return "unknown"
}

// IsComplex 判断是否为复数标签
func (dt DType) IsComplex() bool {
	return dt == Complex64 || dt == Complex128
}

// IsHigh 判断是否为高精度标签
// 任意位宽的整数标签都归类为高精度
func (dt DType) IsHigh() bool {
	switch dt {
	case Float64, Complex128, Int32, Int64:
		return true
	}
	return false
}

// makeDType 根据(复数,高精度)分类生成标签
func makeDType(isComplex, isHigh bool) DType {
	switch {
	case isComplex && isHigh:
		return Complex128
	case isComplex:
		return Complex64
	case isHigh:
		return Float64
	}
	return Float32
}

// Complexify 转换为同精度的复数标签
func (dt DType) Complexify() DType {
	return makeDType(true, dt.IsHigh())
}

// Realify 转换为同精度的实数标签
func (dt DType) Realify() DType {
	return makeDType(false, dt.IsHigh())
}

// Promote 合并两个标签
// 结果为复数当且仅当任意一个为复数,为高精度当且仅当任意一个为高精度
func Promote(a, b DType) DType {
	return makeDType(a.IsComplex() || b.IsComplex(), a.IsHigh() || b.IsHigh())
}

// InferDType 推断一组值的合并精度标签
// 空输入返回最低档的 Float32
func InferDType(values []*Array) DType {
	isComplex, isHigh := false, false
	for _, v := range values {
		if v == nil {
			continue
		}
		isComplex = isComplex || v.DType().IsComplex()
		isHigh = isHigh || v.DType().IsHigh()
	}
	return makeDType(isComplex, isHigh)
}
