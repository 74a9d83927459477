// Package ast 提供受限算术表达式的语法树解析功能
// 文法仅包含二元加减乘、一元负号、括号、数值字面量与符号名
// 以下划线结尾的符号名表示"取该未知量的复共轭",解析阶段剥离后缀并转为类型化标记
package ast

import "fmt"

// ConjSuffix 共轭标记后缀字符
const ConjSuffix = '_'

// Node 表达式树节点
type Node interface {
	isNode()
}

// Binary 二元运算节点
type Binary struct {
	Op   byte // '+' '-' '*'
	L, R Node
}

// Unary 一元负号节点
type Unary struct {
	X Node
}

// Number 数值字面量节点
// 虚数字面量(j后缀)解析为纯虚数值
type Number struct {
	Val complex128
}

// Symbol 符号名节点
type Symbol struct {
	Name string // 符号名(共轭后缀已剥离)
	Conj bool   // 是否取共轭
}

func (*Binary) isNode() {}
func (*Unary) isNode()  {}
func (*Number) isNode() {}
func (*Symbol) isNode() {}

// ParseError 表达式解析错误
type ParseError struct {
	Expr string // 原始表达式
	Pos  int    // 错误位置
	Msg  string // 错误说明
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("表达式解析失败: %s (位置 %d: %q)", e.Msg, e.Pos, e.Expr)
}
