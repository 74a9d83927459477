package types

import "fmt"

// ShapeMismatchError 形状广播失败错误
type ShapeMismatchError struct {
	Shapes [][]int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("形状无法广播: %v", e.Shapes)
}
