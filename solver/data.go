// Package solver 实现加权最小二乘线性求解器及其对数线性化/逐次线性化包装
// 数据为"表达式字符串→观测值"的有序映射,求解器解析每条表达式为线性方程,
// 逐样本装配实矩阵系统并按指定模式求解
package solver

import (
	"fmt"

	"github.com/shiyuan-1/linsolve/types"
)

// Mode 求解模式
type Mode string

const (
	ModeDefault Mode = "default" // 稠密伪逆或稀疏LSQR(由Sparse选项决定)
	ModeLSQR    Mode = "lsqr"    // 迭代最小二乘
	ModePinv    Mode = "pinv"    // 显式伪逆求解法方程
	ModeSolve   Mode = "solve"   // 直接求解法方程(要求非奇异)
)

// Solution 未知量名到解值的映射(共轭标记已剥离)
type Solution map[string]*types.Array

// Data 保持插入顺序的"表达式→取值"映射
// 方程行的装配顺序与插入顺序一致
type Data struct {
	keys []string
	vals map[string]*types.Array
}

// NewData 创建空数据映射
func NewData() *Data {
	return &Data{vals: map[string]*types.Array{}}
}

// Set 写入一条数据(重复键覆盖取值并保持原位置)
func (d *Data) Set(key string, v *types.Array) *Data {
	if _, ok := d.vals[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.vals[key] = v
	return d
}

// Get 读取键对应的取值
func (d *Data) Get(key string) *types.Array { return d.vals[key] }

// Keys 返回按插入顺序排列的键列表
func (d *Data) Keys() []string { return d.keys }

// Len 返回条目数量
func (d *Data) Len() int { return len(d.keys) }

// Options 求解器配置
type Options struct {
	Sparse   bool           // 使用CSR稀疏装配
	PrmOrder map[string]int // 未知量列顺序(缺省按首次出现顺序)
	Workers  int            // 逐样本求解的并行度(缺省为CPU数)
	ConvCrit float64        // 迭代求解收敛容差(缺省types.ConvCrit)
	MaxIter  int            // 迭代求解最大轮数(缺省types.MaxIter)
	RCond    float64        // 伪逆奇异值截断比例(缺省types.RCond)
	Prepend  string         // 扰动未知量名前缀(缺省"d")
}

// InvalidWeightsError 权重校验失败错误
type InvalidWeightsError struct {
	Reason string
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("权重非法: %s", e.Reason)
}

// UnderdeterminedError 欠定系统错误
type UnderdeterminedError struct {
	NEqs, NPrms int
}

func (e *UnderdeterminedError) Error() string {
	return fmt.Sprintf("系统欠定: %d 条方程少于 %d 个未知量", e.NEqs, e.NPrms)
}

// VerifyWeights 校验权重映射
// 权重为空时每个键取权重1,否则键集合必须与数据完全一致且权重均为实数
func VerifyWeights(wgts *Data, keys []string) (map[string]*types.Array, error) {
	out := make(map[string]*types.Array, len(keys))
	if wgts == nil || wgts.Len() == 0 {
		for _, k := range keys {
			out[k] = types.Scalar(1)
		}
		return out, nil
	}
	if wgts.Len() != len(keys) {
		return nil, &InvalidWeightsError{Reason: "权重键集合与数据键集合不一致"}
	}
	for _, k := range keys {
		w := wgts.Get(k)
		if w == nil {
			return nil, &InvalidWeightsError{Reason: fmt.Sprintf("缺少键 %q 的权重", k)}
		}
		if w.DType().IsComplex() {
			return nil, &InvalidWeightsError{Reason: fmt.Sprintf("键 %q 的权重为复数", k)}
		}
		out[k] = w
	}
	return out, nil
}
