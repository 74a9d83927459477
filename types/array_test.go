package types

import (
	"math"
	"testing"
)

// TestMergeShape 验证样本形状的右侧补齐合并规则
func TestMergeShape(t *testing.T) {
	got := MergeShape([]int{10}, []int{1, 10})
	if len(got) != 2 || got[0] != 10 || got[1] != 10 {
		t.Errorf("合并结果不正确: 期望 [10 10], 实际 %v", got)
	}
	if got := MergeShape(); len(got) != 0 {
		t.Errorf("空输入应得到标量形状, 实际 %v", got)
	}
	got = MergeShape([]int{3}, []int{4})
	if len(got) != 1 || got[0] != 4 {
		t.Errorf("逐维取最大失败: %v", got)
	}
}

// TestBroadcast 验证右对齐广播与失败报错
func TestBroadcast(t *testing.T) {
	t.Run("Shape", func(t *testing.T) {
		sh, err := BroadcastShape([]int{3, 1}, []int{4})
		if err != nil {
			t.Fatalf("广播失败: %v", err)
		}
		if sh[0] != 3 || sh[1] != 4 {
			t.Errorf("广播形状不正确: %v", sh)
		}
		if _, err := BroadcastShape([]int{3}, []int{4}); err == nil {
			t.Error("不兼容形状应报错")
		} else if _, ok := err.(*ShapeMismatchError); !ok {
			t.Errorf("错误类型不正确: %T", err)
		}
	})
	t.Run("FlatValues", func(t *testing.T) {
		a := Float64s([]float64{1, 2, 3}, 3, 1)
		flat, err := a.FlatBroadcast([]int{3, 2})
		if err != nil {
			t.Fatalf("展平广播失败: %v", err)
		}
		want := []float64{1, 1, 2, 2, 3, 3}
		for i, w := range want {
			if real(flat[i]) != w {
				t.Fatalf("元素[%d]不正确: 期望 %v, 实际 %v", i, w, flat[i])
			}
		}
	})
	t.Run("ScalarFill", func(t *testing.T) {
		flat, err := Scalar(7).FlatBroadcast([]int{2, 2})
		if err != nil {
			t.Fatalf("标量广播失败: %v", err)
		}
		for _, v := range flat {
			if real(v) != 7 {
				t.Fatal("标量填充不正确")
			}
		}
	})
}

// TestArrayOps 验证广播算术与精度标签传播
func TestArrayOps(t *testing.T) {
	a := Float64s([]float64{1, 2, 3, 4}, 2, 2)
	b := Scalar(10)
	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("加法失败: %v", err)
	}
	if sum.DType() != Float64 {
		t.Errorf("结果标签应为Float64, 实际 %s", sum.DType())
	}
	if real(sum.At(3)) != 14 {
		t.Errorf("加法结果不正确: %v", sum.At(3))
	}

	c := Complex128Scalar(1 + 2i)
	prod, err := a.Mul(c)
	if err != nil {
		t.Fatalf("乘法失败: %v", err)
	}
	if prod.DType() != Complex128 {
		t.Errorf("结果标签应为Complex128, 实际 %s", prod.DType())
	}
	if prod.At(1) != complex(2, 4) {
		t.Errorf("乘法结果不正确: %v", prod.At(1))
	}
}

// TestConjAbsAngle 验证共轭/取模/辐角
func TestConjAbsAngle(t *testing.T) {
	a := Complex128s([]complex128{3 + 4i, 1i})
	if a.Conj().At(0) != 3-4i {
		t.Error("共轭不正确")
	}
	abs := a.Abs()
	if real(abs.At(0)) != 5 || abs.DType() != Float64 {
		t.Errorf("取模不正确: %v (%s)", abs.At(0), abs.DType())
	}
	ang := a.Angle()
	if math.Abs(real(ang.At(1))-math.Pi/2) > 1e-12 {
		t.Errorf("辐角不正确: %v", ang.At(1))
	}
}

// TestCast 验证精度截断与虚部丢弃
func TestCast(t *testing.T) {
	a := Complex128Scalar(1.0000000001 + 2i)
	low := a.Cast(Complex64)
	if low.DType() != Complex64 {
		t.Errorf("标签不正确: %s", low.DType())
	}
	if real(low.At(0)) != float64(float32(1.0000000001)) {
		t.Error("32位截断未生效")
	}
	re := a.Cast(Float64)
	if imag(re.At(0)) != 0 {
		t.Error("转实数标签应丢弃虚部")
	}
}

// TestLogExp 验证对数与指数互为逆运算
func TestLogExp(t *testing.T) {
	a := Complex128s([]complex128{2 + 1i, 0.5 - 3i})
	back := a.Log().Exp()
	if !back.AllClose(a, 1e-12) {
		t.Error("log/exp往返不一致")
	}
}

// TestReshape 验证形状调整与长度校验
func TestReshape(t *testing.T) {
	a := Float64s([]float64{1, 2, 3, 4, 5, 6})
	m, err := a.Reshape(2, 3)
	if err != nil {
		t.Fatalf("调整形状失败: %v", err)
	}
	if m.Shape()[0] != 2 || m.Shape()[1] != 3 {
		t.Errorf("形状不正确: %v", m.Shape())
	}
	if _, err := a.Reshape(4, 2); err == nil {
		t.Error("长度不一致应报错")
	}
}
