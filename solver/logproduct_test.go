package solver

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/shiyuan-1/linsolve/ast"
	"github.com/shiyuan-1/linsolve/equation"
	"github.com/shiyuan-1/linsolve/types"
)

// TestLogProductInit 验证纯实数据只构建幅值系统
func TestLogProductInit(t *testing.T) {
	x, y, z := math.Exp(1), math.Exp(2), math.Exp(3)
	d := NewData().
		Set("x*y*z", types.Scalar(x*y*z)).
		Set("x*y", types.Scalar(x*y)).
		Set("y*z", types.Scalar(y*z))
	lp, err := NewLogProductSolver(d, nil, nil, nil)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	if lp.PhsSolver() != nil {
		t.Error("纯实数据不应构建相位系统")
	}
	if lp.AmpSolver() == nil {
		t.Fatal("缺少幅值系统")
	}
	if len(lp.AmpSolver().Prms()) != 3 {
		t.Errorf("未知量数量不正确: %v", lp.AmpSolver().Prms())
	}
}

// TestLogKeys 验证幅值/相位方程键的渲染
// 共轭因子在幅值侧为"1*名",相位侧为"-1*名",两键互不相同
func TestLogKeys(t *testing.T) {
	n, err := ast.Parse("x*y_")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	terms, err := equation.GetTerms(n)
	if err != nil {
		t.Fatalf("提取项失败: %v", err)
	}
	amp, phs, err := logKeys(terms[0], "x*y_")
	if err != nil {
		t.Fatalf("键渲染失败: %v", err)
	}
	if amp != "x+1*y" {
		t.Errorf("幅值键不正确: %q", amp)
	}
	if phs != "x+-1*y" {
		t.Errorf("相位键不正确: %q", phs)
	}
	if amp == phs {
		t.Error("幅值键与相位键不应相同")
	}
}

// TestLogProductConjKeys 验证四种共轭组合产生四条互异方程
func TestLogProductConjKeys(t *testing.T) {
	x, y := 1+1i, 2+2i
	d := NewData().
		Set("x*y_", types.Complex128Scalar(x*cmplx.Conj(y))).
		Set("x_*y", types.Complex128Scalar(cmplx.Conj(x)*y)).
		Set("x*y", types.Complex128Scalar(x*y)).
		Set("x_*y_", types.Complex128Scalar(cmplx.Conj(x*y)))
	lp, err := NewLogProductSolver(d, nil, nil, nil)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	if got := len(lp.AmpSolver().keys); got != 4 {
		t.Errorf("幅值方程数不正确: %d", got)
	}
	if lp.PhsSolver() == nil {
		t.Fatal("复数数据应构建相位系统")
	}
	if got := len(lp.PhsSolver().keys); got != 4 {
		t.Errorf("相位方程数不正确: %d", got)
	}
}

// TestLogProductSolve 验证实数乘积系统的求解
func TestLogProductSolve(t *testing.T) {
	x, y, z := math.Exp(1), math.Exp(2), math.Exp(3)
	for _, sparse := range []bool{false, true} {
		t.Run(sparseNames[sparse], func(t *testing.T) {
			d := NewData().
				Set("x*y*z", types.Scalar(x*y*z)).
				Set("x*y", types.Scalar(x*y)).
				Set("y*z", types.Scalar(y*z))
			lp, err := NewLogProductSolver(d, nil, nil, &Options{Sparse: sparse})
			if err != nil {
				t.Fatalf("构建失败: %v", err)
			}
			sol, err := lp.Solve(ModeDefault)
			if err != nil {
				t.Fatalf("求解失败: %v", err)
			}
			checkSolScalar(t, sol, "x", complex(x, 0), 1e-6)
			checkSolScalar(t, sol, "y", complex(y, 0), 1e-6)
			checkSolScalar(t, sol, "z", complex(z, 0), 1e-6)
		})
	}
}

// TestLogProductConjSolve 验证含共轭与绝对参考的复数求解
func TestLogProductConjSolve(t *testing.T) {
	x := cmplx.Exp(1)
	y := cmplx.Exp(2 + 1i)
	d := NewData().
		Set("x*y_", types.Complex128Scalar(x*cmplx.Conj(y))).
		Set("x", types.Complex128Scalar(x))
	lp, err := NewLogProductSolver(d, nil, nil, nil)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	sol, err := lp.Solve(ModeDefault)
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}
	checkSolScalar(t, sol, "x", x, 1e-6)
	checkSolScalar(t, sol, "y", y, 1e-6)
}

// TestLogProductDegenerate 验证纯相对方程下相位零模被投影为零
func TestLogProductDegenerate(t *testing.T) {
	x, y, z := 1+1i, 2+2i, 3+3i
	d := NewData().
		Set("x*y_", types.Complex128Scalar(x*cmplx.Conj(y))).
		Set("x*z_", types.Complex128Scalar(x*cmplx.Conj(z))).
		Set("y*z_", types.Complex128Scalar(y*cmplx.Conj(z)))
	lp, err := NewLogProductSolver(d, nil, nil, nil)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	sol, err := lp.Solve(ModeDefault)
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}
	sx, sy, sz := sol["x"].At(0), sol["y"].At(0), sol["z"].At(0)
	// 相对相位全为零(输入同相)
	for _, v := range []complex128{sx * cmplx.Conj(sy), sx * cmplx.Conj(sz), sy * cmplx.Conj(sz)} {
		if math.Abs(cmplx.Phase(v)) > 1e-6 {
			t.Errorf("相对相位应为零: %v", cmplx.Phase(v))
		}
	}
	// 全局相位自由度由最小范数解投影为零
	for n, v := range map[string]complex128{"x": sx, "y": sy, "z": sz} {
		if math.Abs(cmplx.Phase(v)) > 1e-6 {
			t.Errorf("%s 的绝对相位应为零: %v", n, cmplx.Phase(v))
		}
	}
}

// TestLogProductDType 验证解的精度标签跟随数据
func TestLogProductDType(t *testing.T) {
	x, y, z := math.Exp(1), math.Exp(2), math.Exp(3)
	mk := map[types.DType]func(v float64) *types.Array{
		types.Float32:    func(v float64) *types.Array { return types.Float32Scalar(float32(v)) },
		types.Float64:    types.Float64Scalar,
		types.Complex64:  func(v float64) *types.Array { return types.Complex64Scalar(complex(float32(v), 0)) },
		types.Complex128: func(v float64) *types.Array { return types.Complex128Scalar(complex(v, 0)) },
	}
	for dt, mkv := range mk {
		d := NewData().
			Set("x*y*z", mkv(x*y*z)).
			Set("x*y", mkv(x*y)).
			Set("y*z", mkv(y*z))
		w := NewData().
			Set("x*y*z", types.Float32Scalar(1)).
			Set("x*y", types.Float32Scalar(1)).
			Set("y*z", types.Float32Scalar(1))
		lp, err := NewLogProductSolver(d, w, nil, nil)
		if err != nil {
			t.Fatalf("%s 构建失败: %v", dt, err)
		}
		sol, err := lp.Solve(ModeDefault)
		if err != nil {
			t.Fatalf("%s 求解失败: %v", dt, err)
		}
		for n, v := range sol {
			if v.DType() != dt {
				t.Errorf("%s: %s 的解精度不正确: %s", dt, n, v.DType())
			}
		}
	}
}

// TestLogProductRejects 验证多项与数值因子方程的报错
func TestLogProductRejects(t *testing.T) {
	d := NewData().Set("x*y+z", types.Scalar(1))
	if _, err := NewLogProductSolver(d, nil, nil, nil); err == nil {
		t.Error("多项方程应报错")
	}
	d = NewData().Set("2*x*y", types.Scalar(1))
	if _, err := NewLogProductSolver(d, nil, nil, nil); err == nil {
		t.Error("数值因子应报错")
	}
}
