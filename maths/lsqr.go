package maths

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/shiyuan-1/linsolve/types"
)

// LSQR 迭代求解最小二乘问题 min‖A·x−b‖
// Paige-Saunders双对角化算法,只依赖矩阵-向量乘法,
// 对不相容或退化系统收敛到最小范数意义下的解
func LSQR(a Matrix, b []float64, atol float64, itnlim int) []float64 {
	rows, cols := a.Dims()
	if atol <= 0 {
		atol = types.LSQRAtol
	}
	if itnlim <= 0 {
		n := rows
		if cols > n {
			n = cols
		}
		itnlim = types.LSQRIterMult * n
	}
	x := make([]float64, cols)

	// 初始化双对角化: beta·u = b, alpha·v = Aᵀ·u
	u := make([]float64, rows)
	copy(u, b)
	beta := floats.Norm(u, 2)
	if beta == 0 {
		return x
	}
	floats.Scale(1/beta, u)
	v := a.MulTransVec(u)
	alpha := floats.Norm(v, 2)
	if alpha == 0 {
		return x
	}
	floats.Scale(1/alpha, v)

	w := make([]float64, cols)
	copy(w, v)
	phibar, rhobar := beta, alpha
	bnorm := beta

	for itn := 0; itn < itnlim; itn++ {
		// 双对角化推进: beta·u = A·v − alpha·u
		au := a.MulVec(v)
		floats.AddScaledTo(u, au, -alpha, u)
		beta = floats.Norm(u, 2)
		if beta > 0 {
			floats.Scale(1/beta, u)
			// alpha·v = Aᵀ·u − beta·v
			av := a.MulTransVec(u)
			floats.AddScaledTo(v, av, -beta, v)
			alpha = floats.Norm(v, 2)
			if alpha > 0 {
				floats.Scale(1/alpha, v)
			}
		}

		// 对双对角系统施加Givens旋转
		rho := math.Hypot(rhobar, beta)
		c, s := rhobar/rho, beta/rho
		theta := s * alpha
		rhobar = -c * alpha
		phi := c * phibar
		phibar = s * phibar

		// 更新解与搜索方向
		t1, t2 := phi/rho, -theta/rho
		floats.AddScaled(x, t1, w)
		floats.AddScaledTo(w, v, t2, w)

		if phibar <= atol*bnorm {
			break
		}
	}
	return x
}
