package types

// 默认数值参数定义
var (
	ConvCrit     = 1e-10 // 迭代求解收敛容差
	MaxIter      = 50    // Gauss-Newton最大迭代次数
	Epsilon      = 1e-16 // 浮点精度阈值
	RCond        = 1e-12 // 伪逆奇异值截断比例
	LSQRAtol     = 1e-13 // LSQR迭代停止容差
	LSQRIterMult = 10    // LSQR迭代上限倍率(乘以矩阵最大维度)
)
