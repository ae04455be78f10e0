// 文件: pkg/numeric/math.go
// 数值工具: 输出舍入 / 截断 / 安全除法
//
// 【约定】
// - 所有除法在分母 <= 0 或结果非有限值时返回 0，不向上层传播 NaN/Inf
// - Round 只用于输出，计算链路上一律用原始 float64

package numeric

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Round 舍入到 places 位小数，与 Python round 一致
//
// 对 float64 的精确二进制值做银行家舍入 (恰好一半时取偶)，
// 所以 1.005 得 1.0 (实际存储值略小于 1.005)，0.125 得 0.12
func Round(x float64, places int32) float64 {
	if !IsFinite(x) {
		return 0
	}
	// x = m * 2^(exp-53)，小数点后 53-exp 位即可精确表示
	_, exp := math.Frexp(x)
	prec := 53 - exp
	if prec < 0 {
		prec = 0
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(x, 'f', prec, 64))
	if err != nil {
		d = decimal.NewFromFloat(x)
	}
	f, _ := d.RoundBank(places).Float64()
	return f
}

// Clamp 限制在 [lo, hi]
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// SafeDiv 分母非正时返回 0
func SafeDiv(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	q := num / den
	if !IsFinite(q) {
		return 0
	}
	return q
}

// IsFinite 非 NaN 且非 ±Inf
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
