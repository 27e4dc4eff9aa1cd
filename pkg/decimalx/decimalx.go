package decimalx

import "github.com/shopspring/decimal"

func MustFromString(s string) decimal.Decimal {
	f, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Clamp 把 d 限制在 [lo, hi]
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(d, lo), hi)
}

func FromFloats(fs []float64) []decimal.Decimal {
	ds := make([]decimal.Decimal, len(fs))
	for i, f := range fs {
		ds[i] = decimal.NewFromFloat(f)
	}
	return ds
}
