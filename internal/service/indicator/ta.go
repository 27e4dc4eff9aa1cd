package indicator

import "math"

// 以下函数都只看输入切片的尾部，ok=false 表示数据不足或结果无定义

func sma(xs []float64, n int) (float64, bool) {
	if n <= 0 || len(xs) < n {
		return 0, false
	}
	var sum float64
	for _, x := range xs[len(xs)-n:] {
		sum += x
	}
	return sum / float64(n), true
}

// ema 以前 n 个值的 SMA 作为种子
func ema(xs []float64, n int) (float64, bool) {
	if n <= 0 || len(xs) < n {
		return 0, false
	}
	seed, _ := sma(xs[:n], n)
	alpha := 2 / float64(n+1)
	v := seed
	for _, x := range xs[n:] {
		v = alpha*x + (1-alpha)*v
	}
	return v, true
}

func wma(xs []float64, n int) (float64, bool) {
	if n <= 0 || len(xs) < n {
		return 0, false
	}
	var num, den float64
	for i, x := range xs[len(xs)-n:] {
		w := float64(i + 1)
		num += w * x
		den += w
	}
	return num / den, true
}

func stddev(xs []float64, n int) (float64, bool) {
	mean, ok := sma(xs, n)
	if !ok {
		return 0, false
	}
	var sq float64
	for _, x := range xs[len(xs)-n:] {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(n)), true
}

// rsi Wilder 平滑，结果在 [0,100]
func rsi(closes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n+1 {
		return 0, false
	}
	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain, avgLoss := gain/float64(n), loss/float64(n)
	for i := n + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(n-1) + g) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + l) / float64(n)
	}
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50, true
	case avgLoss == 0:
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

func highestLowest(highs, lows []float64, n int) (float64, float64) {
	hh, ll := math.Inf(-1), math.Inf(1)
	for i := len(highs) - n; i < len(highs); i++ {
		hh = math.Max(hh, highs[i])
		ll = math.Min(ll, lows[i])
	}
	return hh, ll
}

// stochK 结果在 [0,100]，区间无波动时取 50
func stochK(highs, lows, closes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n {
		return 0, false
	}
	hh, ll := highestLowest(highs, lows, n)
	if hh == ll {
		return 50, true
	}
	return (closes[len(closes)-1] - ll) / (hh - ll) * 100, true
}

// stochD 最近 d 个 %K 的均值
func stochD(highs, lows, closes []float64, k, d int) (float64, bool) {
	if d <= 0 || len(closes) < k+d-1 {
		return 0, false
	}
	ks := make([]float64, 0, d)
	for end := len(closes) - d + 1; end <= len(closes); end++ {
		v, ok := stochK(highs[:end], lows[:end], closes[:end], k)
		if !ok {
			return 0, false
		}
		ks = append(ks, v)
	}
	return sma(ks, d)
}

// williamsR 结果在 [-100,0]
func williamsR(highs, lows, closes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n {
		return 0, false
	}
	hh, ll := highestLowest(highs, lows, n)
	if hh == ll {
		return -50, true
	}
	return (hh - closes[len(closes)-1]) / (hh - ll) * -100, true
}

func typicalPrices(highs, lows, closes []float64) []float64 {
	tp := make([]float64, len(closes))
	for i := range closes {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3
	}
	return tp
}

func cci(highs, lows, closes []float64, n int) (float64, bool) {
	tp := typicalPrices(highs, lows, closes)
	mean, ok := sma(tp, n)
	if !ok {
		return 0, false
	}
	var dev float64
	for _, v := range tp[len(tp)-n:] {
		dev += math.Abs(v - mean)
	}
	dev /= float64(n)
	if dev == 0 {
		return 0, true
	}
	return (tp[len(tp)-1] - mean) / (0.015 * dev), true
}

// mfi 结果在 [0,100]
func mfi(highs, lows, closes, volumes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n+1 {
		return 0, false
	}
	tp := typicalPrices(highs, lows, closes)
	var pos, neg float64
	for i := len(tp) - n; i < len(tp); i++ {
		flow := tp[i] * volumes[i]
		switch {
		case tp[i] > tp[i-1]:
			pos += flow
		case tp[i] < tp[i-1]:
			neg += flow
		}
	}
	switch {
	case pos == 0 && neg == 0:
		return 50, true
	case neg == 0:
		return 100, true
	}
	return 100 - 100/(1+pos/neg), true
}

func trueRanges(highs, lows, closes []float64) []float64 {
	trs := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		trs = append(trs, math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1]))))
	}
	return trs
}

func atr(highs, lows, closes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n+1 {
		return 0, false
	}
	trs := trueRanges(highs, lows, closes)
	v, _ := sma(trs[:n], n)
	for _, tr := range trs[n:] {
		v = (v*float64(n-1) + tr) / float64(n)
	}
	return v, true
}

// dmi 返回 +DI, -DI, ADX，需要 2n 根 K 线
func dmi(highs, lows, closes []float64, n int) (plusDI, minusDI, adx float64, ok bool) {
	if n <= 0 || len(closes) < 2*n {
		return 0, 0, 0, false
	}
	trs := trueRanges(highs, lows, closes)
	plusDM := make([]float64, len(trs))
	minusDM := make([]float64, len(trs))
	for i := 1; i < len(closes); i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	var sTR, sPlus, sMinus float64
	for i := 0; i < n; i++ {
		sTR += trs[i]
		sPlus += plusDM[i]
		sMinus += minusDM[i]
	}
	dx := func() float64 {
		if sTR == 0 {
			plusDI, minusDI = 0, 0
			return 0
		}
		plusDI = 100 * sPlus / sTR
		minusDI = 100 * sMinus / sTR
		if plusDI+minusDI == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	dxs := []float64{dx()}
	for i := n; i < len(trs); i++ {
		sTR = sTR - sTR/float64(n) + trs[i]
		sPlus = sPlus - sPlus/float64(n) + plusDM[i]
		sMinus = sMinus - sMinus/float64(n) + minusDM[i]
		dxs = append(dxs, dx())
	}
	adx, _ = sma(dxs[:n], n)
	for _, v := range dxs[n:] {
		adx = (adx*float64(n-1) + v) / float64(n)
	}
	return plusDI, minusDI, adx, true
}

func obv(closes, volumes []float64) (float64, bool) {
	if len(closes) < 2 {
		return 0, false
	}
	var v float64
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			v += volumes[i]
		case closes[i] < closes[i-1]:
			v -= volumes[i]
		}
	}
	return v, true
}

func vwap(highs, lows, closes, volumes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n {
		return 0, false
	}
	tp := typicalPrices(highs, lows, closes)
	var pv, vol float64
	for i := len(closes) - n; i < len(closes); i++ {
		pv += tp[i] * volumes[i]
		vol += volumes[i]
	}
	if vol == 0 {
		return 0, false
	}
	return pv / vol, true
}
