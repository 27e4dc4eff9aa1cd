// Package indicator 把多周期 K 线转换为技术指标快照，纯计算无 I/O
package indicator

import (
	"fmt"
	"time"

	"github.com/KNICEX/decision-agent/internal/errs"
	"github.com/KNICEX/decision-agent/internal/service/exchange"
	"github.com/KNICEX/decision-agent/pkg/decimalx"
)

// Series 某一时间框架下按时间升序排列的 K 线
type Series struct {
	Timeframe string
	Klines    []exchange.Kline
}

type Snapshot struct {
	Timeframe string
	Cutoff    time.Time
	Candles   int     // 截止时间前参与计算的 K 线数
	Last      float64 // 最新收盘价
	Values    map[string]float64
	// Insufficient 因数据不足或无定义而省略的指标
	Insufficient []string
}

func (s Snapshot) Usable() bool {
	return len(s.Values) > 0
}

type Params struct {
	MAPeriods      []int
	EMAFast        int
	EMASlow        int
	WMAPeriod      int
	MACrossShort   int
	MACrossLong    int
	RSIPeriod      int
	StochK         int
	StochD         int
	WilliamsPeriod int
	CCIPeriod      int
	MFIPeriod      int
	BollPeriod     int
	BollK          float64
	ATRPeriod      int
	ADXPeriod      int
	VWAPPeriod     int
	VolumeRecent   int
	VolumeBaseline int
	SlopePeriod    int
}

func DefaultParams() Params {
	return Params{
		MAPeriods:      []int{5, 10, 20, 50, 200},
		EMAFast:        12,
		EMASlow:        26,
		WMAPeriod:      20,
		MACrossShort:   5,
		MACrossLong:    20,
		RSIPeriod:      14,
		StochK:         14,
		StochD:         3,
		WilliamsPeriod: 14,
		CCIPeriod:      20,
		MFIPeriod:      14,
		BollPeriod:     20,
		BollK:          2,
		ATRPeriod:      14,
		ADXPeriod:      14,
		VWAPPeriod:     20,
		VolumeRecent:   5,
		VolumeBaseline: 20,
		SlopePeriod:    20,
	}
}

type Engine struct {
	params Params
}

func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// Validate 时间戳必须严格递增，价格与成交量不能为负
func Validate(series Series) error {
	for i, k := range series.Klines {
		if i > 0 && !k.OpenTime.After(series.Klines[i-1].OpenTime) {
			return errs.Dataf("indicator.validate", "%s: non-monotonic timestamp at index %d (%s <= %s)",
				series.Timeframe, i, k.OpenTime.Format(time.RFC3339), series.Klines[i-1].OpenTime.Format(time.RFC3339))
		}
		if k.Open.IsNegative() || k.High.IsNegative() || k.Low.IsNegative() || k.Close.IsNegative() {
			return errs.Dataf("indicator.validate", "%s: negative price at index %d", series.Timeframe, i)
		}
		if k.Volume.IsNegative() {
			return errs.Dataf("indicator.validate", "%s: negative volume at index %d", series.Timeframe, i)
		}
	}
	return nil
}

// Compute 只使用截止时间前已收盘的 K 线，未收盘的 K 线不参与计算；cutoff 为零值时使用全部
func (e *Engine) Compute(series Series, cutoff time.Time) (Snapshot, error) {
	if err := Validate(series); err != nil {
		return Snapshot{}, err
	}

	klines := series.Klines
	if !cutoff.IsZero() {
		end := len(klines)
		for end > 0 && closedAt(klines[end-1]).After(cutoff) {
			end--
		}
		klines = klines[:end]
	}

	snap := Snapshot{
		Timeframe: series.Timeframe,
		Cutoff:    cutoff,
		Candles:   len(klines),
		Values:    make(map[string]float64),
	}
	if len(klines) == 0 {
		snap.Insufficient = append(snap.Insufficient, "all")
		return snap, nil
	}

	n := len(klines)
	highs, lows, closes, volumes := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, k := range klines {
		highs[i] = k.High.InexactFloat64()
		lows[i] = k.Low.InexactFloat64()
		closes[i] = k.Close.InexactFloat64()
		volumes[i] = k.Volume.InexactFloat64()
	}
	snap.Last = closes[n-1]

	set := func(name string, v float64, ok bool) {
		if ok {
			snap.Values[name] = v
		} else {
			snap.Insufficient = append(snap.Insufficient, name)
		}
	}
	p := e.params

	// trend
	for _, period := range p.MAPeriods {
		v, ok := sma(closes, period)
		set(fmt.Sprintf("ma_%d", period), v, ok)
	}
	emaFast, okFast := ema(closes, p.EMAFast)
	emaSlow, okSlow := ema(closes, p.EMASlow)
	set(fmt.Sprintf("ema_%d", p.EMAFast), emaFast, okFast)
	set(fmt.Sprintf("ema_%d", p.EMASlow), emaSlow, okSlow)
	v, ok := cross(emaFast, emaSlow, okFast && okSlow)
	set("ema_cross", v, ok)
	set("macd", emaFast-emaSlow, okFast && okSlow)
	v, ok = wma(closes, p.WMAPeriod)
	set(fmt.Sprintf("wma_%d", p.WMAPeriod), v, ok)
	maShort, okShort := sma(closes, p.MACrossShort)
	maLong, okLong := sma(closes, p.MACrossLong)
	v, ok = cross(maShort, maLong, okShort && okLong)
	set("ma_cross", v, ok)
	if p.SlopePeriod > 1 && n >= p.SlopePeriod {
		set("trend_slope", decimalx.Slope(decimalx.FromFloats(closes[n-p.SlopePeriod:])).InexactFloat64(), true)
	} else {
		set("trend_slope", 0, false)
	}

	// momentum
	v, ok = rsi(closes, p.RSIPeriod)
	set(fmt.Sprintf("rsi_%d", p.RSIPeriod), v, ok)
	v, ok = stochK(highs, lows, closes, p.StochK)
	set("stoch_k", v, ok)
	v, ok = stochD(highs, lows, closes, p.StochK, p.StochD)
	set("stoch_d", v, ok)
	v, ok = williamsR(highs, lows, closes, p.WilliamsPeriod)
	set("williams_r", v, ok)
	v, ok = cci(highs, lows, closes, p.CCIPeriod)
	set(fmt.Sprintf("cci_%d", p.CCIPeriod), v, ok)
	v, ok = mfi(highs, lows, closes, volumes, p.MFIPeriod)
	set(fmt.Sprintf("mfi_%d", p.MFIPeriod), v, ok)
	if n >= 2 && closes[n-2] != 0 {
		set("change_rate", (closes[n-1]-closes[n-2])/closes[n-2]*100, true)
	} else {
		set("change_rate", 0, false)
	}

	// volatility
	mid, okMid := sma(closes, p.BollPeriod)
	sd, _ := stddev(closes, p.BollPeriod)
	upper, lower := mid+p.BollK*sd, mid-p.BollK*sd
	set("bollinger_upper", upper, okMid)
	set("bollinger_lower", lower, okMid)
	v, ok = ratio(upper-lower, mid, okMid)
	set("bollinger_width", v, ok)
	v, ok = atr(highs, lows, closes, p.ATRPeriod)
	set(fmt.Sprintf("atr_%d", p.ATRPeriod), v, ok)
	plusDI, minusDI, adx, ok := dmi(highs, lows, closes, p.ADXPeriod)
	set("plus_di", plusDI, ok)
	set("minus_di", minusDI, ok)
	set(fmt.Sprintf("adx_%d", p.ADXPeriod), adx, ok)

	// volume
	recent, okRecent := sma(volumes, p.VolumeRecent)
	baseline, okBase := sma(volumes, p.VolumeBaseline)
	v, ok = ratio(recent, baseline, okRecent && okBase)
	set("volume_trend", v, ok)
	v, ok = obv(closes, volumes)
	set("obv", v, ok)
	v, ok = vwap(highs, lows, closes, volumes, p.VWAPPeriod)
	set(fmt.Sprintf("vwap_%d", p.VWAPPeriod), v, ok)

	return snap, nil
}

// closedAt 缺少 CloseTime 时退化为 OpenTime
func closedAt(k exchange.Kline) time.Time {
	if k.CloseTime.IsZero() {
		return k.OpenTime
	}
	return k.CloseTime
}

func ratio(a, b float64, ok bool) (float64, bool) {
	if !ok || b == 0 {
		return 0, false
	}
	return a / b, true
}

// cross 快线相对慢线的偏离，>0 表示快线在上
func cross(fast, slow float64, ok bool) (float64, bool) {
	v, ok := ratio(fast, slow, ok)
	return v - 1, ok
}

// ComputeAll 逐个时间框架计算，失败的时间框架记录在 errors 中，不影响其它时间框架
func (e *Engine) ComputeAll(series []Series, cutoff time.Time) ([]Snapshot, map[string]error) {
	snaps := make([]Snapshot, 0, len(series))
	failed := make(map[string]error)
	for _, s := range series {
		snap, err := e.Compute(s, cutoff)
		if err != nil {
			failed[s.Timeframe] = err
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, failed
}
