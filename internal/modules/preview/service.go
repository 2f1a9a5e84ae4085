// Package preview computes indicator value series over candle data so the
// editor can overlay an indicator on its chart before a strategy is ever
// backtested. Rendering stays in the frontend; this service only produces
// the numbers.
package preview

import (
	"fmt"
	"math"
	"sort"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/quantblocks/quantblocks/internal/modules/builder"
)

// Candle is one OHLC bar. Time is an opaque label echoed back to the
// caller; the service never parses it.
type Candle struct {
	Time  string  `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Series is the computed indicator values aligned with the input candles.
// Warmup bars (before the indicator has enough history) are nil.
type Series struct {
	Alias  string             `json:"alias"`
	Signal builder.SignalType `json:"signalType"`
	Values []*float64         `json:"values"`
}

// Service evaluates registered indicators over candle data.
type Service struct {
	reg *builder.Registry
	log zerolog.Logger
}

// NewService creates a preview service against the given registry.
func NewService(reg *builder.Registry, log zerolog.Logger) *Service {
	return &Service{
		reg: reg,
		log: log.With().Str("service", "preview").Logger(),
	}
}

// Evaluate computes the full value series for one indicator block. The
// block's length must be inside its registered bounds and the candle
// history must cover at least one full window.
func (s *Service) Evaluate(ind *builder.IndicatorBlock, candles []Candle) (*Series, error) {
	spec, ok := s.reg.Indicators[ind.IndicatorType]
	if !ok {
		return nil, fmt.Errorf("unknown indicator type %q", ind.IndicatorType)
	}
	if ind.Length < spec.MinLength || ind.Length > spec.MaxLength {
		return nil, fmt.Errorf("%s length %d outside registered bounds [%d, %d]",
			spec.Name, ind.Length, spec.MinLength, spec.MaxLength)
	}
	if len(candles) < ind.Length {
		return nil, fmt.Errorf("need at least %d candles for %s(%d), got %d",
			ind.Length, spec.Name, ind.Length, len(candles))
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	var raw []float64
	switch ind.IndicatorType {
	case builder.IndicatorEMA:
		raw = talib.Ema(closes, ind.Length)
	case builder.IndicatorMA:
		raw = talib.Sma(closes, ind.Length)
	case builder.IndicatorDEMA:
		raw = talib.Dema(closes, ind.Length)
	case builder.IndicatorRSI:
		raw = talib.Rsi(closes, ind.Length)
	case builder.IndicatorCCI:
		raw = talib.Cci(highs, lows, closes, ind.Length)
	case builder.IndicatorZScore:
		raw = rollingZScore(closes, ind.Length)
	case builder.IndicatorRollStd:
		raw = rollingStd(closes, ind.Length)
	case builder.IndicatorRollMedian:
		raw = rollingQuantile(closes, ind.Length, 0.5)
	case builder.IndicatorRollPercentile:
		raw = rollingPercentileRank(closes, ind.Length)
	default:
		return nil, fmt.Errorf("indicator type %q has no preview evaluator", ind.IndicatorType)
	}

	return &Series{
		Alias:  ind.Alias,
		Signal: spec.Signal,
		Values: maskWarmup(raw, lookbackBars(ind.IndicatorType, ind.Length)),
	}, nil
}

// lookbackBars returns how many leading bars carry no value for an
// indicator of the given type and length.
func lookbackBars(t builder.IndicatorType, length int) int {
	switch t {
	case builder.IndicatorDEMA:
		return 2 * (length - 1)
	case builder.IndicatorRSI:
		return length
	default:
		return length - 1
	}
}

// maskWarmup converts a raw series into nullable values, blanking the
// warmup prefix and any NaN the math produced (flat windows, zero stddev).
func maskWarmup(raw []float64, warmup int) []*float64 {
	values := make([]*float64, len(raw))
	for i := range raw {
		if i < warmup || math.IsNaN(raw[i]) || math.IsInf(raw[i], 0) {
			continue
		}
		v := raw[i]
		values[i] = &v
	}
	return values
}

// rollingStd computes the sample standard deviation over a trailing
// window. Warmup entries are left as zero and masked later.
func rollingStd(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := window - 1; i < len(xs); i++ {
		out[i] = stat.StdDev(xs[i-window+1:i+1], nil)
	}
	return out
}

// rollingZScore standardizes each value against its trailing window. A
// flat window has zero deviation; the z-score degrades to zero rather than
// dividing by it.
func rollingZScore(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := window - 1; i < len(xs); i++ {
		slice := xs[i-window+1 : i+1]
		mean, std := stat.MeanStdDev(slice, nil)
		if std == 0 {
			out[i] = 0
			continue
		}
		out[i] = (xs[i] - mean) / std
	}
	return out
}

// rollingQuantile computes a quantile (0.5 for the median) over a trailing
// window.
func rollingQuantile(xs []float64, window int, q float64) []float64 {
	out := make([]float64, len(xs))
	buf := make([]float64, window)
	for i := window - 1; i < len(xs); i++ {
		copy(buf, xs[i-window+1:i+1])
		sort.Float64s(buf)
		out[i] = stat.Quantile(q, stat.Empirical, buf, nil)
	}
	return out
}

// rollingPercentileRank scores the current value between 0 and 100 by the
// fraction of the trailing window at or below it.
func rollingPercentileRank(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	buf := make([]float64, window)
	for i := window - 1; i < len(xs); i++ {
		copy(buf, xs[i-window+1:i+1])
		sort.Float64s(buf)
		out[i] = stat.CDF(xs[i], stat.Empirical, buf, nil) * 100
	}
	return out
}
