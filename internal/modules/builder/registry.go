package builder

// SignalType classifies how an indicator is typically charted. It is
// informational metadata for the frontend; the compiler treats all
// indicators uniformly.
type SignalType string

const (
	SignalCrossover  SignalType = "crossover"
	SignalThreshold  SignalType = "threshold"
	SignalPriceCross SignalType = "price_cross"
)

// IndicatorSpec describes one registered indicator type.
type IndicatorSpec struct {
	Name          string     `json:"name"`
	Signal        SignalType `json:"signalType"`
	MinLength     int        `json:"minLength"`
	MaxLength     int        `json:"maxLength"`
	DefaultLength int        `json:"defaultLength"`
}

// OperatorSpec describes one registered comparison operator.
type OperatorSpec struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// GateSpec describes one registered logic gate.
type GateSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ActionSpec describes one registered risk-management action. Values are
// percentages.
type ActionSpec struct {
	Name    string  `json:"name"`
	Unit    string  `json:"unit"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Registry holds the static metadata tables the editor palette, validator
// and compiler consult. It is plain read-only data owned by whoever
// constructs it, so tests can substitute narrow registries to exercise
// bound enforcement.
type Registry struct {
	Indicators map[IndicatorType]IndicatorSpec
	Operators  map[OperatorKey]OperatorSpec
	Gates      map[Gate]GateSpec
	Actions    map[ActionType]ActionSpec
	Prices     map[PriceField]string
}

// Limits bounds the structural size of a strategy.
type Limits struct {
	MaxIndicators int
	MaxDepth      int
	MaxLookback   int
}

// DefaultLimits returns the production limits.
func DefaultLimits() Limits {
	return Limits{
		MaxIndicators: 20,
		MaxDepth:      5,
		MaxLookback:   200,
	}
}

// DefaultRegistry returns the full production registry.
func DefaultRegistry() *Registry {
	return &Registry{
		Indicators: map[IndicatorType]IndicatorSpec{
			IndicatorEMA:            {Name: "EMA", Signal: SignalPriceCross, MinLength: 2, MaxLength: 200, DefaultLength: 20},
			IndicatorMA:             {Name: "MA", Signal: SignalPriceCross, MinLength: 2, MaxLength: 200, DefaultLength: 20},
			IndicatorDEMA:           {Name: "DEMA", Signal: SignalPriceCross, MinLength: 2, MaxLength: 200, DefaultLength: 20},
			IndicatorRSI:            {Name: "RSI", Signal: SignalThreshold, MinLength: 2, MaxLength: 100, DefaultLength: 14},
			IndicatorCCI:            {Name: "CCI", Signal: SignalThreshold, MinLength: 2, MaxLength: 100, DefaultLength: 20},
			IndicatorZScore:         {Name: "Z-Score", Signal: SignalThreshold, MinLength: 5, MaxLength: 200, DefaultLength: 20},
			IndicatorRollStd:        {Name: "Rolling Std Dev", Signal: SignalThreshold, MinLength: 5, MaxLength: 200, DefaultLength: 20},
			IndicatorRollMedian:     {Name: "Rolling Median", Signal: SignalCrossover, MinLength: 5, MaxLength: 200, DefaultLength: 20},
			IndicatorRollPercentile: {Name: "Rolling Percentile", Signal: SignalThreshold, MinLength: 5, MaxLength: 200, DefaultLength: 50},
		},
		Operators: map[OperatorKey]OperatorSpec{
			OpGT:           {Symbol: ">", Name: "greater than"},
			OpLT:           {Symbol: "<", Name: "less than"},
			OpGTE:          {Symbol: ">=", Name: "greater than or equal"},
			OpLTE:          {Symbol: "<=", Name: "less than or equal"},
			OpCrossesAbove: {Symbol: "crosses above", Name: "crosses above"},
			OpCrossesBelow: {Symbol: "crosses below", Name: "crosses below"},
			OpEquals:       {Symbol: "=", Name: "equals"},
		},
		Gates: map[Gate]GateSpec{
			GateAND: {Name: "AND", Description: "All conditions in the group must be true"},
			GateOR:  {Name: "OR", Description: "At least one condition in the group must be true"},
			// NOT is listed for the palette but has no compiler semantics;
			// strategies containing a NOT group fail validation.
			GateNOT: {Name: "NOT", Description: "Negates the group (not yet supported)"},
		},
		Actions: map[ActionType]ActionSpec{
			ActionStopLoss:     {Name: "Stop Loss", Unit: "%", Min: 0.1, Max: 50, Default: 2},
			ActionTakeProfit:   {Name: "Take Profit", Unit: "%", Min: 0.1, Max: 100, Default: 4},
			ActionTrailingStop: {Name: "Trailing Stop", Unit: "%", Min: 0.1, Max: 50, Default: 2},
		},
		Prices: map[PriceField]string{
			PriceClose: "Close",
			PriceOpen:  "Open",
			PriceHigh:  "High",
			PriceLow:   "Low",
		},
	}
}
