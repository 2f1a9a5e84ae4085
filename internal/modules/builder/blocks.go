// Package builder implements the strategy-builder core: the block model the
// visual editor manipulates, the registries describing indicators, operators,
// gates and risk actions, structural validation, and compilation of block
// trees into the declarative DSL document consumed by the backtest engine.
package builder

import "encoding/json"

// BlockType discriminates the block variants on the wire. Every block the
// editor sends carries a "blockType" tag; the decoder dispatches on it.
type BlockType string

const (
	BlockIndicator BlockType = "indicator"
	BlockPrice     BlockType = "price"
	BlockValue     BlockType = "value"
	BlockOperator  BlockType = "operator"
	BlockAction    BlockType = "action"
	BlockCondition BlockType = "condition"
	BlockLogic     BlockType = "logic"
)

// IndicatorType identifies a technical indicator supported by the builder.
type IndicatorType string

const (
	IndicatorEMA            IndicatorType = "EMA"
	IndicatorMA             IndicatorType = "MA"
	IndicatorDEMA           IndicatorType = "DEMA"
	IndicatorRSI            IndicatorType = "RSI"
	IndicatorCCI            IndicatorType = "CCI"
	IndicatorZScore         IndicatorType = "ZSCORE"
	IndicatorRollStd        IndicatorType = "ROLL_STD"
	IndicatorRollMedian     IndicatorType = "ROLL_MEDIAN"
	IndicatorRollPercentile IndicatorType = "ROLL_PERCENTILE"
)

// PriceField references one of the current bar's OHLC fields.
type PriceField string

const (
	PriceClose PriceField = "close"
	PriceOpen  PriceField = "open"
	PriceHigh  PriceField = "high"
	PriceLow   PriceField = "low"
)

// OperatorKey is the short comparison key used in compiled output.
type OperatorKey string

const (
	OpGT           OperatorKey = "gt"
	OpLT           OperatorKey = "lt"
	OpGTE          OperatorKey = "gte"
	OpLTE          OperatorKey = "lte"
	OpCrossesAbove OperatorKey = "crossesAbove"
	OpCrossesBelow OperatorKey = "crossesBelow"
	OpEquals       OperatorKey = "equals"
)

// ActionType identifies a risk-management action. Action values are always
// percentages.
type ActionType string

const (
	ActionStopLoss     ActionType = "stopLoss"
	ActionTakeProfit   ActionType = "takeProfit"
	ActionTrailingStop ActionType = "trailingStop"
)

// Gate is a logic-group connective. NOT exists in the gate registry for
// display purposes but the editor never constructs a NOT group and the
// compiler has no semantics for it; the validator rejects it.
type Gate string

const (
	GateAND Gate = "AND"
	GateOR  Gate = "OR"
	GateNOT Gate = "NOT"
)

// Block is the closed union of every node in a strategy tree.
type Block interface {
	BlockID() string
	Kind() BlockType
}

// Operand is a block that may appear on either side of a condition:
// indicator, price, or value.
type Operand interface {
	Block
	isOperand()
}

// Node is a block that may appear in an entry/exit sequence or inside a
// logic group: condition, logic, or action.
type Node interface {
	Block
	isNode()
}

// IndicatorBlock references a named technical indicator computed over the
// closing price. Alias is the unique key the indicator is referenced by in
// compiled condition trees.
type IndicatorBlock struct {
	ID            string        `json:"id"`
	IndicatorType IndicatorType `json:"indicatorType"`
	Length        int           `json:"length"`
	Alias         string        `json:"alias"`
}

func (b *IndicatorBlock) BlockID() string { return b.ID }
func (b *IndicatorBlock) Kind() BlockType { return BlockIndicator }
func (b *IndicatorBlock) isOperand()      {}

// PriceBlock references the current bar's OHLC field directly, with no
// lookback.
type PriceBlock struct {
	ID        string     `json:"id"`
	PriceType PriceField `json:"priceType"`
}

func (b *PriceBlock) BlockID() string { return b.ID }
func (b *PriceBlock) Kind() BlockType { return BlockPrice }
func (b *PriceBlock) isOperand()      {}

// ValueBlock is a constant numeric operand.
type ValueBlock struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

func (b *ValueBlock) BlockID() string { return b.ID }
func (b *ValueBlock) Kind() BlockType { return BlockValue }
func (b *ValueBlock) isOperand()      {}

// OperatorBlock carries a comparison operator. It performs no computation
// itself; interpretation happens in the external execution engine.
type OperatorBlock struct {
	ID       string      `json:"id"`
	Operator OperatorKey `json:"operator"`
}

func (b *OperatorBlock) BlockID() string { return b.ID }
func (b *OperatorBlock) Kind() BlockType { return BlockOperator }

// ActionBlock is a risk-management instruction (stop loss, take profit,
// trailing stop) with a percentage value.
type ActionBlock struct {
	ID         string     `json:"id"`
	ActionType ActionType `json:"actionType"`
	Value      float64    `json:"value"`
}

func (b *ActionBlock) BlockID() string { return b.ID }
func (b *ActionBlock) Kind() BlockType { return BlockAction }
func (b *ActionBlock) isNode()         {}

// ConditionBlock is a binary comparison. A condition is complete only when
// both operands and the operator are non-nil; incomplete conditions compile
// to nothing and are reported as a validation warning.
type ConditionBlock struct {
	ID       string         `json:"id"`
	Left     Operand        `json:"left"`
	Operator *OperatorBlock `json:"operator"`
	Right    Operand        `json:"right"`
}

func (b *ConditionBlock) BlockID() string { return b.ID }
func (b *ConditionBlock) Kind() BlockType { return BlockCondition }
func (b *ConditionBlock) isNode()         {}

// Complete reports whether both operands and the operator are present.
func (b *ConditionBlock) Complete() bool {
	return b.Left != nil && b.Operator != nil && b.Right != nil
}

// LogicBlock groups conditions (and nested logic groups) under a single
// AND/OR connective. Child order determines display order only; AND and OR
// are commutative.
type LogicBlock struct {
	ID       string `json:"id"`
	Gate     Gate   `json:"gate"`
	Children []Node `json:"children"`
}

func (b *LogicBlock) BlockID() string { return b.ID }
func (b *LogicBlock) Kind() BlockType { return BlockLogic }
func (b *LogicBlock) isNode()         {}

// Strategy is the in-memory document the editor owns: an ordered entry
// sequence and an ordered exit sequence of top-level blocks.
type Strategy struct {
	Entry []Node `json:"entry"`
	Exit  []Node `json:"exit"`
}

// taggedAlias wraps a marshaled block with its blockType discriminator so
// trees round-trip through JSON without losing variant information.
func marshalTagged(kind BlockType, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// Splice the tag into the object. All block payloads are JSON objects.
	tagged := append([]byte(`{"blockType":"`+string(kind)+`",`), raw[1:]...)
	return tagged, nil
}

func (b *IndicatorBlock) MarshalJSON() ([]byte, error) {
	type alias IndicatorBlock
	return marshalTagged(BlockIndicator, (*alias)(b))
}

func (b *PriceBlock) MarshalJSON() ([]byte, error) {
	type alias PriceBlock
	return marshalTagged(BlockPrice, (*alias)(b))
}

func (b *ValueBlock) MarshalJSON() ([]byte, error) {
	type alias ValueBlock
	return marshalTagged(BlockValue, (*alias)(b))
}

func (b *OperatorBlock) MarshalJSON() ([]byte, error) {
	type alias OperatorBlock
	return marshalTagged(BlockOperator, (*alias)(b))
}

func (b *ActionBlock) MarshalJSON() ([]byte, error) {
	type alias ActionBlock
	return marshalTagged(BlockAction, (*alias)(b))
}

func (b *ConditionBlock) MarshalJSON() ([]byte, error) {
	type alias ConditionBlock
	return marshalTagged(BlockCondition, (*alias)(b))
}

func (b *LogicBlock) MarshalJSON() ([]byte, error) {
	type alias LogicBlock
	return marshalTagged(BlockLogic, (*alias)(b))
}
