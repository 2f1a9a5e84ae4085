package builder

import "time"

// Expr is one node of a compiled condition tree: an ALL/ANY group, a
// comparison leaf, or a risk action.
type Expr interface {
	isExpr()
}

// AllExpr requires every child to hold.
type AllExpr struct {
	All []Expr `json:"all"`
}

func (AllExpr) isExpr() {}

// AnyExpr requires at least one child to hold.
type AnyExpr struct {
	Any []Expr `json:"any"`
}

func (AnyExpr) isExpr() {}

// CompareExpr is a comparison leaf. Left and Right are an indicator alias
// (string), a price field (string), or a numeric literal (float64).
type CompareExpr struct {
	Op    OperatorKey `json:"op"`
	Left  any         `json:"left"`
	Right any         `json:"right"`
}

func (CompareExpr) isExpr() {}

// RiskExpr is a risk-management instruction leaf.
type RiskExpr struct {
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

func (RiskExpr) isExpr() {}

// IndicatorDef is one entry of the compiled document's indicators map.
// Source is currently always the closing price; per-indicator source
// selection exists in the block model only nominally.
type IndicatorDef struct {
	Type   IndicatorType `json:"type"`
	Length int           `json:"length"`
	Source string        `json:"source"`
}

// Document is the portable DSL emitted for the external execution engine.
type Document struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Version     int                     `json:"version"`
	CreatedAt   string                  `json:"createdAt"`
	Indicators  map[string]IndicatorDef `json:"indicators"`
	Entry       Expr                    `json:"entry"`
	Exit        Expr                    `json:"exit"`
}

// riskOps maps action types to the op keys the execution engine expects.
var riskOps = map[ActionType]string{
	ActionStopLoss:     "stopLossPct",
	ActionTakeProfit:   "takeProfitPct",
	ActionTrailingStop: "trailingStopPct",
}

// Compiler translates block trees into DSL documents. It is a total
// function over the block-tree shape: it never fails, it only drops what it
// cannot express. Gating saves on validation is the caller's job.
type Compiler struct {
	now func() time.Time
}

// NewCompiler creates a compiler stamping documents with the wall clock.
func NewCompiler() *Compiler {
	return &Compiler{now: time.Now}
}

// NewCompilerAt creates a compiler with an injected clock for tests.
func NewCompilerAt(now func() time.Time) *Compiler {
	return &Compiler{now: now}
}

// Compile walks the entry and exit trees and assembles the final document.
func (c *Compiler) Compile(s *Strategy, name, description string) *Document {
	indicators := make(map[string]IndicatorDef)
	for _, ind := range CollectIndicators(s) {
		indicators[ind.Alias] = IndicatorDef{
			Type:   ind.IndicatorType,
			Length: ind.Length,
			Source: "close",
		}
	}

	return &Document{
		Name:        name,
		Description: description,
		Version:     1,
		CreatedAt:   c.now().UTC().Format(time.RFC3339),
		Indicators:  indicators,
		Entry:       compileSection(s.Entry),
		Exit:        compileSection(s.Exit),
	}
}

// compileSection compiles one top-level section. A single block compiles
// unwrapped; multiple top-level blocks are implicitly ANDed. An explicit OR
// at the top level requires a logic group.
func compileSection(items []Node) Expr {
	compiled := compileNodes(items)
	switch len(compiled) {
	case 0:
		return nil
	case 1:
		return compiled[0]
	default:
		return AllExpr{All: compiled}
	}
}

// compileNodes compiles each node and filters out the nil results of
// incomplete conditions.
func compileNodes(items []Node) []Expr {
	out := make([]Expr, 0, len(items))
	for _, item := range items {
		if expr := compileNode(item); expr != nil {
			out = append(out, expr)
		}
	}
	return out
}

func compileNode(item Node) Expr {
	switch n := item.(type) {
	case *ConditionBlock:
		if !n.Complete() {
			return nil
		}
		return CompareExpr{
			Op:    n.Operator.Operator,
			Left:  compileOperand(n.Left),
			Right: compileOperand(n.Right),
		}
	case *LogicBlock:
		children := compileNodes(n.Children)
		switch n.Gate {
		case GateAND:
			return AllExpr{All: children}
		case GateOR:
			return AnyExpr{Any: children}
		default:
			// NOT has no compiled form; the validator already rejects it.
			return nil
		}
	case *ActionBlock:
		op, ok := riskOps[n.ActionType]
		if !ok {
			return nil
		}
		return RiskExpr{Op: op, Value: n.Value}
	default:
		return nil
	}
}

// compileOperand resolves an operand to its DSL form: indicators by alias,
// prices by field name, values by their literal.
func compileOperand(op Operand) any {
	switch o := op.(type) {
	case *IndicatorBlock:
		return o.Alias
	case *PriceBlock:
		return string(o.PriceType)
	case *ValueBlock:
		return o.Value
	default:
		return nil
	}
}
