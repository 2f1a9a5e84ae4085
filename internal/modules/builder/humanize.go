package builder

import (
	"fmt"
	"strconv"
	"strings"
)

// Humanizer renders a section's block tree as a short natural-language
// summary for the editor's preview panel. The summary is feedback for the
// user only; the execution engine never sees it.
type Humanizer struct {
	reg *Registry
}

// NewHumanizer creates a humanizer backed by the given registry.
func NewHumanizer(reg *Registry) *Humanizer {
	return &Humanizer{reg: reg}
}

// Describe walks one section's top-level items and joins them with "AND",
// mirroring the compiler's implicit-AND semantics. A non-empty prefix is
// prepended when the section renders to anything.
func (h *Humanizer) Describe(items []Node, prefix string) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if part := h.describeNode(item, true); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	joined := strings.Join(parts, " AND ")
	if prefix != "" {
		return prefix + " " + joined
	}
	return joined
}

// describeNode renders a single node. Logic groups render their children
// joined by the gate keyword, one level deep; groups nested further render
// as an ellipsis rather than recursing.
func (h *Humanizer) describeNode(item Node, topLevel bool) string {
	switch n := item.(type) {
	case *ConditionBlock:
		if !n.Complete() {
			return ""
		}
		op := h.reg.Operators[n.Operator.Operator]
		return fmt.Sprintf("%s %s %s",
			h.describeOperand(n.Left), op.Symbol, h.describeOperand(n.Right))
	case *LogicBlock:
		if !topLevel {
			return "(...)"
		}
		parts := make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if part := h.describeNode(child, false); part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		return "(" + strings.Join(parts, " "+string(n.Gate)+" ") + ")"
	case *ActionBlock:
		spec := h.reg.Actions[n.ActionType]
		return fmt.Sprintf("%s %s%s", spec.Name, formatNumber(n.Value), spec.Unit)
	default:
		return ""
	}
}

func (h *Humanizer) describeOperand(op Operand) string {
	switch o := op.(type) {
	case *IndicatorBlock:
		return fmt.Sprintf("%s(%d)", o.IndicatorType, o.Length)
	case *PriceBlock:
		return h.reg.Prices[o.PriceType]
	case *ValueBlock:
		return formatNumber(o.Value)
	default:
		return ""
	}
}

// formatNumber renders a float without a trailing ".0" for whole numbers.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
