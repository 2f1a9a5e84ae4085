package builder

// CollectIndicators returns every indicator block reachable from the
// strategy's entry and exit sections, entry before exit, pre-order within
// each section. The traversal is pure; callers must not mutate the returned
// blocks if they want validation and compilation to stay consistent.
func CollectIndicators(s *Strategy) []*IndicatorBlock {
	var out []*IndicatorBlock
	out = collectFromNodes(s.Entry, out)
	out = collectFromNodes(s.Exit, out)
	return out
}

func collectFromNodes(items []Node, out []*IndicatorBlock) []*IndicatorBlock {
	for _, item := range items {
		switch n := item.(type) {
		case *ConditionBlock:
			out = collectFromOperand(n.Left, out)
			out = collectFromOperand(n.Right, out)
		case *LogicBlock:
			out = collectFromNodes(n.Children, out)
		case *ActionBlock:
			// no operands
		}
	}
	return out
}

func collectFromOperand(op Operand, out []*IndicatorBlock) []*IndicatorBlock {
	if ind, ok := op.(*IndicatorBlock); ok {
		out = append(out, ind)
	}
	return out
}

// MaxNestingDepth returns the maximum number of logic-group levels along
// any path through items. A flat list of conditions has depth 0; a logic
// group nested inside another logic group has depth 2.
func MaxNestingDepth(items []Node) int {
	return nestingDepth(items, 0)
}

func nestingDepth(items []Node, depth int) int {
	max := depth
	for _, item := range items {
		if group, ok := item.(*LogicBlock); ok {
			if d := nestingDepth(group.Children, depth+1); d > max {
				max = d
			}
		}
	}
	return max
}
