package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCross returns a complete "left <op> right" condition for tests.
func buildCross(f *Factory, left Operand, op OperatorKey, right Operand) *ConditionBlock {
	cond := f.Condition()
	operator, err := f.Operator(op)
	if err != nil {
		panic(err)
	}
	cond.Left = left
	cond.Operator = operator
	cond.Right = right
	return cond
}

func mustIndicator(t *testing.T, f *Factory, typ IndicatorType, length int) *IndicatorBlock {
	t.Helper()
	ind, err := f.Indicator(typ)
	require.NoError(t, err)
	ind.Length = length
	return ind
}

func TestCollectIndicatorsOrderAndCompleteness(t *testing.T) {
	f := NewFactory(DefaultRegistry(), seqGen())

	entryFast := mustIndicator(t, f, IndicatorEMA, 12)
	entrySlow := mustIndicator(t, f, IndicatorEMA, 26)
	nested := mustIndicator(t, f, IndicatorRSI, 14)
	exitInd := mustIndicator(t, f, IndicatorCCI, 20)

	group, err := f.Logic(GateOR)
	require.NoError(t, err)
	group.Children = []Node{
		buildCross(f, nested, OpLT, f.Value(30)),
	}

	s := &Strategy{
		Entry: []Node{
			buildCross(f, entryFast, OpCrossesAbove, entrySlow),
			group,
		},
		Exit: []Node{
			buildCross(f, exitInd, OpGT, f.Value(100)),
		},
	}

	collected := CollectIndicators(s)
	require.Len(t, collected, 4)

	// Entry before exit, pre-order within each section.
	assert.Equal(t, entryFast, collected[0])
	assert.Equal(t, entrySlow, collected[1])
	assert.Equal(t, nested, collected[2])
	assert.Equal(t, exitInd, collected[3])
}

func TestCollectIndicatorsIgnoresActionsAndEmptySlots(t *testing.T) {
	f := NewFactory(DefaultRegistry(), seqGen())

	stop, err := f.Action(ActionStopLoss)
	require.NoError(t, err)

	incomplete := f.Condition()
	incomplete.Left = mustIndicator(t, f, IndicatorEMA, 20)

	s := &Strategy{Entry: []Node{stop, incomplete}, Exit: nil}

	collected := CollectIndicators(s)
	assert.Len(t, collected, 1, "indicator in an incomplete condition still counts")
}

func TestMaxNestingDepth(t *testing.T) {
	f := NewFactory(DefaultRegistry(), seqGen())

	cond := buildCross(f, f.Value(1), OpGT, f.Value(0))

	// Flat list of conditions: depth 0.
	assert.Equal(t, 0, MaxNestingDepth([]Node{cond, cond}))

	// Empty and nil input: depth 0.
	assert.Equal(t, 0, MaxNestingDepth(nil))
	assert.Equal(t, 0, MaxNestingDepth([]Node{}))

	// One logic group: depth 1.
	inner, err := f.Logic(GateAND)
	require.NoError(t, err)
	inner.Children = []Node{cond}
	assert.Equal(t, 1, MaxNestingDepth([]Node{inner}))

	// Group inside a group: depth 2.
	outer, err := f.Logic(GateOR)
	require.NoError(t, err)
	outer.Children = []Node{cond, inner}
	assert.Equal(t, 2, MaxNestingDepth([]Node{outer}))

	// Depth is the deepest path, not the sum of siblings.
	sibling, err := f.Logic(GateAND)
	require.NoError(t, err)
	sibling.Children = []Node{cond}
	assert.Equal(t, 2, MaxNestingDepth([]Node{outer, sibling}))
}
