package builder

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// IDGenerator produces opaque unique block identifiers. The default is
// uuid-based; tests inject a counter so generated ids and aliases are
// deterministic.
type IDGenerator func() string

// UUIDGenerator is the production id generator.
func UUIDGenerator() string {
	return uuid.NewString()
}

// Factory stamps fresh unique identifiers and type-specific defaults onto
// new blocks. All blocks are created through the factory, never
// hand-constructed by the editor.
type Factory struct {
	reg   *Registry
	newID IDGenerator
}

// NewFactory creates a block factory backed by the given registry. A nil
// generator falls back to uuid ids.
func NewFactory(reg *Registry, gen IDGenerator) *Factory {
	if gen == nil {
		gen = UUIDGenerator
	}
	return &Factory{reg: reg, newID: gen}
}

// aliasSuffix derives a short suffix for indicator aliases from a fresh id.
func (f *Factory) aliasSuffix() string {
	id := strings.ReplaceAll(f.newID(), "-", "")
	if len(id) > 6 {
		id = id[:6]
	}
	return id
}

// Indicator creates an indicator block with the registered default length
// and a synthesized alias ({type lowercased}_{short suffix}). Unknown
// indicator types are rejected rather than producing a half-initialized
// block.
func (f *Factory) Indicator(t IndicatorType) (*IndicatorBlock, error) {
	spec, ok := f.reg.Indicators[t]
	if !ok {
		return nil, fmt.Errorf("unknown indicator type %q", t)
	}
	return &IndicatorBlock{
		ID:            f.newID(),
		IndicatorType: t,
		Length:        spec.DefaultLength,
		Alias:         strings.ToLower(string(t)) + "_" + f.aliasSuffix(),
	}, nil
}

// Price creates a price block. An empty field defaults to the close.
func (f *Factory) Price(field PriceField) (*PriceBlock, error) {
	if field == "" {
		field = PriceClose
	}
	if _, ok := f.reg.Prices[field]; !ok {
		return nil, fmt.Errorf("unknown price field %q", field)
	}
	return &PriceBlock{ID: f.newID(), PriceType: field}, nil
}

// Value creates a constant operand block.
func (f *Factory) Value(v float64) *ValueBlock {
	return &ValueBlock{ID: f.newID(), Value: v}
}

// Operator creates an operator block.
func (f *Factory) Operator(op OperatorKey) (*OperatorBlock, error) {
	if _, ok := f.reg.Operators[op]; !ok {
		return nil, fmt.Errorf("unknown operator %q", op)
	}
	return &OperatorBlock{ID: f.newID(), Operator: op}, nil
}

// Action creates an action block with the registered default value.
// Unknown action types are rejected.
func (f *Factory) Action(t ActionType) (*ActionBlock, error) {
	spec, ok := f.reg.Actions[t]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", t)
	}
	return &ActionBlock{ID: f.newID(), ActionType: t, Value: spec.Default}, nil
}

// Condition creates an empty condition with all three slots unset.
func (f *Factory) Condition() *ConditionBlock {
	return &ConditionBlock{ID: f.newID()}
}

// Logic creates an empty logic group. Only AND and OR groups can be
// constructed; NOT exists in the registry for display but has no compiler
// semantics.
func (f *Factory) Logic(gate Gate) (*LogicBlock, error) {
	if gate != GateAND && gate != GateOR {
		return nil, fmt.Errorf("unsupported gate %q", gate)
	}
	return &LogicBlock{ID: f.newID(), Gate: gate, Children: []Node{}}, nil
}
