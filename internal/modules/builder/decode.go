package builder

import (
	"encoding/json"
	"fmt"
)

// blockTag is the minimal envelope peeked at before dispatching on blockType.
type blockTag struct {
	BlockType BlockType `json:"blockType"`
}

// DecodeNode decodes a single top-level block (condition, logic, or action)
// from its JSON form.
func DecodeNode(raw json.RawMessage) (Node, error) {
	var tag blockTag
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("failed to read block tag: %w", err)
	}

	switch tag.BlockType {
	case BlockCondition:
		var b ConditionBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	case BlockLogic:
		var b LogicBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	case BlockAction:
		var b ActionBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("unexpected block type %q in strategy tree", tag.BlockType)
	}
}

// decodeOperand decodes a condition operand: indicator, price, or value.
// A JSON null yields a nil operand (incomplete condition slot).
func decodeOperand(raw json.RawMessage) (Operand, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var tag blockTag
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("failed to read operand tag: %w", err)
	}

	switch tag.BlockType {
	case BlockIndicator:
		var b IndicatorBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	case BlockPrice:
		var b PriceBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	case BlockValue:
		var b ValueBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("block type %q cannot be used as an operand", tag.BlockType)
	}
}

func decodeNodes(raws []json.RawMessage) ([]Node, error) {
	if raws == nil {
		return nil, nil
	}
	nodes := make([]Node, 0, len(raws))
	for _, raw := range raws {
		node, err := DecodeNode(raw)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// UnmarshalJSON resolves the polymorphic left/operator/right slots.
func (b *ConditionBlock) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID       string          `json:"id"`
		Left     json.RawMessage `json:"left"`
		Operator *OperatorBlock  `json:"operator"`
		Right    json.RawMessage `json:"right"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	left, err := decodeOperand(wire.Left)
	if err != nil {
		return fmt.Errorf("condition %s: %w", wire.ID, err)
	}
	right, err := decodeOperand(wire.Right)
	if err != nil {
		return fmt.Errorf("condition %s: %w", wire.ID, err)
	}

	b.ID = wire.ID
	b.Left = left
	b.Operator = wire.Operator
	b.Right = right
	return nil
}

// UnmarshalJSON resolves the polymorphic children of a logic group.
func (b *LogicBlock) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID       string            `json:"id"`
		Gate     Gate              `json:"gate"`
		Children []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	children, err := decodeNodes(wire.Children)
	if err != nil {
		return fmt.Errorf("logic group %s: %w", wire.ID, err)
	}

	b.ID = wire.ID
	b.Gate = wire.Gate
	b.Children = children
	return nil
}

// UnmarshalJSON decodes both top-level sections of a strategy tree.
func (s *Strategy) UnmarshalJSON(data []byte) error {
	var wire struct {
		Entry []json.RawMessage `json:"entry"`
		Exit  []json.RawMessage `json:"exit"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	entry, err := decodeNodes(wire.Entry)
	if err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	exit, err := decodeNodes(wire.Exit)
	if err != nil {
		return fmt.Errorf("exit: %w", err)
	}

	s.Entry = entry
	s.Exit = exit
	return nil
}
