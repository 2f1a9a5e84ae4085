package builder

import "fmt"

// Result is the outcome of validating a strategy. Errors block saving;
// warnings do not. MaxLookback and IndicatorCount are derived metrics the
// editor displays alongside the messages.
type Result struct {
	Errors         []string `json:"errors"`
	Warnings       []string `json:"warnings"`
	MaxLookback    int      `json:"maxLookback"`
	IndicatorCount int      `json:"indicatorCount"`
}

// Valid reports whether the strategy can be saved.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Validator applies structural and semantic rules against a strategy. It is
// pure and cheap enough to run on every edit; traversal cost is linear in
// tree size, which the limits keep small.
type Validator struct {
	reg    *Registry
	limits Limits
}

// NewValidator creates a validator against the given registry and limits.
func NewValidator(reg *Registry, limits Limits) *Validator {
	return &Validator{reg: reg, limits: limits}
}

// Validate evaluates every rule and reports all violations; rules are not
// short-circuited.
func (v *Validator) Validate(s *Strategy) Result {
	res := Result{Errors: []string{}, Warnings: []string{}}

	if len(s.Entry) == 0 {
		res.Errors = append(res.Errors, "Missing entry conditions")
	}
	if len(s.Exit) == 0 {
		res.Errors = append(res.Errors, "Missing exit conditions")
	}

	indicators := CollectIndicators(s)
	res.IndicatorCount = len(indicators)
	if res.IndicatorCount > v.limits.MaxIndicators {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"Strategy uses %d indicators (maximum is %d)",
			res.IndicatorCount, v.limits.MaxIndicators))
	}

	entryDepth := MaxNestingDepth(s.Entry)
	exitDepth := MaxNestingDepth(s.Exit)
	if entryDepth > v.limits.MaxDepth || exitDepth > v.limits.MaxDepth {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"Logic groups nested too deeply (maximum depth is %d)", v.limits.MaxDepth))
	}

	seenAliases := map[string]bool{}
	for _, ind := range indicators {
		if ind.Length > res.MaxLookback {
			res.MaxLookback = ind.Length
		}

		spec, ok := v.reg.Indicators[ind.IndicatorType]
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"Unknown indicator type %q", ind.IndicatorType))
			continue
		}
		if ind.Length < spec.MinLength {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"%s length %d is below the minimum of %d",
				spec.Name, ind.Length, spec.MinLength))
		} else if ind.Length > spec.MaxLength {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"%s length %d is above the maximum of %d",
				spec.Name, ind.Length, spec.MaxLength))
		}

		// Aliases key the compiled indicator map; a collision would make
		// one indicator silently shadow another.
		if seenAliases[ind.Alias] {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"Duplicate indicator alias %q", ind.Alias))
		}
		seenAliases[ind.Alias] = true
	}

	if res.MaxLookback > v.limits.MaxLookback {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Lookback of %d bars exceeds %d and reduces the available backtest date range",
			res.MaxLookback, v.limits.MaxLookback))
	}

	for _, section := range []struct {
		name  string
		items []Node
	}{{"entry", s.Entry}, {"exit", s.Exit}} {
		if n := countIncompleteConditions(section.items); n > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%d incomplete condition(s) in %s will be ignored", n, section.name))
		}
		if gate, found := findUnsupportedGate(section.items); found {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"%s gates are not supported", gate))
		}
	}

	return res
}

// countIncompleteConditions counts conditions missing an operand or the
// operator. The compiler drops them silently; the warning keeps the user
// from losing a half-built rule without noticing.
func countIncompleteConditions(items []Node) int {
	count := 0
	for _, item := range items {
		switch n := item.(type) {
		case *ConditionBlock:
			if !n.Complete() {
				count++
			}
		case *LogicBlock:
			count += countIncompleteConditions(n.Children)
		}
	}
	return count
}

// findUnsupportedGate reports the first gate that is neither AND nor OR.
func findUnsupportedGate(items []Node) (Gate, bool) {
	for _, item := range items {
		if group, ok := item.(*LogicBlock); ok {
			if group.Gate != GateAND && group.Gate != GateOR {
				return group.Gate, true
			}
			if gate, found := findUnsupportedGate(group.Children); found {
				return gate, true
			}
		}
	}
	return "", false
}
