// Package policy gates outbound connector calls on merchant-configured
// rules. Rules are govaluate expressions over the flow's parameters,
// compiled once at startup and evaluated before any network activity; a
// matching block rule stops the call without touching the processor.
package policy

import (
	"fmt"
	"sort"

	"github.com/Knetic/govaluate"
)

// Rule is one configured gate. Expression is a govaluate boolean expression
// over the parameter names exposed by Parameters. Lower Priority evaluates
// first; the first matching rule decides.
type Rule struct {
	ID         string `mapstructure:"id"`
	Expression string `mapstructure:"expression"`
	Priority   int    `mapstructure:"priority"`
	Block      bool   `mapstructure:"block"`
	Review     bool   `mapstructure:"review"`
	Reason     string `mapstructure:"reason"`
}

// Decision is the gate outcome. Block stops the flow before the network
// call; Review lets it proceed but flags the attempt for manual follow-up.
type Decision struct {
	Block  bool
	Review bool
	RuleID string
	Reason string
}

// Parameters are the evaluation inputs for one flow invocation.
type Parameters struct {
	Connector     string
	Flow          string
	MinorAmount   int64
	Currency      string
	CaptureMethod string
	PaymentMethod string
	TestMode      bool
}

func (p Parameters) vars() map[string]interface{} {
	return map[string]interface{}{
		"connector":     p.Connector,
		"flow":          p.Flow,
		"amount":        float64(p.MinorAmount),
		"currency":      p.Currency,
		"captureMethod": p.CaptureMethod,
		"paymentMethod": p.PaymentMethod,
		"testMode":      p.TestMode,
	}
}

type compiledRule struct {
	rule Rule
	expr *govaluate.EvaluableExpression
}

// Enforcer evaluates the compiled rule set. Safe for concurrent use; the
// rule set is immutable after construction.
type Enforcer struct {
	rules []compiledRule
}

// NewEnforcer compiles and orders the rules. A rule that fails to compile
// fails construction; a misconfigured gate must not silently admit traffic.
func NewEnforcer(rules []Rule) (*Enforcer, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Expression == "" {
			return nil, fmt.Errorf("policy rule %q has an empty expression", r.ID)
		}
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("compiling policy rule %q: %w", r.ID, err)
		}
		compiled = append(compiled, compiledRule{rule: r, expr: expr})
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rule.Priority < compiled[j].rule.Priority
	})
	return &Enforcer{rules: compiled}, nil
}

// Evaluate runs the rules in priority order and returns the first match.
// No match means the flow proceeds unflagged.
func (e *Enforcer) Evaluate(params Parameters) (Decision, error) {
	vars := params.vars()
	for _, cr := range e.rules {
		result, err := cr.expr.Evaluate(vars)
		if err != nil {
			return Decision{}, fmt.Errorf("evaluating policy rule %q: %w", cr.rule.ID, err)
		}
		matched, ok := result.(bool)
		if !ok {
			return Decision{}, fmt.Errorf("policy rule %q did not evaluate to a boolean", cr.rule.ID)
		}
		if matched {
			return Decision{
				Block:  cr.rule.Block,
				Review: cr.rule.Review,
				RuleID: cr.rule.ID,
				Reason: cr.rule.Reason,
			}, nil
		}
	}
	return Decision{}, nil
}
