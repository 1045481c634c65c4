package planspec

import (
	"fmt"
	"strings"

	"github.com/go-sif/sifplan"
	"github.com/go-sif/sifplan/errors"
	"github.com/go-sif/sifplan/expr"
)

// PredicateSpec describes a predicate as a tree. A leaf compares Column against Value
// with Op, which is one of eq, neq, lt, lte, gt, gte, is_null and not_null. Interior
// nodes combine their children with exactly one of And, Or and Not.
type PredicateSpec struct {
	Column string           `yaml:"column,omitempty"`
	Op     string           `yaml:"op,omitempty"`
	Value  interface{}      `yaml:"value,omitempty"`
	And    []*PredicateSpec `yaml:"and,omitempty"`
	Or     []*PredicateSpec `yaml:"or,omitempty"`
	Not    *PredicateSpec   `yaml:"not,omitempty"`
}

func invalidPredicate(format string, args ...interface{}) error {
	return &errors.ConfigurationError{Op: "predicate", Reason: fmt.Sprintf(format, args...)}
}

func buildAll(specs []*PredicateSpec) ([]sifplan.FilterOperation, error) {
	preds := make([]sifplan.FilterOperation, len(specs))
	for i, s := range specs {
		p, err := s.Build()
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return preds, nil
}

// Build converts this PredicateSpec into a FilterOperation
func (ps *PredicateSpec) Build() (sifplan.FilterOperation, error) {
	if ps == nil {
		return nil, invalidPredicate("empty predicate")
	}
	combinators := 0
	if len(ps.And) > 0 {
		combinators++
	}
	if len(ps.Or) > 0 {
		combinators++
	}
	if ps.Not != nil {
		combinators++
	}
	if combinators > 1 || (combinators == 1 && (len(ps.Column) > 0 || len(ps.Op) > 0)) {
		return nil, invalidPredicate("a predicate must be exactly one of a comparison, and, or, not")
	}
	switch {
	case len(ps.And) > 0:
		preds, err := buildAll(ps.And)
		if err != nil {
			return nil, err
		}
		return expr.And(preds...), nil
	case len(ps.Or) > 0:
		preds, err := buildAll(ps.Or)
		if err != nil {
			return nil, err
		}
		return expr.Or(preds...), nil
	case ps.Not != nil:
		pred, err := ps.Not.Build()
		if err != nil {
			return nil, err
		}
		return expr.Not(pred), nil
	}
	if len(ps.Column) == 0 {
		return nil, invalidPredicate("comparison %q requires a column", ps.Op)
	}
	switch ps.Op {
	case "is_null":
		return expr.IsNull(ps.Column), nil
	case "not_null":
		return expr.NotNull(ps.Column), nil
	}
	op := expr.CmpOp(ps.Op)
	switch op {
	case expr.EqOp, expr.NotEqOp, expr.LtOp, expr.LtEqOp, expr.GtOp, expr.GtEqOp:
	default:
		return nil, invalidPredicate("unknown operator %q", ps.Op)
	}
	if ps.Value == nil {
		return nil, invalidPredicate("comparison %s %s requires a value", ps.Column, ps.Op)
	}
	return expr.Compare(ps.Column, op, ps.Value), nil
}

func joinAll(specs []*PredicateSpec, sep string) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (ps *PredicateSpec) String() string {
	switch {
	case ps == nil:
		return "<nil>"
	case len(ps.And) > 0:
		return joinAll(ps.And, " and ")
	case len(ps.Or) > 0:
		return joinAll(ps.Or, " or ")
	case ps.Not != nil:
		return "not " + ps.Not.String()
	case ps.Op == "is_null" || ps.Op == "not_null":
		return fmt.Sprintf("%s %s", ps.Column, ps.Op)
	}
	return fmt.Sprintf("%s %s %v", ps.Column, ps.Op, ps.Value)
}
