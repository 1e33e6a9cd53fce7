package dynamostore

import (
	"regexp"
	"strings"
)

// condition is one parsed comparison clause.
type condition struct {
	attr    string
	op      string
	operand any
}

var clauseSplit = regexp.MustCompile(`(?i)\s+AND\s+`)
var comparisonOps = []string{"<=", ">=", "=", "<", ">"}

// parseConditions parses an expression of the form
// "attr = :v AND #alias > :w" into its clauses, resolving #name aliases
// and :value placeholders against the supplied maps.
func parseConditions(expr string, names map[string]string, values map[string]any) ([]condition, error) {
	clauses := clauseSplit.Split(strings.TrimSpace(expr), -1)
	conds := make([]condition, 0, len(clauses))
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return nil, validationError("Invalid KeyConditionExpression: empty clause")
		}
		cond, err := parseClause(clause, names, values)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func parseClause(clause string, names map[string]string, values map[string]any) (condition, error) {
	op, idx := "", -1
	for _, candidate := range comparisonOps {
		if i := strings.Index(clause, candidate); i >= 0 {
			op, idx = candidate, i
			break
		}
	}
	if idx < 0 {
		return condition{}, validationError("Invalid KeyConditionExpression: Syntax error; clause %q has no comparison operator", clause)
	}

	attr := strings.TrimSpace(clause[:idx])
	operand := strings.TrimSpace(clause[idx+len(op):])
	if attr == "" || operand == "" {
		return condition{}, validationError("Invalid KeyConditionExpression: Syntax error in clause %q", clause)
	}

	if strings.HasPrefix(attr, "#") {
		resolved, ok := names[attr]
		if !ok {
			return condition{}, validationError("Expression attribute name not defined: %s", attr)
		}
		attr = resolved
	}

	if !strings.HasPrefix(operand, ":") {
		return condition{}, validationError("Invalid KeyConditionExpression: operand %q must be a :value placeholder", operand)
	}
	value, ok := values[operand]
	if !ok {
		return condition{}, validationError("Expression attribute value not defined: %s", operand)
	}

	return condition{attr: attr, op: op, operand: value}, nil
}

// evaluate reports whether the item satisfies every condition.
func evaluate(item Item, conds []condition) bool {
	for _, c := range conds {
		actual, ok := item[c.attr]
		if !ok {
			return false
		}
		if !compare(actual, c.op, c.operand) {
			return false
		}
	}
	return true
}

func compare(actual any, op string, operand any) bool {
	if an, aok := toNumber(actual); aok {
		if bn, bok := toNumber(operand); bok {
			return compareNumbers(an, op, bn)
		}
		return false
	}
	as, aok := actual.(string)
	bs, bok := operand.(string)
	if aok && bok {
		return compareStrings(as, op, bs)
	}
	// Non-ordered types only support equality.
	return op == "=" && actual == operand
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareNumbers(a float64, op string, b float64) bool {
	switch op {
	case "=":
		return a == b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func compareStrings(a, op, b string) bool {
	switch op {
	case "=":
		return a == b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}
