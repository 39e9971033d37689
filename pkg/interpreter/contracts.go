package interpreter

import (
	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/runtime"
)

// clauseHolds evaluates one contract clause to a boolean. A non-boolean
// clause result is a contract bug, reported as TypeMismatch rather than a
// violation.
func (i *Interpreter) clauseHolds(clause *ast.ContractClause, env *runtime.Environment) (bool, error) {
	val, err := i.evaluateExpression(clause.Expression, env)
	if err != nil {
		return false, err
	}
	b, ok := val.(runtime.BoolValue)
	if !ok {
		return false, runtime.Errorf(runtime.TypeMismatch,
			"contract clause '%s' evaluated to %s, expected bool", clause.Source, val.Kind())
	}
	return b.Val, nil
}

// captureSnapshots evaluates every old(...) argument that appears in the
// ensures clauses against the pre-state environment and stores a deep copy
// keyed by the argument's literal source text. Two old() expressions with
// the same text share one snapshot.
func (i *Interpreter) captureSnapshots(ensures []*ast.ContractClause, local *runtime.Environment, frame *callFrame) error {
	frame.snapshots = make(map[string]runtime.Value)
	for _, clause := range ensures {
		for _, old := range collectOldExpressions(clause.Expression) {
			if _, done := frame.snapshots[old.Source]; done {
				continue
			}
			val, err := i.evaluateExpression(old.Expression, local)
			if err != nil {
				return err
			}
			frame.snapshots[old.Source] = runtime.DeepCopy(val)
		}
	}
	return nil
}

// collectOldExpressions walks an expression tree gathering old(...) nodes.
// old() does not nest, so recursion stops at each hit.
func collectOldExpressions(node ast.Node) []*ast.OldExpression {
	var out []*ast.OldExpression
	walkOld(node, &out)
	return out
}

func walkOld(node ast.Node, out *[]*ast.OldExpression) {
	switch n := node.(type) {
	case nil:
		return
	case *ast.OldExpression:
		*out = append(*out, n)
	case *ast.UnaryExpression:
		walkOld(n.Operand, out)
	case *ast.BinaryExpression:
		walkOld(n.Left, out)
		walkOld(n.Right, out)
	case *ast.FunctionCall:
		walkOld(n.Callee, out)
		for _, arg := range n.Arguments {
			walkOld(arg, out)
		}
	case *ast.MemberAccessExpression:
		walkOld(n.Object, out)
	case *ast.IndexExpression:
		walkOld(n.Object, out)
		walkOld(n.Index, out)
	case *ast.RangeExpression:
		walkOld(n.Start, out)
		walkOld(n.End, out)
	case *ast.ArrayLiteral:
		for _, el := range n.Elements {
			walkOld(el, out)
		}
	case *ast.MapLiteral:
		for _, entry := range n.Entries {
			walkOld(entry.Key, out)
			walkOld(entry.Value, out)
		}
	case *ast.StringInterpolation:
		for _, part := range n.Parts {
			walkOld(part, out)
		}
	case *ast.StructLiteral:
		for _, field := range n.Fields {
			walkOld(field.Value, out)
		}
	case *ast.PropagationExpression:
		walkOld(n.Expression, out)
	case *ast.IfExpression:
		walkOld(n.Condition, out)
		walkOld(n.Then, out)
		walkOld(n.Else, out)
	case *ast.MatchExpression:
		walkOld(n.Subject, out)
		for _, clause := range n.Clauses {
			walkOld(clause.Guard, out)
			walkOld(clause.Body, out)
		}
	case *ast.BlockExpression:
		for _, stmt := range n.Body {
			walkOld(stmt, out)
		}
	case *ast.AssignmentExpression:
		walkOld(n.Target, out)
		walkOld(n.Value, out)
	}
}

// checkInvariants re-evaluates every invariant of the instance's struct.
// Clauses see `self` plus each field by its bare name.
func (i *Interpreter) checkInvariants(inst *runtime.StructInstanceValue) error {
	def := inst.Definition.Node
	if len(def.Invariants) == 0 {
		return nil
	}
	env := runtime.NewEnvironment(i.global)
	env.Define("self", inst)
	for name, val := range inst.Fields {
		env.Define(name, val)
	}
	for _, clause := range def.Invariants {
		ok, err := i.clauseHolds(clause, env)
		if err != nil {
			return err
		}
		if !ok {
			return runtime.ContractError(runtime.InvariantViolation, def.ID.Name, clause.Source)
		}
	}
	return nil
}
