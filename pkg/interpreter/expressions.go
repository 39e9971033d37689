package interpreter

import (
	"math/big"
	"strings"

	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/runtime"
)

func (i *Interpreter) evaluateExpression(node ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.StringLiteral:
		return runtime.StringValue{Val: n.Value}, nil
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: n.Value}, nil
	case *ast.NilLiteral:
		return runtime.NilValue{}, nil
	case *ast.IntegerLiteral:
		return runtime.IntegerValue{Val: new(big.Int).Set(n.Value)}, nil
	case *ast.FloatLiteral:
		return runtime.FloatValue{Val: n.Value}, nil
	case *ast.ArrayLiteral:
		values := make([]runtime.Value, 0, len(n.Elements))
		for _, el := range n.Elements {
			val, err := i.evaluateExpression(el, env)
			if err != nil {
				return nil, err
			}
			values = append(values, val)
		}
		return &runtime.ArrayValue{Elements: values}, nil
	case *ast.MapLiteral:
		return i.evaluateMapLiteral(n, env)
	case *ast.StringInterpolation:
		return i.evaluateInterpolation(n, env)
	case *ast.RangeExpression:
		return i.evaluateRangeExpression(n, env)
	case *ast.Identifier:
		return env.Get(n.Name)
	case *ast.UnaryExpression:
		return i.evaluateUnaryExpression(n, env)
	case *ast.BinaryExpression:
		return i.evaluateBinaryExpression(n, env)
	case *ast.AssignmentExpression:
		return i.evaluateAssignment(n, env)
	case *ast.FunctionCall:
		return i.evaluateFunctionCall(n, env)
	case *ast.MemberAccessExpression:
		return i.evaluateMemberAccess(n, env)
	case *ast.IndexExpression:
		return i.evaluateIndexRead(n, env)
	case *ast.StructLiteral:
		return i.evaluateStructLiteral(n, env)
	case *ast.BlockExpression:
		return i.evaluateBlock(n, env)
	case *ast.IfExpression:
		return i.evaluateIfExpression(n, env)
	case *ast.MatchExpression:
		return i.evaluateMatchExpression(n, env)
	case *ast.PropagationExpression:
		return i.evaluatePropagation(n, env)
	case *ast.OldExpression:
		return i.evaluateOldExpression(n)
	default:
		return nil, runtime.Errorf(runtime.RawError, "unsupported expression type: %s", n.NodeType())
	}
}

func (i *Interpreter) evaluateMapLiteral(lit *ast.MapLiteral, env *runtime.Environment) (runtime.Value, error) {
	out := runtime.NewMapValue()
	for _, entry := range lit.Entries {
		key, err := i.evaluateExpression(entry.Key, env)
		if err != nil {
			return nil, err
		}
		value, err := i.evaluateExpression(entry.Value, env)
		if err != nil {
			return nil, err
		}
		repr, err := mapKeyRepr(key)
		if err != nil {
			return nil, err
		}
		out.Set(key, repr, value)
	}
	return out, nil
}

// mapKeyRepr produces the canonical key for a map entry; only scalar keys
// are hashable.
func mapKeyRepr(key runtime.Value) (string, error) {
	switch key.(type) {
	case runtime.StringValue, runtime.IntegerValue, runtime.FloatValue, runtime.BoolValue, runtime.NilValue:
		return Stringify(key), nil
	default:
		return "", runtime.Errorf(runtime.TypeMismatch, "%s is not usable as a map key", key.Kind())
	}
}

func (i *Interpreter) evaluateInterpolation(interp *ast.StringInterpolation, env *runtime.Environment) (runtime.Value, error) {
	var out strings.Builder
	for _, part := range interp.Parts {
		val, err := i.evaluateExpression(part, env)
		if err != nil {
			return nil, err
		}
		out.WriteString(i.displayString(val))
	}
	return runtime.StringValue{Val: out.String()}, nil
}

func (i *Interpreter) evaluateRangeExpression(expr *ast.RangeExpression, env *runtime.Environment) (runtime.Value, error) {
	start, err := i.evaluateExpression(expr.Start, env)
	if err != nil {
		return nil, err
	}
	end, err := i.evaluateExpression(expr.End, env)
	if err != nil {
		return nil, err
	}
	startInt, ok := start.(runtime.IntegerValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "range bounds must be integers, got %s", start.Kind())
	}
	endInt, ok := end.(runtime.IntegerValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "range bounds must be integers, got %s", end.Kind())
	}
	return runtime.RangeValue{Start: startInt.Val, End: endInt.Val, Inclusive: expr.Inclusive}, nil
}

func (i *Interpreter) evaluateUnaryExpression(expr *ast.UnaryExpression, env *runtime.Environment) (runtime.Value, error) {
	operand, err := i.evaluateExpression(expr.Operand, env)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case "!":
		return runtime.BoolValue{Val: !runtime.Truthy(operand)}, nil
	case "-":
		switch v := operand.(type) {
		case runtime.IntegerValue:
			return runtime.IntegerValue{Val: new(big.Int).Neg(v.Val)}, nil
		case runtime.FloatValue:
			return runtime.FloatValue{Val: -v.Val}, nil
		}
		return nil, runtime.Errorf(runtime.TypeMismatch, "cannot negate %s", operand.Kind())
	}
	return nil, runtime.Errorf(runtime.RawError, "unsupported unary operator %s", expr.Operator)
}

func (i *Interpreter) evaluateBinaryExpression(expr *ast.BinaryExpression, env *runtime.Environment) (runtime.Value, error) {
	// Short-circuit forms evaluate the right side lazily.
	if expr.Operator == "&&" || expr.Operator == "||" {
		left, err := i.evaluateExpression(expr.Left, env)
		if err != nil {
			return nil, err
		}
		truthy := runtime.Truthy(left)
		if expr.Operator == "&&" && !truthy {
			return runtime.BoolValue{Val: false}, nil
		}
		if expr.Operator == "||" && truthy {
			return runtime.BoolValue{Val: true}, nil
		}
		right, err := i.evaluateExpression(expr.Right, env)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: runtime.Truthy(right)}, nil
	}

	left, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	case "==":
		return runtime.BoolValue{Val: valuesEqual(left, right)}, nil
	case "!=":
		return runtime.BoolValue{Val: !valuesEqual(left, right)}, nil
	case "<", "<=", ">", ">=":
		return compareValues(expr.Operator, left, right)
	case "+", "-", "*", "/", "%":
		return arithmetic(expr.Operator, left, right)
	}
	return nil, runtime.Errorf(runtime.RawError, "unsupported binary operator %s", expr.Operator)
}

func arithmetic(op string, left, right runtime.Value) (runtime.Value, error) {
	switch lv := left.(type) {
	case runtime.IntegerValue:
		rv, ok := right.(runtime.IntegerValue)
		if !ok {
			return nil, runtime.Errorf(runtime.TypeMismatch, "cannot apply '%s' to integer and %s", op, right.Kind())
		}
		result := new(big.Int)
		switch op {
		case "+":
			result.Add(lv.Val, rv.Val)
		case "-":
			result.Sub(lv.Val, rv.Val)
		case "*":
			result.Mul(lv.Val, rv.Val)
		case "/":
			if rv.Val.Sign() == 0 {
				return nil, runtime.NewError(runtime.DivisionByZero, "integer division by zero")
			}
			result.Quo(lv.Val, rv.Val)
		case "%":
			if rv.Val.Sign() == 0 {
				return nil, runtime.NewError(runtime.DivisionByZero, "integer modulo by zero")
			}
			result.Rem(lv.Val, rv.Val)
		}
		return runtime.IntegerValue{Val: result}, nil
	case runtime.FloatValue:
		rv, ok := right.(runtime.FloatValue)
		if !ok {
			return nil, runtime.Errorf(runtime.TypeMismatch, "cannot apply '%s' to float and %s", op, right.Kind())
		}
		switch op {
		case "+":
			return runtime.FloatValue{Val: lv.Val + rv.Val}, nil
		case "-":
			return runtime.FloatValue{Val: lv.Val - rv.Val}, nil
		case "*":
			return runtime.FloatValue{Val: lv.Val * rv.Val}, nil
		case "/":
			if rv.Val == 0 {
				return nil, runtime.NewError(runtime.DivisionByZero, "float division by zero")
			}
			return runtime.FloatValue{Val: lv.Val / rv.Val}, nil
		case "%":
			return nil, runtime.Errorf(runtime.TypeMismatch, "'%%' is not defined for floats")
		}
	case runtime.StringValue:
		if op == "+" {
			rv, ok := right.(runtime.StringValue)
			if !ok {
				return nil, runtime.Errorf(runtime.TypeMismatch, "cannot concatenate string and %s", right.Kind())
			}
			return runtime.StringValue{Val: lv.Val + rv.Val}, nil
		}
	}
	return nil, runtime.Errorf(runtime.TypeMismatch, "cannot apply '%s' to %s", op, left.Kind())
}

func compareValues(op string, left, right runtime.Value) (runtime.Value, error) {
	var cmp int
	switch lv := left.(type) {
	case runtime.IntegerValue:
		rv, ok := right.(runtime.IntegerValue)
		if !ok {
			return nil, runtime.Errorf(runtime.TypeMismatch, "cannot compare integer with %s", right.Kind())
		}
		cmp = lv.Val.Cmp(rv.Val)
	case runtime.FloatValue:
		rv, ok := right.(runtime.FloatValue)
		if !ok {
			return nil, runtime.Errorf(runtime.TypeMismatch, "cannot compare float with %s", right.Kind())
		}
		switch {
		case lv.Val < rv.Val:
			cmp = -1
		case lv.Val > rv.Val:
			cmp = 1
		}
	case runtime.StringValue:
		rv, ok := right.(runtime.StringValue)
		if !ok {
			return nil, runtime.Errorf(runtime.TypeMismatch, "cannot compare string with %s", right.Kind())
		}
		cmp = strings.Compare(lv.Val, rv.Val)
	default:
		return nil, runtime.Errorf(runtime.TypeMismatch, "%s values are not ordered", left.Kind())
	}
	switch op {
	case "<":
		return runtime.BoolValue{Val: cmp < 0}, nil
	case "<=":
		return runtime.BoolValue{Val: cmp <= 0}, nil
	case ">":
		return runtime.BoolValue{Val: cmp > 0}, nil
	default:
		return runtime.BoolValue{Val: cmp >= 0}, nil
	}
}

// valuesEqual is structural equality: scalars by value, collections and
// instances element by element.
func valuesEqual(left, right runtime.Value) bool {
	switch lv := left.(type) {
	case runtime.NilValue:
		_, ok := right.(runtime.NilValue)
		return ok
	case runtime.BoolValue:
		rv, ok := right.(runtime.BoolValue)
		return ok && lv.Val == rv.Val
	case runtime.IntegerValue:
		rv, ok := right.(runtime.IntegerValue)
		return ok && lv.Val.Cmp(rv.Val) == 0
	case runtime.FloatValue:
		rv, ok := right.(runtime.FloatValue)
		return ok && lv.Val == rv.Val
	case runtime.StringValue:
		rv, ok := right.(runtime.StringValue)
		return ok && lv.Val == rv.Val
	case runtime.RangeValue:
		rv, ok := right.(runtime.RangeValue)
		return ok && lv.Inclusive == rv.Inclusive && lv.Start.Cmp(rv.Start) == 0 && lv.End.Cmp(rv.End) == 0
	case *runtime.ArrayValue:
		rv, ok := right.(*runtime.ArrayValue)
		if !ok || len(lv.Elements) != len(rv.Elements) {
			return false
		}
		for idx := range lv.Elements {
			if !valuesEqual(lv.Elements[idx], rv.Elements[idx]) {
				return false
			}
		}
		return true
	case *runtime.MapValue:
		rv, ok := right.(*runtime.MapValue)
		if !ok || lv.Len() != rv.Len() {
			return false
		}
		it := lv.Entries.Iterator()
		for it.Next() {
			other, found := rv.Get(it.Key().(string))
			if !found || !valuesEqual(it.Value().(runtime.Value), other) {
				return false
			}
		}
		return true
	case *runtime.StructInstanceValue:
		rv, ok := right.(*runtime.StructInstanceValue)
		if !ok || lv.Definition.Node.ID.Name != rv.Definition.Node.ID.Name || len(lv.Fields) != len(rv.Fields) {
			return false
		}
		for name, val := range lv.Fields {
			other, found := rv.Fields[name]
			if !found || !valuesEqual(val, other) {
				return false
			}
		}
		return true
	case *runtime.EnumInstanceValue:
		rv, ok := right.(*runtime.EnumInstanceValue)
		if !ok || lv.VariantName() != rv.VariantName() || len(lv.Payload) != len(rv.Payload) {
			return false
		}
		for idx := range lv.Payload {
			if !valuesEqual(lv.Payload[idx], rv.Payload[idx]) {
				return false
			}
		}
		return true
	}
	return left == right
}

// evaluateAssignment evaluates the target's object and index expressions
// exactly once, so a compound write like `f().x += 1` runs f's side
// effects a single time.
func (i *Interpreter) evaluateAssignment(expr *ast.AssignmentExpression, env *runtime.Environment) (runtime.Value, error) {
	compound := expr.Operator != ast.AssignmentDeclare && expr.Operator != ast.AssignmentAssign

	switch target := expr.Target.(type) {
	case *ast.Identifier:
		value, err := i.evaluateExpression(expr.Value, env)
		if err != nil {
			return nil, err
		}
		if compound {
			current, err := env.Get(target.Name)
			if err != nil {
				return nil, err
			}
			if value, err = arithmetic(compoundOp(expr.Operator), current, value); err != nil {
				return nil, err
			}
		}
		if expr.Operator == ast.AssignmentDeclare {
			env.Define(target.Name, value)
			return value, nil
		}
		if err := env.Assign(target.Name, value); err != nil {
			return nil, err
		}
		return value, nil
	case *ast.MemberAccessExpression:
		object, err := i.evaluateExpression(target.Object, env)
		if err != nil {
			return nil, err
		}
		value, err := i.evaluateExpression(expr.Value, env)
		if err != nil {
			return nil, err
		}
		if compound {
			current, err := readField(object, target.Member.Name)
			if err != nil {
				return nil, err
			}
			if value, err = arithmetic(compoundOp(expr.Operator), current, value); err != nil {
				return nil, err
			}
		}
		return i.writeField(object, target.Member.Name, value)
	case *ast.IndexExpression:
		object, err := i.evaluateExpression(target.Object, env)
		if err != nil {
			return nil, err
		}
		index, err := i.evaluateExpression(target.Index, env)
		if err != nil {
			return nil, err
		}
		value, err := i.evaluateExpression(expr.Value, env)
		if err != nil {
			return nil, err
		}
		if compound {
			current, err := indexRead(object, index)
			if err != nil {
				return nil, err
			}
			if value, err = arithmetic(compoundOp(expr.Operator), current, value); err != nil {
				return nil, err
			}
		}
		return indexWrite(object, index, value)
	}
	return nil, runtime.Errorf(runtime.TypeMismatch, "invalid assignment target %s", expr.Target.NodeType())
}

func compoundOp(op ast.AssignmentOperator) string {
	switch op {
	case ast.AssignmentAdd:
		return "+"
	case ast.AssignmentSub:
		return "-"
	case ast.AssignmentMul:
		return "*"
	case ast.AssignmentDiv:
		return "/"
	default:
		return "%"
	}
}

// writeField mutates a struct field and re-checks the struct's invariants.
func (i *Interpreter) writeField(object runtime.Value, field string, value runtime.Value) (runtime.Value, error) {
	inst, ok := object.(*runtime.StructInstanceValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "cannot assign field '%s' on %s", field, object.Kind())
	}
	if _, exists := inst.Fields[field]; !exists {
		return nil, runtime.Errorf(runtime.UndefinedName, "%s has no field '%s'", inst.Definition.Node.ID.Name, field)
	}
	previous := inst.Fields[field]
	inst.Fields[field] = value
	if err := i.checkInvariants(inst); err != nil {
		inst.Fields[field] = previous
		return nil, err
	}
	return value, nil
}

// readField is the read half of a direct field access, used by compound
// field assignment after the object expression already ran.
func readField(object runtime.Value, field string) (runtime.Value, error) {
	inst, ok := object.(*runtime.StructInstanceValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "cannot read field '%s' on %s", field, object.Kind())
	}
	val, ok := inst.Fields[field]
	if !ok {
		return nil, runtime.Errorf(runtime.UndefinedName, "%s has no field '%s'", inst.Definition.Node.ID.Name, field)
	}
	return val, nil
}

func (i *Interpreter) evaluateIndexRead(expr *ast.IndexExpression, env *runtime.Environment) (runtime.Value, error) {
	object, err := i.evaluateExpression(expr.Object, env)
	if err != nil {
		return nil, err
	}
	index, err := i.evaluateExpression(expr.Index, env)
	if err != nil {
		return nil, err
	}
	return indexRead(object, index)
}

func indexRead(object, index runtime.Value) (runtime.Value, error) {
	switch obj := object.(type) {
	case *runtime.ArrayValue:
		idx, err := arrayIndex(index, len(obj.Elements))
		if err != nil {
			return nil, err
		}
		return obj.Elements[idx], nil
	case *runtime.MapValue:
		repr, err := mapKeyRepr(index)
		if err != nil {
			return nil, err
		}
		if val, ok := obj.Get(repr); ok {
			return val, nil
		}
		return runtime.NilValue{}, nil
	case runtime.StringValue:
		runes := []rune(obj.Val)
		idx, err := arrayIndex(index, len(runes))
		if err != nil {
			return nil, err
		}
		return runtime.StringValue{Val: string(runes[idx])}, nil
	}
	return nil, runtime.Errorf(runtime.TypeMismatch, "%s is not indexable", object.Kind())
}

func indexWrite(object, index, value runtime.Value) (runtime.Value, error) {
	switch obj := object.(type) {
	case *runtime.ArrayValue:
		idx, err := arrayIndex(index, len(obj.Elements))
		if err != nil {
			return nil, err
		}
		obj.Elements[idx] = value
		return value, nil
	case *runtime.MapValue:
		repr, err := mapKeyRepr(index)
		if err != nil {
			return nil, err
		}
		obj.Set(index, repr, value)
		return value, nil
	}
	return nil, runtime.Errorf(runtime.TypeMismatch, "%s does not support index assignment", object.Kind())
}

func arrayIndex(index runtime.Value, length int) (int, error) {
	intVal, ok := index.(runtime.IntegerValue)
	if !ok {
		return 0, runtime.Errorf(runtime.TypeMismatch, "index must be an integer, got %s", index.Kind())
	}
	if !intVal.Val.IsInt64() {
		return 0, runtime.Errorf(runtime.TypeMismatch, "index out of range")
	}
	idx := int(intVal.Val.Int64())
	if idx < 0 || idx >= length {
		return 0, runtime.Errorf(runtime.TypeMismatch, "index %d out of range (length %d)", idx, length)
	}
	return idx, nil
}

func (i *Interpreter) evaluateStructLiteral(lit *ast.StructLiteral, env *runtime.Environment) (runtime.Value, error) {
	defVal, err := env.Get(lit.StructType.Name)
	if err != nil {
		return nil, err
	}
	def, ok := defVal.(runtime.StructDefinitionValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "'%s' is not a struct", lit.StructType.Name)
	}

	declared := make(map[string]bool, len(def.Node.Fields))
	for _, field := range def.Node.Fields {
		declared[field.Name.Name] = true
	}
	fields := make(map[string]runtime.Value, len(lit.Fields))
	for _, init := range lit.Fields {
		name := init.Name.Name
		if !declared[name] {
			return nil, runtime.Errorf(runtime.UndefinedName, "%s has no field '%s'", def.Node.ID.Name, name)
		}
		val, err := i.evaluateExpression(init.Value, env)
		if err != nil {
			return nil, err
		}
		fields[name] = val
	}
	for _, field := range def.Node.Fields {
		if _, set := fields[field.Name.Name]; !set {
			return nil, runtime.Errorf(runtime.TypeMismatch,
				"missing field '%s' in %s literal", field.Name.Name, def.Node.ID.Name)
		}
	}

	inst := &runtime.StructInstanceValue{Definition: &def, Fields: fields}
	if err := i.checkInvariants(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (i *Interpreter) evaluateIfExpression(expr *ast.IfExpression, env *runtime.Environment) (runtime.Value, error) {
	cond, err := i.evaluateExpression(expr.Condition, env)
	if err != nil {
		return nil, err
	}
	if runtime.Truthy(cond) {
		return i.evaluateBlock(expr.Then, env)
	}
	if expr.Else != nil {
		return i.evaluateExpression(expr.Else, env)
	}
	return runtime.NilValue{}, nil
}

// evaluatePropagation implements postfix `?`: Some/Ok unwrap to their
// payload; None/Err return early from the enclosing function carrying the
// value unchanged.
func (i *Interpreter) evaluatePropagation(expr *ast.PropagationExpression, env *runtime.Environment) (runtime.Value, error) {
	val, err := i.evaluateExpression(expr.Expression, env)
	if err != nil {
		return nil, err
	}
	inst, ok := val.(*runtime.EnumInstanceValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "'?' expects an Option or Result value, got %s", val.Kind())
	}
	switch inst.VariantName() {
	case "Some", "Ok":
		if len(inst.Payload) == 0 {
			return runtime.NilValue{}, nil
		}
		return inst.Payload[0], nil
	case "None", "Err":
		return nil, returnSignal{value: inst, propagated: true}
	}
	return nil, runtime.Errorf(runtime.TypeMismatch, "'?' cannot propagate variant %s", inst.VariantName())
}

// evaluateOldExpression resolves a pre-state snapshot. It is only legal
// while a postcondition is being evaluated; the frame's snapshot table was
// filled before the body ran.
func (i *Interpreter) evaluateOldExpression(expr *ast.OldExpression) (runtime.Value, error) {
	frame := i.currentFrame()
	if frame == nil || frame.snapshots == nil || !frame.inEnsures {
		return nil, runtime.Errorf(runtime.RawError, "old(...) is only valid inside an ensures clause")
	}
	val, ok := frame.snapshots[expr.Source]
	if !ok {
		return nil, runtime.Errorf(runtime.RawError, "no pre-state snapshot for old(%s)", expr.Source)
	}
	return val, nil
}
