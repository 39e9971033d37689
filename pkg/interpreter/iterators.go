package interpreter

import (
	"math/big"
	"unicode/utf8"

	"github.com/oath-lang/oath/pkg/ast"
	"github.com/oath-lang/oath/pkg/runtime"
)

// evaluateForLoop walks the iterable in its defined order, binding the
// loop pattern freshly for every element so closures capture per-iteration
// values.
func (i *Interpreter) evaluateForLoop(loop *ast.ForLoop, env *runtime.Environment) (runtime.Value, error) {
	iterable, err := i.evaluateExpression(loop.Iterable, env)
	if err != nil {
		return nil, err
	}
	next, err := newIterator(iterable)
	if err != nil {
		return nil, err
	}
	for {
		element, ok := next()
		if !ok {
			return runtime.NilValue{}, nil
		}
		scope := runtime.NewEnvironment(env)
		matched, err := i.matchPattern(loop.Pattern, element, scope)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, runtime.Errorf(runtime.TypeMismatch,
				"loop pattern does not match %s element", element.Kind())
		}
		if _, err := i.evaluateBlock(loop.Body, scope); err != nil {
			switch err.(type) {
			case breakSignal:
				return runtime.NilValue{}, nil
			case continueSignal:
				continue
			default:
				return nil, err
			}
		}
	}
}

// newIterator returns a pull function producing the element sequence for
// each iterable kind: arrays in order, ranges ascending, strings by
// character, maps by key in insertion order. Elements are produced on
// demand, so a loop that exits early never walks the rest of the sequence
// and a huge range costs nothing beyond the elements actually visited.
// A range whose start is not below its bound is empty.
func newIterator(iterable runtime.Value) (func() (runtime.Value, bool), error) {
	switch it := iterable.(type) {
	case *runtime.ArrayValue:
		idx := 0
		return func() (runtime.Value, bool) {
			if idx >= len(it.Elements) {
				return nil, false
			}
			element := it.Elements[idx]
			idx++
			return element, true
		}, nil
	case runtime.RangeValue:
		cursor := new(big.Int).Set(it.Start)
		one := big.NewInt(1)
		return func() (runtime.Value, bool) {
			cmp := cursor.Cmp(it.End)
			if cmp > 0 || (cmp == 0 && !it.Inclusive) {
				return nil, false
			}
			element := runtime.IntegerValue{Val: new(big.Int).Set(cursor)}
			cursor.Add(cursor, one)
			return element, true
		}, nil
	case runtime.StringValue:
		rest := it.Val
		return func() (runtime.Value, bool) {
			if rest == "" {
				return nil, false
			}
			_, size := utf8.DecodeRuneInString(rest)
			element := runtime.StringValue{Val: rest[:size]}
			rest = rest[size:]
			return element, true
		}, nil
	case *runtime.MapValue:
		keys := it.Keys()
		idx := 0
		return func() (runtime.Value, bool) {
			if idx >= len(keys) {
				return nil, false
			}
			key := keys[idx]
			idx++
			return key, true
		}, nil
	}
	return nil, runtime.Errorf(runtime.TypeMismatch, "%s is not iterable", iterable.Kind())
}
