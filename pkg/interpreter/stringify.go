package interpreter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/oath-lang/oath/pkg/runtime"
)

// Stringify renders a value for display: interpolation, print natives and
// diagnostics all go through here. Strings nested inside collections are
// quoted; a top-level string is not (see displayString).
func Stringify(v runtime.Value) string {
	switch val := v.(type) {
	case runtime.NilValue:
		return "nil"
	case runtime.BoolValue:
		return strconv.FormatBool(val.Val)
	case runtime.IntegerValue:
		return val.Val.String()
	case runtime.FloatValue:
		return strconv.FormatFloat(val.Val, 'g', -1, 64)
	case runtime.StringValue:
		return strconv.Quote(val.Val)
	case runtime.RangeValue:
		op := ".."
		if val.Inclusive {
			op = "..="
		}
		return val.Start.String() + op + val.End.String()
	case *runtime.ArrayValue:
		parts := make([]string, len(val.Elements))
		for idx, el := range val.Elements {
			parts[idx] = Stringify(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *runtime.MapValue:
		var parts []string
		for _, key := range val.Keys() {
			repr, _ := mapKeyRepr(key)
			entry, _ := val.Get(repr)
			parts = append(parts, Stringify(key)+": "+Stringify(entry))
		}
		return "#{" + strings.Join(parts, ", ") + "}"
	case *runtime.StructInstanceValue:
		names := make([]string, 0, len(val.Fields))
		for name := range val.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for idx, name := range names {
			parts[idx] = name + ": " + Stringify(val.Fields[name])
		}
		return val.Definition.Node.ID.Name + " { " + strings.Join(parts, ", ") + " }"
	case *runtime.EnumInstanceValue:
		if len(val.Payload) == 0 {
			return val.VariantName()
		}
		parts := make([]string, len(val.Payload))
		for idx, p := range val.Payload {
			parts[idx] = Stringify(p)
		}
		return val.VariantName() + "(" + strings.Join(parts, ", ") + ")"
	case runtime.EnumVariantValue:
		return val.Variant.Name.Name
	case *runtime.FunctionValue:
		if val.Declaration.ID != nil {
			return "<fn " + val.Declaration.ID.Name + ">"
		}
		return "<fn>"
	case runtime.NativeFunctionValue:
		return "<native " + val.Name + ">"
	case runtime.BoundMethodValue:
		return "<bound " + Stringify(val.Method) + ">"
	case runtime.StructDefinitionValue:
		return "<struct " + val.Node.ID.Name + ">"
	case runtime.EnumDefinitionValue:
		return "<enum " + val.Node.ID.Name + ">"
	case runtime.TraitDefinitionValue:
		return "<trait " + val.Node.ID.Name + ">"
	case runtime.PackageValue:
		return "<module " + val.Path + ">"
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}

// Display is Stringify with top-level strings unquoted, the form
// interpolation and print use.
func Display(v runtime.Value) string {
	if s, ok := v.(runtime.StringValue); ok {
		return s.Val
	}
	return Stringify(v)
}

func (i *Interpreter) displayString(v runtime.Value) string {
	return Display(v)
}
