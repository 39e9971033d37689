package runtime

import "math/big"

// DeepCopy clones a value so that later mutations of the original are not
// visible through the copy. Scalars are immutable and returned as-is;
// arrays, maps, struct instances and enum payloads are copied recursively.
// Functions and definitions are shared: they are not mutable data.
func DeepCopy(v Value) Value {
	switch val := v.(type) {
	case *ArrayValue:
		elems := make([]Value, len(val.Elements))
		for i, e := range val.Elements {
			elems[i] = DeepCopy(e)
		}
		return &ArrayValue{Elements: elems}
	case *MapValue:
		out := NewMapValue()
		it := val.Entries.Iterator()
		for it.Next() {
			repr := it.Key().(string)
			origKey, _ := val.Origin.Get(repr)
			out.Set(origKey.(Value), repr, DeepCopy(it.Value().(Value)))
		}
		return out
	case *StructInstanceValue:
		fields := make(map[string]Value, len(val.Fields))
		for name, f := range val.Fields {
			fields[name] = DeepCopy(f)
		}
		return &StructInstanceValue{Definition: val.Definition, Fields: fields}
	case *EnumInstanceValue:
		payload := make([]Value, len(val.Payload))
		for i, p := range val.Payload {
			payload[i] = DeepCopy(p)
		}
		return &EnumInstanceValue{Enum: val.Enum, Variant: val.Variant, Payload: payload}
	case IntegerValue:
		return IntegerValue{Val: new(big.Int).Set(val.Val)}
	default:
		return v
	}
}
