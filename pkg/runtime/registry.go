package runtime

import (
	"fmt"
	"sort"
)

// Registry is the seam between the evaluator and host-provided builtins.
// Natives are keyed by (module path, name); the evaluator materializes a
// module's natives as a PackageValue when the module is imported, and the
// root module's natives are predefined in the global scope.
type Registry struct {
	natives map[string]map[string]NativeFunctionValue
}

func NewRegistry() *Registry {
	return &Registry{natives: make(map[string]map[string]NativeFunctionValue)}
}

// Register installs a native under (module, name). Arity < 0 means
// variadic; otherwise calls with a different argument count fail with
// ArityMismatch before Impl runs.
func (r *Registry) Register(module, name string, arity int, impl NativeFunc) {
	mod, ok := r.natives[module]
	if !ok {
		mod = make(map[string]NativeFunctionValue)
		r.natives[module] = mod
	}
	mod[name] = NativeFunctionValue{Module: module, Name: name, Arity: arity, Impl: impl}
}

// Lookup resolves one native.
func (r *Registry) Lookup(module, name string) (NativeFunctionValue, bool) {
	mod, ok := r.natives[module]
	if !ok {
		return NativeFunctionValue{}, false
	}
	fn, ok := mod[name]
	return fn, ok
}

// Module returns all natives registered under a module path.
func (r *Registry) Module(module string) (map[string]NativeFunctionValue, bool) {
	mod, ok := r.natives[module]
	return mod, ok
}

// Paths lists every registered module path, sorted.
func (r *Registry) Paths() []string {
	out := make([]string, 0, len(r.natives))
	for module := range r.natives {
		out = append(out, module)
	}
	sort.Strings(out)
	return out
}

// Call invokes a native, enforcing declared arity.
func (fn NativeFunctionValue) Call(ctx *NativeCallContext, args []Value) (Value, error) {
	if fn.Arity >= 0 && len(args) != fn.Arity {
		return nil, Errorf(ArityMismatch, "%s expects %d arguments, got %d", fn.qualified(), fn.Arity, len(args))
	}
	if fn.Impl == nil {
		return nil, Errorf(RawError, "native %s has no implementation", fn.qualified())
	}
	return fn.Impl(ctx, args)
}

func (fn NativeFunctionValue) qualified() string {
	if fn.Module == "" {
		return fn.Name
	}
	return fmt.Sprintf("%s.%s", fn.Module, fn.Name)
}
