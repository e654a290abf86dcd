// Package builtins registers the language's native functions into a
// global environment. Grounded on the teacher's builtins/register.go
// and builtins/globals.go (RegisterAll + declareFunc pattern), trimmed
// to the single native spec.md names.
package builtins

import (
	"time"

	"github.com/mihaimaganu17/malis/runtime"
)

// RegisterAll installs every native function into env.
func RegisterAll(env *runtime.Environment) {
	declareFunc(env, "clock", 0, nativeClock)
}

func declareFunc(env *runtime.Environment, name string, arity int, fn func(args []runtime.Value) (runtime.Value, error)) {
	env.Define(name, runtime.Value{Kind: runtime.KindNativeFn, Native: &runtime.NativeFn{Name: name, Arity: arity, Fn: fn}})
}

// nativeClock returns the number of seconds since the Unix epoch, as a
// float64 -- the implementer's choice spec.md §4.4 leaves open for
// timing loops and benchmarks.
func nativeClock(args []runtime.Value) (runtime.Value, error) {
	return runtime.Num(float64(time.Now().UnixNano()) / 1e9), nil
}
