package runtime

import "github.com/mihaimaganu17/malis/ast"

// Function is a user-defined function or method value: a reference to
// its declaration plus the environment it closed over at definition
// time. IsInitializer marks `init` methods, which always return `this`
// regardless of any `return` inside them.
type Function struct {
	Declaration   *ast.FunctionStmt
	Closure       *Environment
	IsInitializer bool
}

// Bind returns a new Function sharing this one's declaration but with a
// closure extended by `this = instance`, per spec.md's bound-method rule.
func (f *Function) Bind(instance *Instance) *Function {
	env := NewEnvironment(f.Closure)
	env.Define("this", Value{Kind: KindInstance, Instance: instance})
	return &Function{Declaration: f.Declaration, Closure: env, IsInitializer: f.IsInitializer}
}

// NativeFn is a Go-implemented global such as clock().
type NativeFn struct {
	Name  string
	Arity int
	Fn    func(args []Value) (Value, error)
}

// Class is a runtime class value: a name, an optional superclass, and
// its own (non-inherited) methods. Method lookup walks the superclass
// chain; inheritance never copies methods into the subclass.
type Class struct {
	Name       string
	Superclass *Class
	Methods    map[string]*Function
}

// FindMethod looks up name on this class, then its superclass chain.
func (c *Class) FindMethod(name string) (*Function, bool) {
	if m, ok := c.Methods[name]; ok {
		return m, true
	}
	if c.Superclass != nil {
		return c.Superclass.FindMethod(name)
	}
	return nil, false
}

// Instance is an object produced by calling a Class value; it carries a
// per-instance field map.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: make(map[string]Value)}
}

func (i *Instance) Get(name string) (Value, bool) {
	if v, ok := i.Fields[name]; ok {
		return v, true
	}
	if m, ok := i.Class.FindMethod(name); ok {
		return Value{Kind: KindFunction, Function: m.Bind(i)}, true
	}
	return Nil, false
}

func (i *Instance) Set(name string, value Value) {
	i.Fields[name] = value
}
