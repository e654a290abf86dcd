// Package interpreter implements the tree-walking evaluator: it drives
// expressions, statements, calls, returns, and class/instance machinery
// over the environment chain the resolver's side table makes exact.
// Grounded on the teacher's interpreter/interpreter.go (Interpreter
// struct holding a global environment plus a native registry, and a
// dedicated control-flow signal distinct from the error interface) and
// on original_source/src/interpreter/{function,object,malis_class}.rs
// for the class/instance/bound-method layer.
package interpreter

import (
	"fmt"
	"io"

	"github.com/mihaimaganu17/malis/ast"
	"github.com/mihaimaganu17/malis/resolver"
	"github.com/mihaimaganu17/malis/runtime"
	"github.com/mihaimaganu17/malis/token"
)

// RuntimeError is reported for undefined variables, wrong operand types,
// wrong arity, calling a non-callable, property access on a non-instance,
// and undefined properties -- every runtime condition spec.md §7 names.
// It is a plain error value, never a panic.
type RuntimeError struct {
	Pos     token.Position
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Pos.Line, e.Message)
}

// signal is the tagged, non-error control-flow marker `return` uses to
// unwind out of a function body. It is observed only by callFunction and
// must never be mistaken for a RuntimeError.
type signal int

const (
	sigNone signal = iota
	sigReturn
)

// maxCallDepth guards against unbounded Go-stack recursion from a
// misbehaving malis program (e.g. a non-terminating recursive function).
const maxCallDepth = 1024

type Interpreter struct {
	globals   *runtime.Environment
	env       *runtime.Environment
	sideTable resolver.SideTable
	out       io.Writer
	depth     int
}

func New(out io.Writer) *Interpreter {
	globals := runtime.NewEnvironment(nil)
	return &Interpreter{globals: globals, env: globals, out: out}
}

func (interp *Interpreter) Globals() *runtime.Environment { return interp.globals }

// SetSideTable merges newly resolved entries into the interpreter's side
// table rather than replacing it, so a long-lived interpreter (the REPL
// reuses one across lines) keeps depths resolved for earlier chunks --
// a closure's body resolved on one line must still resolve correctly
// when that closure is called from a later one.
func (interp *Interpreter) SetSideTable(t resolver.SideTable) {
	if interp.sideTable == nil {
		interp.sideTable = make(resolver.SideTable, len(t))
	}
	for id, depth := range t {
		interp.sideTable[id] = depth
	}
}

func (interp *Interpreter) runtimeErr(pos token.Position, format string, args ...interface{}) error {
	return &RuntimeError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Interpret executes a program's top-level declarations in order. It
// halts on the first runtime error, per spec.md §7.
func (interp *Interpreter) Interpret(stmts []ast.Stmt) error {
	_, _, err := interp.execStmts(stmts)
	return err
}

// EvalTopLevel evaluates a single expression against the interpreter's
// current global environment. The REPL uses it to echo the value of a
// bare expression line without requiring an explicit `print`.
func (interp *Interpreter) EvalTopLevel(e ast.Expr) (runtime.Value, error) {
	return interp.evaluate(e)
}

// ---------- statements ----------

func (interp *Interpreter) execStmts(stmts []ast.Stmt) (signal, runtime.Value, error) {
	for _, s := range stmts {
		sig, val, err := interp.execStmt(s)
		if err != nil {
			return sigNone, runtime.Nil, err
		}
		if sig != sigNone {
			return sig, val, nil
		}
	}
	return sigNone, runtime.Nil, nil
}

func (interp *Interpreter) execStmt(s ast.Stmt) (signal, runtime.Value, error) {
	switch s := s.(type) {
	case *ast.ExpressionStmt:
		_, err := interp.evaluate(s.Expr)
		return sigNone, runtime.Nil, err

	case *ast.PrintStmt:
		v, err := interp.evaluate(s.Expr)
		if err != nil {
			return sigNone, runtime.Nil, err
		}
		fmt.Fprintln(interp.out, v.String())
		return sigNone, runtime.Nil, nil

	case *ast.VarStmt:
		val := runtime.Nil
		if s.Init != nil {
			v, err := interp.evaluate(s.Init)
			if err != nil {
				return sigNone, runtime.Nil, err
			}
			val = v
		}
		interp.env.Define(s.Name.Lexeme, val)
		return sigNone, runtime.Nil, nil

	case *ast.BlockStmt:
		return interp.execBlock(s.Stmts, runtime.NewEnvironment(interp.env))

	case *ast.IfStmt:
		cond, err := interp.evaluate(s.Cond)
		if err != nil {
			return sigNone, runtime.Nil, err
		}
		if cond.Truthy() {
			return interp.execStmt(s.Then)
		}
		if s.Else != nil {
			return interp.execStmt(s.Else)
		}
		return sigNone, runtime.Nil, nil

	case *ast.WhileStmt:
		for {
			cond, err := interp.evaluate(s.Cond)
			if err != nil {
				return sigNone, runtime.Nil, err
			}
			if !cond.Truthy() {
				return sigNone, runtime.Nil, nil
			}
			sig, val, err := interp.execStmt(s.Body)
			if err != nil || sig != sigNone {
				return sig, val, err
			}
		}

	case *ast.FunctionStmt:
		fn := &runtime.Function{Declaration: s, Closure: interp.env, IsInitializer: s.Kind == ast.FunctionKindInitializer}
		interp.env.Define(s.Name.Lexeme, runtime.Value{Kind: runtime.KindFunction, Function: fn})
		return sigNone, runtime.Nil, nil

	case *ast.ReturnStmt:
		val := runtime.Nil
		if s.Value != nil {
			v, err := interp.evaluate(s.Value)
			if err != nil {
				return sigNone, runtime.Nil, err
			}
			val = v
		}
		return sigReturn, val, nil

	case *ast.ClassStmt:
		return sigNone, runtime.Nil, interp.execClassStmt(s)

	default:
		return sigNone, runtime.Nil, interp.runtimeErr(token.Position{}, "unhandled statement type %T", s)
	}
}

func (interp *Interpreter) execBlock(stmts []ast.Stmt, env *runtime.Environment) (signal, runtime.Value, error) {
	previous := interp.env
	interp.env = env
	defer func() { interp.env = previous }()
	return interp.execStmts(stmts)
}

func (interp *Interpreter) execClassStmt(s *ast.ClassStmt) error {
	var superclass *runtime.Class
	if s.Superclass != nil {
		v, err := interp.evaluate(s.Superclass)
		if err != nil {
			return err
		}
		if v.Kind != runtime.KindClass {
			return interp.runtimeErr(s.Superclass.Pos(), "superclass %q is not a class", s.Superclass.Name.Lexeme)
		}
		superclass = v.Class
	}

	interp.env.Define(s.Name.Lexeme, runtime.Nil)

	methodEnv := interp.env
	if superclass != nil {
		methodEnv = runtime.NewEnvironment(interp.env)
		methodEnv.Define("super", runtime.Value{Kind: runtime.KindClass, Class: superclass})
	}

	methods := make(map[string]*runtime.Function, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name.Lexeme] = &runtime.Function{
			Declaration:   m,
			Closure:       methodEnv,
			IsInitializer: m.Kind == ast.FunctionKindInitializer,
		}
	}

	class := &runtime.Class{Name: s.Name.Lexeme, Superclass: superclass, Methods: methods}
	interp.env.Assign(s.Name.Lexeme, runtime.Value{Kind: runtime.KindClass, Class: class})
	return nil
}

// ---------- expressions ----------

func (interp *Interpreter) evaluate(e ast.Expr) (runtime.Value, error) {
	switch e := e.(type) {
	case *ast.Literal:
		return literalValue(e.Value), nil

	case *ast.Grouping:
		return interp.evaluate(e.Expr)

	case *ast.Unary:
		return interp.evalUnary(e)

	case *ast.Binary:
		return interp.evalBinary(e)

	case *ast.Logical:
		return interp.evalLogical(e)

	case *ast.Ternary:
		cond, err := interp.evaluate(e.Cond)
		if err != nil {
			return runtime.Nil, err
		}
		if cond.Truthy() {
			return interp.evaluate(e.Then)
		}
		return interp.evaluate(e.Else)

	case *ast.Comma:
		var result runtime.Value
		for _, sub := range e.Exprs {
			v, err := interp.evaluate(sub)
			if err != nil {
				return runtime.Nil, err
			}
			result = v
		}
		return result, nil

	case *ast.Variable:
		return interp.lookupVariable(e.ID, e.Name.Lexeme, e.Name.Pos)

	case *ast.Assign:
		val, err := interp.evaluate(e.Value)
		if err != nil {
			return runtime.Nil, err
		}
		if depth, ok := interp.sideTable[e.ID]; ok {
			interp.env.AssignAt(depth, e.Name.Lexeme, val)
			return val, nil
		}
		if !interp.globals.Assign(e.Name.Lexeme, val) {
			return runtime.Nil, interp.runtimeErr(e.Name.Pos, "undefined variable %q", e.Name.Lexeme)
		}
		return val, nil

	case *ast.Call:
		return interp.evalCall(e)

	case *ast.Get:
		obj, err := interp.evaluate(e.Object)
		if err != nil {
			return runtime.Nil, err
		}
		if obj.Kind != runtime.KindInstance {
			return runtime.Nil, interp.runtimeErr(e.Name.Pos, "only instances have properties")
		}
		if v, ok := obj.Instance.Get(e.Name.Lexeme); ok {
			return v, nil
		}
		return runtime.Nil, interp.runtimeErr(e.Name.Pos, "undefined property %q", e.Name.Lexeme)

	case *ast.Set:
		obj, err := interp.evaluate(e.Object)
		if err != nil {
			return runtime.Nil, err
		}
		if obj.Kind != runtime.KindInstance {
			return runtime.Nil, interp.runtimeErr(e.Name.Pos, "only instances have fields")
		}
		val, err := interp.evaluate(e.Value)
		if err != nil {
			return runtime.Nil, err
		}
		obj.Instance.Set(e.Name.Lexeme, val)
		return val, nil

	case *ast.This:
		return interp.lookupVariable(e.ID, "this", e.Keyword.Pos)

	case *ast.Super:
		return interp.evalSuper(e)

	default:
		return runtime.Nil, interp.runtimeErr(token.Position{}, "unhandled expression type %T", e)
	}
}

func literalValue(v interface{}) runtime.Value {
	switch v := v.(type) {
	case nil:
		return runtime.Nil
	case bool:
		return runtime.Bool(v)
	case float64:
		return runtime.Num(v)
	case string:
		return runtime.Str(v)
	default:
		return runtime.Nil
	}
}

func (interp *Interpreter) lookupVariable(id ast.ID, name string, pos token.Position) (runtime.Value, error) {
	if depth, ok := interp.sideTable[id]; ok {
		return interp.env.GetAt(depth, name), nil
	}
	if v, ok := interp.globals.Get(name); ok {
		return v, nil
	}
	return runtime.Nil, interp.runtimeErr(pos, "undefined variable %q", name)
}

func (interp *Interpreter) evalUnary(e *ast.Unary) (runtime.Value, error) {
	operand, err := interp.evaluate(e.Operand)
	if err != nil {
		return runtime.Nil, err
	}
	switch e.Op.Type {
	case token.Minus:
		if operand.Kind != runtime.KindNumber {
			return runtime.Nil, interp.runtimeErr(e.Op.Pos, "operand of unary '-' must be a number")
		}
		return runtime.Num(-operand.Number), nil
	case token.Bang:
		return runtime.Bool(!operand.Truthy()), nil
	default:
		return runtime.Nil, interp.runtimeErr(e.Op.Pos, "unknown unary operator %q", e.Op.Lexeme)
	}
}

func (interp *Interpreter) evalLogical(e *ast.Logical) (runtime.Value, error) {
	left, err := interp.evaluate(e.Left)
	if err != nil {
		return runtime.Nil, err
	}
	switch e.Op.Type {
	case token.Or:
		if left.Truthy() {
			return left, nil
		}
	case token.And:
		if !left.Truthy() {
			return left, nil
		}
	}
	return interp.evaluate(e.Right)
}

func (interp *Interpreter) evalBinary(e *ast.Binary) (runtime.Value, error) {
	left, err := interp.evaluate(e.Left)
	if err != nil {
		return runtime.Nil, err
	}
	right, err := interp.evaluate(e.Right)
	if err != nil {
		return runtime.Nil, err
	}

	switch e.Op.Type {
	case token.EqualEqual:
		return runtime.Bool(left.Equals(right)), nil
	case token.BangEqual:
		return runtime.Bool(!left.Equals(right)), nil

	case token.Plus:
		if left.Kind == runtime.KindNumber && right.Kind == runtime.KindNumber {
			return runtime.Num(left.Number + right.Number), nil
		}
		if left.Kind == runtime.KindString && right.Kind == runtime.KindString {
			return runtime.Str(left.Str + right.Str), nil
		}
		return runtime.Nil, interp.runtimeErr(e.Op.Pos, "'+' requires two numbers or two strings")
	case token.Minus:
		n1, n2, err := interp.numberOperands(e.Op.Pos, left, right, "-")
		if err != nil {
			return runtime.Nil, err
		}
		return runtime.Num(n1 - n2), nil
	case token.Star:
		n1, n2, err := interp.numberOperands(e.Op.Pos, left, right, "*")
		if err != nil {
			return runtime.Nil, err
		}
		return runtime.Num(n1 * n2), nil
	case token.Slash:
		n1, n2, err := interp.numberOperands(e.Op.Pos, left, right, "/")
		if err != nil {
			return runtime.Nil, err
		}
		// IEEE float semantics: division by zero yields +-Inf or NaN,
		// not a runtime error (spec.md §4.4 leaves this to the implementer).
		return runtime.Num(n1 / n2), nil

	case token.Less:
		n1, n2, err := interp.numberOperands(e.Op.Pos, left, right, "<")
		if err != nil {
			return runtime.Nil, err
		}
		return runtime.Bool(n1 < n2), nil
	case token.LessEqual:
		n1, n2, err := interp.numberOperands(e.Op.Pos, left, right, "<=")
		if err != nil {
			return runtime.Nil, err
		}
		return runtime.Bool(n1 <= n2), nil
	case token.Greater:
		n1, n2, err := interp.numberOperands(e.Op.Pos, left, right, ">")
		if err != nil {
			return runtime.Nil, err
		}
		return runtime.Bool(n1 > n2), nil
	case token.GreaterEqual:
		n1, n2, err := interp.numberOperands(e.Op.Pos, left, right, ">=")
		if err != nil {
			return runtime.Nil, err
		}
		return runtime.Bool(n1 >= n2), nil

	default:
		return runtime.Nil, interp.runtimeErr(e.Op.Pos, "unknown binary operator %q", e.Op.Lexeme)
	}
}

func (interp *Interpreter) numberOperands(pos token.Position, left, right runtime.Value, op string) (float64, float64, error) {
	if left.Kind != runtime.KindNumber || right.Kind != runtime.KindNumber {
		return 0, 0, interp.runtimeErr(pos, "operands of %q must be numbers", op)
	}
	return left.Number, right.Number, nil
}

func (interp *Interpreter) evalCall(e *ast.Call) (runtime.Value, error) {
	callee, err := interp.evaluate(e.Callee)
	if err != nil {
		return runtime.Nil, err
	}
	args := make([]runtime.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := interp.evaluate(a)
		if err != nil {
			return runtime.Nil, err
		}
		args[i] = v
	}
	return interp.callValue(callee, args, e.Paren.Pos)
}

func (interp *Interpreter) callValue(callee runtime.Value, args []runtime.Value, pos token.Position) (runtime.Value, error) {
	switch callee.Kind {
	case runtime.KindFunction:
		if len(args) != len(callee.Function.Declaration.Params) {
			return runtime.Nil, interp.runtimeErr(pos, "expected %d arguments but got %d", len(callee.Function.Declaration.Params), len(args))
		}
		return interp.callFunction(callee.Function, args, pos)

	case runtime.KindNativeFn:
		if len(args) != callee.Native.Arity {
			return runtime.Nil, interp.runtimeErr(pos, "expected %d arguments but got %d", callee.Native.Arity, len(args))
		}
		v, err := callee.Native.Fn(args)
		if err != nil {
			return runtime.Nil, interp.runtimeErr(pos, "%s", err)
		}
		return v, nil

	case runtime.KindClass:
		return interp.instantiate(callee.Class, args, pos)

	default:
		return runtime.Nil, interp.runtimeErr(pos, "can only call functions and classes")
	}
}

func (interp *Interpreter) instantiate(class *runtime.Class, args []runtime.Value, pos token.Position) (runtime.Value, error) {
	instance := runtime.NewInstance(class)
	if init, ok := class.FindMethod("init"); ok {
		bound := init.Bind(instance)
		if len(args) != len(bound.Declaration.Params) {
			return runtime.Nil, interp.runtimeErr(pos, "expected %d arguments but got %d", len(bound.Declaration.Params), len(args))
		}
		if _, err := interp.callFunction(bound, args, pos); err != nil {
			return runtime.Nil, err
		}
	} else if len(args) != 0 {
		return runtime.Nil, interp.runtimeErr(pos, "expected 0 arguments but got %d", len(args))
	}
	return runtime.Value{Kind: runtime.KindInstance, Instance: instance}, nil
}

// callFunction creates one new environment for the call (closure as
// parent), binds parameters, and executes the body as a block. A
// non-local return propagates via sigReturn and becomes the result;
// absence yields nil. An initializer always returns the instance
// regardless of any `return` inside it.
func (interp *Interpreter) callFunction(fn *runtime.Function, args []runtime.Value, pos token.Position) (runtime.Value, error) {
	if interp.depth >= maxCallDepth {
		return runtime.Nil, interp.runtimeErr(pos, "stack overflow")
	}

	env := runtime.NewEnvironment(fn.Closure)
	for i, param := range fn.Declaration.Params {
		env.Define(param.Lexeme, args[i])
	}

	previous := interp.env
	interp.env = env
	interp.depth++
	sig, val, err := interp.execStmts(fn.Declaration.Body)
	interp.depth--
	interp.env = previous

	if err != nil {
		return runtime.Nil, err
	}
	if fn.IsInitializer {
		return fn.Closure.GetAt(0, "this"), nil
	}
	if sig == sigReturn {
		return val, nil
	}
	return runtime.Nil, nil
}

func (interp *Interpreter) evalSuper(e *ast.Super) (runtime.Value, error) {
	depth, ok := interp.sideTable[e.ID]
	if !ok {
		return runtime.Nil, interp.runtimeErr(e.Keyword.Pos, "'super' used outside of a subclass")
	}
	superVal := interp.env.GetAt(depth, "super")
	instanceVal := interp.env.GetAt(depth-1, "this")

	method, ok := superVal.Class.FindMethod(e.Method.Lexeme)
	if !ok {
		return runtime.Nil, interp.runtimeErr(e.Method.Pos, "undefined property %q", e.Method.Lexeme)
	}
	bound := method.Bind(instanceVal.Instance)
	return runtime.Value{Kind: runtime.KindFunction, Function: bound}, nil
}
