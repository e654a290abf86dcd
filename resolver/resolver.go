// Package resolver performs the single static pass spec.md §4.3
// describes: it walks the AST once, binds every variable reference to a
// lexical depth, and diagnoses ill-formed uses of `this`, `super`, and
// `return`. It has no teacher analogue — the teacher's JS interpreter
// resolves names dynamically at call time — so it is grounded on
// original_source/src/resolver.rs's scope-stack design, reimplemented in
// the teacher's error-accumulation idiom.
package resolver

import (
	"github.com/mihaimaganu17/malis/ast"
	"github.com/mihaimaganu17/malis/diagnostics"
	"github.com/mihaimaganu17/malis/token"
)

// SideTable maps a Variable/Assign/This/Super node's ID to the lexical
// depth of its binding. Absence means "global".
type SideTable map[ast.ID]int

type functionKind int

const (
	fnNone functionKind = iota
	fnFunction
	fnMethod
	fnInitializer
)

type classKind int

const (
	classNone classKind = iota
	classClass
	classSubclass
)

// binding tracks whether a name has been declared-but-not-yet-defined,
// for the initializer self-reference check.
type binding struct {
	defined bool
}

type Resolver struct {
	scopes   []map[string]*binding
	currentF functionKind
	currentC classKind
	reporter *diagnostics.Reporter
	sideTable SideTable
}

func New(reporter *diagnostics.Reporter) *Resolver {
	return &Resolver{reporter: reporter, sideTable: SideTable{}}
}

// Resolve walks the program once and returns the node -> depth side
// table consumed by the interpreter. Resolution never executes language
// side effects and is deterministic: running it twice on the same AST
// yields the same table.
func (r *Resolver) Resolve(stmts []ast.Stmt) SideTable {
	r.resolveStmts(stmts)
	return r.sideTable
}

func (r *Resolver) report(pos token.Position, format string, args ...interface{}) {
	r.reporter.Report(diagnostics.Resolve, pos, format, args...)
}

// ---------- scope stack ----------

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, map[string]*binding{})
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) declare(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.scopes[len(r.scopes)-1]
	if _, exists := scope[name.Lexeme]; exists {
		r.report(name.Pos, "already a variable named %q in this scope", name.Lexeme)
	}
	scope[name.Lexeme] = &binding{defined: false}
}

func (r *Resolver) define(name string) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name] = &binding{defined: true}
}

// resolveLocal walks the scope stack outward from the innermost scope; if
// found, it records the distance in the side table. Absence of an entry
// means the interpreter treats the reference as global.
func (r *Resolver) resolveLocal(id ast.ID, name string) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			r.sideTable[id] = len(r.scopes) - 1 - i
			return
		}
	}
}

// ---------- statements ----------

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.resolveStmt(s)
	}
}

func (r *Resolver) resolveStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.ExpressionStmt:
		r.resolveExpr(s.Expr)
	case *ast.PrintStmt:
		r.resolveExpr(s.Expr)
	case *ast.VarStmt:
		r.declare(s.Name)
		if s.Init != nil {
			r.resolveExpr(s.Init)
		}
		r.define(s.Name.Lexeme)
	case *ast.BlockStmt:
		r.beginScope()
		r.resolveStmts(s.Stmts)
		r.endScope()
	case *ast.IfStmt:
		r.resolveExpr(s.Cond)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}
	case *ast.WhileStmt:
		r.resolveExpr(s.Cond)
		r.resolveStmt(s.Body)
	case *ast.FunctionStmt:
		r.declare(s.Name)
		r.define(s.Name.Lexeme)
		r.resolveFunction(s, fnFunction)
	case *ast.ReturnStmt:
		if r.currentF == fnNone {
			r.report(s.Keyword.Pos, "can't return from top-level code")
		}
		if s.Value != nil {
			if r.currentF == fnInitializer {
				r.report(s.Keyword.Pos, "can't return a value from an initializer")
			}
			r.resolveExpr(s.Value)
		}
	case *ast.ClassStmt:
		r.resolveClass(s)
	default:
		panic("resolver: unhandled statement type")
	}
}

func (r *Resolver) resolveFunction(fn *ast.FunctionStmt, kind functionKind) {
	enclosingF := r.currentF
	r.currentF = kind
	defer func() { r.currentF = enclosingF }()

	r.beginScope()
	for _, param := range fn.Params {
		r.declare(param)
		r.define(param.Lexeme)
	}
	r.resolveStmts(fn.Body)
	r.endScope()
}

func (r *Resolver) resolveClass(c *ast.ClassStmt) {
	r.declare(c.Name)
	r.define(c.Name.Lexeme)

	enclosingC := r.currentC
	r.currentC = classClass

	if c.Superclass != nil {
		if c.Superclass.Name.Lexeme == c.Name.Lexeme {
			r.report(c.Superclass.Name.Pos, "a class can't inherit from itself")
		}
		r.currentC = classSubclass
		r.resolveExpr(c.Superclass)
		r.beginScope()
		r.define("super")
	}

	r.beginScope()
	r.define("this")

	for _, method := range c.Methods {
		kind := fnMethod
		if method.Kind == ast.FunctionKindInitializer {
			kind = fnInitializer
		}
		r.resolveFunction(method, kind)
	}

	r.endScope()
	if c.Superclass != nil {
		r.endScope()
	}

	r.currentC = enclosingC
}

// ---------- expressions ----------

func (r *Resolver) resolveExpr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.Literal:
		// nothing to resolve
	case *ast.Grouping:
		r.resolveExpr(e.Expr)
	case *ast.Unary:
		r.resolveExpr(e.Operand)
	case *ast.Binary:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.Logical:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.Ternary:
		r.resolveExpr(e.Cond)
		r.resolveExpr(e.Then)
		r.resolveExpr(e.Else)
	case *ast.Comma:
		for _, sub := range e.Exprs {
			r.resolveExpr(sub)
		}
	case *ast.Variable:
		if len(r.scopes) > 0 {
			if b, ok := r.scopes[len(r.scopes)-1][e.Name.Lexeme]; ok && !b.defined {
				r.report(e.Name.Pos, "can't read local variable %q in its own initializer", e.Name.Lexeme)
			}
		}
		r.resolveLocal(e.ID, e.Name.Lexeme)
	case *ast.Assign:
		r.resolveExpr(e.Value)
		r.resolveLocal(e.ID, e.Name.Lexeme)
	case *ast.Call:
		r.resolveExpr(e.Callee)
		for _, arg := range e.Args {
			r.resolveExpr(arg)
		}
	case *ast.Get:
		r.resolveExpr(e.Object)
	case *ast.Set:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)
	case *ast.This:
		if r.currentC == classNone {
			r.report(e.Keyword.Pos, "can't use 'this' outside of a class")
			return
		}
		r.resolveLocal(e.ID, "this")
	case *ast.Super:
		switch r.currentC {
		case classNone:
			r.report(e.Keyword.Pos, "can't use 'super' outside of a class")
		case classClass:
			r.report(e.Keyword.Pos, "can't use 'super' in a class with no superclass")
		}
		r.resolveLocal(e.ID, "super")
	default:
		panic("resolver: unhandled expression type")
	}
}
