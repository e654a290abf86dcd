package runtime

import (
	"testing"

	"github.com/mihaimaganu17/malis/ast"
	"github.com/mihaimaganu17/malis/token"
)

func methodDecl(name string) *ast.FunctionStmt {
	return &ast.FunctionStmt{Name: token.Token{Lexeme: name}}
}

func TestBindExtendsClosureWithThis(t *testing.T) {
	closure := NewEnvironment(nil)
	fn := &Function{Declaration: methodDecl("speak"), Closure: closure}
	instance := NewInstance(&Class{Name: "Dog"})

	bound := fn.Bind(instance)
	v := bound.Closure.GetAt(0, "this")
	if v.Kind != KindInstance || v.Instance != instance {
		t.Fatalf("expected bound closure to carry 'this' = instance, got %v", v)
	}
	if bound.Closure.outer != closure {
		t.Error("expected the bound closure's parent to be the original closure")
	}
}

func TestFindMethodWalksSuperclassChain(t *testing.T) {
	speak := &Function{Declaration: methodDecl("speak")}
	animal := &Class{Name: "Animal", Methods: map[string]*Function{"speak": speak}}
	dog := &Class{Name: "Dog", Superclass: animal, Methods: map[string]*Function{}}

	m, ok := dog.FindMethod("speak")
	if !ok || m != speak {
		t.Fatalf("expected to find 'speak' via the superclass chain, got %v, ok=%v", m, ok)
	}

	if _, ok := dog.FindMethod("missing"); ok {
		t.Error("expected 'missing' to be absent from the whole chain")
	}
}

func TestSubclassMethodShadowsSuperclassMethod(t *testing.T) {
	superSpeak := &Function{Declaration: methodDecl("speak")}
	subSpeak := &Function{Declaration: methodDecl("speak")}
	animal := &Class{Name: "Animal", Methods: map[string]*Function{"speak": superSpeak}}
	dog := &Class{Name: "Dog", Superclass: animal, Methods: map[string]*Function{"speak": subSpeak}}

	m, _ := dog.FindMethod("speak")
	if m != subSpeak {
		t.Error("expected the subclass's own method to shadow the superclass's")
	}
}

func TestInstanceGetPrefersOwnFieldOverMethod(t *testing.T) {
	speak := &Function{Declaration: methodDecl("speak")}
	class := &Class{Name: "Dog", Methods: map[string]*Function{"speak": speak}}
	instance := NewInstance(class)
	instance.Set("speak", Str("not a method anymore"))

	v, ok := instance.Get("speak")
	if !ok || v.Kind != KindString {
		t.Fatalf("expected the field to shadow the method, got %v", v)
	}
}

func TestInstanceGetBindsMethodToInstance(t *testing.T) {
	speak := &Function{Declaration: methodDecl("speak"), Closure: NewEnvironment(nil)}
	class := &Class{Name: "Dog", Methods: map[string]*Function{"speak": speak}}
	instance := NewInstance(class)

	v, ok := instance.Get("speak")
	if !ok || v.Kind != KindFunction {
		t.Fatalf("expected a bound function value, got %v, ok=%v", v, ok)
	}
	this := v.Function.Closure.GetAt(0, "this")
	if this.Instance != instance {
		t.Error("expected the bound method's closure to carry this instance")
	}
}

func TestInstanceGetMissingFieldAndMethod(t *testing.T) {
	instance := NewInstance(&Class{Name: "Dog", Methods: map[string]*Function{}})
	if _, ok := instance.Get("missing"); ok {
		t.Error("expected a missing field and method to report not found")
	}
}
