package runtime

import "testing"

func TestDefineAndGetInSameScope(t *testing.T) {
	env := NewEnvironment(nil)
	env.Define("a", Num(1))
	v, ok := env.Get("a")
	if !ok || v.Number != 1 {
		t.Fatalf("expected a=1, got %v, ok=%v", v, ok)
	}
}

func TestGetWalksOuterChain(t *testing.T) {
	outer := NewEnvironment(nil)
	outer.Define("a", Str("outer"))
	inner := NewEnvironment(outer)

	v, ok := inner.Get("a")
	if !ok || v.Str != "outer" {
		t.Fatalf("expected to find 'a' in the outer scope, got %v, ok=%v", v, ok)
	}
}

func TestDefineShadowsOuterBinding(t *testing.T) {
	outer := NewEnvironment(nil)
	outer.Define("a", Str("outer"))
	inner := NewEnvironment(outer)
	inner.Define("a", Str("inner"))

	v, _ := inner.Get("a")
	if v.Str != "inner" {
		t.Errorf("expected the inner binding to shadow, got %q", v.Str)
	}
	v, _ = outer.Get("a")
	if v.Str != "outer" {
		t.Errorf("expected the outer binding to be unaffected, got %q", v.Str)
	}
}

func TestAssignUpdatesExistingBindingInOuterScope(t *testing.T) {
	outer := NewEnvironment(nil)
	outer.Define("a", Num(1))
	inner := NewEnvironment(outer)

	if ok := inner.Assign("a", Num(2)); !ok {
		t.Fatal("expected Assign to find 'a' in the outer scope")
	}
	v, _ := outer.Get("a")
	if v.Number != 2 {
		t.Errorf("expected outer 'a' to be updated to 2, got %v", v.Number)
	}
}

func TestAssignToUndefinedNameFails(t *testing.T) {
	env := NewEnvironment(nil)
	if env.Assign("missing", Num(1)) {
		t.Fatal("expected Assign on an undeclared name to fail")
	}
}

func TestGetAtAndAssignAtUseAncestorDepth(t *testing.T) {
	global := NewEnvironment(nil)
	global.Define("a", Str("global"))
	mid := NewEnvironment(global)
	inner := NewEnvironment(mid)

	if v := inner.GetAt(2, "a"); v.Str != "global" {
		t.Fatalf("expected depth-2 lookup to reach the global scope, got %q", v.Str)
	}

	inner.AssignAt(2, "a", Str("updated"))
	v, _ := global.Get("a")
	if v.Str != "updated" {
		t.Errorf("expected AssignAt to mutate the global scope, got %q", v.Str)
	}
}

func TestAncestorPanicsPastGlobalScope(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Ancestor to panic when walking past the global scope")
		}
	}()
	NewEnvironment(nil).Ancestor(1)
}
