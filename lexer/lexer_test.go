package lexer

import (
	"testing"

	"github.com/mihaimaganu17/malis/diagnostics"
	"github.com/mihaimaganu17/malis/token"
)

func TestSingleCharTokens(t *testing.T) {
	input := `( ) { } , . - + ; * : ?`
	expected := []struct {
		typ    token.Type
		lexeme string
	}{
		{token.LeftParen, "("},
		{token.RightParen, ")"},
		{token.LeftBrace, "{"},
		{token.RightBrace, "}"},
		{token.Comma, ","},
		{token.Dot, "."},
		{token.Minus, "-"},
		{token.Plus, "+"},
		{token.Semicolon, ";"},
		{token.Star, "*"},
		{token.Colon, ":"},
		{token.Question, "?"},
		{token.EOF, ""},
	}

	l := New(input, nil)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("test[%d]: type wrong. expected=%v, got=%v (lexeme=%q)", i, exp.typ, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != exp.lexeme {
			t.Errorf("test[%d]: lexeme wrong. expected=%q, got=%q", i, exp.lexeme, tok.Lexeme)
		}
	}
}

func TestTwoCharOperatorsPreferLongestMatch(t *testing.T) {
	input := `== != <= >= && || = < > !`
	expected := []token.Type{
		token.EqualEqual, token.BangEqual, token.LessEqual, token.GreaterEqual,
		token.And, token.Or, token.Equal, token.Less, token.Greater, token.Bang, token.EOF,
	}
	l := New(input, nil)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Errorf("test[%d]: expected=%v, got=%v", i, exp, tok.Type)
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	input := `and class else false for fun if nil or print return super this true var while foo _bar`
	expected := []token.Type{
		token.And, token.Class, token.Else, token.False, token.For, token.Fun, token.If, token.Nil,
		token.Or, token.Print, token.Return, token.Super, token.This, token.True, token.Var, token.While,
		token.Identifier, token.Identifier, token.EOF,
	}
	l := New(input, nil)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Errorf("test[%d]: expected=%v, got=%v (lexeme=%q)", i, exp, tok.Type, tok.Lexeme)
		}
	}
}

func TestNumberLiteral(t *testing.T) {
	l := New(`123 45.67`, nil)
	tok := l.NextToken()
	if tok.Type != token.Number || tok.Literal.(float64) != 123 {
		t.Fatalf("unexpected token: %+v", tok)
	}
	tok = l.NextToken()
	if tok.Type != token.Number || tok.Literal.(float64) != 45.67 {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestStringLiteralSpansLines(t *testing.T) {
	l := New("\"hello\nworld\"", nil)
	tok := l.NextToken()
	if tok.Type != token.String || tok.Literal.(string) != "hello\nworld" {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestUnterminatedStringReportsAndRecovers(t *testing.T) {
	r := diagnostics.New()
	l := New(`"oops`, r)
	tok := l.NextToken()
	if tok.Type != token.Illegal {
		t.Fatalf("expected illegal token, got %v", tok.Type)
	}
	if !r.HadError() {
		t.Fatalf("expected a diagnostic to be reported")
	}
	next := l.NextToken()
	if next.Type != token.EOF {
		t.Fatalf("expected lexer to recover and reach EOF, got %v", next.Type)
	}
}

func TestLineCommentsAreSkipped(t *testing.T) {
	l := New("1 // a comment\n2", nil)
	first := l.NextToken()
	second := l.NextToken()
	if first.Literal.(float64) != 1 || second.Literal.(float64) != 2 {
		t.Fatalf("comment was not skipped correctly: %+v %+v", first, second)
	}
	if second.Pos.Line != 2 {
		t.Fatalf("expected second token on line 2, got %d", second.Pos.Line)
	}
}

func TestUnexpectedCharacterRecovers(t *testing.T) {
	r := diagnostics.New()
	tokens := Tokenize(`1 @ 2`, r)
	if !r.HadError() {
		t.Fatalf("expected a diagnostic for '@'")
	}
	if len(tokens) != 4 { // 1, @, 2, EOF
		t.Fatalf("expected lexer to continue past the bad character, got %d tokens", len(tokens))
	}
}
