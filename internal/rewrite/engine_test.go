package rewrite

import (
	"strings"
	"testing"

	"github.com/funvibe/expect/internal/lexer"
	"github.com/funvibe/expect/internal/prettyprinter"
	"github.com/funvibe/expect/internal/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	return tokens
}

func rewriteSource(t *testing.T, src string, opts ...Option) (string, error) {
	t.Helper()
	out, err := Rewrite(tokenize(t, src), opts...)
	if err != nil {
		return "", err
	}
	text, err := prettyprinter.Untokenize(out)
	if err != nil {
		t.Fatalf("Untokenize: %v", err)
	}
	return text, nil
}

func TestRewriteScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"none operand",
			"a, b = expect None else (0, 0)\n",
			"a, b = ret if (ret := None) is not None else (0, 0)\n",
		},
		{
			"call operand",
			"a, b = expect func() else (0, 0)\n",
			"a, b = ret if (ret := func()) is not None else (0, 0)\n",
		},
		{
			"parenthesized operand",
			"a, b = expect (func()) else (0, 0)\n",
			"a, b = ret if (ret := (func())) is not None else (0, 0)\n",
		},
		{
			"nested",
			"x = expect expect g() else (0,0) else (1,1)\n",
			"x = ret if (ret := ret_1 if (ret_1 := g()) is not None else (0,0)) is not None else (1,1)\n",
		},
		{
			"conditional operand in parentheses",
			"x = expect (a if c else b) else d\n",
			"x = ret if (ret := (a if c else b)) is not None else d\n",
		},
		{
			"bare conditional operand",
			"x = expect a if c else b else d\n",
			"x = ret if (ret := a if c else b) is not None else d\n",
		},
		{
			"chained conditional operand",
			"x = expect a if c else b if e else f else g\n",
			"x = ret if (ret := a if c else b if e else f) is not None else g\n",
		},
		{
			"two sites on one line",
			"a = expect f() else 1, expect g() else 2\n",
			"a = ret if (ret := f()) is not None else 1, ret_1 if (ret_1 := g()) is not None else 2\n",
		},
		{
			"generator filter in operand",
			"x = expect next(y for y in ys if y) else 0\n",
			"x = ret if (ret := next(y for y in ys if y)) is not None else 0\n",
		},
		{
			"inside a list comprehension",
			"ys = [expect f(x) else 0 for x in xs if x]\n",
			"ys = [ret if (ret := f(x)) is not None else 0 for x in xs if x]\n",
		},
		{
			"inside a tuple",
			"t = (expect f() else 0, 1)\n",
			"t = (ret if (ret := f()) is not None else 0, 1)\n",
		},
		{
			"walrus target",
			"if (y := expect f() else 0):\n    pass\n",
			"if (y := ret if (ret := f()) is not None else 0):\n    pass\n",
		},
		{
			"statement condition",
			"if expect f() else False:\n    pass\n",
			"if ret if (ret := f()) is not None else False:\n    pass\n",
		},
		{
			"glued else",
			"x = expect (a)else b\n",
			"x = ret if (ret := (a)) is not None else b\n",
		},
		{
			"implicit continuation",
			"x = expect f(\n    1) else 0\n",
			"x = ret if (ret := f(\n    1)) is not None else 0\n",
		},
		{
			"backslash continuation",
			"x = expect \\\n    f() else 0\n",
			"x = ret if (ret := \\\n    f()) is not None else 0\n",
		},
		{
			"multi-row string operand",
			"x = expect f('''a\nb''') else 0\n",
			"x = ret if (ret := f('''a\nb''')) is not None else 0\n",
		},
		{
			"indented block",
			"def f():\n    return expect g() else 1\n",
			"def f():\n    return ret if (ret := g()) is not None else 1\n",
		},
		{
			"temporary name already used",
			"ret = 1\nx = expect f(ret) else ret\n",
			"ret = 1\nx = ret_1 if (ret_1 := f(ret)) is not None else ret\n",
		},
		{
			"non-ascii columns",
			"s = 'é'; x = expect f() else 'ü'\n",
			"s = 'é'; x = ret if (ret := f()) is not None else 'ü'\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rewriteSource(t, tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("rewrite mismatch\n got: %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestRewriteWithoutTriggerIsIdentity(t *testing.T) {
	sources := []string{
		"x = 1\n",
		"y = a if b else c\n",
		"def f(x):\n    return [i for i in x if i] or None\n",
		"s = '''\nexpected\n'''\n",
		"# expect nothing\n",
	}
	for _, src := range sources {
		in := tokenize(t, src)
		out, err := Rewrite(in)
		if err != nil {
			t.Fatalf("Rewrite(%q): %v", src, err)
		}
		if len(out) != len(in) {
			t.Fatalf("Rewrite(%q) changed the token count", src)
		}
		for i := range in {
			if out[i] != in[i] {
				t.Errorf("token %d changed: %s -> %s", i, in[i], out[i])
			}
		}
	}
}

func TestSplitConstructFails(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"trigger then newline", "a, b = expect\n    f() else (0, 0)\n"},
		{"missing else", "x = expect f()\n"},
		{"missing else at end of input", "x = expect f()"},
		{"unclosed conditional inside", "x = expect a if b else c\n"},
		{"construct closed by bracket", "x = (expect f()) else 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rewriteSource(t, tt.src)
			if !IsKind(err, UnterminatedConstruct) {
				t.Fatalf("expected UnterminatedConstruct, got %v", err)
			}
		})
	}
}

func TestUnterminatedMessage(t *testing.T) {
	_, err := rewriteSource(t, "x = expect\n")
	re, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if re.Msg != "encountered NEWLINE token while in expect statement" {
		t.Errorf("message = %q", re.Msg)
	}
	if re.Pos != (token.Pos{Row: 1, Col: 10}) {
		t.Errorf("pos = %v, want 1:10", re.Pos)
	}
	if re.Opened != (token.Pos{Row: 1, Col: 4}) {
		t.Errorf("opened = %v, want 1:4", re.Opened)
	}
	if re.Line != "x = expect\n" {
		t.Errorf("line = %q", re.Line)
	}
}

func TestSubstringStreamWithoutEndmarker(t *testing.T) {
	tokens := tokenize(t, "expect f() else 0\n")
	var trimmed []token.Token
	for _, tok := range tokens {
		if tok.Kind != token.NEWLINE && tok.Kind != token.ENDMARKER {
			trimmed = append(trimmed, tok)
		}
	}
	out, err := Rewrite(trimmed)
	if err != nil {
		t.Fatal(err)
	}
	var words []string
	for _, tok := range out {
		words = append(words, tok.Text)
	}
	if got := strings.Join(words, " "); got != "ret if ( ret := f ( ) ) is not None else 0" {
		t.Errorf("got %q", got)
	}

	_, err = Rewrite(trimmed[:3])
	if !IsKind(err, UnterminatedConstruct) {
		t.Errorf("expected UnterminatedConstruct for a cut stream, got %v", err)
	}
}

func TestNoPartialOutputOnError(t *testing.T) {
	out, err := Rewrite(tokenize(t, "a = expect f() else 1\nb = expect g()\n"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if out != nil {
		t.Errorf("expected no tokens, got %d", len(out))
	}
}

func TestGuardClosesOuterParenthesisOnce(t *testing.T) {
	got, err := rewriteSource(t, "v = expect (p if q else r) else s\n")
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(got, "is not None"); n != 1 {
		t.Fatalf("suffix emitted %d times in %q", n, got)
	}
	suffix := strings.Index(got, ") is not None")
	if inner := strings.Index(got, "else r"); suffix < inner {
		t.Errorf("suffix placed before the inner else: %q", got)
	}
}

func TestOffsetMonotonicity(t *testing.T) {
	srcs := []string{
		"a, b = expect f() else (0, 0)\n",
		"x = expect expect g() else (0,0) else (1,1)\n",
		"a = expect f() else 1, expect g() else 2  # two\n",
		"x = expect (a)else b\n",
		"x = expect f(\n  expect g() else 1) else 0\n",
	}
	for _, src := range srcs {
		out, err := Rewrite(tokenize(t, src))
		if err != nil {
			t.Fatalf("Rewrite(%q): %v", src, err)
		}
		for i := 1; i < len(out); i++ {
			prev, cur := out[i-1], out[i]
			if prev.End.Row != cur.Start.Row || prev.Kind == token.NEWLINE || prev.Kind == token.NL {
				continue
			}
			if cur.Start.Col < prev.End.Col {
				t.Errorf("%q: %s overlaps %s", src, cur, prev)
			}
		}
	}
}

func TestSitesCounted(t *testing.T) {
	res, err := New().Run(tokenize(t, "a = expect f() else 1\nb = expect expect g() else 2 else 3\nc = 4\n"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Sites != 3 {
		t.Errorf("sites = %d, want 3", res.Sites)
	}
}

func TestSharedTempName(t *testing.T) {
	got, err := rewriteSource(t, "x = expect expect g() else 0 else 1\n", WithSharedTempName())
	if err != nil {
		t.Fatal(err)
	}
	want := "x = ret if (ret := ret if (ret := g()) is not None else 0) is not None else 1\n"
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestCustomNames(t *testing.T) {
	got, err := rewriteSource(t, "x = maybe f() else 0\n", WithKeyword("maybe"), WithTempName("_v"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "x = _v if (_v := f()) is not None else 0\n"; got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}

	// A longer temporary name shifts the rest of the row further.
	got, err = rewriteSource(t, "x = expect f() else 0\n", WithTempName("value"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "x = value if (value := f()) is not None else 0\n"; got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestConditionPolicy(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		strict     bool // rejected under PolicyStrict
		permissive bool // rejected under PolicyPermissive
	}{
		{"if statement", "if expect f() else 0:\n    pass\n", true, false},
		{"elif statement", "if a:\n    pass\nelif expect f() else 0:\n    pass\n", true, false},
		{"while statement", "while expect f() else 0:\n    pass\n", true, false},
		{"assert test", "assert expect f() else 0, 'msg'\n", true, false},
		{"parenthesized condition", "if (expect f() else 0):\n    pass\n", true, false},
		{"comprehension filter", "ys = [x for x in xs if expect f(x) else 0]\n", true, true},
		{"filter after operator", "ys = [x for x in xs if a and expect f(x) else 0]\n", true, true},
		{"parenthesized filter", "ys = [x for x in xs if (expect f(x) else 0)]\n", true, false},
		{"second filter", "ys = [x for x in xs if a if expect f(x) else 0]\n", true, true},
		{"conditional expression test", "y = a if expect f() else 0 else 1\n", true, true},
		{"negated test", "y = a if not expect f() else 0 else 1\n", true, true},
		{"guard inside construct", "x = expect (a if expect b() else c else d) else e\n", true, true},
		{"after conditional expression", "y = a if b else expect f() else 0\n", false, false},
		{"after comprehension", "ys = [x for x in xs if a], expect f() else 0\n", false, false},
		{"dict filter value", "d = {k: expect f(k) else 0 for k in ks if k}\n", false, false},
		{"assert message", "assert x, expect f() else 'm'\n", false, false},
		{"if body", "if x:\n    y = expect f() else 0\n", false, false},
		{"same-line body", "if x: y = expect f() else 0\n", false, false},
		{"nested operand", "x = expect expect g() else (0,0) else (1,1)\n", false, false},
		{"assignment", "x = expect f() else 0\n", false, false},
		{"call argument", "print(expect f() else 0)\n", false, false},
	}
	check := func(t *testing.T, label string, err error, rejected bool) {
		t.Helper()
		if rejected {
			if !IsKind(err, ConstructUsedAsBareCondition) {
				t.Errorf("%s: expected ConstructUsedAsBareCondition, got %v", label, err)
			}
		} else if err != nil {
			t.Errorf("%s: unexpected error %v", label, err)
		}
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rewriteSource(t, tt.src, WithPolicy(PolicyStrict))
			check(t, "strict", err, tt.strict)
			_, err = rewriteSource(t, tt.src)
			check(t, "permissive", err, tt.permissive)
		})
	}
}

func TestEngineIsReusable(t *testing.T) {
	e := New()
	for i := 0; i < 3; i++ {
		out, err := e.Rewrite(tokenize(t, "x = expect f() else 0\n"))
		if err != nil {
			t.Fatal(err)
		}
		if out[2].Text != "ret" {
			t.Fatalf("run %d: temp name = %q, want ret", i, out[2].Text)
		}
	}
}

func TestErrorKindString(t *testing.T) {
	if UnterminatedConstruct.String() != "UnterminatedConstruct" {
		t.Error(UnterminatedConstruct.String())
	}
	if ErrorKind(42).String() != "ErrorKind(42)" {
		t.Error(ErrorKind(42).String())
	}
}
