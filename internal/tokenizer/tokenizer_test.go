package tokenizer

import "testing"

func tokenRaws(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Raw
	}
	return out
}

func TestTokenizeContent_SplitsOnDashAndDot(t *testing.T) {
	tokens := tokenRaws(TokenizeContent("tree-sitter app.post"))
	want := []string{"tree", "sitter", "app", "post"}
	if len(tokens) != len(want) {
		t.Fatalf("got %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: got %q want %q", i, tokens[i], want[i])
		}
	}
}

func TestTokenizeContent_KeepsUnderscore(t *testing.T) {
	tokens := tokenRaws(TokenizeContent("tree_sitter"))
	if len(tokens) != 1 || tokens[0] != "tree_sitter" {
		t.Fatalf("expected single token tree_sitter, got %v", tokens)
	}
}

func TestTokenizeContent_EmitsLowercaseForm(t *testing.T) {
	tokens := TokenizeContent("MyClass")
	if len(tokens) != 1 {
		t.Fatalf("expected 1 token, got %d", len(tokens))
	}
	if tokens[0].Raw != "MyClass" || tokens[0].Lower != "myclass" {
		t.Errorf("unexpected token: %+v", tokens[0])
	}
}

func TestTokenizeContent_DiscardsShortAndDigitTokens(t *testing.T) {
	tokens := tokenRaws(TokenizeContent("a ab 42 x9"))
	want := []string{"ab", "x9"}
	if len(tokens) != len(want) {
		t.Fatalf("got %v, want %v", tokens, want)
	}
}

func TestTokenizeContent_TracksLineNumbers(t *testing.T) {
	tokens := TokenizeContent("foo\nbar")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	if tokens[0].Line != 1 || tokens[1].Line != 2 {
		t.Errorf("unexpected line numbers: %+v", tokens)
	}
}

func TestTokenizeFilename_StripsExtensionAndSplits(t *testing.T) {
	got := TokenizeFilename("/src/tree-sitter.go")
	want := []string{"tree", "sitter"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestTokenizationLaw_SymmetricMembership(t *testing.T) {
	// Every token returned for a path's content must be the same whichever
	// direction it's looked up from.
	content := "func ParseConfig() {}"
	tokens := TokenizeContent(content)
	seen := map[string]bool{}
	for _, tok := range tokens {
		seen[tok.Lower] = true
	}
	if !seen["parseconfig"] || !seen["func"] {
		t.Errorf("expected parseconfig and func among tokens, got %v", tokens)
	}
}
