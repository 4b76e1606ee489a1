package syntax

import (
	"context"
	"errors"
	"reflect"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

func TestIsSourceFileIgnoresCase(t *testing.T) {
	testCases := map[string]bool{
		"a.ts":        true,
		"b.TSX":       true,
		"c.jsx":       true,
		"d.js":        true,
		"e.d.ts":      true,
		"f.json":      false,
		"Makefile":    false,
		"g.mjs":       false,
		"dir.ts/file": false,
	}
	for path, expected := range testCases {
		if actual := IsSourceFile(path); actual != expected {
			t.Fatalf("IsSourceFile(%q) = %v, want %v", path, actual, expected)
		}
	}
}

func TestLanguageRejectsUnknownExtension(t *testing.T) {
	if _, err := Language("styles.css"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestCheckSyntaxLocatesError(t *testing.T) {
	source := []byte("const ok = 1;\nconst broken = ;\n")
	tree, err := Parse(context.Background(), "broken.js", source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	syntaxErr := CheckSyntax("broken.js", tree.RootNode())
	var located *SyntaxError
	if !errors.As(syntaxErr, &located) {
		t.Fatalf("expected *SyntaxError, got %v", syntaxErr)
	}
	if located.Line != 2 {
		t.Fatalf("expected error on line 2, got %d", located.Line)
	}
}

func TestCheckSyntaxAcceptsTypeScriptAndJSX(t *testing.T) {
	testCases := map[string]string{
		"a.ts":  "interface A { x: number }\nexport const a: A = { x: 1 };\n",
		"b.tsx": "export const B = (props: { name: string }) => <div>{props.name}</div>;\n",
		"c.jsx": "export const C = () => <span>hi</span>;\n",
	}
	for path, content := range testCases {
		tree, err := Parse(context.Background(), path, []byte(content))
		if err != nil {
			t.Fatalf("Parse %s: %v", path, err)
		}
		if syntaxErr := CheckSyntax(path, tree.RootNode()); syntaxErr != nil {
			t.Fatalf("unexpected syntax error for %s: %v", path, syntaxErr)
		}
	}
}

func TestTemplateFragmentsSkipSubstitutions(t *testing.T) {
	source := []byte("const s = `hello ${name} and ${other}!`;\n")
	tree, err := Parse(context.Background(), "t.js", source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var fragments []string
	Walk(tree.RootNode(), func(node *sitter.Node) bool {
		if node.Type() == "template_string" {
			fragments = TemplateFragments(node, source)
			return false
		}
		return true
	})
	expected := []string{"hello ", " and ", "!"}
	if !reflect.DeepEqual(fragments, expected) {
		t.Fatalf("unexpected fragments: got %q want %q", fragments, expected)
	}
}

func TestStringContentStripsQuotes(t *testing.T) {
	source := []byte(`import x from './x';`)
	tree, err := Parse(context.Background(), "s.js", source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var content string
	Walk(tree.RootNode(), func(node *sitter.Node) bool {
		if node.Type() == "string" {
			content = StringContent(node, source)
			return false
		}
		return true
	})
	if content != "./x" {
		t.Fatalf("expected ./x, got %q", content)
	}
}

func TestDecodeStringResolvesEscapes(t *testing.T) {
	testCases := map[string]string{
		`plain`:               "plain",
		`\u4f60\u597d`:        "\u4f60\u597d",
		`\u{4F60}!`:           "\u4f60!",
		`\x41\x42`:            "AB",
		`a\nb\tc`:             "a\nb\tc",
		`it\'s \"x\" \\ end`:  `it's "x" \ end`,
		"line\\\ncontinued":   "linecontinued",
		"crlf\\\r\ncontinued": "crlfcontinued",
		`\ud83d\ude00`:        "\U0001F600",
		`\0`:                  "\x00",
		`\q`:                  "q",
		`\xZZ and \u12`:       `\xZZ and \u12`,
		`\u{110000}`:          `\u{110000}`,
		`trailing\`:           `trailing\`,
		"\\\u2028separated":   "separated",
	}
	for raw, expected := range testCases {
		if actual := DecodeString(raw); actual != expected {
			t.Errorf("DecodeString(%q) = %q, want %q", raw, actual, expected)
		}
	}
}

func TestIsModuleSpecifier(t *testing.T) {
	source := []byte("import a from './a';\n" +
		"export * from './b';\n" +
		"const c = require('./c');\n" +
		"const d = import('./d');\n" +
		"log('e', require('./f'));\n")
	tree, err := Parse(context.Background(), "m.js", source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	specifiers := map[string]bool{}
	Walk(tree.RootNode(), func(node *sitter.Node) bool {
		if node.Type() == "string" {
			specifiers[StringValue(node, source)] = IsModuleSpecifier(node, source)
		}
		return true
	})
	expected := map[string]bool{"./a": true, "./b": true, "./c": true, "./d": true, "e": false, "./f": true}
	if !reflect.DeepEqual(specifiers, expected) {
		t.Fatalf("unexpected specifier classification %v, want %v", specifiers, expected)
	}
}
