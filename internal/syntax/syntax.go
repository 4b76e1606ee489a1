// Package syntax wraps the tree-sitter grammars for JavaScript and TypeScript sources.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	javascript "github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrUnsupportedLanguage indicates that no grammar is registered for a file extension.
var ErrUnsupportedLanguage = errors.New("unsupported source language")

const (
	errorUnsupportedLanguageFormat = "%w: %s"
	errorParseFormat               = "parse %s: %w"

	errorNodeType = "ERROR"
)

// SourceExtensions lists the extensions (without dot) of files selected for transformation.
var SourceExtensions = []string{"js", "jsx", "ts", "tsx"}

const (
	extensionJavaScript = ".js"
	extensionJSX        = ".jsx"
	extensionModuleJS   = ".mjs"
	extensionCommonJS   = ".cjs"
	extensionTypeScript = ".ts"
	extensionModuleTS   = ".mts"
	extensionCommonTS   = ".cts"
	extensionTSX        = ".tsx"
)

// IsSourceFile reports whether path has one of SourceExtensions, ignoring case.
func IsSourceFile(path string) bool {
	return HasExtension(path, SourceExtensions)
}

// HasExtension reports whether path ends in one of extensions (given without dot), ignoring case.
func HasExtension(path string, extensions []string) bool {
	extension := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if extension == "" {
		return false
	}
	for _, candidate := range extensions {
		if strings.EqualFold(strings.TrimPrefix(candidate, "."), extension) {
			return true
		}
	}
	return false
}

// Language returns the grammar used for path.
func Language(path string) (*sitter.Language, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case extensionJavaScript, extensionJSX, extensionModuleJS, extensionCommonJS:
		return javascript.GetLanguage(), nil
	case extensionTypeScript, extensionModuleTS, extensionCommonTS:
		return typescript.GetLanguage(), nil
	case extensionTSX:
		return tsx.GetLanguage(), nil
	default:
		return nil, fmt.Errorf(errorUnsupportedLanguageFormat, ErrUnsupportedLanguage, path)
	}
}

// Parse parses source with the grammar selected by path. Tree-sitter recovers from
// syntax errors, so a returned tree may still contain ERROR nodes; see FirstError.
func Parse(ctx context.Context, path string, source []byte) (*sitter.Tree, error) {
	language, languageErr := Language(path)
	if languageErr != nil {
		return nil, languageErr
	}
	parser := sitter.NewParser()
	parser.SetLanguage(language)
	tree, parseErr := parser.ParseCtx(ctx, nil, source)
	if parseErr != nil {
		return nil, fmt.Errorf(errorParseFormat, path, parseErr)
	}
	return tree, nil
}

// SyntaxError describes the first syntax error found in a file.
type SyntaxError struct {
	Path   string
	Line   int
	Column int
}

func (syntaxError *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %s at %d:%d", syntaxError.Path, syntaxError.Line, syntaxError.Column)
}

// CheckSyntax returns a *SyntaxError locating the first ERROR or missing node under root.
func CheckSyntax(path string, root *sitter.Node) error {
	if root == nil || !root.HasError() {
		return nil
	}
	errorNode := FirstError(root)
	if errorNode == nil {
		errorNode = root
	}
	position := errorNode.StartPoint()
	return &SyntaxError{Path: path, Line: int(position.Row) + 1, Column: int(position.Column) + 1}
}

// FirstError returns the first ERROR or missing node in document order.
func FirstError(root *sitter.Node) *sitter.Node {
	var found *sitter.Node
	Walk(root, func(node *sitter.Node) bool {
		if found != nil {
			return false
		}
		if node.Type() == errorNodeType || node.IsMissing() {
			found = node
			return false
		}
		return node.HasError()
	})
	return found
}

// Walk visits root and its descendants in document order. Children of a node are
// skipped when visit returns false for it.
func Walk(root *sitter.Node, visit func(node *sitter.Node) bool) {
	if root == nil {
		return
	}
	if !visit(root) {
		return
	}
	for index := 0; index < int(root.ChildCount()); index++ {
		Walk(root.Child(index), visit)
	}
}

// Text returns the source text spanned by node.
func Text(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// StringContent returns the text of a string literal node without its quotes.
func StringContent(node *sitter.Node, source []byte) string {
	start, end := StringContentRange(node)
	if end < start {
		return ""
	}
	return string(source[start:end])
}

// StringContentRange returns the byte range of a string literal's content, excluding
// the surrounding quotes.
func StringContentRange(node *sitter.Node) (uint32, uint32) {
	start, end := node.StartByte(), node.EndByte()
	if end-start < 2 {
		return start, start
	}
	return start + 1, end - 1
}

// TemplateFragments returns the literal parts of a template_string node: the text
// between the backticks with every ${...} substitution removed.
func TemplateFragments(node *sitter.Node, source []byte) []string {
	start, end := StringContentRange(node)
	var fragments []string
	cursor := start
	for index := 0; index < int(node.NamedChildCount()); index++ {
		child := node.NamedChild(index)
		if child.Type() != "template_substitution" {
			continue
		}
		if child.StartByte() > cursor {
			fragments = append(fragments, string(source[cursor:child.StartByte()]))
		}
		cursor = child.EndByte()
	}
	if end > cursor {
		fragments = append(fragments, string(source[cursor:end]))
	}
	return fragments
}
