package plugins

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
	"github.com/NorthSeacoder/codetransformer/internal/syntax"
)

// ReplaceText rewrites the content of string literals matching a pattern. The
// surrounding quotes are kept.
type ReplaceText struct {
	name        string
	pattern     *regexp.Regexp
	replacement string
}

var _ engine.Plugin = (*ReplaceText)(nil)

// NewReplaceText constructs a ReplaceText plugin. replacement may reference
// capture groups as in regexp.Regexp.ReplaceAllString.
func NewReplaceText(name string, pattern *regexp.Regexp, replacement string) *ReplaceText {
	return &ReplaceText{name: name, pattern: pattern, replacement: replacement}
}

// Name returns the configured plugin name.
func (plugin *ReplaceText) Name() string {
	return plugin.name
}

// Apply replaces pattern matches inside every string literal of file.
func (plugin *ReplaceText) Apply(_ context.Context, file *engine.File) error {
	file.Walk(func(node *sitter.Node) bool {
		if node.Type() != stringNodeType {
			return true
		}
		if syntax.IsModuleSpecifier(node, file.Source) {
			return false
		}
		start, end := syntax.StringContentRange(node)
		content := string(file.Source[start:end])
		if !plugin.pattern.MatchString(content) {
			return false
		}
		replaced := plugin.pattern.ReplaceAllString(content, plugin.replacement)
		if replaced != content {
			file.ReplaceRange(start, end, escapeQuote(replaced, file.Source[node.StartByte()]))
		}
		return false
	})
	return nil
}

// escapeQuote escapes unescaped occurrences of quote and raw line breaks so the
// value stays a single literal.
func escapeQuote(value string, quote byte) string {
	var builder strings.Builder
	escaped := false
	for index := 0; index < len(value); index++ {
		current := value[index]
		switch {
		case escaped:
			escaped = false
		case current == '\\':
			escaped = true
		case current == quote:
			builder.WriteByte('\\')
		case current == '\n':
			builder.WriteString(`\n`)
			continue
		}
		builder.WriteByte(current)
	}
	return builder.String()
}
