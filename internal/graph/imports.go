package graph

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/NorthSeacoder/codetransformer/internal/syntax"
)

const (
	importStatementNodeType     = "import_statement"
	exportStatementNodeType     = "export_statement"
	importRequireClauseNodeType = "import_require_clause"
	callExpressionNodeType      = "call_expression"
	stringNodeType              = "string"
	typeKeywordNodeType         = "type"

	sourceField = "source"
)

// collectSpecifiers returns the module specifiers imported by the tree rooted at root,
// in source order. Type-only imports and re-exports are skipped since they vanish
// from the emitted JavaScript.
func collectSpecifiers(root *sitter.Node, source []byte) []string {
	var specifiers []string
	seen := map[string]struct{}{}
	appendSpecifier := func(node *sitter.Node) {
		if node == nil || node.Type() != stringNodeType {
			return
		}
		specifier := syntax.StringValue(node, source)
		if specifier == "" {
			return
		}
		if _, duplicate := seen[specifier]; duplicate {
			return
		}
		seen[specifier] = struct{}{}
		specifiers = append(specifiers, specifier)
	}

	syntax.Walk(root, func(node *sitter.Node) bool {
		switch node.Type() {
		case importStatementNodeType, exportStatementNodeType:
			if isTypeOnly(node) {
				return false
			}
			appendSpecifier(node.ChildByFieldName(sourceField))
		case importRequireClauseNodeType:
			appendSpecifier(node.ChildByFieldName(sourceField))
		case callExpressionNodeType:
			if syntax.IsModuleCall(node, source) {
				appendSpecifier(syntax.FirstArgument(node))
			}
		}
		return true
	})
	return specifiers
}

// isTypeOnly reports whether an import or export statement carries the TypeScript
// "type" modifier right after its keyword.
func isTypeOnly(statement *sitter.Node) bool {
	if statement.ChildCount() < 2 {
		return false
	}
	return statement.Child(1).Type() == typeKeywordNodeType
}
