package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

const (
	importStatementNodeType     = "import_statement"
	exportStatementNodeType     = "export_statement"
	importRequireClauseNodeType = "import_require_clause"
	callExpressionNodeType      = "call_expression"
	argumentsNodeType           = "arguments"
	dynamicImportNodeType       = "import"
	identifierNodeType          = "identifier"

	functionField  = "function"
	argumentsField = "arguments"
	sourceField    = "source"

	requireIdentifier = "require"
)

// IsModuleCall reports whether call is a require("...") or dynamic import("...") call.
func IsModuleCall(call *sitter.Node, source []byte) bool {
	if call == nil || call.Type() != callExpressionNodeType {
		return false
	}
	function := call.ChildByFieldName(functionField)
	if function == nil {
		return false
	}
	switch function.Type() {
	case dynamicImportNodeType:
		return true
	case identifierNodeType:
		return Text(function, source) == requireIdentifier
	default:
		return false
	}
}

// FirstArgument returns the first argument of a call expression, or nil.
func FirstArgument(call *sitter.Node) *sitter.Node {
	arguments := call.ChildByFieldName(argumentsField)
	if arguments == nil || arguments.NamedChildCount() == 0 {
		return nil
	}
	return arguments.NamedChild(0)
}

// IsModuleSpecifier reports whether the string node names a module: the source of
// an import, a re-export or an import-require clause, or the first argument of a
// require or dynamic import call.
func IsModuleSpecifier(node *sitter.Node, source []byte) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case importStatementNodeType, exportStatementNodeType, importRequireClauseNodeType:
		sourceNode := parent.ChildByFieldName(sourceField)
		return sourceNode != nil && sourceNode.StartByte() == node.StartByte()
	case argumentsNodeType:
		call := parent.Parent()
		if !IsModuleCall(call, source) {
			return false
		}
		first := FirstArgument(call)
		return first != nil && first.StartByte() == node.StartByte()
	default:
		return false
	}
}
