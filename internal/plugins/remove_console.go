package plugins

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/NorthSeacoder/codetransformer/internal/engine"
)

const (
	expressionStatementNodeType = "expression_statement"
	callExpressionNodeType      = "call_expression"
	memberExpressionNodeType    = "member_expression"
	identifierNodeType          = "identifier"

	consoleIdentifier = "console"
	emptyBlock        = "{}"
)

// statementListParents hold statement sequences from which a statement can be
// deleted outright.
var statementListParents = map[string]struct{}{
	"program":         {},
	"statement_block": {},
	"switch_case":     {},
	"switch_default":  {},
}

// RemoveConsole deletes statements that only call a console method.
type RemoveConsole struct{}

var _ engine.Plugin = RemoveConsole{}

// Name returns the registry name of the plugin.
func (RemoveConsole) Name() string {
	return RemoveConsoleName
}

// Apply removes every console call statement from file. A statement that is the
// body of a control structure becomes an empty block.
func (RemoveConsole) Apply(_ context.Context, file *engine.File) error {
	file.Walk(func(node *sitter.Node) bool {
		if node.Type() != expressionStatementNodeType || !isConsoleCall(file, node.NamedChild(0)) {
			return true
		}
		parent := node.Parent()
		if parent == nil {
			return false
		}
		if _, removable := statementListParents[parent.Type()]; !removable {
			file.Replace(node, emptyBlock)
			return false
		}
		start, end := lineSpan(file.Source, node.StartByte(), node.EndByte())
		file.ReplaceRange(start, end, "")
		return false
	})
	return nil
}

func isConsoleCall(file *engine.File, expression *sitter.Node) bool {
	if expression == nil || expression.Type() != callExpressionNodeType {
		return false
	}
	function := expression.ChildByFieldName("function")
	if function == nil || function.Type() != memberExpressionNodeType {
		return false
	}
	object := function.ChildByFieldName("object")
	return object != nil && object.Type() == identifierNodeType && file.Text(object) == consoleIdentifier
}

// lineSpan widens [start, end) to whole lines when nothing else shares them.
func lineSpan(source []byte, start uint32, end uint32) (uint32, uint32) {
	lineStart := start
	for lineStart > 0 && isHorizontalSpace(source[lineStart-1]) {
		lineStart--
	}
	if lineStart > 0 && source[lineStart-1] != '\n' {
		return start, end
	}
	lineEnd := end
	for int(lineEnd) < len(source) && isHorizontalSpace(source[lineEnd]) {
		lineEnd++
	}
	switch {
	case int(lineEnd) == len(source):
		return lineStart, lineEnd
	case source[lineEnd] == '\n':
		return lineStart, lineEnd + 1
	case source[lineEnd] == '\r' && int(lineEnd)+1 < len(source) && source[lineEnd+1] == '\n':
		return lineStart, lineEnd + 2
	default:
		return start, end
	}
}

func isHorizontalSpace(value byte) bool {
	return value == ' ' || value == '\t'
}
