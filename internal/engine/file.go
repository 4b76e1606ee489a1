package engine

import (
	"errors"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/NorthSeacoder/codetransformer/internal/syntax"
)

var (
	errOverlappingEdits = errors.New("overlapping edits")
	errEditOutOfRange   = errors.New("edit outside source")
)

type edit struct {
	start       uint32
	end         uint32
	replacement string
}

// File is the parsed view of a source file handed to each plugin.
type File struct {
	Filename string
	Source   []byte
	Root     *sitter.Node
	Metadata Metadata

	edits []edit
}

// Text returns the source spanned by node.
func (file *File) Text(node *sitter.Node) string {
	return syntax.Text(node, file.Source)
}

// Walk visits the syntax tree in document order; returning false skips a subtree.
func (file *File) Walk(visit func(node *sitter.Node) bool) {
	syntax.Walk(file.Root, visit)
}

// Replace substitutes the text of node.
func (file *File) Replace(node *sitter.Node, replacement string) {
	file.ReplaceRange(node.StartByte(), node.EndByte(), replacement)
}

// Remove deletes the text of node.
func (file *File) Remove(node *sitter.Node) {
	file.ReplaceRange(node.StartByte(), node.EndByte(), "")
}

// ReplaceRange substitutes the bytes in [start, end).
func (file *File) ReplaceRange(start uint32, end uint32, replacement string) {
	file.edits = append(file.edits, edit{start: start, end: end, replacement: replacement})
}

// Edited reports whether any edit has been recorded.
func (file *File) Edited() bool {
	return len(file.edits) > 0
}

// SetNotTransform keeps the file from being rewritten.
func (file *File) SetNotTransform() {
	file.Metadata[MetadataNotTransform] = true
}

// SetOutput attaches an artifact to the file.
func (file *File) SetOutput(output Output) {
	file.Metadata[MetadataOutput] = output
}

// applyEdits returns the source with every recorded edit applied.
func (file *File) applyEdits() ([]byte, error) {
	if len(file.edits) == 0 {
		return file.Source, nil
	}
	edits := append([]edit(nil), file.edits...)
	sort.SliceStable(edits, func(left, right int) bool {
		return edits[left].start < edits[right].start
	})
	for index, current := range edits {
		if current.end < current.start || int(current.end) > len(file.Source) {
			return nil, fmt.Errorf("%w: %d-%d", errEditOutOfRange, current.start, current.end)
		}
		if index > 0 && current.start < edits[index-1].end {
			return nil, fmt.Errorf("%w: %d-%d and %d-%d", errOverlappingEdits,
				edits[index-1].start, edits[index-1].end, current.start, current.end)
		}
	}
	result := make([]byte, 0, len(file.Source))
	cursor := uint32(0)
	for _, current := range edits {
		result = append(result, file.Source[cursor:current.start]...)
		result = append(result, current.replacement...)
		cursor = current.end
	}
	result = append(result, file.Source[cursor:]...)
	return result, nil
}
