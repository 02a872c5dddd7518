package driver

import (
	"bytes"
	"strings"

	"rusti/report"

	"github.com/pkg/errors"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// rustLanguage is the Rust grammar shared by every parser.
var rustLanguage = sitter.NewLanguage(tree_sitter_rust.Language())

// syntaxTree is a parsed source file.  It must be closed once it is no
// longer needed.
type syntaxTree struct {
	src    []byte
	parser *sitter.Parser
	tree   *sitter.Tree
}

func parse(src []byte) (*syntaxTree, error) {
	p := sitter.NewParser()
	if err := p.SetLanguage(rustLanguage); err != nil {
		p.Close()
		return nil, errors.Wrap(err, "loading rust grammar")
	}

	tree := p.Parse(src, nil)
	if tree == nil {
		p.Close()
		return nil, errors.New("parser produced no tree")
	}

	return &syntaxTree{src: src, parser: p, tree: tree}, nil
}

func (st *syntaxTree) root() *sitter.Node {
	return st.tree.RootNode()
}

func (st *syntaxTree) text(n *sitter.Node) string {
	return string(st.src[n.StartByte():n.EndByte()])
}

func (st *syntaxTree) close() {
	st.tree.Close()
	st.parser.Close()
}

// walk visits every node of the tree beneath and including n in source order.
func walk(n *sitter.Node, visit func(n *sitter.Node)) {
	if n == nil {
		return
	}

	visit(n)
	for i := uint(0); i < n.ChildCount(); i++ {
		walk(n.Child(i), visit)
	}
}

// spanOf converts the position of a node into a text span.
func spanOf(n *sitter.Node) *report.TextSpan {
	start, end := n.StartPosition(), n.EndPosition()

	endCol := int(end.Column) - 1
	if end.Row == start.Row && endCol < int(start.Column) {
		endCol = int(start.Column)
	} else if endCol < 0 {
		endCol = 0
	}

	return &report.TextSpan{
		StartLine: int(start.Row),
		StartCol:  int(start.Column),
		EndLine:   int(end.Row),
		EndCol:    endCol,
	}
}

// reportSyntaxErrors reports every error and missing node of the tree and
// returns how many it reported.
func (st *syntaxTree) reportSyntaxErrors(reprPath string) int {
	count := 0
	walk(st.root(), func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			report.ReportCompileError(reprPath, string(st.src), spanOf(n), "expected `%s`", n.Kind())
			count++
		case n.IsError():
			tok := strings.TrimSpace(st.text(n))
			if i := strings.IndexAny(tok, " \t\r\n"); i != -1 {
				tok = tok[:i]
			}
			report.ReportCompileError(reprPath, string(st.src), spanOf(n), "unexpected token `%s`", tok)
			count++
		}
	})

	return count
}

// -----------------------------------------------------------------------------

// IsIncomplete returns whether src ends before its syntax does: an unclosed
// delimiter, a missing terminator or an error that runs to the end of the
// input.  Input that is complete but invalid is not incomplete.
func IsIncomplete(src string) bool {
	trimmed := bytes.TrimRight([]byte(src), " \t\r\n")
	if len(trimmed) == 0 {
		return false
	}

	st, err := parse(trimmed)
	if err != nil {
		return false
	}
	defer st.close()

	root := st.root()
	if !root.HasError() {
		return false
	}

	incomplete := false
	walk(root, func(n *sitter.Node) {
		if n.IsMissing() || (n.IsError() && int(n.EndByte()) >= len(trimmed)) {
			incomplete = true
		}
	})

	return incomplete
}

// InputKind tells what a piece of interactive input consists of.
type InputKind int

// Enumeration of input kinds.
const (
	InputEmpty      InputKind = iota // Only whitespace and comments.
	InputItems                       // Only items: functions, types, uses and the like.
	InputStatements                  // At least one statement or expression.
)

// statementKinds are the top-level node kinds that cannot appear outside of
// a function body.
var statementKinds = map[string]bool{
	"expression_statement": true,
	"let_declaration":      true,
	"macro_invocation":     true,
	"empty_statement":      true,
}

// Classify tells whether src is made of items only or contains statements.
// Input containing syntax errors at the top level counts as statements.
func Classify(src string) InputKind {
	st, err := parse([]byte(src))
	if err != nil {
		return InputStatements
	}
	defer st.close()

	root := st.root()
	kind := InputEmpty
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		switch {
		case isTrivia(child.Kind()):
			continue
		case statementKinds[child.Kind()] || itemKindNames[child.Kind()] == "":
			return InputStatements
		default:
			kind = InputItems
		}
	}

	return kind
}

// isTrivia returns whether a top-level node kind neither declares an item
// nor executes anything.
func isTrivia(kind string) bool {
	switch kind {
	case "line_comment", "block_comment", "attribute_item", "inner_attribute_item":
		return true
	}

	return false
}
