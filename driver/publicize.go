package driver

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// publicKinds are the top-level node kinds that accept a visibility.
var publicKinds = map[string]bool{
	"function_item":   true,
	"struct_item":     true,
	"enum_item":       true,
	"union_item":      true,
	"trait_item":      true,
	"const_item":      true,
	"static_item":     true,
	"type_item":       true,
	"mod_item":        true,
	"use_declaration": true,
}

// Publicize makes every top-level item of src without a visibility public so
// that later generations can name it.  The named fields of such structs and
// unions and the functions of inherent impls are made public too.  Source
// with syntax errors is returned unchanged.
func Publicize(src string) string {
	st, err := parse([]byte(src))
	if err != nil {
		return src
	}
	defer st.close()

	root := st.root()
	if root.HasError() {
		return src
	}

	var offsets []uint
	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)

		switch node.Kind() {
		case "struct_item", "union_item":
			if body := node.ChildByFieldName("body"); body != nil && body.Kind() == "field_declaration_list" {
				offsets = appendPrivate(offsets, body, "field_declaration")
			}
		case "impl_item":
			if node.ChildByFieldName("trait") == nil {
				if body := node.ChildByFieldName("body"); body != nil {
					offsets = appendPrivate(offsets, body, "function_item")
				}
			}
		}

		if publicKinds[node.Kind()] && !hasVisibility(node) {
			offsets = append(offsets, node.StartByte())
		}
	}

	if len(offsets) == 0 {
		return src
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	sb := strings.Builder{}
	prev := uint(0)
	for _, off := range offsets {
		sb.WriteString(src[prev:off])
		sb.WriteString("pub ")
		prev = off
	}
	sb.WriteString(src[prev:])

	return sb.String()
}

// appendPrivate appends the start of every child of list of the given kind
// that has no visibility.
func appendPrivate(offsets []uint, list *sitter.Node, kind string) []uint {
	for i := uint(0); i < list.NamedChildCount(); i++ {
		child := list.NamedChild(i)
		if child.Kind() == kind && !hasVisibility(child) {
			offsets = append(offsets, child.StartByte())
		}
	}

	return offsets
}

func hasVisibility(node *sitter.Node) bool {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if node.NamedChild(i).Kind() == "visibility_modifier" {
			return true
		}
	}

	return false
}
