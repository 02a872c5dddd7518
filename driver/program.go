package driver

import (
	"rusti/report"
	"rusti/trans"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ItemKind is the kind of a top-level item.
type ItemKind string

// Enumeration of item kinds.
const (
	ItemFunction    ItemKind = "fn"
	ItemStruct      ItemKind = "struct"
	ItemEnum        ItemKind = "enum"
	ItemUnion       ItemKind = "union"
	ItemTrait       ItemKind = "trait"
	ItemImpl        ItemKind = "impl"
	ItemConst       ItemKind = "const"
	ItemStatic      ItemKind = "static"
	ItemTypeAlias   ItemKind = "type"
	ItemModule      ItemKind = "mod"
	ItemUse         ItemKind = "use"
	ItemExternCrate ItemKind = "extern crate"
	ItemMacro       ItemKind = "macro_rules!"
	ItemForeign     ItemKind = "extern"
)

// itemKindNames maps the grammar's node kinds to item kinds.
var itemKindNames = map[string]ItemKind{
	"function_item":            ItemFunction,
	"function_signature_item":  ItemFunction,
	"struct_item":              ItemStruct,
	"enum_item":                ItemEnum,
	"union_item":               ItemUnion,
	"trait_item":               ItemTrait,
	"impl_item":                ItemImpl,
	"const_item":               ItemConst,
	"static_item":              ItemStatic,
	"type_item":                ItemTypeAlias,
	"mod_item":                 ItemModule,
	"use_declaration":          ItemUse,
	"extern_crate_declaration": ItemExternCrate,
	"macro_definition":         ItemMacro,
	"foreign_mod_item":         ItemForeign,
}

// Param is a parameter of a function item.
type Param struct {
	Name string
	Type string
}

// Item is a top-level item of a program.
type Item struct {
	Kind   ItemKind
	Name   string
	Public bool
	Span   *report.TextSpan

	// Params and Result are only set for function items.  Result is empty
	// for functions returning the unit type.
	Params []Param
	Result string
}

// Program is the analyzed form of one compilation unit.
type Program struct {
	CrateName string
	Path      string
	Source    string

	Items []Item

	// Externs are the crates named by the program's `extern crate`
	// declarations.
	Externs []string

	// Translation is only set if compilation continued past analysis.
	Translation *trans.CrateTranslation
}

// Lookup returns the named item that declares name, if any.
func (p *Program) Lookup(name string) (Item, bool) {
	for _, item := range p.Items {
		if item.Name == name && item.Kind != ItemUse && item.Kind != ItemImpl {
			return item, true
		}
	}

	return Item{}, false
}

// Functions returns the function items of the program.
func (p *Program) Functions() []Item {
	var fns []Item
	for _, item := range p.Items {
		if item.Kind == ItemFunction {
			fns = append(fns, item)
		}
	}

	return fns
}

// -----------------------------------------------------------------------------

// builtinCrates are the crates that are always available by name.
var builtinCrates = map[string]bool{
	"std":        true,
	"core":       true,
	"alloc":      true,
	"proc_macro": true,
	"test":       true,
}

// analyze collects the top-level items of the tree and checks them against
// the given options.  Errors are reported.
func (st *syntaxTree) analyze(reprPath string, opts Options) *Program {
	prog := &Program{
		CrateName: opts.CrateName,
		Path:      reprPath,
		Source:    string(st.src),
	}

	declared := make(map[string]bool)
	for _, ext := range opts.Externs {
		declared[ext.Name] = true
	}

	// items sharing a namespace may not share a name
	seen := make(map[string]Item)

	root := st.root()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		kind, ok := itemKindNames[node.Kind()]
		if !ok {
			continue
		}

		item := st.item(node, kind)
		prog.Items = append(prog.Items, item)

		if kind == ItemExternCrate {
			if !builtinCrates[item.Name] && !declared[item.Name] {
				report.ReportCompileError(reprPath, prog.Source, item.Span, "can't find crate for `%s`", item.Name)
			}
			prog.Externs = append(prog.Externs, item.Name)
		}

		if item.Name == "" || kind == ItemUse || kind == ItemImpl {
			continue
		}

		key := namespaceOf(kind) + item.Name
		if prev, ok := seen[key]; ok {
			report.ReportCompileError(reprPath, prog.Source, item.Span,
				"the name `%s` is defined multiple times (previous definition on line %d)",
				item.Name, prev.Span.StartLine+1)
			continue
		}
		seen[key] = item
	}

	return prog
}

// namespaceOf returns the namespace an item of the given kind is declared in.
func namespaceOf(kind ItemKind) string {
	switch kind {
	case ItemFunction, ItemConst, ItemStatic:
		return "value:"
	case ItemMacro:
		return "macro:"
	}

	return "type:"
}

// item builds the item declared by node.
func (st *syntaxTree) item(node *sitter.Node, kind ItemKind) Item {
	item := Item{Kind: kind, Span: spanOf(node), Public: hasVisibility(node)}

	switch kind {
	case ItemImpl:
		if ty := node.ChildByFieldName("type"); ty != nil {
			item.Name = st.text(ty)
		}
	case ItemUse:
		if arg := node.ChildByFieldName("argument"); arg != nil {
			item.Name = st.text(arg)
		}
	case ItemForeign:
	default:
		if name := node.ChildByFieldName("name"); name != nil {
			item.Name = st.text(name)
		}
	}

	if kind == ItemFunction {
		if params := node.ChildByFieldName("parameters"); params != nil {
			for i := uint(0); i < params.NamedChildCount(); i++ {
				p := params.NamedChild(i)
				switch p.Kind() {
				case "parameter":
					param := Param{}
					if pat := p.ChildByFieldName("pattern"); pat != nil {
						param.Name = st.text(pat)
					}
					if ty := p.ChildByFieldName("type"); ty != nil {
						param.Type = st.text(ty)
					}
					item.Params = append(item.Params, param)
				case "self_parameter":
					item.Params = append(item.Params, Param{Name: "self", Type: "Self"})
				}
			}
		}

		if ret := node.ChildByFieldName("return_type"); ret != nil {
			item.Result = st.text(ret)
		}
	}

	return item
}
