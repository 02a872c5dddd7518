package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"rusti/common"
	"rusti/trans"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// interfaceMetadata is the encoded interface of a crate: what later crates
// may refer to.
type interfaceMetadata struct {
	Crate   string         `toml:"crate"`
	Hash    string         `toml:"hash"`
	Externs []string       `toml:"externs"`
	Items   []itemMetadata `toml:"items"`
}

type itemMetadata struct {
	Kind   string   `toml:"kind"`
	Name   string   `toml:"name"`
	Params []string `toml:"params,omitempty"`
	Result string   `toml:"result,omitempty"`
}

// primitiveTypes maps the primitive types of the source language to IR types.
// Everything else is passed by pointer.
var primitiveTypes = map[string]types.Type{
	"bool":  types.I1,
	"i8":    types.I8,
	"u8":    types.I8,
	"i16":   types.I16,
	"u16":   types.I16,
	"i32":   types.I32,
	"u32":   types.I32,
	"char":  types.I32,
	"i64":   types.I64,
	"u64":   types.I64,
	"isize": types.I64,
	"usize": types.I64,
	"i128":  types.I128,
	"u128":  types.I128,
	"f32":   types.Float,
	"f64":   types.Double,
	"()":    types.Void,
}

func irType(name string) types.Type {
	if t, ok := primitiveTypes[strings.TrimSpace(name)]; ok {
		return t
	}

	return types.I8Ptr
}

// translate produces the crate translation of an analyzed program: a regular
// module declaring the program's functions, and the metadata module
// carrying its encoded interface.
func translate(prog *Program, opts Options) (*trans.CrateTranslation, error) {
	sum := sha256.Sum256([]byte(prog.Source))
	hash := hex.EncodeToString(sum[:8])

	meta := interfaceMetadata{Crate: prog.CrateName, Hash: hash, Externs: prog.Externs}
	for _, item := range prog.Items {
		if !item.Public || item.Name == "" {
			continue
		}

		im := itemMetadata{Kind: string(item.Kind), Name: item.Name, Result: item.Result}
		for _, p := range item.Params {
			im.Params = append(im.Params, p.Type)
		}
		meta.Items = append(meta.Items, im)
	}

	raw, err := toml.Marshal(meta)
	if err != nil {
		return nil, errors.Wrap(err, "encoding crate metadata")
	}

	code := trans.NewModuleLLVM(prog.CrateName + ".0")
	metaLLVM := trans.NewModuleLLVM(prog.CrateName + ".metadata")
	if err := declareFuncs(code, prog); err != nil {
		code.Dispose()
		metaLLVM.Dispose()
		return nil, err
	}
	if err := defineMetadata(metaLLVM, prog.CrateName, raw); err != nil {
		code.Dispose()
		metaLLVM.Dispose()
		return nil, err
	}

	info := trans.CrateInfo{}
	for _, ext := range opts.Externs {
		info.UsedCrates = append(info.UsedCrates, trans.UsedCrate{Name: ext.Name, Path: ext.Path, Dynamic: true})
	}

	ct, err := trans.NewCrateTranslation(prog.CrateName, []*trans.ModuleTranslation{
		{Name: "0", Kind: trans.ModuleRegular, Source: trans.Translated{LLVM: code}},
		{Name: "metadata", Kind: trans.ModuleMetadata, Source: trans.Translated{LLVM: metaLLVM}},
	}, trans.LinkMeta{CrateHash: hash}, trans.EncodedMetadata{Raw: raw}, info)
	if err != nil {
		code.Dispose()
		metaLLVM.Dispose()
		return nil, err
	}

	return ct, nil
}

// declareFuncs declares every function of prog in the module.
func declareFuncs(llvm *trans.ModuleLLVM, prog *Program) error {
	m, err := llvm.Module()
	if err != nil {
		return errors.Wrap(err, "declaring functions")
	}

	for _, fn := range prog.Functions() {
		declareFunc(m, prog.CrateName, fn)
	}

	return nil
}

// defineMetadata stores the encoded interface of a crate in the module.
func defineMetadata(llvm *trans.ModuleLLVM, crateName string, raw []byte) error {
	m, err := llvm.Module()
	if err != nil {
		return errors.Wrap(err, "defining crate metadata")
	}

	g := m.NewGlobalDef("rusti_metadata_"+crateName, constant.NewCharArrayFromString(string(raw)))
	g.Immutable = true
	return nil
}

// declareFunc adds the declaration of a function item to the module.  Entry
// shims keep their exported name; every other function is qualified by its
// crate.
func declareFunc(m *ir.Module, crateName string, fn Item) *ir.Func {
	var params []*ir.Param
	for _, p := range fn.Params {
		params = append(params, ir.NewParam("", irType(p.Type)))
	}

	result := types.Type(types.Void)
	if fn.Result != "" {
		result = irType(fn.Result)
	}

	name := fn.Name
	if !strings.HasPrefix(name, common.EntryPrefix) {
		name = crateName + "::" + name
	}

	return m.NewFunc(name, result, params...)
}
