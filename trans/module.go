// Package trans holds the bookkeeping for translated crates: the modules a
// crate is compiled into, the native handles a freshly translated module owns,
// and the manifest handed to the linker.
package trans

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"
)

// ModuleKind tags a compiled module with its role in the crate.
type ModuleKind int

// Enumeration of module kinds.
const (
	ModuleRegular   ModuleKind = iota // Ordinary code.
	ModuleMetadata                    // Encoded crate metadata.
	ModuleAllocator                   // The allocator shim.
)

func (k ModuleKind) String() string {
	switch k {
	case ModuleRegular:
		return "regular"
	case ModuleMetadata:
		return "metadata"
	case ModuleAllocator:
		return "allocator"
	}

	return "unknown"
}

// ErrDisposed is returned when a disposed module is used.
var ErrDisposed = errors.New("module has been disposed")

// liveHandles counts the native handles that have been created but not yet
// disposed.
var liveHandles int64

// LiveHandles returns the number of native handles currently alive.
func LiveHandles() int64 {
	return atomic.LoadInt64(&liveHandles)
}

// OwnedObject represents a native object that can be disposed.
type OwnedObject interface {
	// dispose frees all the resources associated with the native object.
	dispose()
}

// Context represents a code generation context: the owner of every type and
// value created for a module.
type Context struct {
	name string
}

// NewContext creates a new code generation context.
func NewContext(name string) *Context {
	atomic.AddInt64(&liveHandles, 1)
	return &Context{name: name}
}

func (c *Context) dispose() {
	atomic.AddInt64(&liveHandles, -1)
}

// TargetMachine describes the machine code is generated for.
type TargetMachine struct {
	Triple     string
	CPU        string
	Features   string
	DataLayout string
}

// newHostMachine creates a target machine for the host.
func newHostMachine() *TargetMachine {
	atomic.AddInt64(&liveHandles, 1)
	return &TargetMachine{Triple: HostTriple(), CPU: "generic"}
}

func (tm *TargetMachine) dispose() {
	atomic.AddInt64(&liveHandles, -1)
}

// HostTriple returns the target triple of the host.
func HostTriple() string {
	arch := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
		"386":   "i686",
		"arm":   "armv7",
	}[runtime.GOARCH]
	if arch == "" {
		arch = runtime.GOARCH
	}

	switch runtime.GOOS {
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-msvc"
	default:
		return arch + "-unknown-" + runtime.GOOS + "-gnu"
	}
}

// irModule wraps the IR module so the context can take ownership of it.
type irModule struct {
	m *ir.Module
}

func (im *irModule) dispose() {
	im.m = nil
	atomic.AddInt64(&liveHandles, -1)
}

// ModuleLLVM is a freshly translated module.  It owns three native handles:
// its context, its IR module and its target machine.  The three are released
// together, exactly once, by Dispose.
type ModuleLLVM struct {
	ctx *Context
	mod *irModule
	tm  *TargetMachine

	once     sync.Once
	disposed int32
}

// NewModuleLLVM creates a new translated module with the given name for the
// host target machine.
func NewModuleLLVM(name string) *ModuleLLVM {
	tm := newHostMachine()

	m := ir.NewModule()
	m.SourceFilename = name
	m.TargetTriple = tm.Triple
	m.DataLayout = tm.DataLayout

	atomic.AddInt64(&liveHandles, 1)
	return &ModuleLLVM{
		ctx: NewContext(name),
		mod: &irModule{m: m},
		tm:  tm,
	}
}

// Module returns the IR module.  It fails once the module has been disposed.
func (ml *ModuleLLVM) Module() (*ir.Module, error) {
	if ml.Disposed() {
		return nil, ErrDisposed
	}

	return ml.mod.m, nil
}

// TargetMachine returns the target machine the module is generated for.
func (ml *ModuleLLVM) TargetMachine() (*TargetMachine, error) {
	if ml.Disposed() {
		return nil, ErrDisposed
	}

	return ml.tm, nil
}

// Disposed returns whether the module has been disposed.
func (ml *ModuleLLVM) Disposed() bool {
	return atomic.LoadInt32(&ml.disposed) == 1
}

// Dispose frees the module, its context and its target machine.  Only the
// first call has any effect.
func (ml *ModuleLLVM) Dispose() {
	ml.once.Do(func() {
		atomic.StoreInt32(&ml.disposed, 1)

		for _, obj := range []OwnedObject{ml.mod, ml.ctx, ml.tm} {
			obj.dispose()
		}

		ml.mod, ml.ctx, ml.tm = nil, nil, nil
	})
}

// -----------------------------------------------------------------------------

// WorkProduct is the output of a previous build that is reused without being
// translated again.
type WorkProduct struct {
	// The name of the codegen unit the work product was produced for.
	CGUName string

	// The saved files of the work product organized by kind, eg. `o` for the
	// object file.
	SavedFiles map[string]string
}

// Object returns the object file of the work product if it has one.
func (wp WorkProduct) Object() (string, bool) {
	path, ok := wp.SavedFiles["o"]
	return path, ok
}

// ModuleSource is where the code of a module comes from: either a previous
// build (Preexisting) or a fresh translation (Translated).
type ModuleSource interface {
	isModuleSource()
}

// Preexisting is a module reused unmodified from a previous build.
type Preexisting struct {
	WorkProduct WorkProduct
}

// Translated is a module rebuilt from its IR.
type Translated struct {
	LLVM *ModuleLLVM
}

func (Preexisting) isModuleSource() {}
func (Translated) isModuleSource()  {}

// ModuleTranslation is one module of a crate as produced by translation.
type ModuleTranslation struct {
	Name   string
	Kind   ModuleKind
	Source ModuleSource
}

// IsPreexisting returns whether the module is reused from a previous build.
func (mt *ModuleTranslation) IsPreexisting() bool {
	_, ok := mt.Source.(Preexisting)
	return ok
}

// Dispose releases the native handles of a translated module.  It does
// nothing for reused modules.
func (mt *ModuleTranslation) Dispose() {
	if t, ok := mt.Source.(Translated); ok && t.LLVM != nil {
		t.LLVM.Dispose()
	}
}

// Compiled converts the module into its compiled form given the path of the
// object file produced for it.
func (mt *ModuleTranslation) Compiled(object string) CompiledModule {
	return CompiledModule{
		Name:        mt.Name,
		Kind:        mt.Kind,
		PreExisting: mt.IsPreexisting(),
		Object:      object,
	}
}

// CompiledModule is a module that has been compiled to an object file.
type CompiledModule struct {
	Name        string
	Kind        ModuleKind
	PreExisting bool
	Object      string
	Bytecode    string
}
