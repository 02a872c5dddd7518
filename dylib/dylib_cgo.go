//go:build cgo && (linux || darwin || freebsd)
// +build cgo
// +build linux darwin freebsd

package dylib

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <stdint.h>

static void* rusti_dlopen(const char* path) {
	return dlopen(path, RTLD_NOW | RTLD_GLOBAL);
}

static const char* rusti_dlerror(void) {
	return dlerror();
}

// Clear dlerror, call dlsym, and return the error (if any) alongside the symbol.
static void* rusti_dlsym(void* h, const char* name, const char** err) {
	dlerror();
	void* p = dlsym(h, name);
	const char* e = dlerror();
	*err = e;
	return e ? NULL : p;
}

typedef int32_t (*rusti_entry_fn)(void);

static int32_t rusti_call_entry(void* fn) {
	return ((rusti_entry_fn)fn)();
}
*/
import "C"

import "unsafe"

type handle = unsafe.Pointer

func dlerr() string {
	if e := C.rusti_dlerror(); e != nil {
		return C.GoString(e)
	}

	return "unknown dlerror"
}

// Open loads the library at path with all its symbols bound immediately and
// made available to libraries loaded after it.
func Open(path string) (*Library, error) {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	h := C.rusti_dlopen(cs)
	if h == nil {
		return nil, &LoadFailure{Path: path, Message: dlerr()}
	}

	l := &Library{path: path, handle: h}
	register(l)
	return l, nil
}

// Call resolves symbol by exact name and invokes it as a C function taking no
// arguments and returning a 32-bit status.  The signature is trusted: calling
// a symbol with any other signature is undefined behavior.
func (l *Library) Call(symbol string) (int, error) {
	cs := C.CString(symbol)
	defer C.free(unsafe.Pointer(cs))

	var cerr *C.char
	fn := C.rusti_dlsym(l.handle, cs, &cerr)
	if cerr != nil || fn == nil {
		return 0, &SymbolNotFound{Path: l.path, Symbol: symbol}
	}

	return int(C.rusti_call_entry(fn)), nil
}
