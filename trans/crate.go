package trans

import "fmt"

// LinkMeta is the link metadata of a crate.
type LinkMeta struct {
	CrateHash string
}

// EncodedMetadata is the encoded interface metadata of a crate.
type EncodedMetadata struct {
	Raw []byte
}

// NativeLibrary is a native library a crate links against.
type NativeLibrary struct {
	Name string

	// Kind is one of `static`, `dylib` or `framework`.
	Kind string
}

// UsedCrate is an upstream crate the crate depends on.
type UsedCrate struct {
	Name    string
	Path    string
	Dynamic bool
}

// CrateInfo is the auxiliary linkage information of a crate.
type CrateInfo struct {
	NativeLibraries []NativeLibrary
	UsedCrates      []UsedCrate
	LinkArgs        []string
}

// ManifestError reports a crate translation that breaks the module invariants.
type ManifestError struct {
	CrateName string
	Message   string
}

func (me *ManifestError) Error() string {
	return fmt.Sprintf("invalid translation of crate `%s`: %s", me.CrateName, me.Message)
}

// CrateTranslation is the manifest of a translated crate.  It has exactly one
// metadata module and at most one allocator module; the order of the regular
// modules carries no meaning for linking.
type CrateTranslation struct {
	CrateName string

	Modules         []*ModuleTranslation
	MetadataModule  *ModuleTranslation
	AllocatorModule *ModuleTranslation

	Link      LinkMeta
	Metadata  EncodedMetadata
	CrateInfo CrateInfo
}

// NewCrateTranslation sorts the given modules by kind into a new crate
// translation.  It fails if the modules do not contain exactly one metadata
// module or contain more than one allocator module.
func NewCrateTranslation(name string, modules []*ModuleTranslation, link LinkMeta, metadata EncodedMetadata, info CrateInfo) (*CrateTranslation, error) {
	ct := &CrateTranslation{
		CrateName: name,
		Link:      link,
		Metadata:  metadata,
		CrateInfo: info,
	}

	for _, mt := range modules {
		switch mt.Kind {
		case ModuleRegular:
			ct.Modules = append(ct.Modules, mt)
		case ModuleMetadata:
			if ct.MetadataModule != nil {
				return nil, &ManifestError{CrateName: name, Message: "more than one metadata module"}
			}
			ct.MetadataModule = mt
		case ModuleAllocator:
			if ct.AllocatorModule != nil {
				return nil, &ManifestError{CrateName: name, Message: "more than one allocator module"}
			}
			ct.AllocatorModule = mt
		default:
			return nil, &ManifestError{CrateName: name, Message: fmt.Sprintf("module `%s` has unknown kind", mt.Name)}
		}
	}

	if err := ct.Validate(); err != nil {
		return nil, err
	}

	return ct, nil
}

// Validate checks the module invariants of the crate translation.
func (ct *CrateTranslation) Validate() error {
	if ct.MetadataModule == nil {
		return &ManifestError{CrateName: ct.CrateName, Message: "missing metadata module"}
	}

	if ct.MetadataModule.Kind != ModuleMetadata {
		return &ManifestError{CrateName: ct.CrateName, Message: "metadata module has kind " + ct.MetadataModule.Kind.String()}
	}

	if ct.AllocatorModule != nil && ct.AllocatorModule.Kind != ModuleAllocator {
		return &ManifestError{CrateName: ct.CrateName, Message: "allocator module has kind " + ct.AllocatorModule.Kind.String()}
	}

	for _, mt := range ct.Modules {
		if mt.Kind != ModuleRegular {
			return &ManifestError{CrateName: ct.CrateName, Message: fmt.Sprintf("module `%s` of kind %s listed as regular", mt.Name, mt.Kind)}
		}
	}

	return nil
}

// AllModules returns every module of the crate: the regular modules followed
// by the metadata module and the allocator module if there is one.
func (ct *CrateTranslation) AllModules() []*ModuleTranslation {
	all := append([]*ModuleTranslation(nil), ct.Modules...)
	all = append(all, ct.MetadataModule)
	if ct.AllocatorModule != nil {
		all = append(all, ct.AllocatorModule)
	}

	return all
}

// Dispose releases the native handles of every translated module.
func (ct *CrateTranslation) Dispose() {
	for _, mt := range ct.AllModules() {
		if mt != nil {
			mt.Dispose()
		}
	}
}
