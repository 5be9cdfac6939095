package stub

import (
	"github.com/wasmstub/linkrt/component"
	"github.com/wasmstub/linkrt/engine"
)

// importsInInterface returns every function the primary module imports
// from the named interface, keyed by bare function name. An import whose
// canon-registry name carries no "interface#" prefix, or whose prefix
// doesn't match iface, is not part of this interface.
func importsInInterface(primary *engine.WazeroModule, iface string) map[string]*component.LowerDef {
	out := make(map[string]*component.LowerDef)
	for _, def := range primary.AllImports() {
		ns, fn := splitExportName(def.Name)
		if ns == iface {
			out[fn] = def
		}
	}
	return out
}

// exportsInInterface returns every function the donor module exports from
// the named interface, keyed by bare function name.
func exportsInInterface(donor *engine.WazeroModule, iface string) map[string]*component.LiftDef {
	out := make(map[string]*component.LiftDef)
	for _, def := range donor.AllExports() {
		ns, fn := splitExportName(def.Name)
		if ns == iface {
			out[fn] = def
		}
	}
	return out
}
