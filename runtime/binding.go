package runtime

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wasmstub/linkrt/engine"
	"github.com/wasmstub/linkrt/errors"
	"github.com/wasmstub/linkrt/stub"
)

// BindingTable is the import binding table of §4.2: a path -> handler map
// that drives how a primary component's imports get satisfied the next
// time it is instantiated. Install replaces whatever handler previously
// occupied a path; stubbing one path never disturbs another.
//
// Paths use stub.Identifier's "root::name" / "interface::name" shape so the
// table never needs to parse component metadata itself - it just remembers
// what the Stubber (or a host-capability registration) decided.
type BindingTable struct {
	mu       sync.RWMutex
	handlers map[string]any
}

// NewBindingTable returns an empty binding table.
func NewBindingTable() *BindingTable {
	return &BindingTable{handlers: make(map[string]any)}
}

// Install records handler as the binding for path, replacing (shadowing)
// any prior binding at that path. Implements stub.Installer.
func (t *BindingTable) Install(path string, handler any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, shadowed := t.handlers[path]
	t.handlers[path] = handler
	Logger().Debug("binding installed", zap.String("path", path), zap.Bool("shadowed", shadowed))
}

// Lookup returns the handler bound to path, if any.
func (t *BindingTable) Lookup(path string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handlers[path]
	return h, ok
}

// Paths returns every currently bound path.
func (t *BindingTable) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.handlers))
	for p := range t.handlers {
		out = append(out, p)
	}
	return out
}

// pathFor mirrors the "namespace#function" convention the canon registry
// uses, turning it into the stub.Identifier path shape ("root::fn" or
// "iface::fn").
func pathFor(lowerName string) string {
	ns, fn := splitLowerName(lowerName)
	if ns == "" {
		return "root::" + fn
	}
	return ns + "::" + fn
}

// splitPath turns a stub.Identifier-shaped path ("root::name" or
// "iface::name") into the (namespace, name) pair RegisterHostFuncTyped
// expects, where the root namespace is "".
func splitPath(path string) (namespace, name string) {
	idx := strings.LastIndex(path, "::")
	if idx == -1 {
		return "", path
	}
	ns, n := path[:idx], path[idx+2:]
	if ns == "root" {
		return "", n
	}
	return ns, n
}

// splitLowerName mirrors the canon registry's own "namespace#function"
// naming convention.
func splitLowerName(name string) (namespace, funcName string) {
	idx := strings.LastIndex(name, "#")
	if idx == -1 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

// isHostCapability reports whether namespace belongs to the wasi:*
// host-capability surface, which RegisterWASI's HostRegistry.Bind already
// satisfies directly against the module. The binding table only concerns
// itself with the application-level imports a stub or a donor can fill.
func isHostCapability(namespace string) bool {
	return strings.HasPrefix(namespace, "wasi:")
}

// PopulateStubs installs a zero-filling stub handler for every import mod
// declares that has no binding yet, per §4.2's populate_stubs. cb is
// invoked once per newly stubbed import, named by its binding-table path,
// so a caller (the on_stub_call hook of §6) can report which imports are
// still unresolved.
func (t *BindingTable) PopulateStubs(mod *engine.WazeroModule, cb func(path string)) {
	for _, def := range mod.AllImports() {
		ns, _ := splitLowerName(def.Name)
		if isHostCapability(ns) {
			continue
		}
		path := pathFor(def.Name)

		t.mu.RLock()
		_, bound := t.handlers[path]
		t.mu.RUnlock()
		if bound {
			continue
		}

		handler := stub.NewZeroStubHandler(def.Params, def.Results)
		t.Install(path, handler)
		if cb != nil {
			cb(path)
		}
	}
}

// Instantiate binds every installed handler onto mod and instantiates it.
// An import with no binding at all (populate_stubs was never run for it)
// fails as InstantiationFailed, matching §4.2's instantiate contract.
func (t *BindingTable) Instantiate(ctx context.Context, mod *engine.WazeroModule) (*engine.WazeroInstance, error) {
	for _, def := range mod.AllImports() {
		ns, _ := splitLowerName(def.Name)
		if isHostCapability(ns) {
			continue
		}
		path := pathFor(def.Name)

		t.mu.RLock()
		handler, ok := t.handlers[path]
		t.mu.RUnlock()
		if !ok {
			return nil, errors.New(errors.PhaseRuntime, errors.KindInstantiation).
				Detail("import %q has no binding; call populate_stubs first", path).Build()
		}

		namespace, name := splitPath(path)
		if err := mod.RegisterHostFuncTyped(namespace, name, handler); err != nil {
			return nil, errors.Registration(errors.PhaseRuntime, namespace, name, err)
		}
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInstantiation).
			Cause(err).Build()
	}
	return inst, nil
}
