package runtime

import (
	"context"

	"github.com/wasmstub/linkrt/component"
	"github.com/wasmstub/linkrt/engine"
	"github.com/wasmstub/linkrt/errors"
	"github.com/wasmstub/linkrt/linker"
)

type Runtime struct {
	engine *engine.WazeroEngine
	hosts  *HostRegistry
}

// Options configures a Runtime at construction time. This is the only
// configuration surface the runtime exposes; there is no config file or
// environment parsing.
type Options struct {
	// SemverMatching controls whether the host-module linker resolves an
	// import namespace like "wasi:io/streams@0.2.1" against a registration
	// for "wasi:io/streams@0.2.0" (same major, compatible minor/patch).
	SemverMatching bool
}

// DefaultOptions returns the default Runtime configuration.
func DefaultOptions() Options {
	return Options{SemverMatching: true}
}

func New(ctx context.Context) (*Runtime, error) {
	return NewWithOptions(ctx, DefaultOptions())
}

// NewWithOptions builds a Runtime with explicit Options rather than the
// defaults.
func NewWithOptions(ctx context.Context, opts Options) (*Runtime, error) {
	eng, err := engine.NewWazeroEngineWithConfig(ctx, &engine.Config{
		LinkerOptions: &linker.Options{SemverMatching: opts.SemverMatching},
	})
	if err != nil {
		return nil, errors.Load("create engine", err)
	}

	return &Runtime{
		engine: eng,
		hosts:  NewHostRegistry(),
	}, nil
}

// Close releases all runtime resources.
// All instances must be closed before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

// RegisterHost registers all exported methods of h as host functions.
// Must be called BEFORE loading modules that import these functions.
// Method names are converted from PascalCase to kebab-case (GetValue -> get-value).
func (r *Runtime) RegisterHost(h Host) error {
	return r.hosts.RegisterHost(h)
}

func (r *Runtime) RegisterFunc(namespace, name string, fn any) error {
	return r.hosts.RegisterFunc(namespace, name, fn)
}

func (r *Runtime) Hosts() *HostRegistry {
	return r.hosts
}

// Engine returns the underlying engine, e.g. to load a module directly
// without going through LoadComponent's host-binding side effects.
func (r *Runtime) Engine() *engine.WazeroEngine {
	return r.engine
}

// LoadComponent loads a WebAssembly Component Model binary.
// Types are extracted from component metadata automatically.
func (r *Runtime) LoadComponent(ctx context.Context, wasm []byte) (*Module, error) {
	if !component.IsComponent(wasm) {
		return nil, errors.InvalidInput(errors.PhaseLoad, "not a valid component binary")
	}

	wazeroModule, err := r.engine.LoadModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("load module", err)
	}

	if err := r.hosts.Bind(wazeroModule); err != nil {
		return nil, errors.Load("bind hosts", err)
	}

	return &Module{
		runtime:      r,
		wazeroModule: wazeroModule,
		isComponent:  true,
	}, nil
}

// LoadWASM loads a core WebAssembly module (not Component Model).
// witText provides function signatures for type-safe calls since core
// modules lack type metadata.
func (r *Runtime) LoadWASM(ctx context.Context, wasm []byte, witText string) (*Module, error) {
	if component.IsComponent(wasm) {
		return nil, errors.InvalidInput(errors.PhaseLoad, "use LoadComponent for component binaries")
	}

	wazeroModule, err := r.engine.LoadModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("load module", err)
	}

	if err := r.hosts.Bind(wazeroModule); err != nil {
		return nil, errors.Load("bind hosts", err)
	}

	return &Module{
		runtime:      r,
		wazeroModule: wazeroModule,
		isComponent:  false,
		witText:      witText,
	}, nil
}
