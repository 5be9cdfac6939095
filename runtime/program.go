package runtime

import (
	"context"
	"sync"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wasmstub/linkrt/component"
	"github.com/wasmstub/linkrt/errors"
	"github.com/wasmstub/linkrt/stub"
)

// Composer composes a primary component with an adapter, as an external
// wasm-tools-style compose step. The actual tool is an out-of-scope
// collaborator; Program only needs something satisfying this interface.
type Composer interface {
	Compose(primary, adapter []byte) ([]byte, error)
}

// FuncHandle names an exported function of the current primary instance,
// captured with the WIT types get_func resolved it against so call_func
// never has to re-resolve metadata.
type FuncHandle struct {
	name    string
	params  []wit.Type
	results []wit.Type
}

// Program is the runtime object init() hands back to the shell: it owns
// the primary component, the donor store, the import binding table, and
// the current instance, and serializes every public operation behind a
// single mutex per §5 ("a simple whole-runtime guard acquired for the
// duration of every public operation suffices").
type Program struct {
	mu sync.Mutex

	primary  *Runtime
	donor    *Runtime
	binding  *BindingTable
	stubber  *stub.Stubber
	guard    *stub.DonorGuard
	composer Composer
	onStub   func(path string)

	rawBytes []byte
	module   *Module
	instance *Instance
}

// Init loads component_bytes as the primary component and returns a ready
// Program: host-capability imports are bound immediately, and every
// remaining import gets a zero-filling stub so the component can be
// instantiated before any donor is attached. onStubCall, if non-nil, is
// invoked once per import that populate_stubs had to stub.
func Init(ctx context.Context, componentBytes []byte, onStubCall func(path string)) (*Program, error) {
	primary, err := NewPrimaryStore(ctx)
	if err != nil {
		return nil, errors.Load("build primary store", err)
	}

	donor, err := NewDonorStore(ctx, "donor")
	if err != nil {
		return nil, errors.Load("build donor store", err)
	}

	guard := stub.NewDonorGuard()
	p := &Program{
		primary: primary,
		donor:   donor,
		stubber: stub.New(donor.Engine(), donor.Hosts(), guard),
		guard:   guard,
		onStub:  onStubCall,
	}

	if err := p.setComponentLocked(ctx, componentBytes); err != nil {
		return nil, err
	}
	return p, nil
}

// WithComposer attaches the Composer compose() delegates to. Returns p for
// chaining.
func (p *Program) WithComposer(c Composer) *Program {
	p.composer = c
	return p
}

// ComponentBytes returns the bytes of the currently loaded primary
// component.
func (p *Program) ComponentBytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rawBytes
}

// setComponentLocked loads bytes as the new primary component, discards
// the binding table (per §9's Open Question resolution: set_component and
// compose never carry bindings forward), stubs every non-host-capability
// import, and refreshes the current instance. Caller must hold p.mu or be
// constructing p for the first time.
func (p *Program) setComponentLocked(ctx context.Context, componentBytes []byte) error {
	if !component.IsComponent(componentBytes) {
		return errors.InvalidInput(errors.PhaseLoad, "not a valid component binary")
	}

	module, err := p.primary.LoadComponent(ctx, componentBytes)
	if err != nil {
		return err
	}

	p.binding = NewBindingTable()
	p.binding.PopulateStubs(module.wazeroModule, p.onStub)

	instance, err := p.binding.Instantiate(ctx, module.wazeroModule)
	if err != nil {
		return err
	}

	p.rawBytes = componentBytes
	p.module = module
	p.instance = &Instance{module: module, wazeroInstance: instance}
	return nil
}

// refreshLocked re-instantiates the current primary module against the
// current binding table and atomically swaps current_instance. The
// previous instance is left alone; any invocation already in flight
// against it runs to completion against pre-refresh state, matching §5.
func (p *Program) refreshLocked(ctx context.Context) error {
	wazeroInstance, err := p.binding.Instantiate(ctx, p.module.wazeroModule)
	if err != nil {
		return err
	}
	p.instance = &Instance{module: p.module, wazeroInstance: wazeroInstance}
	Logger().Info("primary instance refreshed")
	return nil
}

// SetComponent replaces the primary component, per §4.4's set_component:
// no bindings carry forward, only host-capability imports and fresh stubs
// are in place until Stub is called again.
func (p *Program) SetComponent(ctx context.Context, componentBytes []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setComponentLocked(ctx, componentBytes)
}

// Compose runs adapterBytes through the attached Composer against the
// current primary bytes, then installs the result via SetComponent.
func (p *Program) Compose(ctx context.Context, adapterBytes []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.composer == nil {
		return errors.New(errors.PhaseCompose, errors.KindCompositionFailed).
			Detail("no composer configured").Build()
	}

	composed, err := p.composer.Compose(p.rawBytes, adapterBytes)
	if err != nil {
		return errors.New(errors.PhaseCompose, errors.KindCompositionFailed).
			Cause(err).Detail("external composer failed").Build()
	}

	return p.setComponentLocked(ctx, composed)
}

// Stub binds importID to exportID against donorBytes and refreshes the
// current instance, per §4.4/§4.5. A validation failure (shape, type,
// arity mismatch) leaves the binding table and current instance untouched.
func (p *Program) Stub(ctx context.Context, importID, exportID stub.Identifier, donorBytes []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.stubber.Stub(ctx, p.module.wazeroModule, importID, exportID, donorBytes, p.binding); err != nil {
		return err
	}
	Logger().Info("stub bound",
		zap.String("import", importID.Path()), zap.String("export", exportID.Path()))
	return p.refreshLocked(ctx)
}

// GetFunc resolves itemID (a bare function name, or "interface#function"
// for an interface-qualified export) against the current primary
// instance's export namespace, per §4.5's get_func.
func (p *Program) GetFunc(itemID string) (*FuncHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	liftDef := p.module.wazeroModule.FindLift(itemID)
	if liftDef == nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindNoSuchExport).
			Detail("no export named %q", itemID).Build()
	}
	return &FuncHandle{name: liftDef.Name, params: liftDef.Params, results: liftDef.Results}, nil
}

// CallFunc invokes handle against the current primary instance, per
// §4.5's call_func. Invocation failures surface as InvocationFailed; the
// Program itself remains usable afterward.
func (p *Program) CallFunc(ctx context.Context, handle *FuncHandle, args ...any) (any, error) {
	p.mu.Lock()
	instance := p.instance
	p.mu.Unlock()

	result, err := instance.CallWithTypes(ctx, handle.name, handle.params, handle.results, args...)
	if err != nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvocationFailed).
			Cause(err).Detail("call %q failed", handle.name).Build()
	}
	return result, nil
}

// Close releases both the primary and donor stores.
func (p *Program) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err1 := p.primary.Close(ctx)
	err2 := p.donor.Close(ctx)
	if err1 != nil {
		return err1
	}
	return err2
}
