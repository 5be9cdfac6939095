package stub

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wasmstub/linkrt/component"
	"github.com/wasmstub/linkrt/engine"
	"github.com/wasmstub/linkrt/errors"
	"github.com/wasmstub/linkrt/typeeq"
)

// Installer receives a handler for a resolved import path. The binding
// table (runtime package) implements this; the Stubber never looks at the
// table's internals.
type Installer interface {
	Install(path string, handler any)
}

// HostBinder binds host-capability implementations (WASI, etc.) to a newly
// loaded module before it is instantiated. runtime.HostRegistry satisfies
// this directly, letting a donor component's own imports against the
// host-capability namespace resolve exactly like the primary's do.
type HostBinder interface {
	Bind(mod *engine.WazeroModule) error
}

// Stubber binds a primary component's imports to donor component exports,
// per §4.4: item-to-item and interface-to-interface, instantiating every
// donor into the one shared, long-lived donor engine.
type Stubber struct {
	donorEngine *engine.WazeroEngine
	binder      HostBinder
	guard       *DonorGuard
}

// New returns a Stubber that instantiates donors into donorEngine, binding
// host capabilities via binder (may be nil) and serializing donor access
// through guard.
func New(donorEngine *engine.WazeroEngine, binder HostBinder, guard *DonorGuard) *Stubber {
	return &Stubber{donorEngine: donorEngine, binder: binder, guard: guard}
}

func (s *Stubber) loadDonor(ctx context.Context, donorBytes []byte) (*engine.WazeroModule, error) {
	mod, err := s.donorEngine.LoadModule(ctx, donorBytes)
	if err != nil {
		return nil, errors.Load("parse donor component", err)
	}
	if s.binder != nil {
		if err := s.binder.Bind(mod); err != nil {
			return nil, errors.Registration(errors.PhaseStub, "donor", "host-capabilities", err)
		}
	}
	return mod, nil
}

func (s *Stubber) instantiateDonor(ctx context.Context, mod *engine.WazeroModule) (*engine.WazeroInstance, error) {
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return nil, errors.New(errors.PhaseStub, errors.KindDonorInstantiationFailed).
			Cause(err).
			Detail("donor's own imports could not be satisfied").
			Build()
	}
	engine.Logger().Debug("donor instantiated", zap.Uint32("imports", uint32(len(mod.AllImports()))))
	return inst, nil
}

func shapeMismatch(importID, exportID Identifier) *errors.Error {
	return errors.New(errors.PhaseStub, errors.KindShapeMismatch).
		Detail("import %q and export %q are not the same shape (item vs interface)", importID.Path(), exportID.key()).
		Build()
}

// Stub binds importID to exportID, dispatching on identifier shape:
//   - item, item               -> StubItem
//   - interface, interface     -> StubInterface
//   - anything else            -> ShapeMismatch, no donor bytes parsed
func (s *Stubber) Stub(ctx context.Context, primary *engine.WazeroModule, importID, exportID Identifier, donorBytes []byte, table Installer) error {
	if importID.IsInterface() != exportID.IsInterface() {
		return shapeMismatch(importID, exportID)
	}
	if importID.IsInterface() {
		return s.StubInterface(ctx, primary, importID, exportID, donorBytes, table)
	}
	return s.StubItem(ctx, primary, importID, exportID, donorBytes, table)
}

// StubItem implements the item-to-item procedure of §4.4.
func (s *Stubber) StubItem(ctx context.Context, primary *engine.WazeroModule, importID, exportID Identifier, donorBytes []byte, table Installer) error {
	lowerDef := primary.FindLower(importID.Interface, importID.Item)
	if lowerDef == nil {
		return errors.New(errors.PhaseStub, errors.KindUnknownImport).
			Detail("no import named %q", importID.Path()).Build()
	}

	donorMod, err := s.loadDonor(ctx, donorBytes)
	if err != nil {
		return err
	}

	liftDef := donorMod.FindLift(exportID.key())
	if liftDef == nil {
		return errors.New(errors.PhaseStub, errors.KindUnknownExport).
			Detail("donor has no export named %q", exportID.key()).Build()
	}

	if !typeeq.Signature(lowerDef.Params, liftDef.Params, lowerDef.Results, liftDef.Results) {
		return typeMismatchError(importID.Path(), lowerDef, liftDef)
	}

	donorInst, err := s.instantiateDonor(ctx, donorMod)
	if err != nil {
		return err
	}

	handler := newCrossComponentHandler(lowerDef.Params, lowerDef.Results, exportID.key(), donorInst, s.guard)
	table.Install(importID.Path(), handler)
	return nil
}

// StubInterface implements the interface-to-interface procedure of §4.4.
func (s *Stubber) StubInterface(ctx context.Context, primary *engine.WazeroModule, importID, exportID Identifier, donorBytes []byte, table Installer) error {
	importFuncs := importsInInterface(primary, importID.Interface)
	if len(importFuncs) == 0 {
		return errors.New(errors.PhaseStub, errors.KindUnknownImport).
			Detail("no imported interface named %q", importID.Interface).Build()
	}

	donorMod, err := s.loadDonor(ctx, donorBytes)
	if err != nil {
		return err
	}

	exportFuncs := exportsInInterface(donorMod, exportID.Interface)
	if len(exportFuncs) == 0 {
		return errors.New(errors.PhaseStub, errors.KindUnknownExport).
			Detail("donor has no exported interface named %q", exportID.Interface).Build()
	}

	// Validate every function before instantiating or installing anything,
	// so a mismatch leaves neither the binding table nor the donor store
	// touched.
	for fname, lowerDef := range importFuncs {
		liftDef, ok := exportFuncs[fname]
		if !ok {
			return errors.New(errors.PhaseStub, errors.KindMissingExportFunction).
				Detail("donor interface %q has no function %q", exportID.Interface, fname).Build()
		}
		if len(lowerDef.Params) != len(liftDef.Params) {
			return errors.New(errors.PhaseStub, errors.KindArityMismatch).
				Detail("function %q: import has %d params, export has %d", fname, len(lowerDef.Params), len(liftDef.Params)).
				Build()
		}
		for i := range lowerDef.Params {
			if !typeeq.Equal(lowerDef.Params[i], liftDef.Params[i]) {
				name := fmt.Sprintf("param %d", i)
				if i < len(lowerDef.ParamNames) {
					name = lowerDef.ParamNames[i]
				}
				return errors.New(errors.PhaseStub, errors.KindTypeMismatch).
					Detail("function %q, arg %s: incompatible types", fname, name).Build()
			}
		}
		if len(lowerDef.Results) != len(liftDef.Results) {
			return errors.New(errors.PhaseStub, errors.KindReturnKindMismatch).
				Detail("function %q: result arity differs (import %d, export %d)", fname, len(lowerDef.Results), len(liftDef.Results)).
				Build()
		}
		for i := range lowerDef.Results {
			if !typeeq.Equal(lowerDef.Results[i], liftDef.Results[i]) {
				return errors.New(errors.PhaseStub, errors.KindTypeMismatch).
					Detail("function %q: incompatible result type", fname).Build()
			}
		}
	}

	donorInst, err := s.instantiateDonor(ctx, donorMod)
	if err != nil {
		return err
	}

	for fname, lowerDef := range importFuncs {
		liftDef := exportFuncs[fname]
		handler := newCrossComponentHandler(lowerDef.Params, lowerDef.Results, liftDef.Name, donorInst, s.guard)
		table.Install(InterfaceItem(importID.Interface, fname).Path(), handler)
	}
	return nil
}

func typeMismatchError(path string, lowerDef *component.LowerDef, liftDef *component.LiftDef) *errors.Error {
	return errors.New(errors.PhaseStub, errors.KindTypeMismatch).
		Detail("import %q and donor export have incompatible signatures", path).Build()
}
