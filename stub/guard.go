package stub

import (
	"sync/atomic"

	"github.com/wasmstub/linkrt/errors"
)

// DonorGuard enforces that exactly one logical thread of control holds the
// shared donor store at any instant. The runtime already serializes every
// public operation behind a whole-runtime guard, so the only way this guard
// is ever contended is a donor handler re-entering the donor store from
// within its own call stack (a donor calling back into the primary, which
// calls back into a donor). That case fails fast rather than deadlocking.
type DonorGuard struct {
	held atomic.Bool
}

// NewDonorGuard returns a guard in the released state.
func NewDonorGuard() *DonorGuard {
	return &DonorGuard{}
}

// Enter acquires the guard, or returns a DonorReentry error if it is already
// held by the current call stack.
func (g *DonorGuard) Enter() error {
	if !g.held.CompareAndSwap(false, true) {
		return errors.New(errors.PhaseRuntime, errors.KindDonorReentry).
			Detail("donor store re-entered while a cross-component call is in progress").
			Build()
	}
	return nil
}

// Exit releases the guard. Safe to call unconditionally on every handler
// exit path, including after a failed call.
func (g *DonorGuard) Exit() {
	g.held.Store(false)
}
