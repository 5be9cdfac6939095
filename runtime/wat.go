package runtime

import (
	"context"

	"github.com/wasmstub/linkrt/errors"
	"github.com/wasmstub/linkrt/wat"
)

// LoadWAT compiles watText to core WASM via the wat package and loads it as
// a core module, using witTypes for typed calls (see LoadWASM). This gives
// tests a way to build real, in-process WASM fixtures without depending on
// a checked-in .wasm binary or an external toolchain.
func (r *Runtime) LoadWAT(ctx context.Context, watText, witTypes string) (*Module, error) {
	wasm, err := wat.Compile(watText)
	if err != nil {
		return nil, errors.ParseFailed("WAT", err)
	}

	return r.LoadWASM(ctx, wasm, witTypes)
}
