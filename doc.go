// Package wasmruntime provides a Go implementation of a WebAssembly Component
// Model linker/stubber: a runtime that holds a primary component, tracks a
// mutable import binding table, type-checks cross-component bindings
// structurally, and binds donor exports into the primary's import namespace.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmruntime/         Root package with core Memory and Allocator interfaces
//	├── runtime/         Engine & Store Factory, Import Binding Table, Program facade
//	├── stub/            Stubber: binds a primary's unresolved imports to donor exports
//	├── typeeq/          Structural type equivalence over WIT types
//	├── engine/          Low-level wazero integration and canonical ABI
//	├── linker/          Host module namespace/function registry substrate
//	├── component/       Component binary parsing and validation
//	├── transcoder/      Canonical ABI encoding/decoding between Go and WASM
//	├── wasm/            Core WASM binary encode/decode/validate primitives
//	├── wat/             WAT text format to core WASM compiler, for in-process test fixtures
//	├── resource/        Resource handle table implementation
//	├── errors/          Structured error types for debugging
//	└── wasi/            WASI preview2 host implementations
//
// # Quick Start
//
// Load a primary component, stub an unresolved import against a donor, and
// call an exported function:
//
//	prog, err := runtime.Init(ctx, wasmBytes, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer prog.Close(ctx)
//
//	if err := prog.Stub(ctx, stub.Item("greet"), stub.Item("greet"), donorBytes); err != nil {
//	    log.Fatal(err)
//	}
//
//	handle, err := prog.GetFunc("run")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := prog.CallFunc(ctx, handle)
//	fmt.Println(result)
//
// # Component Model Support
//
// The library supports the full WIT type system:
//
//   - Primitives: bool, u8-u64, s8-s64, f32, f64, char, string
//   - Compound: list<T>, option<T>, result<T, E>, tuple<...>
//   - Named: record, variant, enum, flags
//   - Resources: resource handles with lifecycle management
//
// # Host Functions
//
// Register Go functions as host implementations:
//
//	registry := runtime.NewHostRegistry()
//	registry.RegisterFunc("wasi:random/random@0.2.0", "get-random-u64",
//	    func(ctx context.Context) uint64 {
//	        return rand.Uint64()
//	    },
//	    nil, []api.ValueType{api.ValueTypeI64},
//	)
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. Instance is NOT thread-safe
// and should be used by a single goroutine, or access must be synchronized.
//
// # Memory Model
//
// WASM linear memory can only grow, never shrink. This is a WebAssembly
// specification limitation. When guest applications free memory, it remains
// allocated but available for reuse within the WASM instance.
//
// For memory-intensive workloads, consider instance pooling where instances
// are periodically recycled to reclaim memory.
package wasmruntime
