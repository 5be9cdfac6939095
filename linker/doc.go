// Package linker defines named host functions for WebAssembly Component
// Model imports and builds wazero host modules from them.
//
// # Main Types
//
//   - Linker: manages host function definitions organized by namespace path
//   - Namespace: a node in the "wasi:io/streams@0.2.0" style path tree
//   - HostModuleBuilder: builds a wazero host module from a namespace
//
// # Thread Safety
//
// Linker is safe for concurrent use.
//
// # Import Resolution Order
//
//  1. Exact namespace + function match
//  2. Semver-compatible namespace match, if Options.SemverMatching is set
//  3. Error on unresolved imports
//
// # Example
//
//	l := NewWithDefaults(runtime)
//	l.DefineFunc("wasi:cli/stdout@0.2.3#get-stdout", getStdout, params, results)
//	mod, _ := l.NewHostModule("wasi:cli/stdout@0.2.3").
//		Func("get-stdout", getStdout, params, results).
//		Build(ctx)
package linker
