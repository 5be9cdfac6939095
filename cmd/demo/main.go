// Command demo exercises the Program facade end to end: load a primary
// component, stub one of its imports against a donor component, then call
// an exported function.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/wasmstub/linkrt/runtime"
	"github.com/wasmstub/linkrt/stub"
)

func main() {
	var (
		wasmFile  = flag.String("wasm", "", "Path to the primary component wasm file")
		funcName  = flag.String("func", "", "Exported function to call")
		strArg    = flag.String("arg", "", "String argument to pass")
		donorFile = flag.String("donor", "", "Path to a donor component wasm file")
		importID  = flag.String("import", "", "Import to stub, e.g. \"greet\" or \"docs:demo/greeter::greet\"")
		exportID  = flag.String("export", "", "Donor export to bind the import to")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: demo -wasm <file.wasm> [-donor <file.wasm> -import NAME -export NAME] [-func NAME -arg STR]")
		os.Exit(1)
	}

	if err := run(*wasmFile, *funcName, *strArg, *donorFile, *importID, *exportID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, funcName, strArg, donorFile, importID, exportID string) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	prog, err := runtime.Init(ctx, data, func(path string) {
		fmt.Printf("stubbed unresolved import: %s\n", path)
	})
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer prog.Close(ctx)

	if donorFile != "" {
		donorData, err := os.ReadFile(donorFile)
		if err != nil {
			return fmt.Errorf("read donor file: %w", err)
		}

		if err := prog.Stub(ctx, parseIdentifier(importID), parseIdentifier(exportID), donorData); err != nil {
			return fmt.Errorf("stub: %w", err)
		}
		fmt.Printf("bound %s -> %s\n", importID, exportID)
	}

	if funcName == "" {
		return nil
	}

	handle, err := prog.GetFunc(funcName)
	if err != nil {
		return fmt.Errorf("get func %s: %w", funcName, err)
	}

	var result any
	if strArg != "" {
		result, err = prog.CallFunc(ctx, handle, strArg)
	} else {
		result, err = prog.CallFunc(ctx, handle)
	}
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}

	fmt.Printf("Result: %v\n", result)
	return nil
}

// parseIdentifier accepts either a bare function name ("greet"), an
// interface-qualified function ("docs:demo/greeter::greet"), or a bare
// interface name ("docs:demo/greeter") for the -import/-export flags.
func parseIdentifier(s string) stub.Identifier {
	if idx := strings.Index(s, "::"); idx != -1 {
		return stub.InterfaceItem(s[:idx], s[idx+2:])
	}
	if strings.Contains(s, "/") {
		return stub.Interface(s)
	}
	return stub.Item(s)
}
