package stub

import (
	"context"
	"reflect"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wasmstub/linkrt/engine"
)

var (
	anyType = reflect.TypeOf((*any)(nil)).Elem()
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// newCrossComponentHandler builds a Go function, reflectively typed to
// match params/results, that forwards a call to the donor export named
// exportKey on donorInstance. The returned value is always a func whose
// first parameter is context.Context followed by one "any" per param, and
// which returns one "any" per result - engine.RegisterHostFuncTyped lowers
// these against the primary's own declared import signature via
// Canonical-ABI dynamic transcoding, so no concrete Go types are needed.
func newCrossComponentHandler(params, results []wit.Type, exportKey string, donorInstance *engine.WazeroInstance, guard *DonorGuard) any {
	in := make([]reflect.Type, 0, len(params)+1)
	in = append(in, ctxType)
	for range params {
		in = append(in, anyType)
	}
	out := make([]reflect.Type, len(results))
	for i := range out {
		out[i] = anyType
	}

	fnType := reflect.FuncOf(in, out, false)

	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		ctx, _ := args[0].Interface().(context.Context)
		if ctx == nil {
			ctx = context.Background()
		}
		callArgs := make([]any, len(params))
		for i := range callArgs {
			callArgs[i] = args[i+1].Interface()
		}

		if err := guard.Enter(); err != nil {
			engine.Logger().Warn("cross-component handler: donor store busy",
				zap.String("export", exportKey), zap.Error(err))
			return zeroResults(results)
		}
		defer guard.Exit()

		result, err := donorInstance.CallWithTypes(ctx, exportKey, params, results, callArgs...)
		if err != nil {
			engine.Logger().Warn("cross-component handler: donor call failed",
				zap.String("export", exportKey), zap.Error(err))
			return zeroResults(results)
		}

		return packResults(results, result)
	})

	return fn.Interface()
}

// NewZeroStubHandler builds a Go function, reflectively typed like
// newCrossComponentHandler's output, that ignores its arguments and always
// returns zero values for results. Used by populate_stubs (§4.2) to give
// every currently-unbound import a well-typed placeholder so a component
// with unresolved imports can still be instantiated.
func NewZeroStubHandler(params, results []wit.Type) any {
	in := make([]reflect.Type, 0, len(params)+1)
	in = append(in, ctxType)
	for range params {
		in = append(in, anyType)
	}
	out := make([]reflect.Type, len(results))
	for i := range out {
		out[i] = anyType
	}

	fnType := reflect.FuncOf(in, out, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		return zeroResults(results)
	})
	return fn.Interface()
}

// boxAny returns an addressable reflect.Value of static type "any" (i.e.
// interface{}) wrapping x. reflect.ValueOf(x) alone yields x's dynamic
// type, which reflect.MakeFunc rejects when the declared out type is the
// wider "any" interface.
func boxAny(x any) reflect.Value {
	v := reflect.New(anyType).Elem()
	if x != nil {
		v.Set(reflect.ValueOf(x))
	}
	return v
}

func zeroResults(results []wit.Type) []reflect.Value {
	out := make([]reflect.Value, len(results))
	for i, t := range results {
		out[i] = boxAny(zeroValue(t))
	}
	return out
}

// packResults adapts CallWithTypes's single "any" return (which is either
// the lone result value, a []any for multiple results, or nil for zero
// results) into one reflect.Value per declared result type.
func packResults(results []wit.Type, result any) []reflect.Value {
	out := make([]reflect.Value, len(results))
	if len(results) == 0 {
		return out
	}
	if len(results) == 1 {
		out[0] = boxAny(result)
		return out
	}
	if many, ok := result.([]any); ok {
		for i := range results {
			var v any
			if i < len(many) {
				v = many[i]
			} else {
				v = zeroValue(results[i])
			}
			out[i] = boxAny(v)
		}
		return out
	}
	// Unexpected shape from the call path: fall back to zero values.
	return zeroResults(results)
}

// zeroValue returns a best-effort default value for t, used when a
// cross-component call cannot be completed (donor guard contention, a
// failed donor invocation) so the primary still observes a well-typed,
// if meaningless, result rather than a marshalling panic.
func zeroValue(t wit.Type) any {
	switch k := t.(type) {
	case wit.Bool:
		return false
	case wit.U8:
		return uint8(0)
	case wit.S8:
		return int8(0)
	case wit.U16:
		return uint16(0)
	case wit.S16:
		return int16(0)
	case wit.U32:
		return uint32(0)
	case wit.S32:
		return int32(0)
	case wit.U64:
		return uint64(0)
	case wit.S64:
		return int64(0)
	case wit.F32:
		return float32(0)
	case wit.F64:
		return float64(0)
	case wit.Char:
		return rune(0)
	case wit.String:
		return ""
	case *wit.TypeDef:
		return zeroTypeDef(k)
	default:
		return nil
	}
}

func zeroTypeDef(t *wit.TypeDef) any {
	switch k := t.Kind.(type) {
	case *wit.Record:
		m := make(map[string]any, len(k.Fields))
		for _, f := range k.Fields {
			m[f.Name] = zeroValue(f.Type)
		}
		return m
	case *wit.List:
		return []any{}
	case *wit.Tuple:
		out := make([]any, len(k.Types))
		for i, et := range k.Types {
			out[i] = zeroValue(et)
		}
		return out
	case *wit.Enum:
		if len(k.Cases) > 0 {
			return k.Cases[0].Name
		}
		return ""
	case *wit.Flags:
		return []string{}
	case *wit.Option:
		return nil
	case *wit.Result:
		return nil
	case *wit.Variant:
		if len(k.Cases) > 0 {
			return k.Cases[0].Name
		}
		return nil
	case *wit.Own:
		return uint32(0)
	case *wit.Borrow:
		return uint32(0)
	case wit.Type:
		return zeroValue(k)
	default:
		return nil
	}
}
