package typeeq

import (
	"go.bytecodealliance.org/wit"
)

// Equal reports whether a and b describe structurally equivalent WIT types.
// Both must already be fully resolved (no dangling component-local type
// indices); component.TypeResolver guarantees this for anything read off a
// CanonRegistry's LiftDef/LowerDef.
func Equal(a, b wit.Type) bool {
	return equal(a, b, newVisited())
}

// visited guards against infinite recursion through recursive type graphs
// (a record containing a list of itself via an own<T> handle, etc).
type visited struct {
	seen map[[2]any]bool
}

func newVisited() *visited {
	return &visited{seen: make(map[[2]any]bool)}
}

func (v *visited) mark(a, b wit.Type) bool {
	// Only TypeDef pointers are stable identities worth tracking; primitive
	// wit.Type values are small structs compared by content, never cyclic.
	ad, aok := a.(*wit.TypeDef)
	bd, bok := b.(*wit.TypeDef)
	if !aok || !bok {
		return false
	}
	key := [2]any{ad, bd}
	if v.seen[key] {
		return true
	}
	v.seen[key] = true
	return false
}

func equal(a, b wit.Type, v *visited) bool {
	if v.mark(a, b) {
		return true
	}

	switch at := a.(type) {
	case wit.Bool:
		_, ok := b.(wit.Bool)
		return ok
	case wit.U8:
		_, ok := b.(wit.U8)
		return ok
	case wit.S8:
		_, ok := b.(wit.S8)
		return ok
	case wit.U16:
		_, ok := b.(wit.U16)
		return ok
	case wit.S16:
		_, ok := b.(wit.S16)
		return ok
	case wit.U32:
		_, ok := b.(wit.U32)
		return ok
	case wit.S32:
		_, ok := b.(wit.S32)
		return ok
	case wit.U64:
		_, ok := b.(wit.U64)
		return ok
	case wit.S64:
		_, ok := b.(wit.S64)
		return ok
	case wit.F32:
		_, ok := b.(wit.F32)
		return ok
	case wit.F64:
		_, ok := b.(wit.F64)
		return ok
	case wit.Char:
		_, ok := b.(wit.Char)
		return ok
	case wit.String:
		_, ok := b.(wit.String)
		return ok
	case *wit.TypeDef:
		bd, ok := b.(*wit.TypeDef)
		if !ok {
			return false
		}
		return equalTypeDef(at, bd, v)
	default:
		return false
	}
}

func equalTypeDef(a, b *wit.TypeDef, v *visited) bool {
	switch ak := a.Kind.(type) {
	case *wit.Record:
		bk, ok := b.Kind.(*wit.Record)
		return ok && equalRecord(ak, bk, v)
	case *wit.List:
		bk, ok := b.Kind.(*wit.List)
		return ok && equal(ak.Type, bk.Type, v)
	case *wit.Tuple:
		bk, ok := b.Kind.(*wit.Tuple)
		return ok && equalTuple(ak, bk, v)
	case *wit.Enum:
		bk, ok := b.Kind.(*wit.Enum)
		return ok && equalEnum(ak, bk)
	case *wit.Flags:
		bk, ok := b.Kind.(*wit.Flags)
		return ok && equalFlags(ak, bk)
	case *wit.Option:
		bk, ok := b.Kind.(*wit.Option)
		return ok && equal(ak.Type, bk.Type, v)
	case *wit.Result:
		bk, ok := b.Kind.(*wit.Result)
		return ok && equalResult(ak, bk, v)
	case *wit.Variant:
		bk, ok := b.Kind.(*wit.Variant)
		return ok && equalVariant(ak, bk, v)
	case *wit.Own:
		bk, ok := b.Kind.(*wit.Own)
		return ok && equal(ak.Type, bk.Type, v)
	case *wit.Borrow:
		bk, ok := b.Kind.(*wit.Borrow)
		return ok && equal(ak.Type, bk.Type, v)
	case wit.Type:
		// Transparent alias: unwrap and compare the aliased type directly.
		bk, ok := b.Kind.(wit.Type)
		return ok && equal(ak, bk, v)
	default:
		return false
	}
}

func equalRecord(a, b *wit.Record, v *visited) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i, af := range a.Fields {
		bf := b.Fields[i]
		if af.Name != bf.Name {
			return false
		}
		if !equal(af.Type, bf.Type, v) {
			return false
		}
	}
	return true
}

func equalTuple(a, b *wit.Tuple, v *visited) bool {
	if len(a.Types) != len(b.Types) {
		return false
	}
	for i, at := range a.Types {
		if !equal(at, b.Types[i], v) {
			return false
		}
	}
	return true
}

func equalEnum(a, b *wit.Enum) bool {
	if len(a.Cases) != len(b.Cases) {
		return false
	}
	for i, ac := range a.Cases {
		if ac.Name != b.Cases[i].Name {
			return false
		}
	}
	return true
}

func equalFlags(a, b *wit.Flags) bool {
	if len(a.Flags) != len(b.Flags) {
		return false
	}
	for i, af := range a.Flags {
		if af.Name != b.Flags[i].Name {
			return false
		}
	}
	return true
}

func equalResult(a, b *wit.Result, v *visited) bool {
	if (a.OK == nil) != (b.OK == nil) {
		return false
	}
	if a.OK != nil && !equal(a.OK, b.OK, v) {
		return false
	}
	if (a.Err == nil) != (b.Err == nil) {
		return false
	}
	if a.Err != nil && !equal(a.Err, b.Err, v) {
		return false
	}
	return true
}

func equalVariant(a, b *wit.Variant, v *visited) bool {
	if len(a.Cases) != len(b.Cases) {
		return false
	}
	for i, ac := range a.Cases {
		bc := b.Cases[i]
		if ac.Name != bc.Name {
			return false
		}
		if (ac.Type == nil) != (bc.Type == nil) {
			return false
		}
		if ac.Type != nil && !equal(ac.Type, bc.Type, v) {
			return false
		}
	}
	return true
}

// Signature reports whether two function signatures are structurally
// equivalent: same parameter count and pairwise-equal parameter types,
// same result count and pairwise-equal result types. Parameter and result
// names are not part of equivalence — the Canonical ABI is positional.
func Signature(aParams, bParams, aResults, bResults []wit.Type) bool {
	if len(aParams) != len(bParams) || len(aResults) != len(bResults) {
		return false
	}
	for i := range aParams {
		if !Equal(aParams[i], bParams[i]) {
			return false
		}
	}
	for i := range aResults {
		if !Equal(aResults[i], bResults[i]) {
			return false
		}
	}
	return true
}
