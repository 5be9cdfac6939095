// Package typeeq decides whether two WIT types are structurally equivalent.
//
// A primary component's import and a donor component's export never share
// a type index space: each component resolves its own type section
// independently. component.TypeResolver has already flattened both sides
// down to concrete go.bytecodealliance.org/wit trees by the time they reach
// this package (aliases and component-local indices are gone), so Equal
// only has to walk two already-resolved wit.Type values and compare their
// shapes, field by field, leaf by leaf.
//
// Equivalence here is structural, not nominal: two record types with the
// same field names, same field order, and equivalent field types are equal
// even if they came from unrelated WIT packages. This is what allows a
// donor component built against one copy of a shared package to stand in
// for an import declared against a different copy of the same package.
package typeeq
