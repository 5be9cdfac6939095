// Package stub implements the Stubber: binding a primary component's
// unresolved imports to a donor component's exports.
//
// Four identifier shapes are possible when binding import_id to export_id:
// item-to-item (a single function to a single function), interface-to-
// interface (every function of an imported interface to the same-named
// function of a donor's exported interface), and the two mixed shapes,
// which are rejected outright as ShapeMismatch before any donor bytes are
// even parsed.
//
// Every donor component stubbed through this package is instantiated into
// the same long-lived donor engine, so donor-local state (a counter, a
// log buffer, anything the donor's own exports close over) survives across
// calls and across separate stub operations. Access to that shared
// instantiation space is serialized by a DonorGuard, acquired for the
// duration of every cross-component call.
package stub
