// Package payload is the wire representation of action arguments and
// observed selector values.
//
// Values form a small sealed union (Null, String, Int, Bool, List, Object)
// with no floating point, so that the canonical encoding is byte-stable and
// journal entry ids can be content-addressed. payload imports nothing
// internal.
package payload
