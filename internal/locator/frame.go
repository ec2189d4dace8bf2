// Package locator maps raw instruction addresses captured at runtime to the
// loaded object that owns them and to the address inside that object's
// link-time layout, which is what offline symbolizers key their debug
// information on.
package locator

import (
	"fmt"
)

// Address is an instruction pointer captured at runtime. Narrower pointer
// widths are zero-extended; arithmetic on Address wraps modulo 2^64.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}

// ResolvedFrame is a raw address translated into the static address space of
// the object containing it. ObjectAddress is zero when resolution failed; it
// never denotes a valid static address of zero.
type ResolvedFrame struct {
	RawAddress    Address
	ObjectAddress Address
	ObjectPath    string
}

func (f ResolvedFrame) Resolved() bool {
	return f.ObjectAddress != 0
}

func (f ResolvedFrame) String() string {
	if !f.Resolved() {
		return f.RawAddress.String()
	}
	return fmt.Sprintf("%s (%s+%s)", f.RawAddress, f.ObjectPath, f.ObjectAddress)
}

// DeferredFrame records that RawAddress lies ObjectOffset bytes past the
// runtime base of the object at ObjectPath. It has not yet been combined with
// the object's static image base; see Locator.Resolve.
type DeferredFrame struct {
	RawAddress   Address
	ObjectOffset Address
	ObjectPath   string
}

// Captured reports whether the frame was attributed to an object.
func (f DeferredFrame) Captured() bool {
	return f.ObjectPath != ""
}
