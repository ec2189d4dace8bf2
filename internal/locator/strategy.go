package locator

// Object is what a Strategy knows about the loaded object owning an address.
type Object struct {
	// Path of the object on disk. Empty together with Executable means the
	// main program; empty otherwise means the path could not be determined.
	Path       string
	Executable bool
	// Base is the runtime load base of the object. When LinkRelative is set
	// it is instead the load bias, so that address-Base is already a
	// link-time address. None of the built-in strategies report a bias; the
	// flag is for primitives such as dl_iterate_phdr's dlpi_addr that do.
	Base         Address
	LinkRelative bool
}

// Strategy is a platform primitive answering "which loaded object owns this
// address". Implementations must be safe for concurrent use and must not
// panic for addresses that no object owns.
type Strategy interface {
	Lookup(addr Address) (Object, bool)
}

const (
	StrategyTable      = "table"
	StrategyDescriptor = "descriptor"
	StrategyHandle     = "handle"
)
