package modules

// Module is a materialized source unit.
type Module struct {
	// Name is the dotted module identifier.
	Name string
	// Path is the file the module was read from.
	Path string
	// Source is the file content as read.
	Source string
	// Code is what gets compiled: Source when the unit parsed natively,
	// otherwise the rewritten text.
	Code string
	// Rewritten is true when Code differs from Source.
	Rewritten bool
	// Sites is the number of constructs rewritten.
	Sites int
	// FromCache is true when Code came from the persistent cache.
	FromCache bool
}

// IsPackage reports whether the module is a package __init__ file.
func (m *Module) IsPackage() bool {
	return isInitFile(m.Path)
}
