package entities

// ComponentInfo describes one component returned by a listing.
type ComponentInfo struct {
	// Address is the unique address the host assigned to the component.
	Address string `json:"address" yaml:"address"`

	// Type is the component type name, e.g. "gpu" or "filesystem".
	Type string `json:"type" yaml:"type"`
}

// MethodAttributes are the flags a host reports for a method.
type MethodAttributes uint32

// Method attribute bits.
const (
	// AttrDirect marks a method that completes without yielding to the host.
	AttrDirect MethodAttributes = 1 << iota
	// AttrGetter marks a property read.
	AttrGetter
	// AttrSetter marks a property write.
	AttrSetter
)

// Direct reports whether AttrDirect is set.
func (a MethodAttributes) Direct() bool { return a&AttrDirect != 0 }

// Getter reports whether AttrGetter is set.
func (a MethodAttributes) Getter() bool { return a&AttrGetter != 0 }

// Setter reports whether AttrSetter is set.
func (a MethodAttributes) Setter() bool { return a&AttrSetter != 0 }

// MethodInfo describes one method returned by a method listing.
type MethodInfo struct {
	Name       string           `json:"name" yaml:"name"`
	Attributes MethodAttributes `json:"attributes" yaml:"attributes"`
}
