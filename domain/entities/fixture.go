package entities

// HostFixture declares the components and queued signals of a scripted host.
// Values are plain YAML scalars, lists and maps; they are converted to Value
// when the fixture is loaded.
type HostFixture struct {
	Components []ComponentFixture `yaml:"components" json:"components" validate:"required,min=1,dive"`
	Signals    []SignalFixture    `yaml:"signals,omitempty" json:"signals,omitempty" validate:"dive"`
}

// ComponentFixture declares one component and its canned methods.
type ComponentFixture struct {
	Address string          `yaml:"address" json:"address" validate:"required"`
	Type    string          `yaml:"type" json:"type" validate:"required"`
	Methods []MethodFixture `yaml:"methods,omitempty" json:"methods,omitempty" validate:"dive"`
	Slot    *int            `yaml:"slot,omitempty" json:"slot,omitempty" validate:"omitempty,gte=0"`
}

// MethodFixture is a method that always answers with the same results,
// or with Status when it is non-zero.
type MethodFixture struct {
	Name    string `yaml:"name" json:"name" validate:"required"`
	Doc     string `yaml:"doc,omitempty" json:"doc,omitempty"`
	Returns []any  `yaml:"returns,omitempty" json:"returns,omitempty"`
	Status  uint32 `yaml:"status,omitempty" json:"status,omitempty"`
	Direct  bool   `yaml:"direct,omitempty" json:"direct,omitempty"`
	Getter  bool   `yaml:"getter,omitempty" json:"getter,omitempty"`
	Setter  bool   `yaml:"setter,omitempty" json:"setter,omitempty"`
}

// Attributes returns the declared method attributes.
func (m MethodFixture) Attributes() MethodAttributes {
	var a MethodAttributes
	if m.Direct {
		a |= AttrDirect
	}
	if m.Getter {
		a |= AttrGetter
	}
	if m.Setter {
		a |= AttrSetter
	}
	return a
}

// SignalFixture is a signal queued on the host at load time.
type SignalFixture struct {
	Name   string `yaml:"name" json:"name" validate:"required"`
	Params []any  `yaml:"params,omitempty" json:"params,omitempty"`
}
