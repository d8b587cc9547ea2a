package entities

// Call is a method invocation request: a method name and its ordered arguments.
// A Call is immutable once constructed.
type Call struct {
	method string
	args   []Value
}

// NewCall builds a Call. The argument slice is copied.
func NewCall(method string, args ...Value) Call {
	c := Call{method: method}
	if len(args) > 0 {
		c.args = make([]Value, len(args))
		copy(c.args, args)
	}
	return c
}

// Method returns the method name.
func (c Call) Method() string {
	return c.method
}

// Args returns a copy of the argument list.
func (c Call) Args() []Value {
	if len(c.args) == 0 {
		return nil
	}
	out := make([]Value, len(c.args))
	copy(out, c.args)
	return out
}

// NumArgs returns the number of arguments.
func (c Call) NumArgs() int {
	return len(c.args)
}

// Arg returns the i-th argument.
func (c Call) Arg(i int) Value {
	return c.args[i]
}
