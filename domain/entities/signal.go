package entities

// Signal is an asynchronous event emitted by the host.
type Signal struct {
	Name   string
	Params []Value
}

// Param returns the i-th parameter, or nil if the signal has fewer parameters.
func (s Signal) Param(i int) Value {
	if i < 0 || i >= len(s.Params) {
		return nil
	}
	return s.Params[i]
}
