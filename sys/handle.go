package sys

// Handle is the identity of one native resource, such as a standard stream or
// a file acquired from the host.
//
// Handles are compared by pointer, never by value: two handles for the same
// path are different resources. A Handle is minted once per acquisition and
// is not reused after the resource is released.
type Handle struct {
	name string
}

// NewHandle mints a new identity. name is informational only.
func NewHandle(name string) *Handle {
	return &Handle{name: name}
}

// Name is the path or stream name the handle was minted for.
func (h *Handle) Name() string {
	return h.name
}

// String implements fmt.Stringer
func (h *Handle) String() string {
	return h.name
}
