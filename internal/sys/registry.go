package sys

import sysapi "github.com/kframework/portablefs/sys"

// FileRegistry maps a native handle to the File wrapping it.
//
// The zero value is ready to use. FileRegistry is not goroutine-safe: FSContext
// guards it together with the descriptor table.
type FileRegistry struct {
	files map[*sysapi.Handle]*sysapi.File
}

// Register associates handle with f. It returns false if handle is already
// registered, or if f does not wrap handle.
func (r *FileRegistry) Register(handle *sysapi.Handle, f *sysapi.File) bool {
	if f == nil || f.Handle() != handle {
		return false
	}
	if _, ok := r.files[handle]; ok {
		return false
	}
	if r.files == nil {
		r.files = map[*sysapi.Handle]*sysapi.File{}
	}
	r.files[handle] = f
	return true
}

// Lookup returns the File registered for handle.
func (r *FileRegistry) Lookup(handle *sysapi.Handle) (f *sysapi.File, ok bool) {
	f, ok = r.files[handle]
	return
}

// Unregister removes handle. Unregistering an unknown handle is a no-op.
func (r *FileRegistry) Unregister(handle *sysapi.Handle) {
	delete(r.files, handle)
}
