package storage

// Result is the scratch buffer a worker hands to readers so value bytes can
// be placed without a fresh allocation per request. The backing array is
// reused across requests; Value returns a borrowed view that must be copied
// before the owning worker picks up its next task.
type Result struct {
	found bool
	buf   []byte
}

// NewResult returns an empty scratch result.
func NewResult() *Result {
	return &Result{}
}

// Reset clears the found flag and truncates the buffer, keeping capacity.
func (r *Result) Reset() {
	r.found = false
	r.buf = r.buf[:0]
}

// Found reports whether the last Get located the key.
func (r *Result) Found() bool {
	return r.found
}

// Value returns the located value as a view over the scratch buffer.
func (r *Result) Value() []byte {
	return r.buf
}

// SetValue marks the result found and copies value into the scratch buffer,
// growing it only when capacity is insufficient.
func (r *Result) SetValue(value []byte) {
	r.found = true
	r.buf = append(r.buf[:0], value...)
}

// CopyValue returns a freshly allocated copy of the value, safe to retain
// after the scratch buffer is reused.
func (r *Result) CopyValue() []byte {
	out := make([]byte, len(r.buf))
	copy(out, r.buf)
	return out
}
