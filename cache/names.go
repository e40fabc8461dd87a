package cache

// Names owns the strings held inside directory entries. Every string
// stored by Directory passes through Retain and is handed back to Release
// exactly once when its entry is destroyed.
type Names interface {
	Retain(s string) string
	Release(s string)
}

// heapNames is the default Names. Go strings are collected, so retaining
// is a copy and releasing is a no-op.
type heapNames struct{}

func (heapNames) Retain(s string) string { return string([]byte(s)) }
func (heapNames) Release(string)         {}

// DefaultNames returns the Names used when none is configured.
func DefaultNames() Names {
	return heapNames{}
}
