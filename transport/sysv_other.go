//go:build !(linux || (darwin && !ios))

package transport

// SysV is unavailable on this platform; every call returns ErrUnsupported.
type SysV struct {
	Perm int
}

// NewSysV creates a transport that always fails.
func NewSysV() *SysV {
	return &SysV{Perm: 0o666}
}

// Allocate implements Transport.
func (s *SysV) Allocate(int, int, bool) ([]byte, error) {
	return nil, ErrUnsupported
}

// Release implements Transport.
func (s *SysV) Release(int, int) error {
	return ErrUnsupported
}

// Remove implements the server side cleanup hook.
func (s *SysV) Remove(int, int) error {
	return ErrUnsupported
}

// Verify SysV implements Transport.
var _ Transport = (*SysV)(nil)
