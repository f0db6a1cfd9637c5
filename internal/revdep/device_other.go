//go:build !linux

package revdep

// deviceID has no portable equivalent outside Linux; returning a
// constant disables the same-device bound rather than failing the
// whole scan on non-Linux hosts.
func deviceID(path string) (uint64, error) {
	return 0, nil
}
