//go:build linux

package revdep

import "golang.org/x/sys/unix"

// deviceID returns path's st_dev, used to bound the Check walk to a
// single filesystem (§4.8: "bounded to the same device").
func deviceID(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Dev), nil
}
