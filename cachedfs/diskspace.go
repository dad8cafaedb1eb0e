package cachedfs

import "golang.org/x/sys/unix"

// availableDiskSpace reports bytes currently free on the volume backing
// path, used to enforce spec §6's MIN_DISK_SPACE gate. golang.org/x/sys/unix
// wraps statfs(2) portably across the platforms the host engine ships on;
// nothing in the example pack covers free-disk-space reporting, so this is
// the one spot in cachedfs grounded on an ecosystem library outside the
// retrieved examples rather than on a teacher or pack file (see DESIGN.md).
func availableDiskSpace(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
