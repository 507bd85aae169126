//go:build unix

package uploadhttp

import "golang.org/x/sys/unix"

// freeBytes — свободное место на томе каталога данных; 0, если узнать не удалось.
func freeBytes(dir string) int64 {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0
	}

	return int64(st.Bavail) * int64(st.Bsize)
}
