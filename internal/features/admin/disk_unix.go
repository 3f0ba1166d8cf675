//go:build linux || darwin

package admin

import "syscall"

// getDiskStatsForPlatform reads the volume stats of path. Errors yield zeros.
func getDiskStatsForPlatform(path string) *DiskStats {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return &DiskStats{Path: path}
	}

	return &DiskStats{
		Free: stat.Bavail * uint64(stat.Bsize),
		Size: stat.Blocks * uint64(stat.Bsize),
		Path: path,
	}
}
