//go:build windows

package admin

import (
	"syscall"
	"unsafe"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	getDiskFreeSpace = kernel32.NewProc("GetDiskFreeSpaceExW")
)

// getDiskStatsForPlatform reads the volume stats of path. Errors yield zeros.
func getDiskStatsForPlatform(path string) *DiskStats {
	var freeBytesAvailable, totalBytes, totalFreeBytes int64

	pathPtr, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return &DiskStats{Path: path}
	}

	ret, _, _ := getDiskFreeSpace.Call(
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(&freeBytesAvailable)),
		uintptr(unsafe.Pointer(&totalBytes)),
		uintptr(unsafe.Pointer(&totalFreeBytes)),
	)
	if ret == 0 {
		return &DiskStats{Path: path}
	}

	return &DiskStats{
		Free: uint64(freeBytesAvailable),
		Size: uint64(totalBytes),
		Path: path,
	}
}
