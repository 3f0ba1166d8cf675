package admin

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	defaultLogLines = 100
	minLogLines     = 10
	maxLogLines     = 1000
)

// DiskStats reports free and total bytes of the volume holding Path.
type DiskStats struct {
	Free uint64 `json:"free"`
	Size uint64 `json:"size"`
	Path string `json:"path"`
}

// MemoryStats reports the Go runtime's memory in bytes.
type MemoryStats struct {
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
	Free  uint64 `json:"free"`
}

// SystemStats describes the host the server runs on.
type SystemStats struct {
	Memory     MemoryStats `json:"memory"`
	NumCPU     int         `json:"numCPU"`
	Goroutines int         `json:"goroutines"`
	Disk       *DiskStats  `json:"disk"`
}

// System collects runtime and disk statistics.
func System() SystemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	root := "/"
	if runtime.GOOS == "windows" {
		root = "C:"
	}

	return SystemStats{
		Memory: MemoryStats{
			Total: m.Sys,
			Used:  m.Alloc,
			Free:  m.Sys - m.Alloc,
		},
		NumCPU:     runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		Disk:       getDiskStatsForPlatform(root),
	}
}

// LogTail is the end of a log file.
type LogTail struct {
	Type  string   `json:"type"`
	Lines int      `json:"lines"`
	Log   []string `json:"log"`
}

// NormalizeLogRequest clamps the requested type and line count.
func NormalizeLogRequest(logType string, lines int) (string, int) {
	if logType != "info" && logType != "error" {
		logType = "info"
	}
	switch {
	case lines <= 0:
		lines = defaultLogLines
	case lines < minLogLines:
		lines = minLogLines
	case lines > maxLogLines:
		lines = maxLogLines
	}
	return logType, lines
}

// TailLog returns the last n lines of dir/<logType>.log.
func TailLog(dir, logType string, n int) (LogTail, error) {
	if dir == "" {
		return LogTail{}, ErrLogNotFound
	}

	file, err := os.Open(filepath.Join(dir, fmt.Sprintf("%s.log", logType)))
	if err != nil {
		if os.IsNotExist(err) {
			return LogTail{}, ErrLogNotFound
		}
		return LogTail{}, err
	}
	defer file.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return LogTail{}, err
	}

	return LogTail{Type: logType, Lines: len(ring), Log: ring}, nil
}
