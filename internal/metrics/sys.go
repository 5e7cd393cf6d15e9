package metrics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"time"
)

var processStart = time.Now()

// SysHealth is a point-in-time view of the process and its data directory.
type SysHealth struct {
	AllocMB      uint64
	SysMB        uint64
	NumGC        uint32
	Goroutines   int
	Uptime       time.Duration
	DataFiles    int
	DataDiskSize string
}

// GetSysHealth collects runtime stats and the size of dataPath, which is
// the directory holding the SQLite database.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	files, size := dirUsage(dataPath)
	return SysHealth{
		AllocMB:      m.Alloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		Uptime:       time.Since(processStart).Truncate(time.Second),
		DataFiles:    files,
		DataDiskSize: humanBytes(size),
	}
}

func dirUsage(path string) (files int, size int64) {
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files++
		size += info.Size()
		return nil
	})
	return files, size
}

func humanBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
