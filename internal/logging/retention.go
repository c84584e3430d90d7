package logging

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// CleanupOldLogs removes run log files in dir older than retentionDays,
// keeping the file named by exclude. A retentionDays value of 0 disables
// pruning. It returns the number of files removed.
func CleanupOldLogs(logger logrus.FieldLogger, dir string, retentionDays int, exclude string, now time.Time) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	if exclude != "" {
		if abs, err := filepath.Abs(exclude); err == nil {
			exclude = abs
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		matched, err := filepath.Match(FilePrefix+"*"+FileSuffix, name)
		if err != nil || !matched {
			continue
		}
		fullPath := filepath.Join(dir, name)
		if abs, err := filepath.Abs(fullPath); err == nil {
			fullPath = abs
		}
		if fullPath == exclude {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			if logger != nil {
				logger.WithError(err).WithField("path", fullPath).Warn("log retention remove failed; file remains")
			}
			continue
		}
		removed++
		if logger != nil {
			logger.WithField("path", fullPath).Debug("log pruned")
		}
	}
	return removed
}
