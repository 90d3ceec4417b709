package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
)

// rotateIfNeeded rotates the live file when appending pending bytes would
// push it past maxSize. An empty or missing file is never rotated, so a
// single oversized entry still lands in the live file.
func (l *Logger) rotateIfNeeded(pending int64) error {
	info, err := os.Stat(l.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to stat log file '%s': %w", l.filePath, err)
	}

	if info.Size() == 0 || info.Size()+pending <= l.maxSize {
		return nil
	}

	return l.rotate()
}

// rotate shifts path.(n-1) to path.n, discarding path.maxFiles, then moves
// the live file to path.1.
func (l *Logger) rotate() error {
	oldest := backupName(l.filePath, l.maxFiles)

	err := os.Remove(oldest)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove oldest backup '%s': %w", oldest, err)
	}

	for n := l.maxFiles; n >= 2; n-- {
		from := backupName(l.filePath, n-1)
		to := backupName(l.filePath, n)

		err = os.Rename(from, to)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to shift backup '%s': %w", from, err)
		}
	}

	err = os.Rename(l.filePath, backupName(l.filePath, 1))
	if err != nil {
		return fmt.Errorf("failed to rotate log file '%s': %w", l.filePath, err)
	}

	return nil
}

func backupName(path string, n int) string {
	return path + "." + strconv.Itoa(n)
}
