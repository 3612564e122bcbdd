// Package backup keeps a copy of an output file before a run replaces it.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"accremap/internal/errors"
)

// Manager handles file backup and restoration operations.
type Manager struct {
	enabled bool
	now     func() time.Time
}

// NewBackupManager creates a Manager. A disabled manager never touches the
// file system.
func NewBackupManager(enabled bool) *Manager {
	return &Manager{
		enabled: enabled,
		now:     time.Now,
	}
}

// Enabled reports whether backups are taken.
func (bm *Manager) Enabled() bool {
	return bm.enabled
}

// BackupFile copies filePath to a timestamped .bak file next to it and
// returns the backup path. It returns "" when backups are disabled or the
// file does not exist yet.
func (bm *Manager) BackupFile(filePath string) (string, error) {
	if !bm.enabled {
		return "", nil
	}

	srcInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.NewBackupError(filePath, "failed to stat source file", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return "", errors.NewBackupError(filePath, "not a regular file", nil)
	}

	backupPath := bm.generateBackupPath(filePath)

	srcFile, err := os.Open(filePath)
	if err != nil {
		return "", errors.NewBackupError(filePath, "failed to open source file", err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		return "", errors.NewBackupError(backupPath, "failed to create backup file", err)
	}

	if _, err = io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		_ = os.Remove(backupPath)
		return "", errors.NewBackupError(backupPath, "failed to copy file content", err)
	}

	if err = dstFile.Close(); err != nil {
		_ = os.Remove(backupPath)
		return "", errors.NewBackupError(backupPath, "failed to close backup file", err)
	}

	return backupPath, nil
}

// CleanupBackup removes a backup file that is no longer needed, for
// example when the run failed and the original output was left untouched.
func (bm *Manager) CleanupBackup(backupPath string) error {
	if backupPath == "" {
		return nil
	}

	err := os.Remove(backupPath)
	if err != nil && !os.IsNotExist(err) {
		return errors.NewBackupError(backupPath, "failed to remove backup file", err)
	}

	return nil
}

func (bm *Manager) generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	timestamp := bm.now().Format("20060102_150405")

	backupPath := filepath.Join(dir, fmt.Sprintf("%s.%s.bak", base, timestamp))
	for i := 1; fileExists(backupPath); i++ {
		backupPath = filepath.Join(dir, fmt.Sprintf("%s.%s.%d.bak", base, timestamp, i))
	}
	return backupPath
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
